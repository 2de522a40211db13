package bootstrap

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/espclock/espclock/internal/logging"
	"github.com/espclock/espclock/internal/metrics"
)

// Boot states.
const (
	StateInit               = "init"
	StateAPBootstrap        = "ap_bootstrap"
	StateStationConnect     = "station_connect"
	StateOperational        = "operational"
	StateCredentialsCleared = "credentials_cleared"
	StateReboot             = "reboot"
)

// Boot events.
const (
	EventNoCredentials       = "no_credentials"
	EventCredentialsFound    = "credentials_found"
	EventCredentialsReceived = "credentials_received"
	EventConnectFailed       = "connect_failed"
	EventConnected           = "connected"
	EventCredentialsCleared  = "credentials_cleared"
	EventFatalError          = "fatal_error"
)

// States lists every boot state, in boot order.
var States = []string{
	StateInit,
	StateAPBootstrap,
	StateStationConnect,
	StateOperational,
	StateCredentialsCleared,
	StateReboot,
}

// newMachine builds the transition table for one boot cycle.
func newMachine() *fsm.FSM {
	events := fsm.Events{
		{Name: EventNoCredentials, Src: []string{StateInit}, Dst: StateAPBootstrap},
		{Name: EventCredentialsFound, Src: []string{StateInit}, Dst: StateStationConnect},
		{Name: EventCredentialsReceived, Src: []string{StateAPBootstrap}, Dst: StateReboot},
		{Name: EventConnectFailed, Src: []string{StateStationConnect}, Dst: StateCredentialsCleared},
		{Name: EventConnected, Src: []string{StateStationConnect}, Dst: StateOperational},
		{Name: EventCredentialsCleared, Src: []string{StateCredentialsCleared}, Dst: StateReboot},

		// Peripheral and socket failures abort the cycle.
		{Name: EventFatalError, Src: []string{StateInit, StateAPBootstrap, StateStationConnect}, Dst: StateReboot},
	}

	callbacks := fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			logging.LogStateTransition(e.Src, e.Dst, e.Event)
			metrics.SetBootState(e.Dst, States)
		},
	}

	return fsm.NewFSM(StateInit, events, callbacks)
}

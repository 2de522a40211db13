package netmode

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
)

// Kind tells access point handles from station handles.
type Kind string

const (
	KindAccessPoint Kind = "access_point"
	KindStation     Kind = "station"
)

// State is the lifecycle state of a handle.
type State string

const (
	StateStopped   State = "stopped"
	StateStarted   State = "started"
	StateConnected State = "connected"
	StateFailed    State = "failed"
)

// transitions lists the allowed state changes. Anything else is rejected.
var transitions = map[State][]State{
	StateStopped:   {StateStarted},
	StateStarted:   {StateConnected, StateFailed, StateStopped},
	StateConnected: {StateStopped},
	StateFailed:    {StateStopped},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

var (
	// ErrRadioBusy is returned by Start when another handle owns the radio.
	ErrRadioBusy = errors.New("radio is owned by another handle")

	// ErrNotStarted is returned by operations that need a running handle.
	ErrNotStarted = errors.New("network handle is not started")

	// ErrNotSupported is returned by Connect on an access point.
	ErrNotSupported = errors.New("operation not supported in this mode")
)

// TransitionError reports a rejected state change.
type TransitionError struct {
	Kind Kind
	From State
	To   State
}

// Error implements the error interface
func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: invalid transition %s -> %s", e.Kind, e.From, e.To)
}

// ConnectError reports a failed association with a network.
type ConnectError struct {
	SSID string
	Err  error
}

// Error implements the error interface
func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to %q: %v", e.SSID, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Configuration is a loggable description of a handle.
type Configuration struct {
	Kind  Kind       `json:"kind"`
	State State      `json:"state"`
	SSID  string     `json:"ssid"`
	IP    netip.Addr `json:"ip"`
}

func (c Configuration) String() string {
	if c.IP.IsValid() {
		return fmt.Sprintf("%s ssid=%q state=%s ip=%s", c.Kind, c.SSID, c.State, c.IP)
	}
	return fmt.Sprintf("%s ssid=%q state=%s", c.Kind, c.SSID, c.State)
}

// Mode is a handle over the radio in one operating mode.
type Mode interface {
	Kind() Kind
	State() State

	// Start claims the radio and brings the mode up.
	Start(ctx context.Context) error

	// Stop brings the mode down and releases the radio. Stopping a stopped
	// handle is a no-op.
	Stop(ctx context.Context) error

	// Connect associates a station with its network.
	Connect(ctx context.Context) error

	// IsUp reports whether the network interface has come up.
	IsUp(ctx context.Context) (bool, error)

	// IsConnected reports whether the handle is associated and usable.
	IsConnected(ctx context.Context) (bool, error)

	// WaitUp blocks until IsUp is true or ctx is done.
	WaitUp(ctx context.Context) error

	Configuration() Configuration
}

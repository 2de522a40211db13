// Package metrics defines the prometheus collectors exported by clockd on the
// operational web portal's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the clock collectors. A dedicated registry keeps the
// exported set small on constrained hosts.
var Registry = prometheus.NewRegistry()

var (
	// BootState is 1 for the current bootstrap state and 0 for the others.
	BootState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clock_boot_state",
			Help: "Current bootstrap state machine state (1 = active).",
		},
		[]string{"state"},
	)

	// DNSQueries counts hijack responder outcomes.
	DNSQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clock_dns_queries_total",
			Help: "DNS queries seen by the hijack responder.",
		},
		[]string{"result"}, // answered, dropped, error
	)

	// PortalSubmissions counts /set_config outcomes.
	PortalSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clock_portal_submissions_total",
			Help: "Credential submissions received by the captive portal.",
		},
		[]string{"result"}, // accepted, too_large, invalid
	)

	// Reboots counts restarts requested by the orchestrator.
	Reboots = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clock_reboots_total",
			Help: "Reboots triggered by the bootstrap orchestrator.",
		},
		[]string{"reason"},
	)
)

func init() {
	Registry.MustRegister(BootState)
	Registry.MustRegister(DNSQueries)
	Registry.MustRegister(PortalSubmissions)
	Registry.MustRegister(Reboots)
}

// SetBootState marks state as the active one among states.
func SetBootState(state string, states []string) {
	for _, s := range states {
		v := 0.0
		if s == state {
			v = 1
		}
		BootState.WithLabelValues(s).Set(v)
	}
}

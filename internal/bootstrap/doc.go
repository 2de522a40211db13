// Package bootstrap decides at boot whether the clock runs its setup access
// point or joins the stored network, and drives the recovery cycle when that
// fails.
//
// # Boot Cycle
//
// One cycle is a run of the state machine
//
//	init ──no_credentials──▶ ap_bootstrap ──credentials_received──▶ reboot
//	  │
//	  └──credentials_found──▶ station_connect ──connected──▶ operational
//	                               │
//	                               └──connect_failed──▶ credentials_cleared ──credentials_cleared──▶ reboot
//
// plus a fatal_error event from any working state to reboot when a
// peripheral cannot be started or a socket cannot be bound.
//
// In ap_bootstrap the access point, the DNS hijack responder and the captive
// portal run together under one errgroup. The orchestrator blocks on the
// cycle's mailbox; the captive portal fills it. Stored credentials are only
// ever written or deleted by the orchestrator.
//
// # Reboot
//
// Device.Run loops over cycles. When a cycle ends in reboot it tears the
// cycle down and calls its Rebooter:
//
//   - InProcessRebooter waits for the reboot delay and the next cycle
//     starts from init with a fresh mailbox. Repeated fatal errors double
//     the delay up to MaxRebootDelay. This is the default.
//   - SystemRebooter restarts the host (Linux only).
//   - ExecRebooter replaces the process with a fresh copy of itself.
//
// When a cycle reaches operational, Device runs the web portal and the mDNS
// advertisement until the context is cancelled or a factory reset is
// requested from the web portal.
package bootstrap

// Package portal implements the two HTTP surfaces of the clock.
//
// # Captive Portal
//
// While the clock has no Wi-Fi credentials it runs an access point, answers
// every DNS name with its own address and serves the captive portal. Phones
// and laptops probe well-known URLs after joining a network; every probe path
// gets the configuration page so the operating system pops up the portal.
//
//	GET  /                      configuration page
//	GET  /generate_204 ...      configuration page (OS connectivity probes)
//	POST /set_config            {"ssid": "...", "password": "..."}
//	GET  /qr.png                QR code for joining the setup access point
//
// /set_config bodies larger than the configured limit (128 bytes by default)
// get 413 "Request too big". Bodies that are not valid credentials get a 200
// "JSON error" and change nothing. Valid credentials are handed to the boot
// code through the mailbox passed to NewCaptivePortal; a later submission
// replaces an earlier one.
//
// # Web Portal
//
// Once the clock is connected it serves a small settings page:
//
//	GET  /get_status            JSON status (network, timezone, time, display)
//	POST /set_timezone          {"timezone": "Europe/Madrid"}
//	GET  /set_brightness?N      N in 0..7
//	GET  /set_theme?orange      orange, green or blue
//	GET  /set_hour_format?24    12 or 24
//	GET  /factory_reset         request a factory reset
//	GET  /ws/status             websocket, one status message per second
//	GET  /metrics               prometheus metrics
//
// The web portal never clears stored state itself: a factory reset is a
// request delivered on ResetRequests and carried out by the device
// supervisor.
//
// Both servers log each request through the same chi middleware and stop
// gracefully when the context passed to Start is cancelled.
package portal

// Package logging provides structured logging for the clock daemon and the
// configuration utility.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the bootstrap code: state machine transitions, DNS
// hijack answers, portal requests and raw packet dumps.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Packet hex dumps, per-query DNS answers, poll iterations
//   - Info: Boot state transitions, radio start/stop, credential hand-off
//   - Warn: Dropped packets, best-effort storage failures
//   - Error: Failed bootstrap cycles, bind failures
//
// # Structured Logging
//
// All log functions use structured fields:
//
//	logging.Info("Access point started",
//	    zap.String("ssid", "esp-clock"),
//	    zap.String("ip", "192.168.71.1"),
//	)
//
// # Specialized Logging
//
//	logging.LogStateTransition("init", "ap_bootstrap", "no_credentials")
//	logging.LogDNSQuery(clientAddr, length, "answered")
//	logging.LogHTTPRequest(remoteAddr, method, path, status, duration)
//
// # Configuration
//
// The level comes from the --log-level flag or the CLOCK_LOG_LEVEL environment
// variable. When neither is set the logger is a no-op, which keeps clock-cfg
// output clean.
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. Initialize should be
// called once before any goroutines are started.
package logging

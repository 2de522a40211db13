// Package discovery advertises and finds clocks with multicast DNS.
//
// Once a clock has joined the home network, clockd registers it as an
// "_http._tcp" service named after the configured instance (by default
// "esp-clock") with TXT records identifying the model. clock-cfg browses the
// same service type and keeps entries whose instance name starts with
// "esp-clock" or whose "model" record says so.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	clocks, err := scanner.ScanForClocks(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, c := range clocks {
//	    fmt.Println(c.Instance, c.BaseURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Clocks must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery

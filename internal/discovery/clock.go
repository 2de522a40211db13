package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Clock is a clock found on the local network.
type Clock struct {
	// Instance is the mDNS instance name (e.g., "esp-clock")
	Instance string

	// Hostname is the mDNS hostname (e.g., "esp-clock.local.")
	Hostname string

	IP   string
	Port int

	// Metadata holds the TXT records: "model", "version", "ssid"
	Metadata map[string]string

	DiscoveredAt time.Time
}

func (c *Clock) String() string {
	return fmt.Sprintf("Clock %s (%s) at %s", c.Instance, c.Hostname, net.JoinHostPort(c.IP, strconv.Itoa(c.Port)))
}

// BaseURL returns the web portal URL.
func (c *Clock) BaseURL() string {
	return "http://" + net.JoinHostPort(c.IP, strconv.Itoa(c.Port))
}

// GetMetadata returns a TXT value, or "" when absent.
func (c *Clock) GetMetadata(key string) string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata[key]
}

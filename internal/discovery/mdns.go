package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/espclock/espclock/internal/logging"
)

const (
	// ServiceType is the mDNS service type clocks advertise while operational.
	ServiceType = "_http._tcp"

	ServiceDomain = "local."

	DefaultScanTimeout = 5 * time.Second

	DefaultPort = 80

	// InstancePrefix identifies clocks among other HTTP services.
	InstancePrefix = "esp-clock"

	// Model is the TXT "model" value clocks publish.
	Model = "esp-clock"
)

// Scanner handles mDNS clock discovery.
type Scanner struct {
	Timeout time.Duration
}

func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForClocks browses for Timeout and returns every clock seen.
func (s *Scanner) ScanForClocks(ctx context.Context) ([]*Clock, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu     sync.Mutex
		clocks []*Clock
		seen   = make(map[string]bool)
		done   = make(chan struct{})
	)

	go func() {
		defer close(done)
		for entry := range entries {
			clock := parseServiceEntry(entry)
			if clock == nil {
				continue
			}
			mu.Lock()
			if !seen[clock.Instance] {
				seen[clock.Instance] = true
				clocks = append(clocks, clock)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	// The resolver closes entries once it has shut down.
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return clocks, nil
}

// WaitForClock returns as soon as instance is seen, or fails after Timeout.
func (s *Scanner) WaitForClock(ctx context.Context, instance string) (*Clock, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Clock, 1)

	go func() {
		for entry := range entries {
			clock := parseServiceEntry(entry)
			if clock != nil && clock.Instance == instance {
				select {
				case found <- clock:
				default:
				}
				cancel()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case clock := <-found:
		return clock, nil
	case <-ctx.Done():
		select {
		case clock := <-found:
			return clock, nil
		default:
		}
		return nil, fmt.Errorf("clock %s not found within %s", instance, s.Timeout)
	}
}

// parseServiceEntry returns nil for entries that are not clocks.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Clock {
	if entry == nil {
		return nil
	}

	metadata := parseTXT(entry.Text)
	if !strings.HasPrefix(entry.Instance, InstancePrefix) && metadata["model"] != Model {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &Clock{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

func parseTXT(records []string) map[string]string {
	metadata := make(map[string]string, len(records))
	for _, txt := range records {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}
	return metadata
}

// TXT builds the records a clock publishes.
func TXT(version, ssid string) []string {
	txt := []string{"model=" + Model, "path=/"}
	if version != "" {
		txt = append(txt, "version="+version)
	}
	if ssid != "" {
		txt = append(txt, "ssid="+ssid)
	}
	return txt
}

// Advertise registers instance as an _http._tcp service on port and keeps
// it registered until ctx is done.
func Advertise(ctx context.Context, instance string, port int, txt []string) error {
	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	defer server.Shutdown()

	logging.Info("mDNS service registered",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)

	<-ctx.Done()
	logging.Debug("mDNS service withdrawn", zap.String("instance", instance))
	return nil
}

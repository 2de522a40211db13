package config

import (
	"sort"
	"time"
)

// Registry is the clock-cfg state file. It remembers clocks found by mDNS
// scans or configured by address.
type Registry struct {
	Version     int               `yaml:"version"`
	Clocks      map[string]*Clock `yaml:"clocks,omitempty"` // Keyed by mDNS instance name
	Preferences *Preferences      `yaml:"preferences,omitempty"`
}

// Clock is what the utility knows about one clock.
type Clock struct {
	Nickname string    `yaml:"nickname,omitempty"`
	LastIP   string    `yaml:"last_ip,omitempty"`
	LastPort int       `yaml:"last_port,omitempty"`
	LastSeen time.Time `yaml:"last_seen,omitempty"`
	SSID     string    `yaml:"ssid,omitempty"` // Network the clock was last configured for
}

// Preferences are application-wide clock-cfg settings.
type Preferences struct {
	DiscoverTimeout int    `yaml:"discover_timeout"` // seconds
	DefaultTimezone string `yaml:"default_timezone,omitempty"`
}

func defaultPreferences() *Preferences {
	return &Preferences{DiscoverTimeout: 5}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Clocks:      make(map[string]*Clock),
		Preferences: defaultPreferences(),
	}
}

// GetClock returns the entry for instance, or nil.
func (r *Registry) GetClock(instance string) *Clock {
	return r.Clocks[instance]
}

// EnsureClock returns the entry for instance, creating it when missing.
func (r *Registry) EnsureClock(instance string) *Clock {
	if r.Clocks == nil {
		r.Clocks = make(map[string]*Clock)
	}
	c, ok := r.Clocks[instance]
	if !ok {
		c = &Clock{}
		r.Clocks[instance] = c
	}
	return c
}

// UpdateClockLastSeen records a sighting of instance at ip:port.
func (r *Registry) UpdateClockLastSeen(instance, ip string, port int) {
	c := r.EnsureClock(instance)
	c.LastIP = ip
	c.LastPort = port
	c.LastSeen = time.Now()
}

// SetClockNickname sets a user-friendly name.
func (r *Registry) SetClockNickname(instance, nickname string) {
	r.EnsureClock(instance).Nickname = nickname
}

// SetClockSSID remembers the network last submitted to instance.
func (r *Registry) SetClockSSID(instance, ssid string) {
	r.EnsureClock(instance).SSID = ssid
}

// RemoveClock forgets instance.
func (r *Registry) RemoveClock(instance string) {
	delete(r.Clocks, instance)
}

// FindByNickname returns the instance name whose nickname or instance name
// matches name.
func (r *Registry) FindByNickname(name string) (string, *Clock, bool) {
	if c, ok := r.Clocks[name]; ok {
		return name, c, true
	}
	for _, instance := range r.Instances() {
		if c := r.Clocks[instance]; c.Nickname == name {
			return instance, c, true
		}
	}
	return "", nil, false
}

// Instances returns the known instance names, sorted.
func (r *Registry) Instances() []string {
	names := make([]string, 0, len(r.Clocks))
	for name := range r.Clocks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DisplayName returns the nickname if set, else the instance name.
func (r *Registry) DisplayName(instance string) string {
	if c := r.Clocks[instance]; c != nil && c.Nickname != "" {
		return c.Nickname
	}
	return instance
}

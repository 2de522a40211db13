package bootstrap

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"

	"github.com/espclock/espclock/internal/clock"
	"github.com/espclock/espclock/internal/dnsresponder"
	"github.com/espclock/espclock/internal/netmode"
	"github.com/espclock/espclock/internal/nvs"
	"github.com/espclock/espclock/internal/wifi"
)

const testWait = 5 * time.Second

var loopback = netip.MustParseAddr("127.0.0.1")

type testEnv struct {
	partition *nvs.Partition
	creds     *nvs.CredentialStore
	tz        *nvs.TimezoneStore
	prefs     *nvs.PrefsStore
	driver    *netmode.SimDriver
	radio     *netmode.Radio
	config    Config
	ready     chan Endpoints
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	p, err := nvs.OpenPartition(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	creds, err := nvs.NewCredentialStore(p)
	if err != nil {
		t.Fatal(err)
	}
	tz, err := nvs.NewTimezoneStore(p)
	if err != nil {
		t.Fatal(err)
	}
	prefs, err := nvs.NewPrefsStore(p)
	if err != nil {
		t.Fatal(err)
	}

	drv := netmode.NewSimDriver(map[string]string{"home": "secret123"})
	env := &testEnv{
		partition: p,
		creds:     creds,
		tz:        tz,
		prefs:     prefs,
		driver:    drv,
		radio:     netmode.NewRadio(drv),
		ready:     make(chan Endpoints, 4),
	}
	env.config = Config{
		AccessPoint: netmode.APConfig{
			SSID:           "esp-clock",
			Password:       "bttf-rust",
			IP:             loopback,
			MaxConnections: 4,
		},
		DNS:                 dnsresponder.Config{Port: 0},
		PortalPort:          0,
		ConnectPollInterval: 5 * time.Millisecond,
		OnSetupReady:        func(e Endpoints) { env.ready <- e },
	}
	return env
}

func (env *testEnv) orchestrator() *Orchestrator {
	return NewOrchestrator(env.config, env.radio, env.creds)
}

type cycleResult struct {
	res Result
	err error
}

func runCycleAsync(ctx context.Context, o *Orchestrator) <-chan cycleResult {
	out := make(chan cycleResult, 1)
	go func() {
		res, err := o.RunCycle(ctx)
		out <- cycleResult{res, err}
	}()
	return out
}

func waitReady(t *testing.T, ch <-chan Endpoints) Endpoints {
	t.Helper()
	select {
	case ep := <-ch:
		return ep
	case <-time.After(testWait):
		t.Fatal("setup services never became ready")
	}
	return Endpoints{}
}

func waitCycle(t *testing.T, ch <-chan cycleResult) cycleResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(testWait):
		t.Fatal("boot cycle did not finish")
	}
	return cycleResult{}
}

func submit(t *testing.T, addr net.Addr, body string) (int, string) {
	t.Helper()
	resp, err := http.Post("http://"+addr.String()+"/set_config", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /set_config: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestRunCycle_FirstBootSetup(t *testing.T) {
	env := newTestEnv(t)
	o := env.orchestrator()

	done := runCycleAsync(context.Background(), o)
	ep := waitReady(t, env.ready)

	if o.State() != StateAPBootstrap {
		t.Errorf("state = %s, want %s", o.State(), StateAPBootstrap)
	}
	if env.driver.Mode() != netmode.KindAccessPoint {
		t.Errorf("radio mode = %q, want access point", env.driver.Mode())
	}

	// Any name resolves to the access point address.
	q := new(dns.Msg)
	q.SetQuestion("connectivitycheck.gstatic.com.", dns.TypeA)
	c := &dns.Client{Net: "udp", Timeout: 2 * time.Second}
	r, _, err := c.Exchange(q, ep.DNS.String())
	if err != nil {
		t.Fatalf("DNS exchange: %v", err)
	}
	if len(r.Answer) != 1 {
		t.Fatalf("answers = %d, want 1", len(r.Answer))
	}
	if a, ok := r.Answer[0].(*dns.A); !ok || !a.A.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Errorf("answer = %v, want 127.0.0.1", r.Answer[0])
	}

	// A malformed submission leaves the portal running.
	if code, body := submit(t, ep.Portal, `{"ssid":`); code != http.StatusOK || body != "JSON error" {
		t.Errorf("malformed submission = %d %q", code, body)
	}
	if code, _ := submit(t, ep.Portal, `{"ssid":"home","password":"secret123"}`); code != http.StatusOK {
		t.Errorf("submission status = %d", code)
	}

	got := waitCycle(t, done)
	if got.err != nil {
		t.Fatalf("RunCycle() error = %v", got.err)
	}
	if got.res.State != StateReboot || got.res.Reason != EventCredentialsReceived {
		t.Errorf("result = %+v, want reboot after credentials_received", got.res)
	}

	stored, err := env.creds.Load()
	if err != nil || stored == nil {
		t.Fatalf("stored credentials = %v, %v", stored, err)
	}
	if *stored != (wifi.Credentials{SSID: "home", Password: "secret123"}) {
		t.Errorf("stored = %+v", stored)
	}
	if env.radio.Owner() != nil || env.driver.Mode() != "" {
		t.Error("access point should be stopped before reboot")
	}

	// The DNS socket and the portal listener are closed with the cycle.
	if _, err := net.DialTimeout("tcp", ep.Portal.String(), 200*time.Millisecond); err == nil {
		t.Error("captive portal still accepting connections")
	}
}

func TestRunCycle_StoredCredentialsConnect(t *testing.T) {
	env := newTestEnv(t)
	env.driver.AssociatePolls = 3
	env.creds.Save(wifi.Credentials{SSID: "home", Password: "secret123"})

	res, err := env.orchestrator().RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if res.State != StateOperational {
		t.Fatalf("state = %s, want operational", res.State)
	}
	if res.Station == nil || res.Station.State() != netmode.StateConnected {
		t.Fatalf("station = %+v, want a connected handle", res.Station)
	}
	if env.radio.Owner() != netmode.Mode(res.Station) {
		t.Error("station should own the radio while operational")
	}
	if starts, _ := env.driver.Counts(); starts != 1 {
		t.Errorf("radio started %d times, want 1 (no access point)", starts)
	}
	if stored, _ := env.creds.Load(); stored == nil {
		t.Error("credentials must be kept after a successful connect")
	}
}

func TestRunCycle_ConnectFailureClearsCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.creds.Save(wifi.Credentials{SSID: "home", Password: "wrong-password"})
	if err := env.tz.Save("Europe/Madrid"); err != nil {
		t.Fatal(err)
	}

	o := env.orchestrator()
	res, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if res.State != StateReboot || res.Reason != EventConnectFailed {
		t.Errorf("result = %+v, want reboot after connect_failed", res)
	}

	if stored, err := env.creds.Load(); err != nil || stored != nil {
		t.Errorf("credentials = %v, %v; want deleted", stored, err)
	}
	if tz, ok, _ := env.tz.Load(); !ok || tz != "Europe/Madrid" {
		t.Errorf("timezone = %q, %v; a connect failure must not clear it", tz, ok)
	}
	if env.radio.Owner() != nil {
		t.Error("station should be stopped before reboot")
	}

	// The next cycle falls back to the access point.
	ctx, cancel := context.WithCancel(context.Background())
	done := runCycleAsync(ctx, o)
	waitReady(t, env.ready)
	cancel()
	if got := waitCycle(t, done); !errors.Is(got.err, context.Canceled) {
		t.Errorf("RunCycle() after cancel error = %v, want context.Canceled", got.err)
	}
	if env.radio.Owner() != nil {
		t.Error("cancelled cycle must release the radio")
	}
}

func TestUnreadableStoreStartsSetup(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.partition.Dir(), nvs.WifiNamespace+".yaml")
	if err := os.WriteFile(path, []byte("net_info: [unclosed\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := env.creds.Load(); err == nil {
		t.Fatal("expected the corrupted namespace to fail to load")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runCycleAsync(ctx, env.orchestrator())

	waitReady(t, env.ready)
	cancel()
	waitCycle(t, done)
}

func TestDNSBindFailureReboots(t *testing.T) {
	env := newTestEnv(t)

	busy, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()
	env.config.DNS.Port = busy.LocalAddr().(*net.UDPAddr).Port

	res, err := env.orchestrator().RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if res.State != StateReboot || res.Reason != EventFatalError {
		t.Errorf("result = %+v, want reboot after fatal_error", res)
	}
	if env.radio.Owner() != nil {
		t.Error("access point should be stopped after a bind failure")
	}
}

func TestRadioFailureReboots(t *testing.T) {
	env := newTestEnv(t)
	env.driver.StartErr = errors.New("modem not responding")

	res, err := env.orchestrator().RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if res.Reason != EventFatalError {
		t.Errorf("reason = %q, want %q", res.Reason, EventFatalError)
	}
}

type recordingRebooter struct {
	mu      sync.Mutex
	reasons []string
}

func (r *recordingRebooter) Reboot(ctx context.Context, reason string) error {
	r.mu.Lock()
	r.reasons = append(r.reasons, reason)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingRebooter) Reasons() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.reasons...)
}

func TestDevice_FullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	display, err := clock.NewDisplay("UTC")
	if err != nil {
		t.Fatal(err)
	}

	operational := make(chan net.Addr, 2)
	rebooter := &recordingRebooter{}
	dev := NewDevice(
		DeviceConfig{
			WebAddr:         "127.0.0.1:0",
			DefaultTimezone: "UTC",
			OnOperational:   func(a net.Addr) { operational <- a },
		},
		env.orchestrator(), rebooter, env.creds, env.tz, env.prefs, display,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- dev.Run(ctx) }()

	// Cycle 1: no credentials, set them through the captive portal.
	ep := waitReady(t, env.ready)
	submit(t, ep.Portal, `{"ssid":"home","password":"secret123"}`)

	// Cycle 2: joins the network and serves the web portal.
	var webAddr net.Addr
	select {
	case webAddr = <-operational:
	case <-time.After(testWait):
		t.Fatal("device never became operational")
	}

	req, _ := http.NewRequest(http.MethodPost, "http://"+webAddr.String()+"/set_timezone",
		strings.NewReader(`{"timezone":"Asia/Tokyo"}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if tz, ok, _ := env.tz.Load(); !ok || tz != "Asia/Tokyo" {
		t.Errorf("timezone = %q, %v; want saved by the web portal", tz, ok)
	}

	resp, err = http.Get("http://" + webAddr.String() + "/factory_reset")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	// Cycle 3: back to setup with everything forgotten.
	waitReady(t, env.ready)
	if stored, _ := env.creds.Load(); stored != nil {
		t.Errorf("credentials = %+v after factory reset", stored)
	}
	if _, ok, _ := env.tz.Load(); ok {
		t.Error("timezone should be deleted by factory reset")
	}

	cancel()
	select {
	case err := <-runDone:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(testWait):
		t.Fatal("Run() did not return after cancel")
	}

	want := []string{EventCredentialsReceived, ReasonFactoryReset}
	got := rebooter.Reasons()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("reboot reasons = %v, want %v", got, want)
	}
}

func TestNewRebooter(t *testing.T) {
	for _, mode := range []string{"", RebootInProcess, RebootSystem, RebootExec} {
		if _, err := NewRebooter(mode, 0); err != nil {
			t.Errorf("NewRebooter(%q) error = %v", mode, err)
		}
	}
	if _, err := NewRebooter("halt", 0); err == nil {
		t.Error("unknown mode should fail")
	}

	r, _ := NewRebooter(RebootInProcess, 0)
	if ip := r.(*InProcessRebooter); ip.Delay != DefaultRebootDelay {
		t.Errorf("default Delay = %v, want %v", ip.Delay, DefaultRebootDelay)
	}
	r, _ = NewRebooter(RebootExec, 250*time.Millisecond)
	if ex := r.(*ExecRebooter); ex.Delay != 250*time.Millisecond {
		t.Errorf("exec Delay = %v, want 250ms", ex.Delay)
	}
}

func TestInProcessRebooter(t *testing.T) {
	r := &InProcessRebooter{Delay: 10 * time.Millisecond}
	if err := r.Reboot(context.Background(), "test"); err != nil {
		t.Errorf("Reboot() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (&InProcessRebooter{Delay: time.Hour}).Reboot(ctx, "test"); !errors.Is(err, context.Canceled) {
		t.Errorf("Reboot() with cancelled ctx error = %v", err)
	}
}

func TestInProcessRebooter_FatalBackoff(t *testing.T) {
	r := &InProcessRebooter{Delay: 100 * time.Millisecond, MaxDelay: time.Second}

	steps := []struct {
		reason string
		want   time.Duration
	}{
		{EventFatalError, 100 * time.Millisecond},
		{EventFatalError, 200 * time.Millisecond},
		{EventFatalError, 400 * time.Millisecond},
		{EventFatalError, 800 * time.Millisecond},
		{EventFatalError, time.Second},
		{EventFatalError, time.Second},
		{EventCredentialsReceived, 100 * time.Millisecond},
		{EventFatalError, 100 * time.Millisecond},
	}
	for i, step := range steps {
		if got := r.nextDelay(step.reason); got != step.want {
			t.Errorf("step %d (%s): delay = %v, want %v", i, step.reason, got, step.want)
		}
	}

	// A zero Delay still waits after a fatal error.
	if got := (&InProcessRebooter{}).nextDelay(EventFatalError); got != DefaultRebootDelay {
		t.Errorf("zero Delay fatal reboot = %v, want %v", got, DefaultRebootDelay)
	}
}

// countingRebooter counts reboots and delegates the wait.
type countingRebooter struct {
	next  Rebooter
	mu    sync.Mutex
	count int
}

func (r *countingRebooter) Reboot(ctx context.Context, reason string) error {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
	return r.next.Reboot(ctx, reason)
}

func (r *countingRebooter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func TestDevice_RepeatedFatalErrorDoesNotSpin(t *testing.T) {
	env := newTestEnv(t)

	busy, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()
	env.config.DNS.Port = busy.LocalAddr().(*net.UDPAddr).Port

	display, err := clock.NewDisplay("UTC")
	if err != nil {
		t.Fatal(err)
	}
	inner, err := NewRebooter(RebootInProcess, 20*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	rebooter := &countingRebooter{next: inner}
	dev := NewDevice(
		DeviceConfig{WebAddr: "127.0.0.1:0", DefaultTimezone: "UTC"},
		env.orchestrator(), rebooter, env.creds, env.tz, env.prefs, display,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := dev.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// 20ms, 40ms, 80ms, 160ms: at most five reboots fit in 300ms.
	if n := rebooter.Count(); n < 1 || n > 6 {
		t.Errorf("reboots in 300ms = %d, want between 1 and 6", n)
	}
}

func TestMachineRejectsUnknownTransition(t *testing.T) {
	m := newMachine()
	if err := m.Event(context.Background(), EventConnected); err == nil {
		t.Error("connected from init should be rejected")
	}
	if m.Current() != StateInit {
		t.Errorf("state = %s, want init", m.Current())
	}
}

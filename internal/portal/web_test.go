package portal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/espclock/espclock/internal/clock"
	"github.com/espclock/espclock/internal/metrics"
)

type fakeSettings struct {
	mu         sync.Mutex
	timezone   string
	hourFormat clock.HourFormat
	saves      int
	err        error
}

func (f *fakeSettings) SaveTimezone(tz string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.timezone = tz
	f.saves++
	return nil
}

func (f *fakeSettings) SaveHourFormat(hf clock.HourFormat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.hourFormat = hf
	f.saves++
	return nil
}

func newTestWeb(t *testing.T) (*WebPortal, *clock.Display, *fakeSettings) {
	t.Helper()
	d, err := clock.NewDisplay("UTC")
	if err != nil {
		t.Fatal(err)
	}
	s := &fakeSettings{}
	p := NewWebPortal(WebConfig{SSID: "home", StatusInterval: 10 * time.Millisecond}, d, s)
	return p, d, s
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestWebPortal_Status(t *testing.T) {
	p, d, _ := newTestWeb(t)
	if err := d.SetBrightness(3); err != nil {
		t.Fatal(err)
	}

	rec := get(p.Handler(), "/get_status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var st Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.SSID != "home" || st.Timezone != "UTC" || st.Brightness != 3 || st.Theme != clock.ThemeOrange {
		t.Errorf("status = %+v", st)
	}
	if len(st.Time) != 5 {
		t.Errorf("time = %q, want HH:MM", st.Time)
	}
}

func TestWebPortal_SetTimezone(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantSaved  string
	}{
		{"valid", `{"timezone":"Europe/Madrid"}`, http.StatusOK, "Europe/Madrid"},
		{"unknown zone", `{"timezone":"Mars/Olympus"}`, http.StatusBadRequest, ""},
		{"bad json", `{"timezone":`, http.StatusBadRequest, ""},
		{"empty", `{}`, http.StatusBadRequest, ""},
		{"too big", `{"timezone":"` + strings.Repeat("A", 200) + `"}`, http.StatusRequestEntityTooLarge, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, d, s := newTestWeb(t)
			rec := httptest.NewRecorder()
			p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/set_timezone", strings.NewReader(tt.body)))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if s.timezone != tt.wantSaved {
				t.Errorf("saved timezone = %q, want %q", s.timezone, tt.wantSaved)
			}
			if tt.wantSaved != "" && d.Timezone() != tt.wantSaved {
				t.Errorf("display timezone = %q", d.Timezone())
			}
			if tt.wantSaved == "" && d.Timezone() != "UTC" {
				t.Errorf("display timezone changed to %q on a rejected request", d.Timezone())
			}
		})
	}
}

func TestWebPortal_SetTimezoneSaveFailure(t *testing.T) {
	p, _, s := newTestWeb(t)
	s.err = errors.New("disk full")

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/set_timezone",
		strings.NewReader(`{"timezone":"Asia/Tokyo"}`)))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestWebPortal_SetBrightness(t *testing.T) {
	tests := []struct {
		query      string
		wantStatus int
		want       uint8
	}{
		{"0", http.StatusOK, 0},
		{"5", http.StatusOK, 5},
		{"7", http.StatusOK, 7},
		{"8", http.StatusBadRequest, clock.MaxBrightness},
		{"-1", http.StatusBadRequest, clock.MaxBrightness},
		{"bright", http.StatusBadRequest, clock.MaxBrightness},
		{"", http.StatusBadRequest, clock.MaxBrightness},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			p, d, _ := newTestWeb(t)
			rec := get(p.Handler(), "/set_brightness?"+tt.query)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := d.Snapshot().Brightness; got != tt.want {
				t.Errorf("brightness = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWebPortal_SetTheme(t *testing.T) {
	p, d, _ := newTestWeb(t)

	if rec := get(p.Handler(), "/set_theme?blue"); rec.Code != http.StatusOK || rec.Body.String() != "Theme Updated!" {
		t.Fatalf("set_theme?blue = %d %q", rec.Code, rec.Body.String())
	}
	if d.Snapshot().Theme != clock.ThemeBlue {
		t.Errorf("theme = %s, want blue", d.Snapshot().Theme)
	}
	if rec := get(p.Handler(), "/set_theme?purple"); rec.Code != http.StatusBadRequest {
		t.Errorf("set_theme?purple status = %d, want 400", rec.Code)
	}
	if d.Snapshot().Theme != clock.ThemeBlue {
		t.Error("an invalid theme must not change the current one")
	}
}

func TestWebPortal_SetHourFormat(t *testing.T) {
	p, d, s := newTestWeb(t)

	if rec := get(p.Handler(), "/set_hour_format?12"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if s.hourFormat != clock.TwelveHour || d.Snapshot().HourFormat != "12h" {
		t.Errorf("hour format not applied: saved=%v display=%s", s.hourFormat, d.Snapshot().HourFormat)
	}
	if rec := get(p.Handler(), "/set_hour_format?13"); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWebPortal_FactoryResetIsARequest(t *testing.T) {
	p, _, s := newTestWeb(t)

	for i := 0; i < 3; i++ {
		rec := get(p.Handler(), "/factory_reset")
		if rec.Code != http.StatusOK || rec.Body.String() != "Factory reset initiated" {
			t.Fatalf("factory_reset = %d %q", rec.Code, rec.Body.String())
		}
	}

	select {
	case <-p.ResetRequests():
	default:
		t.Fatal("no reset request delivered")
	}
	select {
	case <-p.ResetRequests():
		t.Error("repeated requests should be merged")
	default:
	}
	if s.saves != 0 {
		t.Error("the portal must not touch stored settings on reset")
	}
}

func TestWebPortal_Metrics(t *testing.T) {
	p, _, _ := newTestWeb(t)
	metrics.SetBootState("operational", []string{"init", "operational"})

	rec := get(p.Handler(), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `clock_boot_state{state="operational"} 1`) {
		t.Errorf("metrics output does not contain the boot state:\n%s", rec.Body.String())
	}
}

func TestWebPortal_StatusWebsocket(t *testing.T) {
	p, _, _ := newTestWeb(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/status"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < 2; i++ {
		var st Status
		if err := conn.ReadJSON(&st); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if st.SSID != "home" {
			t.Errorf("ssid = %q", st.SSID)
		}
	}
}

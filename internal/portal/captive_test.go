package portal

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/espclock/espclock/internal/mailbox"
	"github.com/espclock/espclock/internal/wifi"
)

func newTestCaptive() (*CaptivePortal, *mailbox.Slot[wifi.Credentials]) {
	box := mailbox.New[wifi.Credentials]()
	p := NewCaptivePortal(CaptiveConfig{APSSID: "esp-clock", APPassword: "bttf-rust"}, box)
	return p, box
}

func postConfig(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/set_config", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCaptivePortal_PageOnEveryProbePath(t *testing.T) {
	p, _ := newTestCaptive()

	paths := append([]string{"/"}, ProbePaths...)
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if !bytes.Equal(rec.Body.Bytes(), captivePage) {
				t.Error("body is not the configuration page")
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestCaptivePortal_SetConfig(t *testing.T) {
	p, box := newTestCaptive()

	rec := postConfig(t, p.Handler(), `{"ssid":"home","password":"secret123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret123") {
		t.Error("confirmation must not echo the password")
	}
	if !strings.Contains(rec.Body.String(), "home") {
		t.Errorf("confirmation should name the network, got %q", rec.Body.String())
	}

	got, ok := box.Get()
	if !ok {
		t.Fatal("mailbox is empty")
	}
	if got != (wifi.Credentials{SSID: "home", Password: "secret123"}) {
		t.Errorf("mailbox = %+v", got)
	}
}

func TestCaptivePortal_LastSubmissionWins(t *testing.T) {
	p, box := newTestCaptive()

	postConfig(t, p.Handler(), `{"ssid":"first","password":"one"}`)
	postConfig(t, p.Handler(), `{"ssid":"second","password":"two"}`)

	got, _ := box.Get()
	if got.SSID != "second" || got.Password != "two" {
		t.Errorf("mailbox = %+v, want the second submission", got)
	}
	if box.Writes() != 2 {
		t.Errorf("writes = %d, want 2", box.Writes())
	}
}

func TestCaptivePortal_RejectsOversizedBody(t *testing.T) {
	big := `{"ssid":"home","password":"` + strings.Repeat("x", 200) + `"}`

	t.Run("declared length", func(t *testing.T) {
		p, box := newTestCaptive()
		rec := postConfig(t, p.Handler(), big)

		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("status = %d, want 413", rec.Code)
		}
		if rec.Body.String() != MsgTooBig {
			t.Errorf("body = %q, want %q", rec.Body.String(), MsgTooBig)
		}
		if _, ok := box.Get(); ok {
			t.Error("mailbox must stay empty")
		}
	})

	t.Run("undeclared length", func(t *testing.T) {
		p, box := newTestCaptive()
		req := httptest.NewRequest(http.MethodPost, "/set_config", io.NopCloser(strings.NewReader(big)))
		req.ContentLength = -1
		rec := httptest.NewRecorder()
		p.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("status = %d, want 413", rec.Code)
		}
		if _, ok := box.Get(); ok {
			t.Error("mailbox must stay empty")
		}
	})

	t.Run("one byte over", func(t *testing.T) {
		p, _ := newTestCaptive()
		body := `{"ssid":"home","password":"pw"}`
		body += strings.Repeat(" ", DefaultMaxBodyBytes+1-len(body))
		if rec := postConfig(t, p.Handler(), body); rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", rec.Code)
		}
	})
}

func TestCaptivePortal_AcceptsBodyAtLimit(t *testing.T) {
	p, box := newTestCaptive()

	body := `{"ssid":"home","password":"pw"}`
	body += strings.Repeat(" ", DefaultMaxBodyBytes-len(body))

	rec := postConfig(t, p.Handler(), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if _, ok := box.Get(); !ok {
		t.Error("a body of exactly the limit should be accepted")
	}
}

func TestCaptivePortal_MalformedJSON(t *testing.T) {
	bodies := []string{
		`not json`,
		`{"ssid":"home",`,
		`{"ssid":42,"password":"x"}`,
		`{}`,
		`{"ssid":"","password":"x"}`,
		`{"ssid":"home"}`,
		`{"ssid":"home","password":null}`,
		`{"password":"secret123"}`,
		`{"ssid":null,"password":"secret123"}`,
		`{"ssid":"home","password":12345678}`,
		``,
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			p, box := newTestCaptive()
			rec := postConfig(t, p.Handler(), body)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", rec.Code)
			}
			if rec.Body.String() != MsgJSONError {
				t.Errorf("body = %q, want %q", rec.Body.String(), MsgJSONError)
			}
			if _, ok := box.Get(); ok {
				t.Error("mailbox must stay empty")
			}
		})
	}
}

func TestCaptivePortal_OpenNetworkEmptyPassword(t *testing.T) {
	p, box := newTestCaptive()

	rec := postConfig(t, p.Handler(), `{"ssid":"cafe","password":""}`)
	if rec.Body.String() == MsgJSONError {
		t.Fatal("an explicit empty password should be accepted")
	}
	got, ok := box.Get()
	if !ok || got.SSID != "cafe" || got.Password != "" {
		t.Errorf("mailbox = %+v, %v; want open network cafe", got, ok)
	}
}

func TestCaptivePortal_MalformedDoesNotClearPending(t *testing.T) {
	p, box := newTestCaptive()

	postConfig(t, p.Handler(), `{"ssid":"home","password":"secret123"}`)
	postConfig(t, p.Handler(), `garbage`)

	got, ok := box.Get()
	if !ok || got.SSID != "home" {
		t.Errorf("mailbox = %+v, %v; want the earlier submission", got, ok)
	}
}

func TestCaptivePortal_QRCode(t *testing.T) {
	p, _ := newTestCaptive()

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/qr.png", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}
}

func TestWiFiQRPayload(t *testing.T) {
	tests := []struct {
		ssid, password, want string
	}{
		{"esp-clock", "bttf-rust", "WIFI:T:WPA;S:esp-clock;P:bttf-rust;;"},
		{"open", "", "WIFI:T:nopass;S:open;;"},
		{`a;b`, `c:d`, `WIFI:T:WPA;S:a\;b;P:c\:d;;`},
	}
	for _, tt := range tests {
		if got := WiFiQRPayload(tt.ssid, tt.password); got != tt.want {
			t.Errorf("WiFiQRPayload(%q, %q) = %q, want %q", tt.ssid, tt.password, got, tt.want)
		}
	}
}

func TestCaptivePortal_ServeStopsOnCancel(t *testing.T) {
	p, box := newTestCaptive()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Serve(ctx, ln) }()

	resp, err := http.Post("http://"+ln.Addr().String()+"/set_config", "application/json",
		strings.NewReader(`{"ssid":"home","password":"secret123"}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()
	if _, ok := box.Get(); !ok {
		t.Error("credentials not delivered over a real listener")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

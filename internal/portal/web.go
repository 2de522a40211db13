package portal

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/espclock/espclock/internal/clock"
	"github.com/espclock/espclock/internal/logging"
	"github.com/espclock/espclock/internal/metrics"
)

// DefaultStatusInterval is the websocket status push period.
const DefaultStatusInterval = time.Second

// Settings persists the preferences changed from the web portal.
type Settings interface {
	SaveTimezone(tz string) error
	SaveHourFormat(f clock.HourFormat) error
}

// WebConfig configures the operational web portal.
type WebConfig struct {
	Addr string

	// SSID is the network the clock is connected to, shown in the status.
	SSID string

	MaxBodyBytes   int64
	StatusInterval time.Duration
}

// Status is the /get_status document.
type Status struct {
	SSID string `json:"ssid"`
	clock.Snapshot
}

// TimezoneRequest is the /set_timezone body.
type TimezoneRequest struct {
	Timezone string `json:"timezone"`
}

// WebPortal serves the settings page while the clock is operational.
type WebPortal struct {
	config   WebConfig
	display  *clock.Display
	settings Settings
	resets   chan struct{}
	handler  http.Handler
}

// NewWebPortal creates the operational portal.
func NewWebPortal(cfg WebConfig, display *clock.Display, settings Settings) *WebPortal {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = DefaultStatusInterval
	}
	p := &WebPortal{
		config:   cfg,
		display:  display,
		settings: settings,
		resets:   make(chan struct{}, 1),
	}

	r := newRouter()
	r.Get("/", p.handlePage)
	r.Get("/get_status", p.handleStatus)
	r.Post("/set_timezone", p.handleSetTimezone)
	r.Get("/set_brightness", p.handleSetBrightness)
	r.Get("/set_theme", p.handleSetTheme)
	r.Get("/set_hour_format", p.handleSetHourFormat)
	r.Get("/factory_reset", p.handleFactoryReset)
	r.Get("/ws/status", p.handleStatusSocket)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	p.handler = r

	return p
}

// Handler returns the portal's HTTP handler.
func (p *WebPortal) Handler() http.Handler {
	return p.handler
}

// Start serves on the configured address until ctx is done.
func (p *WebPortal) Start(ctx context.Context) error {
	return listen(ctx, "web", p.config.Addr, p.handler)
}

// Serve serves on ln until ctx is done.
func (p *WebPortal) Serve(ctx context.Context, ln net.Listener) error {
	return serve(ctx, "web", ln, p.handler)
}

// ResetRequests delivers factory reset requests. Requests made while one is
// pending are merged.
func (p *WebPortal) ResetRequests() <-chan struct{} {
	return p.resets
}

// Status returns the current status document.
func (p *WebPortal) Status() Status {
	return Status{SSID: p.config.SSID, Snapshot: p.display.Snapshot()}
}

func (p *WebPortal) handlePage(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, webPage)
}

func (p *WebPortal) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(p.Status()); err != nil {
		logging.Warn("Failed to write status", zap.Error(err))
	}
}

func (p *WebPortal) handleSetTimezone(w http.ResponseWriter, r *http.Request) {
	limit := p.config.MaxBodyBytes
	if r.ContentLength > limit {
		writeText(w, http.StatusRequestEntityTooLarge, MsgTooBig)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		writeText(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if int64(len(body)) > limit {
		writeText(w, http.StatusRequestEntityTooLarge, MsgTooBig)
		return
	}

	var req TimezoneRequest
	if err := json.Unmarshal(body, &req); err != nil {
		logging.Warn("Invalid timezone JSON", zap.Error(err))
		writeText(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := p.display.SetTimezone(req.Timezone); err != nil {
		logging.Warn("Invalid timezone", zap.String("timezone", req.Timezone), zap.Error(err))
		writeText(w, http.StatusBadRequest, "Invalid timezone")
		return
	}
	if err := p.settings.SaveTimezone(req.Timezone); err != nil {
		logging.Error("Failed to save timezone", zap.Error(err))
		writeText(w, http.StatusInternalServerError, "Timezone applied but not saved")
		return
	}
	writeText(w, http.StatusOK, "Timezone changed!")
}

// The setters below take their argument as the bare query string, e.g.
// /set_brightness?5.

func (p *WebPortal) handleSetBrightness(w http.ResponseWriter, r *http.Request) {
	level, err := strconv.ParseUint(r.URL.RawQuery, 10, 8)
	if err != nil || level > clock.MaxBrightness {
		writeText(w, http.StatusBadRequest, "Invalid brightness")
		return
	}
	if err := p.display.SetBrightness(uint8(level)); err != nil {
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}
	writeText(w, http.StatusOK, "Brightness Updated!")
}

func (p *WebPortal) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := clock.ParseTheme(r.URL.RawQuery)
	if err != nil {
		logging.Warn("Invalid theme", zap.String("theme", r.URL.RawQuery))
		writeText(w, http.StatusBadRequest, "Invalid theme")
		return
	}
	p.display.SetTheme(theme)
	writeText(w, http.StatusOK, "Theme Updated!")
}

func (p *WebPortal) handleSetHourFormat(w http.ResponseWriter, r *http.Request) {
	f, err := clock.ParseHourFormat(r.URL.RawQuery)
	if err != nil {
		writeText(w, http.StatusBadRequest, "Invalid hour format")
		return
	}
	p.display.SetHourFormat(f)
	if err := p.settings.SaveHourFormat(f); err != nil {
		logging.Error("Failed to save hour format", zap.Error(err))
		writeText(w, http.StatusInternalServerError, "Hour format applied but not saved")
		return
	}
	writeText(w, http.StatusOK, "Hour format updated!")
}

func (p *WebPortal) handleFactoryReset(w http.ResponseWriter, r *http.Request) {
	select {
	case p.resets <- struct{}{}:
	default:
	}
	logging.Info("Factory reset requested", zap.String("remote_addr", r.RemoteAddr))
	writeText(w, http.StatusOK, "Factory reset initiated")
}

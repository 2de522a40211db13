package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/espclock/espclock/internal/logging"
	"github.com/espclock/espclock/internal/mailbox"
	"github.com/espclock/espclock/internal/metrics"
	"github.com/espclock/espclock/internal/wifi"
)

// DefaultMaxBodyBytes is the largest accepted /set_config body.
const DefaultMaxBodyBytes = 128

// Reply bodies the clock-side tools match on.
const (
	MsgTooBig    = "Request too big"
	MsgJSONError = "JSON error"
)

const qrSize = 256

// ProbePaths are the connectivity-check URLs used by common operating
// systems. Each one serves the configuration page.
var ProbePaths = []string{
	"/generate_204",
	"/gen_204",
	"/fwlink",
	"/hotspot-detect.html",
	"/ncsi.txt",
	"/connectivity-check.html",
	"/library/test/success.html",
	"/check_network_status.txt",
	"/chat",
}

// CaptiveConfig configures the captive portal.
type CaptiveConfig struct {
	// Addr is the listen address, e.g. "192.168.71.1:80".
	Addr string

	// MaxBodyBytes limits /set_config bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// APSSID and APPassword are encoded in /qr.png.
	APSSID     string
	APPassword string
}

// CaptivePortal collects Wi-Fi credentials from a browser.
type CaptivePortal struct {
	config  CaptiveConfig
	box     *mailbox.Slot[wifi.Credentials]
	handler http.Handler
}

// NewCaptivePortal creates a portal that delivers credentials into box.
func NewCaptivePortal(cfg CaptiveConfig, box *mailbox.Slot[wifi.Credentials]) *CaptivePortal {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	p := &CaptivePortal{config: cfg, box: box}

	r := newRouter()
	r.Get("/", p.handlePage)
	for _, path := range ProbePaths {
		r.Get(path, p.handlePage)
	}
	r.Post("/set_config", p.handleSetConfig)
	r.Get("/qr.png", p.handleQR)
	p.handler = r

	return p
}

// Handler returns the portal's HTTP handler.
func (p *CaptivePortal) Handler() http.Handler {
	return p.handler
}

// Start serves on the configured address until ctx is done.
func (p *CaptivePortal) Start(ctx context.Context) error {
	return listen(ctx, "captive", p.config.Addr, p.handler)
}

// Serve serves on ln until ctx is done.
func (p *CaptivePortal) Serve(ctx context.Context, ln net.Listener) error {
	return serve(ctx, "captive", ln, p.handler)
}

func (p *CaptivePortal) handlePage(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, captivePage)
}

func (p *CaptivePortal) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	limit := p.config.MaxBodyBytes

	if r.ContentLength > limit {
		p.rejectTooBig(w, r, r.ContentLength)
		return
	}

	// Chunked bodies have no declared length; read one byte past the limit
	// to tell "exactly at the limit" from "too big".
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		logging.Warn("Failed to read credentials body", zap.Error(err))
		metrics.PortalSubmissions.WithLabelValues("invalid").Inc()
		writeText(w, http.StatusOK, MsgJSONError)
		return
	}
	if int64(len(body)) > limit {
		p.rejectTooBig(w, r, int64(len(body)))
		return
	}

	creds, err := decodeCredentials(body)
	if err != nil {
		logging.Info("Rejected credentials submission", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		metrics.PortalSubmissions.WithLabelValues("invalid").Inc()
		writeText(w, http.StatusOK, MsgJSONError)
		return
	}

	p.box.Put(creds)
	metrics.PortalSubmissions.WithLabelValues("accepted").Inc()
	logging.Info("Credentials received", zap.String("ssid", creds.SSID), zap.String("remote_addr", r.RemoteAddr))

	writeText(w, http.StatusOK, fmt.Sprintf(
		"Credentials for %q received. The clock will restart and join the network.", creds.SSID))
}

func (p *CaptivePortal) rejectTooBig(w http.ResponseWriter, r *http.Request, size int64) {
	logging.Warn("Credentials body too big",
		zap.String("remote_addr", r.RemoteAddr),
		zap.Int64("size", size),
		zap.Int64("limit", p.config.MaxBodyBytes),
	)
	metrics.PortalSubmissions.WithLabelValues("too_large").Inc()
	writeText(w, http.StatusRequestEntityTooLarge, MsgTooBig)
}

// credentialsBody is the /set_config payload. Both fields must be present
// as strings; an open network sends an empty password.
type credentialsBody struct {
	SSID     *string `json:"ssid"`
	Password *string `json:"password"`
}

var errMissingField = errors.New("ssid and password are both required")

// decodeCredentials parses a /set_config body.
func decodeCredentials(body []byte) (wifi.Credentials, error) {
	var in credentialsBody
	if err := json.Unmarshal(body, &in); err != nil {
		return wifi.Credentials{}, err
	}
	if in.SSID == nil || in.Password == nil {
		return wifi.Credentials{}, errMissingField
	}
	creds := wifi.Credentials{SSID: *in.SSID, Password: *in.Password}
	if err := creds.Validate(); err != nil {
		return wifi.Credentials{}, err
	}
	return creds, nil
}

func (p *CaptivePortal) handleQR(w http.ResponseWriter, r *http.Request) {
	png, err := qrcode.Encode(WiFiQRPayload(p.config.APSSID, p.config.APPassword), qrcode.Medium, qrSize)
	if err != nil {
		logging.Error("Failed to render QR code", zap.Error(err))
		writeText(w, http.StatusInternalServerError, "QR code unavailable")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// WiFiQRPayload builds the WIFI: URI understood by phone cameras.
func WiFiQRPayload(ssid, password string) string {
	if password == "" {
		return fmt.Sprintf("WIFI:T:nopass;S:%s;;", escapeQR(ssid))
	}
	return fmt.Sprintf("WIFI:T:WPA;S:%s;P:%s;;", escapeQR(ssid), escapeQR(password))
}

var qrEscaper = strings.NewReplacer(`\`, `\\`, `;`, `\;`, `,`, `\,`, `:`, `\:`, `"`, `\"`)

func escapeQR(s string) string {
	return qrEscaper.Replace(s)
}

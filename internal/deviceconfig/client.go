package deviceconfig

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/espclock/espclock/internal/clock"
	"github.com/espclock/espclock/internal/logging"
	"github.com/espclock/espclock/internal/portal"
	"github.com/espclock/espclock/internal/wifi"
)

const (
	// DefaultSetupHost is the clock's address on its own access point.
	DefaultSetupHost = "192.168.71.1"

	DefaultPort = 80

	DefaultTimeout = 10 * time.Second

	DefaultMaxRetries = 3

	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay caps exponential backoff.
	DefaultMaxRetryDelay = 30 * time.Second

	// maxResponseBytes bounds how much of a reply is read.
	maxResponseBytes = 64 << 10
)

// Client talks to a clock's captive portal or web portal.
type Client struct {
	// BaseURL is the portal root (e.g., "http://192.168.71.1:80")
	BaseURL string

	HTTPClient *http.Client

	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	MaxRetryDelay time.Duration

	UseExponentialBackoff bool
}

// NewClient creates a client for the clock at ip:port.
func NewClient(ip string, port int) *Client {
	return NewClientWithURL("http://" + net.JoinHostPort(ip, strconv.Itoa(port)))
}

// NewClientWithURL creates a client with a full base URL.
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

func (c *Client) clockAddr() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return c.BaseURL
	}
	return u.Hostname()
}

// withRetry runs attempt until it succeeds, fails with a non-retryable
// error, or MaxRetries is exhausted.
func (c *Client) withRetry(ctx context.Context, op string, attempt func() error) error {
	var lastErr error
	delay := c.RetryDelay

	for i := 0; i <= c.MaxRetries; i++ {
		if i > 0 {
			logging.Debug("Retrying clock request",
				zap.String("op", op),
				zap.Int("attempt", i+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return NewNetworkError(op+" cancelled", ctx.Err())
			case <-time.After(delay):
			}

			if c.UseExponentialBackoff {
				delay *= 2
				if delay > c.MaxRetryDelay {
					delay = c.MaxRetryDelay
				}
			}
		}

		err := attempt()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
	}

	return lastErr
}

// do performs one request and returns the body of a 200 reply.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, NewNetworkError("failed to create request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		devErr := ClassifyNetworkError(err, c.clockAddr())
		devErr.Message = fmt.Sprintf("%s %s failed: %s", method, path, devErr.Message)
		return nil, devErr
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, NewHTTPError(resp.StatusCode, msg)
	}

	return data, nil
}

func (c *Client) get(ctx context.Context, op, path string) (string, error) {
	var text string
	err := c.withRetry(ctx, op, func() error {
		data, err := c.do(ctx, http.MethodGet, path, nil)
		text = strings.TrimSpace(string(data))
		return err
	})
	return text, err
}

func (c *Client) postJSON(ctx context.Context, op, path string, v any) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", NewValidationError(fmt.Sprintf("failed to encode request: %v", err))
	}

	var text string
	err = c.withRetry(ctx, op, func() error {
		data, err := c.do(ctx, http.MethodPost, path, body)
		text = strings.TrimSpace(string(data))
		return err
	})
	return text, err
}

// Ping checks that the portal answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/", nil)
	return err
}

// SubmitCredentials posts creds to the captive portal and returns its reply.
// A submission replaces any earlier one, so retrying is safe.
func (c *Client) SubmitCredentials(ctx context.Context, creds wifi.Credentials) (string, error) {
	if err := ValidateCredentials(creds); err != nil {
		return "", err
	}

	text, err := c.postJSON(ctx, "submit credentials", "/set_config", creds)
	if err != nil {
		return "", err
	}
	if text == portal.MsgJSONError {
		return "", NewRejectedError("clock could not decode the credentials")
	}

	logging.Info("Credentials submitted",
		zap.String("clock", c.clockAddr()),
		zap.String("ssid", creds.SSID),
	)
	return text, nil
}

// GetStatus reads /get_status from the web portal.
func (c *Client) GetStatus(ctx context.Context) (*portal.Status, error) {
	var status portal.Status
	err := c.withRetry(ctx, "get status", func() error {
		data, err := c.do(ctx, http.MethodGet, "/get_status", nil)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &status); err != nil {
			return NewParseError("failed to parse status", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) SetTimezone(ctx context.Context, tz string) (string, error) {
	if err := ValidateTimezone(tz); err != nil {
		return "", err
	}
	return c.postJSON(ctx, "set timezone", "/set_timezone", portal.TimezoneRequest{Timezone: tz})
}

func (c *Client) SetBrightness(ctx context.Context, level int) (string, error) {
	if err := ValidateBrightness(level); err != nil {
		return "", err
	}
	return c.get(ctx, "set brightness", "/set_brightness?"+strconv.Itoa(level))
}

func (c *Client) SetTheme(ctx context.Context, theme string) (string, error) {
	t, err := ValidateTheme(theme)
	if err != nil {
		return "", err
	}
	return c.get(ctx, "set theme", "/set_theme?"+string(t))
}

func (c *Client) SetHourFormat(ctx context.Context, f clock.HourFormat) (string, error) {
	q := "24"
	if f == clock.TwelveHour {
		q = "12"
	}
	return c.get(ctx, "set hour format", "/set_hour_format?"+q)
}

// FactoryReset asks the clock to forget its network and timezone. It is not
// retried: a clock that already reset no longer serves the web portal.
func (c *Client) FactoryReset(ctx context.Context) (string, error) {
	data, err := c.do(ctx, http.MethodGet, "/factory_reset", nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

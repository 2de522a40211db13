package deviceconfig

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (unreachable host, reset, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeHTTP indicates an HTTP-level error (non-200 status code)
	ErrTypeHTTP
	// ErrTypeParse indicates a response that could not be decoded
	ErrTypeParse
	// ErrTypeValidation indicates a value refused before sending
	ErrTypeValidation
	// ErrTypeRejected indicates the captive portal answered "JSON error"
	ErrTypeRejected
	ErrTypeTimeout
	ErrTypeConnectionRefused
	ErrTypeDNS
	ErrTypeUnknown
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeRejected:
		return "Rejected"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// DeviceError is an error talking to a clock.
type DeviceError struct {
	Type           ErrorType
	Message        string
	StatusCode     int   // HTTP status code (if applicable)
	Err            error // Underlying error (if any)
	NetworkSubtype NetworkErrorSubtype
	ClockAddr      string
	Retryable      bool
}

func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError maps a transport error to a DeviceError.
func ClassifyNetworkError(err error, clockAddr string) *DeviceError {
	if err == nil {
		return nil
	}

	newErr := func(t ErrorType, sub NetworkErrorSubtype, msg string, retry bool) *DeviceError {
		return &DeviceError{
			Type:           t,
			Message:        msg,
			Err:            err,
			NetworkSubtype: sub,
			ClockAddr:      clockAddr,
			Retryable:      retry,
		}
	}

	if os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) {
		return newErr(ErrTypeTimeout, NetworkErrorTimeout, "Request timed out", true)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return newErr(ErrTypeDNS, NetworkErrorDNS, fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name), false)
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return newErr(ErrTypeConnectionRefused, NetworkErrorConnectionRefused, "Clock refused connection", true)
	case errors.Is(err, syscall.EHOSTUNREACH):
		return newErr(ErrTypeNetwork, NetworkErrorHostUnreachable, "Host unreachable", true)
	case errors.Is(err, syscall.ENETUNREACH):
		return newErr(ErrTypeNetwork, NetworkErrorNetworkUnreachable, "Network unreachable", true)
	}

	return newErr(ErrTypeNetwork, NetworkErrorGeneral, "Network error occurred", true)
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *DeviceError {
	classified := ClassifyNetworkError(err, "")
	if classified == nil {
		return &DeviceError{Type: ErrTypeNetwork, Message: message, Retryable: true}
	}
	classified.Message = message
	return classified
}

// NewHTTPError creates an HTTP-level error. Server errors are retryable.
func NewHTTPError(statusCode int, message string) *DeviceError {
	return &DeviceError{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500,
	}
}

func NewParseError(message string, err error) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeParse,
		Message: message,
		Err:     err,
	}
}

func NewValidationError(message string) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeValidation,
		Message: message,
	}
}

// NewRejectedError reports a submission the captive portal refused.
func NewRejectedError(message string) *DeviceError {
	return &DeviceError{
		Type:       ErrTypeRejected,
		Message:    message,
		StatusCode: http.StatusOK,
	}
}

func asDeviceError(err error) (*DeviceError, bool) {
	var devErr *DeviceError
	ok := errors.As(err, &devErr)
	return devErr, ok
}

// IsNetworkError reports timeouts, refusals and DNS failures as well.
func IsNetworkError(err error) bool {
	if devErr, ok := asDeviceError(err); ok {
		switch devErr.Type {
		case ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS:
			return true
		}
	}
	return false
}

func IsHTTPError(err error) bool {
	devErr, ok := asDeviceError(err)
	return ok && devErr.Type == ErrTypeHTTP
}

func IsParseError(err error) bool {
	devErr, ok := asDeviceError(err)
	return ok && devErr.Type == ErrTypeParse
}

func IsValidationError(err error) bool {
	devErr, ok := asDeviceError(err)
	return ok && devErr.Type == ErrTypeValidation
}

func IsRejected(err error) bool {
	devErr, ok := asDeviceError(err)
	return ok && devErr.Type == ErrTypeRejected
}

// IsRetryable reports whether err should be retried. Unknown errors are not.
func IsRetryable(err error) bool {
	devErr, ok := asDeviceError(err)
	return ok && devErr.Retryable
}

// GetTroubleshootingHint returns user-facing advice for err.
func GetTroubleshootingHint(err error) string {
	devErr, ok := asDeviceError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The clock did not respond in time.",
			"Troubleshooting:",
			"  • Check that the clock is powered on",
			"  • During setup, join the esp-clock network first",
			"  • Try increasing --timeout",
		}, "\n")

	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The clock refused the connection.",
			"Troubleshooting:",
			"  • The clock may still be restarting - wait a few seconds",
			"  • Setup commands only work while the clock shows the esp-clock network",
			"  • Check the port (default is 80)",
		}, "\n")

	case ErrTypeDNS:
		return strings.Join([]string{
			"Could not resolve the clock hostname.",
			"Troubleshooting:",
			"  • Use the IP address instead, or run 'clock-cfg scan'",
			"  • Verify you're on the same network as the clock",
		}, "\n")

	case ErrTypeNetwork:
		hint := []string{"Network communication failed."}
		switch devErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			hint = append(hint,
				"Troubleshooting:",
				"  • Verify the clock address is correct",
				"  • Try pinging the clock: ping "+devErr.ClockAddr)
		case NetworkErrorNetworkUnreachable:
			hint = append(hint,
				"Troubleshooting:",
				"  • Connect to the clock's esp-clock network",
				"  • Verify Wi-Fi is enabled on your computer")
		default:
			hint = append(hint,
				"Troubleshooting:",
				"  • Check your network connection",
				"  • Ensure you're connected to the correct network")
		}
		return strings.Join(hint, "\n")

	case ErrTypeHTTP:
		if devErr.StatusCode == http.StatusRequestEntityTooLarge {
			return "The request exceeded the clock's 128 byte limit. Use a shorter SSID or password."
		}
		if devErr.StatusCode == http.StatusNotFound {
			return "The clock does not serve this page in its current mode. Setup pages exist only on the esp-clock network."
		}
		if devErr.StatusCode >= 500 {
			return fmt.Sprintf("The clock returned an error (HTTP %d). Try again, or restart the clock.", devErr.StatusCode)
		}
		return fmt.Sprintf("The clock returned HTTP error %d. Check the request parameters.", devErr.StatusCode)

	case ErrTypeRejected:
		return "The clock could not read the submitted credentials. Check the SSID and password lengths."

	case ErrTypeParse:
		return "Failed to parse the clock's response. The clock firmware may be incompatible."

	case ErrTypeValidation:
		return "The value is invalid. Check the error message for details."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a one-line message for err.
func GetShortErrorMessage(err error) string {
	devErr, ok := asDeviceError(err)
	if !ok {
		return err.Error()
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return "Clock not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Clock refused connection"
	case ErrTypeDNS:
		return "Cannot resolve clock hostname"
	case ErrTypeNetwork:
		switch devErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "Clock unreachable - check network connection"
		case NetworkErrorNetworkUnreachable:
			return "Network unreachable - check Wi-Fi connection"
		default:
			return "Network error - check connection"
		}
	case ErrTypeHTTP:
		return fmt.Sprintf("Clock error (HTTP %d): %s", devErr.StatusCode, devErr.Message)
	case ErrTypeRejected:
		return "Clock rejected the credentials"
	case ErrTypeParse:
		return "Failed to parse clock response"
	default:
		return devErr.Message
	}
}

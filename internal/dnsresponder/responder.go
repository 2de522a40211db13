package dnsresponder

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/espclock/espclock/internal/logging"
	"github.com/espclock/espclock/internal/metrics"
)

const (
	// DefaultPort is the standard DNS port.
	DefaultPort = 53

	// DefaultReadTimeout bounds each receive so the loop stays responsive.
	DefaultReadTimeout = 10 * time.Millisecond

	// DefaultMaxPacketSize is the largest query that gets an answer.
	DefaultMaxPacketSize = 100

	// DefaultTTL is the TTL of the synthesized A record.
	DefaultTTL = 10 * time.Second

	// DefaultIdleSleep is the pause between HandleOne calls in Serve.
	DefaultIdleSleep = 5 * time.Millisecond

	headerLen = 12
	footerLen = 16
)

// Config describes where and how the responder listens.
type Config struct {
	IP            netip.Addr
	Port          int
	ReadTimeout   time.Duration
	MaxPacketSize int
	TTL           time.Duration
	IdleSleep     time.Duration
}

func (c *Config) applyDefaults() {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.MaxPacketSize <= 0 {
		c.MaxPacketSize = DefaultMaxPacketSize
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.IdleSleep <= 0 {
		c.IdleSleep = DefaultIdleSleep
	}
}

// NetworkError reports a socket failure of the responder.
type NetworkError struct {
	Op   string
	Addr string
	Err  error
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	return fmt.Sprintf("dns responder %s %s: %v", e.Op, e.Addr, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Responder answers every DNS query with the bound address.
type Responder struct {
	conn   *net.UDPConn
	config Config
	footer [footerLen]byte
	buf    []byte
}

// Bind opens the UDP socket. A bind failure is fatal for the bootstrap
// cycle; the caller should abort and report it.
func Bind(cfg Config) (*Responder, error) {
	cfg.applyDefaults()

	if !cfg.IP.Is4() {
		return nil, &NetworkError{Op: "bind", Addr: cfg.IP.String(), Err: errors.New("an IPv4 address is required")}
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, &NetworkError{Op: "bind", Addr: cfg.IP.String(), Err: fmt.Errorf("invalid port %d", cfg.Port)}
	}

	addr := net.UDPAddrFromAddrPort(netip.AddrPortFrom(cfg.IP, uint16(cfg.Port)))
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, &NetworkError{Op: "bind", Addr: addr.String(), Err: err}
	}

	r := &Responder{
		conn:   conn,
		config: cfg,
		footer: buildFooter(cfg.IP, cfg.TTL),
		buf:    newReadBuffer(cfg.MaxPacketSize),
	}

	logging.Info("DNS responder bound",
		zap.String("addr", conn.LocalAddr().String()),
		zap.Int("max_packet_size", cfg.MaxPacketSize),
		zap.Duration("read_timeout", cfg.ReadTimeout),
	)
	return r, nil
}

// newReadBuffer holds one byte more than the limit so that an oversized
// datagram is never truncated down to a size that passes the check. The
// spare capacity takes the footer.
func newReadBuffer(maxPacketSize int) []byte {
	n := maxPacketSize + 1
	return make([]byte, n, n+footerLen)
}

// buildFooter precomputes the answer record appended to every reply.
func buildFooter(ip netip.Addr, ttl time.Duration) [footerLen]byte {
	var f [footerLen]byte
	f[0], f[1] = 0xc0, 0x0c               // pointer to the question name
	binary.BigEndian.PutUint16(f[2:4], 1) // type A
	binary.BigEndian.PutUint16(f[4:6], 1) // class IN
	binary.BigEndian.PutUint32(f[6:10], uint32(ttl/time.Second))
	binary.BigEndian.PutUint16(f[10:12], 4)
	octets := ip.As4()
	copy(f[12:], octets[:])
	return f
}

// Addr returns the bound address.
func (r *Responder) Addr() *net.UDPAddr {
	return r.conn.LocalAddr().(*net.UDPAddr)
}

// HandleOne performs one receive-and-reply cycle. A read timeout returns nil.
func (r *Responder) HandleOne() error {
	if err := r.conn.SetReadDeadline(time.Now().Add(r.config.ReadTimeout)); err != nil {
		return &NetworkError{Op: "deadline", Addr: r.conn.LocalAddr().String(), Err: err}
	}

	n, client, err := r.conn.ReadFromUDPAddrPort(r.buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil
		}
		return &NetworkError{Op: "read", Addr: r.conn.LocalAddr().String(), Err: err}
	}

	if n > r.config.MaxPacketSize {
		logging.Warn("Dropping DNS request with an invalid packet size",
			zap.String("client", client.String()),
			zap.Int("length", n),
			zap.Int("max", r.config.MaxPacketSize),
		)
		metrics.DNSQueries.WithLabelValues("dropped").Inc()
		return nil
	}
	if n < headerLen {
		// Too short to carry a header; there is nothing to rewrite.
		logging.LogDNSQuery(client.String(), n, "runt")
		metrics.DNSQueries.WithLabelValues("dropped").Inc()
		return nil
	}

	reply := r.buildReply(r.buf[:n])
	logging.LogRawBytes("DNS reply", reply)

	if _, err := r.conn.WriteToUDPAddrPort(reply, client); err != nil {
		metrics.DNSQueries.WithLabelValues("error").Inc()
		return &NetworkError{Op: "write", Addr: client.String(), Err: err}
	}

	logging.LogDNSQuery(client.String(), n, "answered")
	metrics.DNSQueries.WithLabelValues("answered").Inc()
	return nil
}

// buildReply rewrites query in place and appends the footer. query must
// be a prefix of r.buf so the footer fits without reallocating.
func (r *Responder) buildReply(query []byte) []byte {
	query[2] |= 0x84
	query[3] |= 0x80
	binary.BigEndian.PutUint16(query[6:8], 1)
	return append(query, r.footer[:]...)
}

// Serve runs HandleOne in a loop until ctx is done. Errors are logged and the
// loop continues, so a hostile client cannot stop the responder.
func (r *Responder) Serve(ctx context.Context) error {
	defer r.Close()

	logging.Info("DNS responder serving", zap.String("addr", r.conn.LocalAddr().String()))

	for {
		select {
		case <-ctx.Done():
			logging.Info("DNS responder stopped")
			return nil
		default:
		}

		if err := r.HandleOne(); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Warn("DNS responder error", zap.Error(err))
		}

		select {
		case <-ctx.Done():
		case <-time.After(r.config.IdleSleep):
		}
	}
}

// Close releases the socket.
func (r *Responder) Close() error {
	return r.conn.Close()
}

// SPDX-FileCopyrightText: Copyright (c) The smtpcheck Authors
//
// SPDX-License-Identifier: MIT

package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// Defaults
const (
	// DefaultConnectTimeout is the connect timeout of the Secure connector
	DefaultConnectTimeout = time.Second * 2

	// DefaultPollInterval is the time the Plain connector waits for data per attempt
	DefaultPollInterval = time.Millisecond * 100

	// DefaultPollAttempts is the number of attempts the Plain connector waits for data
	// before giving up with ErrNoData
	DefaultPollAttempts = 100

	// DefaultTLSMinVersion is the minimum TLS version of the Secure connector
	DefaultTLSMinVersion = tls.VersionTLS12
)

// DialContextFunc is a type to define custom DialContext function.
type DialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Connector is a live transport to a single SMTP server. A Connector is owned by a single
// credential check and must not be shared; all methods but Close must be called from
// one goroutine at a time.
type Connector interface {
	// ReadResponse reads and parses a single reply line
	ReadResponse(ctx context.Context) (Response, error)

	// CheckResponse reads a single reply and reports whether its code is one of the
	// expected codes, together with the raw reply text. A transport or protocol failure
	// is reported as false with the error text instead of the reply.
	CheckResponse(ctx context.Context, expected ...int) (bool, string)

	// SendData writes the UTF-8 encoding of payload to the server
	SendData(ctx context.Context, payload string) error

	// Security returns the transport variant of the Connector
	Security() Security

	// TLSConnectionState returns the state of the TLS connection of a Secure Connector
	TLSConnectionState() (tls.ConnectionState, bool)

	// Close releases the transport. Calling Close more than once is a no-op.
	Close() error
}

// Config configures how Open establishes the transport
type Config struct {
	// Security selects the Plain or the Secure connector
	Security Security

	// ConnectTimeout bounds the TCP connect. Zero selects DefaultConnectTimeout for a
	// Secure connector and no timeout for a Plain connector.
	ConnectTimeout time.Duration

	// TLSConfig is the base configuration of the Secure connector. Certificate
	// verification is always replaced by VerifyConnection; RootCAs is honoured.
	TLSConfig *tls.Config

	// DialContextFunc overrides the default net.Dialer
	DialContextFunc DialContextFunc

	// PollInterval and PollAttempts bound the reads of the Plain connector. Zero values
	// select DefaultPollInterval and DefaultPollAttempts.
	PollInterval time.Duration
	PollAttempts int
}

// streamReader is the variant specific source of a connector
type streamReader interface {
	Read(p []byte) (int, error)
	bind(ctx context.Context) func()
}

// connector implements Connector for both variants; the variants differ in how the
// transport is opened and in the source of the ResponseReader
type connector struct {
	security  Security
	conn      net.Conn
	src       streamReader
	reader    *ResponseReader
	encoder   *encoding.Encoder
	closed    atomic.Bool
	closeOnce sync.Once
}

// Open establishes the transport to host:port. A Plain connector connects via TCP, a
// Secure connector additionally performs a TLS handshake in which the server
// certificate is evaluated by VerifyConnection. Failures are returned as *ConnectError.
func Open(ctx context.Context, host string, port int, config Config) (Connector, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	switch config.Security {
	case Plain:
		conn, err := dial(ctx, addr, config.ConnectTimeout, config.DialContextFunc)
		if err != nil {
			return nil, err
		}
		interval, attempts := config.PollInterval, config.PollAttempts
		if interval <= 0 {
			interval = DefaultPollInterval
		}
		if attempts <= 0 {
			attempts = DefaultPollAttempts
		}
		return newConnector(Plain, conn, &pollReader{conn: conn, interval: interval, attempts: attempts}), nil
	case Secure:
		timeout := config.ConnectTimeout
		if timeout <= 0 {
			timeout = DefaultConnectTimeout
		}
		// the timeout bounds the dial and the handshake
		connectCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		conn, err := dial(connectCtx, addr, 0, config.DialContextFunc)
		if err != nil {
			return nil, err
		}
		tlsConn := tls.Client(conn, secureConfig(host, config.TLSConfig))
		if err = tlsConn.HandshakeContext(connectCtx); err != nil {
			_ = tlsConn.Close()
			return nil, &ConnectError{Kind: ConnectTLS, Addr: addr, Err: err}
		}
		return newConnector(Secure, tlsConn, &deadlineReader{conn: tlsConn}), nil
	default:
		return nil, fmt.Errorf("unsupported connector security %q", config.Security)
	}
}

func newConnector(security Security, conn net.Conn, src streamReader) *connector {
	return &connector{
		security: security,
		conn:     conn,
		src:      src,
		reader:   NewResponseReader(src),
		encoder:  unicode.UTF8.NewEncoder(),
	}
}

// dial opens the TCP connection, bounded by timeout if it is positive
func dial(ctx context.Context, addr string, timeout time.Duration, dialFunc DialContextFunc) (net.Conn, error) {
	if dialFunc == nil {
		nd := net.Dialer{}
		dialFunc = nd.DialContext
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	conn, err := dialFunc(ctx, "tcp", addr)
	if err != nil {
		if conn != nil {
			_ = conn.Close()
		}
		kind := ConnectFailed
		if isTimeout(err) {
			kind = ConnectTimeout
		}
		return nil, &ConnectError{Kind: kind, Addr: addr, Err: err}
	}
	return conn, nil
}

// secureConfig derives the tls.Config of the Secure connector from base
func secureConfig(host string, base *tls.Config) *tls.Config {
	config := &tls.Config{MinVersion: DefaultTLSMinVersion}
	if base != nil {
		config = base.Clone()
	}
	if config.ServerName == "" {
		config.ServerName = host
	}
	// crypto/tls verification is replaced by the evaluation in VerifyConnection
	config.InsecureSkipVerify = true //nolint:gosec
	config.VerifyConnection = VerifyConnection(config.ServerName, config.RootCAs)
	return config
}

// ReadResponse satisfies the Connector interface
func (c *connector) ReadResponse(ctx context.Context) (Response, error) {
	if c.closed.Load() {
		return Response{}, ErrNotConnected
	}
	release := c.src.bind(ctx)
	defer release()
	return c.reader.ReadResponse()
}

// CheckResponse satisfies the Connector interface
func (c *connector) CheckResponse(ctx context.Context, expected ...int) (bool, string) {
	resp, err := c.ReadResponse(ctx)
	if err != nil {
		return false, err.Error()
	}
	return resp.Matches(expected...), resp.Text
}

// SendData satisfies the Connector interface
func (c *connector) SendData(ctx context.Context, payload string) error {
	if c.closed.Load() {
		return &SendError{Err: ErrNotConnected}
	}
	data, err := c.encoder.String(payload)
	if err != nil {
		return &SendError{Err: err}
	}
	release := bindDeadline(ctx, c.conn.SetWriteDeadline)
	defer release()
	if _, err = c.conn.Write([]byte(data)); err != nil {
		return &SendError{Err: err}
	}
	return nil
}

// Security satisfies the Connector interface
func (c *connector) Security() Security {
	return c.security
}

// TLSConnectionState satisfies the Connector interface
func (c *connector) TLSConnectionState() (state tls.ConnectionState, ok bool) {
	tc, ok := c.conn.(*tls.Conn)
	if !ok {
		return
	}
	return tc.ConnectionState(), true
}

// Close satisfies the Connector interface
func (c *connector) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err = c.conn.Close()
	})
	return err
}

// pollReader reads from a raw TCP connection in attempts of interval each. It gives up
// with ErrNoData when no data arrived within the given number of attempts.
type pollReader struct {
	conn     net.Conn
	interval time.Duration
	attempts int
	ctx      context.Context
}

func (r *pollReader) bind(ctx context.Context) func() {
	r.ctx = ctx
	return func() { r.ctx = nil }
}

func (r *pollReader) Read(p []byte) (int, error) {
	ctx := r.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	for attempt := 0; attempt < r.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := r.conn.SetReadDeadline(time.Now().Add(r.interval)); err != nil {
			return 0, err
		}
		n, err := r.conn.Read(p)
		if n > 0 {
			return n, nil
		}
		if err != nil && !isTimeout(err) {
			return 0, err
		}
	}
	return 0, ErrNoData
}

// deadlineReader reads from a TLS connection, bounded by the deadline of the bound context
type deadlineReader struct {
	conn net.Conn
}

func (r *deadlineReader) bind(ctx context.Context) func() {
	return bindDeadline(ctx, r.conn.SetReadDeadline)
}

func (r *deadlineReader) Read(p []byte) (int, error) {
	return r.conn.Read(p)
}

// bindDeadline applies the deadline of ctx via set and interrupts a pending operation
// when ctx is cancelled. The returned function clears the deadline again.
func bindDeadline(ctx context.Context, set func(time.Time) error) func() {
	if deadline, ok := ctx.Deadline(); ok {
		_ = set(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = set(time.Now())
	})
	return func() {
		stop()
		_ = set(time.Time{})
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

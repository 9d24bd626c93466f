// SPDX-FileCopyrightText: 2022-2026 The smtpcheck Authors
//
// SPDX-License-Identifier: MIT

package smtpcheck

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/mailcred/smtpcheck/log"
	"github.com/mailcred/smtpcheck/smtp"
)

// Defaults
const (
	// DefaultPort is the default connection port to the SMTP server
	DefaultPort = 25

	// DefaultPortSSL is the default connection port for SSL/TLS to the SMTP server
	DefaultPortSSL = 465

	// DefaultTLSMinVersion is the minimum TLS version required for the connection
	DefaultTLSMinVersion = smtp.DefaultTLSMinVersion
)

// DialContextFunc is a type to define custom DialContext function.
type DialContextFunc = smtp.DialContextFunc

// Client checks credentials against a single SMTP server. A Client is not modified by
// a check, so it can run several checks concurrently; every check opens its own
// connection.
type Client struct {
	// Timeout for the connect to the SMTP server, zero selects the connector default
	cto time.Duration

	// HELO string for the greeting the target SMTP server
	helo string

	// Hostname of the target SMTP server to connect to
	host string

	// pass is the password for AUTH LOGIN
	pass string

	// Port of the SMTP server to connect to
	port int

	// pollInterval and pollAttempts bound the reads of a plaintext connection
	pollInterval time.Duration
	pollAttempts int

	// Use SSL/TLS for the connection
	ssl bool

	// tlsconfig is the base tls.Config for SSL/TLS connections
	tlsconfig *tls.Config

	// user is the username for AUTH LOGIN
	user string

	// dl enables the debug logging of the SMTP exchange
	dl bool

	// l is a logger that implements the log.Logger interface
	l log.Logger

	// dialContextFunc is a custom DialContext function to dial target SMTP server
	dialContextFunc DialContextFunc
}

// Option returns a function that can be used for grouping Client options
type Option func(*Client) error

var (
	// ErrInvalidPort should be used if a port is specified that is not valid
	ErrInvalidPort = errors.New("invalid port number")

	// ErrInvalidTimeout should be used if a timeout is set that is zero or negative
	ErrInvalidTimeout = errors.New("timeout cannot be zero or negative")

	// ErrInvalidHELO should be used if an empty HELO sting is provided
	ErrInvalidHELO = errors.New("invalid HELO value - must not be empty")

	// ErrInvalidTLSConfig should be used if an empty tls.Config is provided
	ErrInvalidTLSConfig = errors.New("invalid TLS config")

	// ErrInvalidPolling should be used if a poll interval or attempt count is not positive
	ErrInvalidPolling = errors.New("poll interval and attempts must be positive")

	// ErrNoHostname should be used if a Client has no hostname set
	ErrNoHostname = errors.New("hostname for client cannot be empty")
)

// NewClient returns a new Client for the SMTP server h
func NewClient(h string, o ...Option) (*Client, error) {
	c := &Client{
		host:         h,
		port:         DefaultPort,
		pollInterval: smtp.DefaultPollInterval,
		pollAttempts: smtp.DefaultPollAttempts,
	}

	// Set default HELO hostname
	if err := c.setDefaultHelo(); err != nil {
		return c, err
	}

	// Override defaults with optionally provided Option functions
	for _, co := range o {
		if co == nil {
			continue
		}
		if err := co(c); err != nil {
			return c, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	// Some settings in a Client cannot be empty/unset
	if c.host == "" {
		return c, ErrNoHostname
	}

	return c, nil
}

// WithPort overrides the default connection port
func WithPort(p int) Option {
	return func(c *Client) error {
		if p < 1 || p > 65535 {
			return ErrInvalidPort
		}
		c.port = p
		return nil
	}
}

// WithTimeout overrides the connect timeout. Without it a TLS connection uses a
// timeout of 2 seconds and a plaintext connection the timeout of the OS.
func WithTimeout(t time.Duration) Option {
	return func(c *Client) error {
		if t <= 0 {
			return ErrInvalidTimeout
		}
		c.cto = t
		return nil
	}
}

// WithSSL tells the client to use a SSL/TLS connection
func WithSSL() Option {
	return func(c *Client) error {
		c.ssl = true
		return nil
	}
}

// WithSSLPort tells the client to use a SSL/TLS connection on port 465
func WithSSLPort() Option {
	return func(c *Client) error {
		c.ssl = true
		c.port = DefaultPortSSL
		return nil
	}
}

// WithDebugLog tells the client to log the SMTP exchange. Credentials are redacted.
func WithDebugLog() Option {
	return func(c *Client) error {
		c.dl = true
		return nil
	}
}

// WithLogger overrides the default log.Logger that is used for logging
func WithLogger(l log.Logger) Option {
	return func(c *Client) error {
		c.l = l
		return nil
	}
}

// WithHELO tells the client to use the provided string as HELO greeting host
func WithHELO(h string) Option {
	return func(c *Client) error {
		if h == "" {
			return ErrInvalidHELO
		}
		c.helo = h
		return nil
	}
}

// WithTLSConfig tells the client to use the provided *tls.Config as base for SSL/TLS
// connections. The certificate verification is always done by the trust evaluation of
// the smtp package; RootCAs and ServerName are honoured.
func WithTLSConfig(co *tls.Config) Option {
	return func(c *Client) error {
		if co == nil {
			return ErrInvalidTLSConfig
		}
		c.tlsconfig = co
		return nil
	}
}

// WithUsername tells the client to use the provided string as username for authentication
func WithUsername(u string) Option {
	return func(c *Client) error {
		c.user = u
		return nil
	}
}

// WithPassword tells the client to use the provided string as password for authentication
func WithPassword(p string) Option {
	return func(c *Client) error {
		c.pass = p
		return nil
	}
}

// WithDialContextFunc overrides the default DialContext for connecting SMTP server
func WithDialContextFunc(f DialContextFunc) Option {
	return func(c *Client) error {
		c.dialContextFunc = f
		return nil
	}
}

// WithPolling overrides how long a plaintext connection waits for a reply: up to
// attempts times interval
func WithPolling(interval time.Duration, attempts int) Option {
	return func(c *Client) error {
		if interval <= 0 || attempts <= 0 {
			return ErrInvalidPolling
		}
		c.pollInterval = interval
		c.pollAttempts = attempts
		return nil
	}
}

// ServerAddr returns the currently set combination of hostname and port
func (c *Client) ServerAddr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// SetSSL tells the Client wether to use SSL or not
func (c *Client) SetSSL(s bool) {
	c.ssl = s
}

// SetDebugLog tells the Client whether debug logging is enabled or not
func (c *Client) SetDebugLog(v bool) {
	c.dl = v
}

// SetLogger tells the Client which log.Logger to use
func (c *Client) SetLogger(l log.Logger) {
	c.l = l
}

// SetUsername overrides the current username string with the given value
func (c *Client) SetUsername(u string) {
	c.user = u
}

// SetPassword overrides the current password string with the given value
func (c *Client) SetPassword(p string) {
	c.pass = p
}

// setDefaultHelo retrieves the current hostname and sets it as HELO hostname
func (c *Client) setDefaultHelo() error {
	hn, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("failed to read local hostname: %w", err)
	}
	c.helo = hn
	return nil
}

// connectorConfig returns the smtp.Config for a new connection of the Client
func (c *Client) connectorConfig() smtp.Config {
	config := smtp.Config{
		Security:        smtp.Plain,
		ConnectTimeout:  c.cto,
		DialContextFunc: c.dialContextFunc,
		PollInterval:    c.pollInterval,
		PollAttempts:    c.pollAttempts,
	}
	if c.ssl {
		config.Security = smtp.Secure
		config.TLSConfig = c.tlsconfig
		if config.TLSConfig == nil {
			config.TLSConfig = &tls.Config{ServerName: c.host, MinVersion: DefaultTLSMinVersion}
		}
	}
	return config
}

// logger returns the log.Logger of the Client. Without a configured logger, debug
// logging goes to StdErr.
func (c *Client) logger() log.Logger {
	if c.l == nil && c.dl {
		return log.New(os.Stderr, log.LevelDebug)
	}
	return c.l
}

// SPDX-FileCopyrightText: Copyright (c) The smtpcheck Authors
//
// SPDX-License-Identifier: MIT

package smtpcheck

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/mailcred/smtpcheck/log"
	"github.com/mailcred/smtpcheck/smtp"
)

// redacted replaces credentials in the debug log
const redacted = "<SMTP auth data redacted>"

// step is a single command/reply exchange with the server. The greeting step has no
// command.
type step struct {
	name    string
	command string
	secret  bool
	expect  int
}

// authSteps returns the exchange that checks the credentials of the Client
func (c *Client) authSteps() []step {
	return []step{
		{name: "GREETING", expect: smtp.ReplyServiceReady},
		{name: "HELO", command: "HELO " + c.helo, expect: smtp.ReplyOK},
		{name: "AUTH", command: "AUTH LOGIN", expect: smtp.ReplyAuthContinue},
		{name: "USER", command: encodeCredential(c.user), secret: true, expect: smtp.ReplyAuthContinue},
		{name: "PASS", command: encodeCredential(c.pass), secret: true, expect: smtp.ReplyAuthOK},
	}
}

// probeSteps returns the exchange that checks that the server accepts a HELO
func (c *Client) probeSteps() []step {
	return []step{
		{name: "GREETING", expect: smtp.ReplyServiceReady},
		{name: "HELO", command: "HELO " + c.helo, expect: smtp.ReplyOK},
	}
}

// encodeCredential returns the standard base64 encoding of the UTF-8 bytes of s
func encodeCredential(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// Validate checks the credentials of the Client against the server
func (c *Client) Validate() Outcome {
	return c.ValidateWithContext(context.Background())
}

// ValidateWithContext checks the credentials of the Client against the server. The
// exchange is abandoned when ctx is done.
func (c *Client) ValidateWithContext(ctx context.Context) Outcome {
	return c.run(ctx, c.authSteps())
}

// ValidateAsync runs ValidateWithContext in a new goroutine. The returned channel
// receives exactly one Outcome and is closed afterwards.
func (c *Client) ValidateAsync(ctx context.Context) <-chan Outcome {
	result := make(chan Outcome, 1)
	go func() {
		defer close(result)
		result <- c.ValidateWithContext(ctx)
	}()
	return result
}

// TestConnection checks that the server greets and accepts a HELO
func (c *Client) TestConnection() bool {
	return c.TestConnectionWithContext(context.Background())
}

// TestConnectionWithContext checks that the server greets and accepts a HELO. The
// exchange is abandoned when ctx is done.
func (c *Client) TestConnectionWithContext(ctx context.Context) bool {
	return c.run(ctx, c.probeSteps()).Success
}

// run opens a connection and walks through steps in order. The first reply that does
// not carry the expected code ends the exchange. The connection is closed on every
// path.
func (c *Client) run(ctx context.Context, steps []step) Outcome {
	logger := c.logger()
	addr := c.ServerAddr()
	config := c.connectorConfig()

	c.debugLog(logger, log.DirLocal, "connecting to %s (%s)", addr, config.Security)
	conn, err := smtp.Open(ctx, c.host, c.port, config)
	if err != nil {
		if logger != nil {
			logger.Warnf(log.Log{Direction: log.DirLocal, Server: addr, Format: "%s", Messages: []interface{}{err}})
		}
		return failure(err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && logger != nil {
			logger.Warnf(log.Log{
				Direction: log.DirLocal, Server: addr, Format: "failed to close connection: %s",
				Messages: []interface{}{cerr},
			})
		}
	}()

	var resp smtp.Response
	authenticating := false
	for _, s := range steps {
		if s.command != "" {
			if s.secret {
				c.debugLog(logger, log.DirClientToServer, "%s", redacted)
			} else {
				c.debugLog(logger, log.DirClientToServer, "%s", s.command)
			}
			if err = conn.SendData(ctx, s.command+smtp.EOL); err != nil {
				return failure(err)
			}
		}
		if s.name == "AUTH" {
			authenticating = true
		}

		resp, err = conn.ReadResponse(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.debugLog(logger, log.DirLocal, "%s abandoned: %s", s.name, err)
			}
			return failure(err)
		}
		if authenticating && resp.Code == smtp.ReplyAuthContinue {
			c.debugLog(logger, log.DirServerToClient, "%d %s", resp.Code, redacted)
		} else {
			c.debugLog(logger, log.DirServerToClient, "%s", strings.TrimRight(resp.Text, "\r\n"))
		}
		if !resp.Matches(s.expect) {
			return Outcome{Reason: resp.Text, Code: resp.Code}
		}
	}
	return Outcome{Success: true, Reason: resp.Text, Code: resp.Code}
}

// debugLog logs a protocol message if debug logging is enabled
func (c *Client) debugLog(logger log.Logger, d log.Direction, f string, a ...interface{}) {
	if !c.dl || logger == nil {
		return
	}
	logger.Debugf(log.Log{Direction: d, Server: c.ServerAddr(), Format: f, Messages: a})
}

func failure(err error) Outcome {
	return Outcome{Reason: err.Error(), Err: err}
}

// ValidateCredentials reports whether the SMTP server at server:port accepts login and
// password via AUTH LOGIN. With enableSSL the connection uses implicit TLS.
func ValidateCredentials(login, password, server string, port int, enableSSL bool) bool {
	ok, _ := ValidateCredentialsWithReason(login, password, server, port, enableSSL)
	return ok
}

// ValidateCredentialsWithReason is ValidateCredentials and also returns the last server
// reply or the description of the failure
func ValidateCredentialsWithReason(login, password, server string, port int, enableSSL bool) (bool, string) {
	o := ValidateCredentialsWithContext(context.Background(), login, password, server, port, enableSSL)
	return o.Success, o.Reason
}

// ValidateCredentialsWithContext is ValidateCredentials bound to ctx, returning the
// full Outcome
func ValidateCredentialsWithContext(ctx context.Context, login, password, server string, port int,
	enableSSL bool,
) Outcome {
	opts := []Option{WithPort(port), WithUsername(login), WithPassword(password)}
	if enableSSL {
		opts = append(opts, WithSSL())
	}
	c, err := NewClient(server, opts...)
	if err != nil {
		return failure(err)
	}
	return c.ValidateWithContext(ctx)
}

// TestConnection reports whether the SMTP server at server:port greets and accepts a
// HELO over a plaintext connection
func TestConnection(server string, port int) bool {
	return TestConnectionWithContext(context.Background(), server, port)
}

// TestConnectionWithContext is TestConnection bound to ctx
func TestConnectionWithContext(ctx context.Context, server string, port int) bool {
	c, err := NewClient(server, WithPort(port))
	if err != nil {
		return false
	}
	return c.TestConnectionWithContext(ctx)
}

// SPDX-FileCopyrightText: Copyright (c) The smtpcheck Authors
//
// SPDX-License-Identifier: MIT

package smtp

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTrustRejected is returned when the certificate evaluation denies the certificate
	// presented by the server. It is always wrapped into a ConnectError of kind ConnectTLS.
	ErrTrustRejected = errors.New("server certificate rejected")

	// ErrNotConnected is returned when a Connector is used after it has been closed
	ErrNotConnected = errors.New("socket not available")

	// ErrNoData is returned by the Plain connector when the server did not send any data
	// within the poll budget
	ErrNoData = errors.New("not available data to read from the socket")

	// ErrLineTooLong is returned when a reply exceeds MaxLineLength without a terminator
	ErrLineTooLong = errors.New("SMTP response line too long")
)

// List of ConnectError kinds
const (
	// ConnectFailed is a DNS resolution failure or an OS level connect failure
	ConnectFailed ConnectErrKind = iota

	// ConnectTimeout is returned when the connect timeout elapsed before the TCP
	// connection was established
	ConnectTimeout

	// ConnectTLS is a failed TLS handshake, including a rejected server certificate
	ConnectTLS
)

// ConnectErrKind represents a comparable reason why a Connector could not be opened
type ConnectErrKind int

// ConnectError is returned by Open if the transport to the SMTP server could not be
// established. All resources created during the attempt are released before it is
// returned.
type ConnectError struct {
	Kind ConnectErrKind
	Addr string
	Err  error
}

// Error implements the error interface for the ConnectError type
func (e *ConnectError) Error() string {
	var errMessage strings.Builder
	errMessage.WriteString(e.Kind.String())
	if e.Addr != "" {
		errMessage.WriteString(" ")
		errMessage.WriteString(e.Addr)
	}
	if e.Err != nil {
		errMessage.WriteString(": ")
		errMessage.WriteString(e.Err.Error())
	}
	return errMessage.String()
}

// Unwrap returns the underlying error
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Is implements the errors.Is functionality and compares the ConnectErrKind
func (e *ConnectError) Is(errType error) bool {
	var t *ConnectError
	if errors.As(errType, &t) && t != nil {
		return e.Kind == t.Kind
	}
	return false
}

// IsTimeout returns true if the connect timeout elapsed
func (e *ConnectError) IsTimeout() bool {
	return e != nil && e.Kind == ConnectTimeout
}

// String satisfies the fmt.Stringer interface for the ConnectErrKind type
func (k ConnectErrKind) String() string {
	switch k {
	case ConnectFailed:
		return "failed to connect to"
	case ConnectTimeout:
		return "connect timeout for"
	case ConnectTLS:
		return "TLS handshake failed with"
	}
	return "unknown connect error for"
}

// SendError is returned by SendData if the payload could not be written to the server
type SendError struct {
	Err error
}

// Error implements the error interface for the SendError type
func (e *SendError) Error() string {
	if e.Err == nil {
		return "failed to send data"
	}
	return fmt.Sprintf("failed to send data: %s", e.Err)
}

// Unwrap returns the underlying error
func (e *SendError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned when a reply from the server does not start with a
// three-digit reply code
type ProtocolError struct {
	Text string
}

// Error implements the error interface for the ProtocolError type
func (e *ProtocolError) Error() string {
	if len(e.Text) < 3 {
		return fmt.Sprintf("malformed SMTP response: %q is shorter than a reply code", e.Text)
	}
	return fmt.Sprintf("malformed SMTP response: %q does not start with a reply code", e.Text)
}

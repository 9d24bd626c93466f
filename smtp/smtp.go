// SPDX-FileCopyrightText: Copyright (c) The smtpcheck Authors
//
// SPDX-License-Identifier: MIT

// Package smtp implements the transport side of an SMTP credential check: the Plain and
// Secure connectors, the reply line reader and the certificate trust evaluation used
// during the TLS handshake of the Secure connector.
//
// Only the opening phase of RFC 5321 is covered (greeting, HELO and AUTH LOGIN as
// described in draft-murchison-sasl-login). Multi-line replies are not handled.
package smtp

// EOL is the SMTP line terminator
const EOL = "\r\n"

// ReplyCode represents a three-digit SMTP reply code as defined in RFC 5321 §4.2.
type ReplyCode = int

// Reply codes consumed by the credential check
const (
	// ReplyServiceReady is the greeting of a server that accepts the connection
	ReplyServiceReady ReplyCode = 220

	// ReplyAuthOK is sent when the server accepted the credentials
	ReplyAuthOK ReplyCode = 235

	// ReplyOK is the positive completion of HELO
	ReplyOK ReplyCode = 250

	// ReplyAuthContinue is the server challenge during AUTH LOGIN
	ReplyAuthContinue ReplyCode = 334

	// ReplyAuthFailed is sent when the server rejected the credentials
	ReplyAuthFailed ReplyCode = 535
)

// Security describes the transport variant of a Connector
type Security int

const (
	// Plain uses a raw TCP connection
	Plain Security = iota

	// Secure uses an implicit TLS connection (SMTPS) with certificate evaluation
	Secure
)

// String is a standard method to convert a Security into a printable format
func (s Security) String() string {
	switch s {
	case Plain:
		return "Plain"
	case Secure:
		return "Secure"
	default:
		return "UnknownSecurity"
	}
}

// SPDX-FileCopyrightText: Copyright (c) The smtpcheck Authors
//
// SPDX-License-Identifier: MIT

package smtpcheck

import (
	"fmt"
	"strings"
)

// Outcome is the result of a credential check or a connection probe
type Outcome struct {
	// Success is true if every step of the exchange received the expected reply
	Success bool

	// Reason is the last reply of the server, or the description of the connect,
	// transport or protocol failure that ended the exchange. It is meant for logs.
	Reason string

	// Code is the reply code of the last reply, 0 if no well-formed reply was read
	Code int

	// Err is the connect, transport or protocol error that ended the exchange. It is
	// nil on success and when the server answered with an unexpected reply code.
	Err error
}

// String satisfies the fmt.Stringer interface for the Outcome type
func (o Outcome) String() string {
	if o.Success {
		return fmt.Sprintf("ok: %s", strings.TrimRight(o.Reason, "\r\n"))
	}
	return fmt.Sprintf("failed: %s", strings.TrimRight(o.Reason, "\r\n"))
}

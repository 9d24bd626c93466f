// SPDX-FileCopyrightText: 2022-2026 The smtpcheck Authors
//
// SPDX-License-Identifier: MIT

// Package smtpcheck validates SMTP credentials without sending mail. It connects to
// the server in plaintext or via implicit TLS, runs the greeting, HELO and AUTH LOGIN
// exchange and reports whether the server accepted the credentials.
package smtpcheck

// VERSION is the version of smtpcheck
const VERSION = "0.2.0"

// SPDX-FileCopyrightText: Copyright (c) The smtpcheck Authors
//
// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	var b bytes.Buffer
	l := New(&b, LevelDebug)
	if l.level != LevelDebug {
		t.Error("Expected level to be LevelDebug, got ", l.level)
	}
	if l.err == nil || l.warn == nil || l.info == nil || l.debug == nil {
		t.Error("Loggers not initialized")
	}
}

func TestStdlog_Levels(t *testing.T) {
	tests := []struct {
		name     string
		level    Level
		log      func(*Stdlog, Log)
		prefix   string
		expected bool
	}{
		{"debug on debug", LevelDebug, (*Stdlog).Debugf, "DEBUG: ", true},
		{"debug on info", LevelInfo, (*Stdlog).Debugf, "DEBUG: ", false},
		{"info on info", LevelInfo, (*Stdlog).Infof, " INFO: ", true},
		{"info on warn", LevelWarn, (*Stdlog).Infof, " INFO: ", false},
		{"warn on warn", LevelWarn, (*Stdlog).Warnf, " WARN: ", true},
		{"warn on error", LevelError, (*Stdlog).Warnf, " WARN: ", false},
		{"error on error", LevelError, (*Stdlog).Errorf, "ERROR: ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b bytes.Buffer
			l := New(&b, tt.level)
			tt.log(l, Log{Direction: DirServerToClient, Format: "test %s", Messages: []interface{}{"foo"}})
			if !tt.expected {
				if b.String() != "" {
					t.Errorf("expected no output, got %q", b.String())
				}
				return
			}
			expected := tt.prefix + "C <-- S: test foo\n"
			if !strings.HasSuffix(b.String(), expected) {
				t.Errorf("expected %q, got %q", expected, b.String())
			}
		})
	}
}

func TestStdlog_Directions(t *testing.T) {
	tests := []struct {
		name     string
		log      Log
		expected string
	}{
		{
			"client to server", Log{Direction: DirClientToServer, Format: "HELO %s", Messages: []interface{}{"host"}},
			"DEBUG: C --> S: HELO host\n",
		},
		{
			"server to client", Log{Direction: DirServerToClient, Format: "%d %s", Messages: []interface{}{250, "ok"}},
			"DEBUG: C <-- S: 250 ok\n",
		},
		{
			"local event", Log{Direction: DirLocal, Format: "connection closed"},
			"DEBUG: C: connection closed\n",
		},
		{
			"with server address",
			Log{Direction: DirClientToServer, Server: "mail.example.com:25", Format: "AUTH LOGIN"},
			"DEBUG: [mail.example.com:25] C --> S: AUTH LOGIN\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b bytes.Buffer
			l := New(&b, LevelDebug)
			l.Debugf(tt.log)
			if !strings.HasSuffix(b.String(), tt.expected) {
				t.Errorf("expected %q, got %q", tt.expected, b.String())
			}
		})
	}
}

// SPDX-FileCopyrightText: Copyright (c) The smtpcheck Authors
//
// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

type jsonLog struct {
	Direction jsonDir   `json:"direction"`
	Level     string    `json:"level"`
	Message   string    `json:"msg"`
	Server    string    `json:"server"`
	Time      time.Time `json:"time"`
}

type jsonDir struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func TestNewJSON(t *testing.T) {
	var b bytes.Buffer
	l := NewJSON(&b, LevelDebug)
	if l.level != LevelDebug {
		t.Error("Expected level to be LevelDebug, got ", l.level)
	}
	if l.log == nil {
		t.Error("logger not initialized")
	}
}

func TestJSONlog_Directions(t *testing.T) {
	tests := []struct {
		name string
		dir  Direction
		from string
		to   string
	}{
		{"server to client", DirServerToClient, "server", "client"},
		{"client to server", DirClientToServer, "client", "server"},
		{"local", DirLocal, "client", "client"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b bytes.Buffer
			l := NewJSON(&b, LevelDebug)
			l.Debugf(Log{Direction: tt.dir, Server: "127.0.0.1:25", Format: "test %s", Messages: []interface{}{"foo"}})
			jl, err := unmarshalLog(b.Bytes())
			if err != nil {
				t.Fatalf("failed to unmarshal json log message: %s", err)
			}
			if jl.Direction.From != tt.from {
				t.Errorf("expected from %q, got %q", tt.from, jl.Direction.From)
			}
			if jl.Direction.To != tt.to {
				t.Errorf("expected to %q, got %q", tt.to, jl.Direction.To)
			}
			if jl.Message != "test foo" {
				t.Errorf("expected message %q, got %q", "test foo", jl.Message)
			}
			if jl.Server != "127.0.0.1:25" {
				t.Errorf("expected server %q, got %q", "127.0.0.1:25", jl.Server)
			}
			if jl.Level != "DEBUG" {
				t.Errorf("expected level DEBUG, got %s", jl.Level)
			}
		})
	}
}

func TestJSONlog_Levels(t *testing.T) {
	var b bytes.Buffer
	l := NewJSON(&b, LevelWarn)
	l.Debugf(Log{Direction: DirLocal, Format: "debug"})
	l.Infof(Log{Direction: DirLocal, Format: "info"})
	if b.Len() != 0 {
		t.Errorf("expected no output below warn level, got %q", b.String())
	}
	l.Warnf(Log{Direction: DirLocal, Format: "warn"})
	jl, err := unmarshalLog(b.Bytes())
	if err != nil {
		t.Fatalf("failed to unmarshal json log message: %s", err)
	}
	if jl.Level != "WARN" || jl.Message != "warn" {
		t.Errorf("unexpected log entry: %+v", jl)
	}

	b.Reset()
	l.Errorf(Log{Direction: DirLocal, Format: "error %d", Messages: []interface{}{1}})
	jl, err = unmarshalLog(b.Bytes())
	if err != nil {
		t.Fatalf("failed to unmarshal json log message: %s", err)
	}
	if jl.Level != "ERROR" || jl.Message != "error 1" {
		t.Errorf("unexpected log entry: %+v", jl)
	}
}

func unmarshalLog(j []byte) (jsonLog, error) {
	var l jsonLog
	err := json.Unmarshal(j, &l)
	return l, err
}

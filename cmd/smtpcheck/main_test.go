// SPDX-FileCopyrightText: Copyright (c) The smtpcheck Authors
//
// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// newServer starts a local SMTP server that accepts the password "secret" and returns
// its port
func newServer(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen on local port: %s", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handle(conn)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func handle(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	reader := bufio.NewReader(conn)
	write := func(reply string) bool {
		_, err := conn.Write([]byte(reply + "\r\n"))
		return err == nil
	}
	if !write("220 test.server ready") {
		return
	}
	step := 0
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		var reply string
		switch {
		case strings.HasPrefix(line, "HELO "):
			reply = "250 test.server"
		case line == "AUTH LOGIN":
			reply, step = "334 VXNlcm5hbWU6", 1
		case step == 1:
			reply, step = "334 UGFzc3dvcmQ6", 2
		case step == 2 && line == "c2VjcmV0":
			reply, step = "235 Authenticated", 0
		default:
			reply, step = "535 Authentication failed", 0
		}
		if !write(reply) {
			return
		}
	}
}

func TestRun_SingleAccount(t *testing.T) {
	port := newServer(t)
	tests := []struct {
		name     string
		password string
		probe    bool
		wantCode int
		want     string
	}{
		{"valid password", "secret", false, 0, "OK   user@example.com (127.0.0.1:" + strconv.Itoa(port) + "): 235 Authenticated"},
		{"invalid password", "wrong", false, 1, "FAIL user@example.com"},
		{"probe", "", true, 0, "HELO accepted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr := bytes.NewBuffer(nil), bytes.NewBuffer(nil)
			args := []string{"-host", "127.0.0.1", "-port", strconv.Itoa(port), "-login", "user@example.com"}
			if tt.password != "" {
				args = append(args, "-password", tt.password)
			}
			if tt.probe {
				args = append(args, "-probe")
			}
			code := run(context.Background(), args, stdout, stderr)
			if code != tt.wantCode {
				t.Errorf("expected exit code %d, got: %d (stderr: %s)", tt.wantCode, code, stderr.String())
			}
			if !strings.Contains(stdout.String(), tt.want) {
				t.Errorf("expected output to contain %q, got: %s", tt.want, stdout.String())
			}
			if strings.Contains(stdout.String(), "\r") {
				t.Errorf("expected reply terminators to be trimmed, got: %q", stdout.String())
			}
		})
	}
}

func TestRun_PasswordFromEnvironment(t *testing.T) {
	port := newServer(t)
	t.Setenv(passwordEnv, "secret")
	stdout := bytes.NewBuffer(nil)
	args := []string{"-host", "127.0.0.1", "-port", strconv.Itoa(port), "-login", "user@example.com"}
	if code := run(context.Background(), args, stdout, bytes.NewBuffer(nil)); code != 0 {
		t.Errorf("expected exit code 0, got: %d (%s)", code, stdout.String())
	}
}

func TestRun_ConfigFileJSON(t *testing.T) {
	port := newServer(t)
	accounts := fmt.Sprintf(`accounts:
  - name: good
    host: 127.0.0.1
    port: %d
    login: user@example.com
    password: secret
  - name: bad
    host: 127.0.0.1
    port: %d
    login: user@example.com
    password: wrong
`, port, port)
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	if err := os.WriteFile(path, []byte(accounts), 0o600); err != nil {
		t.Fatalf("failed to write accounts file: %s", err)
	}

	stdout, stderr := bytes.NewBuffer(nil), bytes.NewBuffer(nil)
	code := run(context.Background(), []string{"-config", path, "-json", "-debug"}, stdout, stderr)
	if code != 1 {
		t.Errorf("expected exit code 1, got: %d", code)
	}

	decoder := json.NewDecoder(stdout)
	var results []result
	for decoder.More() {
		var r result
		if err := decoder.Decode(&r); err != nil {
			t.Fatalf("failed to decode result: %s", err)
		}
		results = append(results, r)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got: %d", len(results))
	}
	if results[0].Name != "good" || !results[0].Success || results[0].Code != 235 {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if results[1].Name != "bad" || results[1].Success || results[1].Code != 535 {
		t.Errorf("unexpected second result: %+v", results[1])
	}
	if strings.Contains(stderr.String(), "c2VjcmV0") {
		t.Error("debug log contains the encoded password")
	}
	if !strings.Contains(stderr.String(), `"direction"`) {
		t.Errorf("expected JSON debug log, got: %s", stderr.String())
	}
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no target", nil},
		{"config and host", []string{"-config", "a.yaml", "-host", "localhost"}},
		{"missing login", []string{"-host", "localhost"}},
		{"missing config file", []string{"-config", filepath.Join(os.TempDir(), "smtpcheck-missing.yaml")}},
		{"unknown flag", []string{"-unknown"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stderr := bytes.NewBuffer(nil)
			if code := run(context.Background(), tt.args, bytes.NewBuffer(nil), stderr); code != 2 {
				t.Errorf("expected exit code 2, got: %d", code)
			}
			if stderr.Len() == 0 {
				t.Error("expected a usage error on stderr")
			}
		})
	}
}

func TestRun_Help(t *testing.T) {
	if code := run(context.Background(), []string{"-h"}, bytes.NewBuffer(nil), bytes.NewBuffer(nil)); code != 0 {
		t.Errorf("expected exit code 0 for -h, got: %d", code)
	}
}

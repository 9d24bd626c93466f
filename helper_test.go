// SPDX-FileCopyrightText: The smtpcheck Authors
//
// SPDX-License-Identifier: MIT

package smtpcheck

import (
	"bufio"
	"crypto/tls"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/mailcred/smtpcheck/internal/testcert"
)

// Scripted replies of a server that accepts the credentials
var (
	replyGreeting    = "220 test.server ESMTP ready"
	replyHELO        = "250 test.server Hello"
	replyAskUsername = "334 VXNlcm5hbWU6"
	replyAskPassword = "334 UGFzc3dvcmQ6"
	replyAuthOK      = "235 Authenticated"
	replyAuthFailed  = "535 5.7.8 Authentication credentials invalid"
)

// successScript is the reply sequence of a server that accepts the credentials
func successScript() []string {
	return []string{replyGreeting, replyHELO, replyAskUsername, replyAskPassword, replyAuthOK}
}

// testServer is a scripted SMTP server. It sends the first reply on connect and one
// more reply per received line. After the last reply it keeps reading until the client
// closes the connection.
type testServer struct {
	host string
	port int
	done chan struct{}

	mu       sync.Mutex
	received []string
}

// newTestServer starts a scripted server on a local port. With secure set the server
// speaks implicit TLS with the self-signed test certificate.
func newTestServer(t *testing.T, replies []string, secure bool) *testServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen on local port: %s", err)
	}
	if secure {
		cert, err := testcert.KeyPair()
		if err != nil {
			t.Fatalf("failed to load test certificate: %s", err)
		}
		ln = tls.NewListener(ln, &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12})
	}
	t.Cleanup(func() { _ = ln.Close() })

	host, port, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("failed to split listener address: %s", err)
	}
	portnum, err := strconv.Atoi(port)
	if err != nil {
		t.Fatalf("failed to parse listener port: %s", err)
	}

	server := &testServer{host: host, port: portnum, done: make(chan struct{}, 16)}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				t.Logf("failed to accept connection: %s", err)
				return
			}
			go server.handle(conn, replies)
		}
	}()
	return server
}

func (s *testServer) handle(conn net.Conn, replies []string) {
	defer func() {
		_ = conn.Close()
		s.done <- struct{}{}
	}()
	reader := bufio.NewReader(conn)
	for i := 0; ; i++ {
		if i < len(replies) {
			if _, err := conn.Write([]byte(replies[i] + "\r\n")); err != nil {
				return
			}
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		s.mu.Lock()
		s.received = append(s.received, strings.TrimRight(line, "\r\n"))
		s.mu.Unlock()
	}
}

// wait blocks until n connections were closed
func (s *testServer) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		<-s.done
	}
}

// lines returns the lines the server received so far
func (s *testServer) lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

// trustTestCert returns a client Option that trusts the test certificate
func trustTestCert() Option {
	return WithTLSConfig(&tls.Config{RootCAs: testcert.Pool(), MinVersion: tls.VersionTLS12})
}

// SPDX-FileCopyrightText: Copyright (c) The smtpcheck Authors
//
// SPDX-License-Identifier: MIT

// Command smtpcheck checks SMTP credentials or probes SMTP servers.
//
// Usage:
//
//	smtpcheck -config accounts.yaml [-probe] [-json] [-debug]
//	smtpcheck -host smtp.example.com [-port 465 -tls] -login user@example.com [-probe] [-json] [-debug]
//
// The password of a single account is read from the SMTPCHECK_PASSWORD environment
// variable unless -password is given.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/mailcred/smtpcheck"
	"github.com/mailcred/smtpcheck/internal/config"
	"github.com/mailcred/smtpcheck/log"
)

// passwordEnv is the environment variable for the password of a single account
const passwordEnv = "SMTPCHECK_PASSWORD"

// result is the outcome of a single account as printed by the command
type result struct {
	Name    string `json:"name"`
	Server  string `json:"server"`
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
	Code    int    `json:"code,omitempty"`
}

type flags struct {
	configPath string
	host       string
	port       int
	tls        bool
	login      string
	password   string
	helo       string
	timeout    time.Duration
	probe      bool
	json       bool
	debug      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command and returns its exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	accounts, err := f.accounts()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "smtpcheck: %s\n", err)
		return 2
	}

	var logger log.Logger
	if f.debug {
		logger = log.New(stderr, log.LevelDebug)
		if f.json {
			logger = log.NewJSON(stderr, log.LevelDebug)
		}
	}

	results := check(ctx, accounts, f.probe, logger)
	code := 0
	for _, r := range results {
		if !r.Success {
			code = 1
		}
		if f.json {
			if err = json.NewEncoder(stdout).Encode(r); err != nil {
				_, _ = fmt.Fprintf(stderr, "smtpcheck: failed to encode result: %s\n", err)
				return 2
			}
			continue
		}
		status := "FAIL"
		if r.Success {
			status = "OK"
		}
		_, _ = fmt.Fprintf(stdout, "%-4s %s (%s): %s\n", status, r.Name, r.Server, strings.TrimRight(r.Reason, "\r\n"))
	}
	return code
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{}
	fs := flag.NewFlagSet("smtpcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", "", "path to an accounts file")
	fs.StringVar(&f.host, "host", "", "SMTP server of a single account")
	fs.IntVar(&f.port, "port", 0, "port of the SMTP server (default 25, or 465 with -tls)")
	fs.BoolVar(&f.tls, "tls", false, "connect with implicit TLS")
	fs.StringVar(&f.login, "login", "", "login of a single account")
	fs.StringVar(&f.password, "password", "", "password of a single account (default $"+passwordEnv+")")
	fs.StringVar(&f.helo, "helo", "", "HELO hostname (default local hostname)")
	fs.DurationVar(&f.timeout, "timeout", 0, "connect timeout")
	fs.BoolVar(&f.probe, "probe", false, "only test that the servers accept a HELO")
	fs.BoolVar(&f.json, "json", false, "print results and logs as JSON")
	fs.BoolVar(&f.debug, "debug", false, "log the SMTP exchange, credentials redacted")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// accounts returns the accounts to check, from the accounts file or from the flags
func (f *flags) accounts() ([]config.Account, error) {
	if f.configPath != "" {
		if f.host != "" {
			return nil, errors.New("-config and -host are mutually exclusive")
		}
		file, err := config.Load(f.configPath)
		if err != nil {
			return nil, err
		}
		return file.Accounts, nil
	}
	if f.host == "" {
		return nil, errors.New("either -config or -host is required")
	}
	if f.login == "" && !f.probe {
		return nil, errors.New("-login is required to check credentials")
	}

	password := f.password
	if password == "" {
		password = os.Getenv(passwordEnv)
	}
	account := config.Account{
		Host: f.host, Port: f.port, TLS: &f.tls, Login: f.login, Password: password,
		Timeout: f.timeout, HELO: f.helo,
	}
	if account.Port == 0 {
		account.Port = config.DefaultPort
		if f.tls {
			account.Port = config.DefaultPortTLS
		}
	}
	account.Name = account.Login
	if account.Name == "" {
		account.Name = account.Host
	}
	return []config.Account{account}, nil
}

// check validates all accounts concurrently. The results keep the order of accounts.
func check(ctx context.Context, accounts []config.Account, probe bool, logger log.Logger) []result {
	results := make([]result, len(accounts))
	var wg sync.WaitGroup
	for i, account := range accounts {
		i, account := i, account
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = checkAccount(ctx, account, probe, logger)
		}()
	}
	wg.Wait()
	return results
}

func checkAccount(ctx context.Context, account config.Account, probe bool, logger log.Logger) result {
	r := result{Name: account.Name, Server: account.Addr()}
	c, err := smtpcheck.NewClient(account.Host, options(account, logger)...)
	if err != nil {
		r.Reason = err.Error()
		return r
	}
	if probe {
		r.Success = c.TestConnectionWithContext(ctx)
		r.Reason = "HELO accepted"
		if !r.Success {
			r.Reason = "server did not accept HELO"
		}
		return r
	}
	o := c.ValidateWithContext(ctx)
	r.Success, r.Reason, r.Code = o.Success, o.Reason, o.Code
	return r
}

// options maps an account to the options of a smtpcheck.Client
func options(account config.Account, logger log.Logger) []smtpcheck.Option {
	opts := []smtpcheck.Option{
		smtpcheck.WithPort(account.Port),
		smtpcheck.WithUsername(account.Login),
		smtpcheck.WithPassword(account.Password),
	}
	if account.UseTLS() {
		opts = append(opts, smtpcheck.WithSSL())
	}
	if account.Timeout > 0 {
		opts = append(opts, smtpcheck.WithTimeout(account.Timeout))
	}
	if account.HELO != "" {
		opts = append(opts, smtpcheck.WithHELO(account.HELO))
	}
	if logger != nil {
		opts = append(opts, smtpcheck.WithLogger(logger), smtpcheck.WithDebugLog())
	}
	return opts
}

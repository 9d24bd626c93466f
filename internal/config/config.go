// SPDX-FileCopyrightText: Copyright (c) The smtpcheck Authors
//
// SPDX-License-Identifier: MIT

// Package config reads the accounts file of the smtpcheck command.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default ports of an account without an explicit port
const (
	DefaultPort    = 25
	DefaultPortTLS = 465
)

// ErrNoAccounts is returned if the accounts file lists no account
var ErrNoAccounts = errors.New("no accounts configured")

var validate = validator.New()

// File is the content of an accounts file
type File struct {
	Defaults Defaults  `yaml:"defaults"`
	Accounts []Account `yaml:"accounts" validate:"unique=Name,dive"`
}

// Defaults apply to every account that does not set the value itself
type Defaults struct {
	TLS     bool          `yaml:"tls"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
	HELO    string        `yaml:"helo" validate:"omitempty,hostname_rfc1123"`
}

// Account is a single set of credentials to check
type Account struct {
	Name        string        `yaml:"name" validate:"required"`
	Host        string        `yaml:"host" validate:"required,hostname_rfc1123|ip"`
	Port        int           `yaml:"port" validate:"min=1,max=65535"`
	TLS         *bool         `yaml:"tls"`
	Login       string        `yaml:"login" validate:"required"`
	Password    string        `yaml:"password"`
	PasswordEnv string        `yaml:"password_env" validate:"omitempty,excluded_with=Password"`
	Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`
	HELO        string        `yaml:"helo" validate:"omitempty,hostname_rfc1123"`
}

// Load reads and validates the accounts file at path
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates an accounts file. Defaults are applied to the accounts
// and passwords are resolved from the environment where requested.
func Parse(data []byte) (*File, error) {
	file := &File{}
	if err := yaml.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("failed to parse accounts file: %w", err)
	}
	if len(file.Accounts) == 0 {
		return nil, ErrNoAccounts
	}
	for i := range file.Accounts {
		file.Accounts[i].applyDefaults(file.Defaults)
	}
	if err := validate.Struct(file); err != nil {
		return nil, fmt.Errorf("invalid accounts file: %w", err)
	}
	for i := range file.Accounts {
		if err := file.Accounts[i].resolvePassword(); err != nil {
			return nil, err
		}
	}
	return file, nil
}

// UseTLS reports whether the account connects with implicit TLS
func (a Account) UseTLS() bool {
	return a.TLS != nil && *a.TLS
}

// Addr returns the host:port of the account
func (a Account) Addr() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

func (a *Account) applyDefaults(d Defaults) {
	if a.TLS == nil {
		tls := d.TLS
		a.TLS = &tls
	}
	if a.Port == 0 {
		a.Port = DefaultPort
		if *a.TLS {
			a.Port = DefaultPortTLS
		}
	}
	if a.Timeout == 0 {
		a.Timeout = d.Timeout
	}
	if a.HELO == "" {
		a.HELO = d.HELO
	}
	if a.Name == "" {
		a.Name = a.Login + "@" + a.Addr()
	}
}

func (a *Account) resolvePassword() error {
	if a.PasswordEnv == "" {
		return nil
	}
	password, ok := os.LookupEnv(a.PasswordEnv)
	if !ok {
		return fmt.Errorf("account %s: environment variable %s is not set", a.Name, a.PasswordEnv)
	}
	a.Password = password
	return nil
}

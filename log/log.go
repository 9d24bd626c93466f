// SPDX-FileCopyrightText: Copyright (c) The smtpcheck Authors
//
// SPDX-License-Identifier: MIT

// Package log implements the logger interface used by the smtpcheck client and its
// connectors. Log entries carry the direction of the SMTP exchange and the address of
// the server, so that the output of concurrent credential checks can be told apart.
package log

const (
	// DirServerToClient marks a reply read from the SMTP server
	DirServerToClient Direction = iota

	// DirClientToServer marks a command written to the SMTP server
	DirClientToServer

	// DirLocal marks an event of the client itself (dial, handshake, close)
	DirLocal
)

const (
	// LevelError only logs errors
	LevelError Level = iota

	// LevelWarn logs warnings and errors
	LevelWarn

	// LevelInfo logs informational messages, warnings and errors
	LevelInfo

	// LevelDebug logs everything, including the SMTP protocol exchange
	LevelDebug
)

const (
	// DirString is the group name of the direction attributes in structured logs
	DirString = "direction"

	// DirFromString is the attribute name of the sending side
	DirFromString = "from"

	// DirToString is the attribute name of the receiving side
	DirToString = "to"

	// ServerString is the attribute name of the server address
	ServerString = "server"
)

// Direction is a type wrapper for the direction a log message goes
type Direction int

// Level is the verbosity of a Logger
type Level int

// Log represents a log message type that holds a log Direction, the address of the
// SMTP server the message relates to, a Format string and a slice of Messages
type Log struct {
	Direction Direction
	Server    string
	Format    string
	Messages  []interface{}
}

// Logger is the log interface for smtpcheck
type Logger interface {
	Debugf(Log)
	Infof(Log)
	Warnf(Log)
	Errorf(Log)
}

// directionPrefix returns the textual prefix for the Direction of the Log
func (l Log) directionPrefix() string {
	p := "C:"
	switch l.Direction {
	case DirClientToServer:
		p = "C --> S:"
	case DirServerToClient:
		p = "C <-- S:"
	}
	if l.Server != "" {
		return "[" + l.Server + "] " + p
	}
	return p
}

// directionFrom returns the sending side of the Log
func (l Log) directionFrom() string {
	if l.Direction == DirServerToClient {
		return "server"
	}
	return "client"
}

// directionTo returns the receiving side of the Log
func (l Log) directionTo() string {
	switch l.Direction {
	case DirServerToClient:
		return "client"
	case DirClientToServer:
		return "server"
	default:
		return "client"
	}
}

// SPDX-FileCopyrightText: Copyright (c) The smtpcheck Authors
//
// SPDX-License-Identifier: MIT

package smtp

import (
	"bytes"
	"errors"
	"io"
	"strconv"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// MaxLineLength bounds a reply line. RFC 5321 allows 512 octets, servers with long
// texts still fit.
const MaxLineLength = 64 * 1024

// DefaultBufferSize is the size of a single read from the transport
const DefaultBufferSize = 2048

// Response is a single SMTP reply line
type Response struct {
	// Code is the three-digit reply code
	Code int

	// Text is the raw reply as received, including the EOL terminator
	Text string
}

// ParseResponse extracts the reply code of the given reply text. A ProtocolError is
// returned if text is shorter than three characters or does not start with three
// decimal digits.
func ParseResponse(text string) (Response, error) {
	if len(text) < 3 {
		return Response{Text: text}, &ProtocolError{Text: text}
	}
	for i := 0; i < 3; i++ {
		if text[i] < '0' || text[i] > '9' {
			return Response{Text: text}, &ProtocolError{Text: text}
		}
	}
	code, err := strconv.Atoi(text[:3])
	if err != nil {
		return Response{Text: text}, &ProtocolError{Text: text}
	}
	return Response{Code: code, Text: text}, nil
}

// Matches reports whether the reply code is one of the expected codes
func (r Response) Matches(expected ...int) bool {
	for _, code := range expected {
		if r.Code == code {
			return true
		}
	}
	return false
}

// ResponseReader reads SMTP reply lines from a byte stream. The bytes are decoded as
// UTF-8 with a streaming decoder, so multi-byte characters may span reads. Text that
// follows a terminator is kept for the next reply.
type ResponseReader struct {
	src     io.Reader
	buf     []byte
	pending []byte
}

// NewResponseReader returns a ResponseReader that reads from r
func NewResponseReader(r io.Reader) *ResponseReader {
	return &ResponseReader{
		src: transform.NewReader(r, unicode.UTF8.NewDecoder()),
		buf: make([]byte, DefaultBufferSize),
	}
}

// ReadLine accumulates text until the EOL terminator is seen or the stream ends. The
// returned text includes the terminator. On a read error the text accumulated so far is
// returned together with the error. ErrLineTooLong is returned if MaxLineLength bytes
// arrive without a terminator.
func (r *ResponseReader) ReadLine() (string, error) {
	text := r.pending
	r.pending = nil
	scanned := 0
	for {
		if line, ok := r.cut(text, scanned); ok {
			return line, nil
		}
		if len(text) >= MaxLineLength {
			return string(text), ErrLineTooLong
		}
		// a terminator may start in the last byte already scanned
		scanned = max(len(text)-len(EOL)+1, 0)

		n, err := r.src.Read(r.buf)
		text = append(text, r.buf[:n]...)
		if errors.Is(err, io.EOF) {
			if line, ok := r.cut(text, scanned); ok {
				return line, nil
			}
			return string(text), nil
		}
		if err != nil {
			return string(text), err
		}
	}
}

// cut returns the first line of text if a terminator follows offset from and keeps the
// rest of text for the next line
func (r *ResponseReader) cut(text []byte, from int) (string, bool) {
	i := bytes.Index(text[from:], eol)
	if i < 0 {
		return "", false
	}
	end := from + i + len(EOL)
	if end < len(text) {
		r.pending = append([]byte(nil), text[end:]...)
	}
	return string(text[:end]), true
}

var eol = []byte(EOL)

// ReadResponse reads a single reply line and parses its reply code
func (r *ResponseReader) ReadResponse() (Response, error) {
	text, err := r.ReadLine()
	if err != nil {
		return Response{Text: text}, err
	}
	return ParseResponse(text)
}

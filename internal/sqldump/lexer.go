// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package sqldump

import (
	"errors"
	"fmt"
)

var (
	ErrUnterminatedQuote = errors.New("unterminated quoted literal")
	ErrUnbalancedParens  = errors.New("unbalanced parentheses")
	ErrUnexpectedToken   = errors.New("unexpected text between rows")
)

// maxNear caps the payload text quoted in a SyntaxError.
const maxNear = 32

// SyntaxError reports structural corruption in a VALUES payload.
// Offset is relative to the start of the payload; Near holds the text found
// there.
type SyntaxError struct {
	Offset int
	Near   string
	Err    error
}

func newSyntaxError(payload string, offset int, err error) *SyntaxError {
	near := payload[offset:]
	if len(near) > maxNear {
		near = near[:maxNear]
	}
	return &SyntaxError{Offset: offset, Near: near, Err: err}
}

func (e *SyntaxError) Error() string {
	if e.Near == "" {
		return fmt.Sprintf("syntax error at offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("syntax error at offset %d near %q: %v", e.Offset, e.Near, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

type lexState int

const (
	stateDefault lexState = iota
	stateSingleQuote
	stateDoubleQuote
)

// quoteTracker follows quoted literals byte by byte. Inside a literal a
// backslash escapes the next byte, so neither `\'` nor `\\'` can close it.
type quoteTracker struct {
	state   lexState
	escaped bool
}

// step consumes c and reports whether c is outside every literal, i.e.
// whether it may act as structure (parenthesis, comma, terminator).
// Quote characters themselves are never structural.
func (t *quoteTracker) step(c byte) bool {
	if t.state == stateDefault {
		switch c {
		case '\'':
			t.state = stateSingleQuote
			return false
		case '"':
			t.state = stateDoubleQuote
			return false
		}
		return true
	}

	if t.escaped {
		t.escaped = false
		return false
	}
	switch {
	case c == '\\':
		t.escaped = true
	case c == '\'' && t.state == stateSingleQuote:
		t.state = stateDefault
	case c == '"' && t.state == stateDoubleQuote:
		t.state = stateDefault
	}
	return false
}

func (t *quoteTracker) inLiteral() bool {
	return t.state != stateDefault
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

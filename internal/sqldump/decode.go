// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package sqldump

import (
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// DecodeRow splits one row's text into fields and decodes each of them.
// It never fails: text that is not a recognizable literal becomes a String.
func DecodeRow(row string) []Value {
	fields := SplitFields(row)
	if len(fields) == 0 {
		return nil
	}

	values := make([]Value, len(fields))
	for i, f := range fields {
		values[i] = DecodeValue(f)
	}
	return values
}

// SplitFields splits a row on commas that are outside quoted literals and
// outside nested parentheses. An empty or blank row has no fields.
func SplitFields(row string) []string {
	if strings.TrimSpace(row) == "" {
		return nil
	}

	var (
		fields []string
		t      quoteTracker
		depth  int
		start  int
	)
	for i := 0; i < len(row); i++ {
		c := row[i]
		if !t.step(c) {
			continue
		}
		switch c {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				fields = append(fields, row[start:i])
				start = i + 1
			}
		}
	}
	return append(fields, row[start:])
}

// DecodeValue classifies a single field: NULL, a quoted string, a number or,
// as a fallback, the bare text itself.
func DecodeValue(field string) Value {
	f := strings.TrimSpace(field)

	if f == "NULL" {
		return Null()
	}

	if len(f) >= 2 && (f[0] == '\'' || f[0] == '"') && f[len(f)-1] == f[0] {
		return String(unescape(f[1:len(f)-1], f[0]))
	}

	if numberPattern.MatchString(f) {
		if n, err := strconv.ParseFloat(f, 64); err == nil {
			return Number(n, f)
		}
	}

	return String(f)
}

// unescape resolves backslash escapes and doubled quote characters in a
// single left-to-right pass, so an escaped backslash is never reused as the
// start of another escape.
//
// Escapes follow MySQL (\n, \t, \0, \Z and friends become control bytes).
// The legacy importer only resolved \', \" and \\, leaving \n as two
// characters; this difference is intentional.
func unescape(body string, quote byte) string {
	if strings.IndexByte(body, '\\') < 0 && strings.IndexByte(body, quote) < 0 {
		return body
	}

	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body):
			i++
			next := body[i]
			if next == '%' || next == '_' {
				// MySQL keeps the backslash for LIKE wildcards.
				b.WriteByte('\\')
			}
			b.WriteByte(escapedByte(next))
		case c == quote && i+1 < len(body) && body[i+1] == quote:
			i++
			b.WriteByte(quote)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func escapedByte(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case '0':
		return 0
	case 'Z':
		return 0x1a
	default:
		return c
	}
}

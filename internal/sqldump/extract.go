// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package sqldump

import (
	"strings"
)

// Statement is the VALUES payload of one INSERT statement for a table.
type Statement struct {
	Table   string
	Columns []string // empty when the dump omits the column list
	Payload string   // text after VALUES, without the terminating ';'
	Offset  int      // byte offset of INSERT in the dump
	Line    int      // 1-based line of INSERT in the dump
}

// Extractor yields the INSERT statements of one table in source order.
// It makes a single forward pass over the text and is not restartable.
type Extractor struct {
	text  string
	table string
	pos   int

	line    int
	lineOff int
}

// NewExtractor returns an extractor for INSERT statements targeting table.
// A schema-qualified table name is matched on its last part.
func NewExtractor(text, table string) *Extractor {
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		table = table[i+1:]
	}
	return &Extractor{
		text:  text,
		table: strings.Trim(table, "`\""),
		line:  1,
	}
}

// ExtractStatements returns every INSERT statement for table in text.
func ExtractStatements(text, table string) []Statement {
	var stmts []Statement
	e := NewExtractor(text, table)
	for {
		stmt, ok := e.Next()
		if !ok {
			return stmts
		}
		stmts = append(stmts, stmt)
	}
}

// Next returns the next statement for the table. ok is false once the end of
// the text is reached.
func (e *Extractor) Next() (Statement, bool) {
	text := e.text
	for e.pos < len(text) {
		c := text[e.pos]
		switch {
		case c == '-' && strings.HasPrefix(text[e.pos:], "--"):
			e.pos = skipLine(text, e.pos)
		case c == '#':
			e.pos = skipLine(text, e.pos)
		case c == '/' && strings.HasPrefix(text[e.pos:], "/*"):
			if end := strings.Index(text[e.pos+2:], "*/"); end >= 0 {
				e.pos += end + 4
			} else {
				e.pos = len(text)
			}
		case c == '\'' || c == '"' || c == '`':
			e.pos = skipQuoted(text, e.pos)
		case (c == 'i' || c == 'I') && wordStart(text, e.pos) && hasKeyword(text, e.pos, "insert"):
			start := e.pos
			h, ok := parseHeader(text, start)
			if !ok {
				e.pos += len("insert")
				continue
			}
			end, next := statementEnd(text, h.payloadStart)
			e.pos = next
			if !strings.EqualFold(h.table, e.table) {
				continue
			}
			return Statement{
				Table:   h.table,
				Columns: h.columns,
				Payload: strings.TrimSpace(text[h.payloadStart:end]),
				Offset:  start,
				Line:    e.lineAt(start),
			}, true
		default:
			e.pos++
		}
	}
	return Statement{}, false
}

func (e *Extractor) lineAt(off int) int {
	e.line += strings.Count(e.text[e.lineOff:off], "\n")
	e.lineOff = off
	return e.line
}

type header struct {
	table        string
	columns      []string
	payloadStart int
}

var insertModifiers = []string{"low_priority", "delayed", "high_priority", "ignore"}

// parseHeader parses `INSERT [modifiers] INTO name [(cols)] VALUES` starting at i.
func parseHeader(text string, i int) (header, bool) {
	var h header

	i = skipSpace(text, i+len("insert"))
	for matched := true; matched; {
		matched = false
		for _, m := range insertModifiers {
			if hasKeyword(text, i, m) {
				i = skipSpace(text, i+len(m))
				matched = true
			}
		}
	}
	if !hasKeyword(text, i, "into") {
		return h, false
	}
	i = skipSpace(text, i+len("into"))

	name, i, ok := parseIdent(text, i)
	if !ok {
		return h, false
	}
	for i < len(text) && text[i] == '.' {
		if name, i, ok = parseIdent(text, i+1); !ok {
			return h, false
		}
	}
	h.table = name

	i = skipSpace(text, i)
	if i < len(text) && text[i] == '(' {
		i++
		for {
			i = skipSpace(text, i)
			var col string
			if col, i, ok = parseIdent(text, i); !ok {
				return h, false
			}
			h.columns = append(h.columns, col)
			i = skipSpace(text, i)
			if i >= len(text) {
				return h, false
			}
			if text[i] == ')' {
				i++
				break
			}
			if text[i] != ',' {
				return h, false
			}
			i++
		}
		i = skipSpace(text, i)
	}

	switch {
	case hasKeyword(text, i, "values"):
		i += len("values")
	case hasKeyword(text, i, "value"):
		i += len("value")
	default:
		return h, false
	}

	h.payloadStart = i
	return h, true
}

// statementEnd finds the ';' ending the statement whose payload starts at i.
// It returns the payload end and the position to resume scanning from.
func statementEnd(text string, i int) (end, next int) {
	var t quoteTracker
	for ; i < len(text); i++ {
		if t.step(text[i]) && text[i] == ';' {
			return i, i + 1
		}
	}
	return len(text), len(text)
}

func parseIdent(text string, i int) (string, int, bool) {
	if i >= len(text) {
		return "", i, false
	}
	switch q := text[i]; q {
	case '`', '"':
		var b strings.Builder
		for j := i + 1; j < len(text); j++ {
			if text[j] != q {
				b.WriteByte(text[j])
				continue
			}
			if j+1 < len(text) && text[j+1] == q {
				b.WriteByte(q)
				j++
				continue
			}
			return b.String(), j + 1, b.Len() > 0
		}
		return "", len(text), false
	default:
		j := i
		for j < len(text) && isIdentByte(text[j]) {
			j++
		}
		return text[i:j], j, j > i
	}
}

func hasKeyword(text string, i int, kw string) bool {
	if i+len(kw) > len(text) || !strings.EqualFold(text[i:i+len(kw)], kw) {
		return false
	}
	return i+len(kw) == len(text) || !isIdentByte(text[i+len(kw)])
}

func wordStart(text string, i int) bool {
	return i == 0 || !isIdentByte(text[i-1])
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func skipSpace(text string, i int) int {
	for i < len(text) && isSpace(text[i]) {
		i++
	}
	return i
}

func skipLine(text string, i int) int {
	if j := strings.IndexByte(text[i:], '\n'); j >= 0 {
		return i + j + 1
	}
	return len(text)
}

// skipQuoted skips a quoted literal or identifier starting at i.
func skipQuoted(text string, i int) int {
	q := text[i]
	for j := i + 1; j < len(text); j++ {
		switch {
		case text[j] == '\\' && q != '`':
			j++
		case text[j] == q:
			if j+1 < len(text) && text[j+1] == q {
				j++
				continue
			}
			return j + 1
		}
	}
	return len(text)
}

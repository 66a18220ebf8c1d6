// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package sqldump

import (
	"strconv"
)

// Kind identifies the type of a decoded literal.
type Kind int

const (
	KindNull Kind = iota
	KindNumber
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single decoded SQL literal from a VALUES row.
// Numbers keep their source text in Str so they can be passed through verbatim.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

// Null returns the NULL literal.
func Null() Value {
	return Value{Kind: KindNull}
}

// Number returns a numeric literal. text is the literal as written in the dump.
func Number(n float64, text string) Value {
	if text == "" {
		text = strconv.FormatFloat(n, 'f', -1, 64)
	}
	return Value{Kind: KindNumber, Num: n, Str: text}
}

// String returns a string literal holding the already unescaped text.
func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// Text returns the value as text: "" for NULL, the source text for numbers.
func (v Value) Text() string {
	if v.Kind == KindNull {
		return ""
	}
	return v.Str
}

// Equal reports whether two values are the same literal. Numbers compare by value.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindNumber:
		return v.Num == o.Num
	default:
		return v.Str == o.Str
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindNumber:
		return v.Str
	default:
		return strconv.Quote(v.Str)
	}
}

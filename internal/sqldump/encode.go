// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package sqldump

import (
	"strconv"
	"strings"
)

// Literal renders v the way mysqldump writes it inside a VALUES list.
func Literal(v Value) string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindNumber:
		if numberPattern.MatchString(v.Str) {
			return v.Str
		}
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return Quote(v.Str)
	}
}

var quoteReplacer = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\x00", `\0`,
	"\x1a", `\Z`,
)

// Quote returns s as a single-quoted, backslash-escaped SQL string literal.
func Quote(s string) string {
	return "'" + quoteReplacer.Replace(s) + "'"
}

// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package mapping

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/netSkope/dump-migration-tool/internal/sqldump"
)

// Rule selects how a source value becomes a destination value.
type Rule int

const (
	// RuleText yields a string; NULL becomes "".
	RuleText Rule = iota
	// RuleOptionalText yields a string or NULL.
	RuleOptionalText
	// RulePhone yields a cleaned phone string.
	RulePhone
	// RuleEnum yields a vocabulary member, or NULL for Unassigned.
	RuleEnum
	// RuleDate yields a time.Time or NULL.
	RuleDate
	// RuleDecimal yields a float64, 0 when unparsable.
	RuleDecimal
	// RuleFlag yields true only for the value 1.
	RuleFlag
)

var ruleNames = map[Rule]string{
	RuleText:         "text",
	RuleOptionalText: "optional-text",
	RulePhone:        "phone",
	RuleEnum:         "enum",
	RuleDate:         "date",
	RuleDecimal:      "decimal",
	RuleFlag:         "flag",
}

func (r Rule) String() string {
	if s, ok := ruleNames[r]; ok {
		return s
	}
	return fmt.Sprintf("rule(%d)", int(r))
}

// ParseRule accepts the names printed by Rule.String.
func ParseRule(s string) (Rule, error) {
	for r, name := range ruleNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown mapping rule %q", s)
}

// MaxPhoneLen is the destination width of phone columns.
const MaxPhoneLen = 20

var (
	phonePrefix     = regexp.MustCompile(`(?i)^\s*(phone|tel|cell|mobile)\s*[:.]\s*`)
	phoneExtension  = regexp.MustCompile(`(?i)\s*(ext\.?|extension|x)\s*\d.*$`)
	phoneAnnotation = regexp.MustCompile(`\s+\p{L}[\p{L} .'-]*$`)
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
}

func textValue(v sqldump.Value, maxLen int) string {
	return truncate(v.Text(), maxLen)
}

func optionalTextValue(v sqldump.Value, maxLen int) any {
	if v.IsNull() {
		return nil
	}
	return truncate(v.Str, maxLen)
}

// CleanPhone strips labels, extensions and trailing names from a free-form
// phone entry and caps it at MaxPhoneLen characters.
func CleanPhone(s string) string {
	s = phonePrefix.ReplaceAllString(s, "")
	s = phoneExtension.ReplaceAllString(s, "")
	s = phoneAnnotation.ReplaceAllString(s, "")
	return strings.TrimSpace(truncate(strings.TrimSpace(s), MaxPhoneLen))
}

// ParseDate reads a legacy date. Empty, NULL, zero and unparsable dates
// report false.
func ParseDate(v sqldump.Value) (time.Time, bool) {
	if v.IsNull() {
		return time.Time{}, false
	}
	s := strings.TrimSpace(v.Text())
	if s == "" || strings.EqualFold(s, "null") || strings.HasPrefix(s, "0000-00-00") {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDecimal reads a money amount. Currency symbols and thousands
// separators are ignored; anything else unparsable is 0.
func ParseDecimal(v sqldump.Value) float64 {
	var n float64
	switch v.Kind {
	case sqldump.KindNumber:
		n = v.Num
	case sqldump.KindString:
		s := strings.Map(func(r rune) rune {
			switch r {
			case '$', ',', ' ':
				return -1
			}
			return r
		}, v.Str)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		n = f
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return math.Round(n*100) / 100
}

// ParseFlag reports whether v is the number or string 1.
func ParseFlag(v sqldump.Value) bool {
	switch v.Kind {
	case sqldump.KindNumber:
		return v.Num == 1
	case sqldump.KindString:
		return strings.TrimSpace(v.Str) == "1"
	}
	return false
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i]
		}
		n++
	}
	return s
}

// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package mapping

import (
	"strings"
	"testing"
	"time"

	"github.com/netSkope/dump-migration-tool/internal/sqldump"
)

func TestCleanPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"(555) 123-4567", "(555) 123-4567"},
		{"Phone: 555-123-4567", "555-123-4567"},
		{"tel. 555 1234", "555 1234"},
		{"555-123-4567 Ext. 12", "555-123-4567"},
		{"555-123-4567 x12", "555-123-4567"},
		{"555-123-4567 Cell Patricia", "555-123-4567"},
		{"  555.123.4567  ", "555.123.4567"},
		{"+1 (555) 123-4567 / +1 (555) 765-4321", "+1 (555) 123-4567 /"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanPhone(tt.in); got != tt.want {
			t.Errorf("CleanPhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if got := CleanPhone(tt.in); len([]rune(got)) > MaxPhoneLen {
			t.Errorf("CleanPhone(%q) = %q exceeds %d characters", tt.in, got, MaxPhoneLen)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name   string
		in     sqldump.Value
		want   time.Time
		wantOK bool
	}{
		{"null", sqldump.Null(), time.Time{}, false},
		{"empty", sqldump.String(""), time.Time{}, false},
		{"zero date", sqldump.String("0000-00-00"), time.Time{}, false},
		{"zero datetime", sqldump.String("0000-00-00 00:00:00"), time.Time{}, false},
		{"garbage", sqldump.String("next tuesday"), time.Time{}, false},
		{"number", sqldump.Number(20240105, "20240105"), time.Time{}, false},
		{"date", sqldump.String("2024-01-05"), time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), true},
		{"datetime", sqldump.String("2024-01-05 13:45:00"), time.Date(2024, 1, 5, 13, 45, 0, 0, time.UTC), true},
		{"iso", sqldump.String("2024-01-05T13:45:00"), time.Date(2024, 1, 5, 13, 45, 0, 0, time.UTC), true},
		{"us date", sqldump.String("01/05/2024"), time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), true},
		{"short us date", sqldump.String("1/5/2024"), time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			if ok != tt.wantOK || !got.Equal(tt.want) {
				t.Errorf("ParseDate(%v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   sqldump.Value
		want float64
	}{
		{sqldump.Number(1250.5, "1250.5"), 1250.5},
		{sqldump.String("1250.50"), 1250.5},
		{sqldump.String("$12,500.00"), 12500},
		{sqldump.String("tbd"), 0},
		{sqldump.String(""), 0},
		{sqldump.Null(), 0},
		{sqldump.Number(19.999, "19.999"), 20},
	}
	for _, tt := range tests {
		if got := ParseDecimal(tt.in); got != tt.want {
			t.Errorf("ParseDecimal(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		in   sqldump.Value
		want bool
	}{
		{sqldump.Number(1, "1"), true},
		{sqldump.String("1"), true},
		{sqldump.Number(0, "0"), false},
		{sqldump.Number(2, "2"), false},
		{sqldump.String("yes"), false},
		{sqldump.Null(), false},
	}
	for _, tt := range tests {
		if got := ParseFlag(tt.in); got != tt.want {
			t.Errorf("ParseFlag(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseRule(t *testing.T) {
	for r, name := range ruleNames {
		got, err := ParseRule(strings.ToUpper(name))
		if err != nil || got != r {
			t.Errorf("ParseRule(%q) = %v, %v; want %v", name, got, err, r)
		}
	}
	if _, err := ParseRule("blob"); err == nil {
		t.Error("ParseRule(blob) expected error")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo", 2); got != "hé" {
		t.Errorf("truncate() = %q, want %q", got, "hé")
	}
	if got := truncate("abc", 0); got != "abc" {
		t.Errorf("truncate() with no limit = %q", got)
	}
}

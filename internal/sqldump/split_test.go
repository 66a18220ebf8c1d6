// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package sqldump

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitRows(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []string
	}{
		{
			name:    "single row",
			payload: "(1,'a')",
			want:    []string{"1,'a'"},
		},
		{
			name:    "rows separated by whitespace and newlines",
			payload: "(1,'a'),\n  (2,'b') ,\r\n(3,NULL)",
			want:    []string{"1,'a'", "2,'b'", "3,NULL"},
		},
		{
			name:    "comma and parens inside literal",
			payload: "(1,'123 Main St, Apt (4)'),(2,'x')",
			want:    []string{"1,'123 Main St, Apt (4)'", "2,'x'"},
		},
		{
			name:    "row delimiter inside literal",
			payload: "(1,'a),(b'),(2,\"c),(d\")",
			want:    []string{"1,'a),(b'", "2,\"c),(d\""},
		},
		{
			name:    "escaped quote does not close literal",
			payload: `(1,'it\'s (fine)'),(2,'ok')`,
			want:    []string{`1,'it\'s (fine)'`, `2,'ok'`},
		},
		{
			name:    "escaped backslash before closing quote",
			payload: `(1,'C:\\'),(2,'D:\\x')`,
			want:    []string{`1,'C:\\'`, `2,'D:\\x'`},
		},
		{
			name:    "other quote kind inside literal is text",
			payload: `(1,'say "hi" (twice)'),(2,"it's")`,
			want:    []string{`1,'say "hi" (twice)'`, `2,"it's"`},
		},
		{
			name:    "doubled quote",
			payload: "(1,'O''Brien, Inc.'),(2,'x')",
			want:    []string{"1,'O''Brien, Inc.'", "2,'x'"},
		},
		{
			name:    "nested parens outside literals stay in row",
			payload: "(1,(2),'x'),(3)",
			want:    []string{"1,(2),'x'", "3"},
		},
		{
			name:    "empty row",
			payload: "(),(1)",
			want:    []string{"", "1"},
		},
		{
			name:    "empty payload",
			payload: "",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitRows(tt.payload)
			if err != nil {
				t.Fatalf("SplitRows() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("SplitRows() returned %d rows %q, want %d %q", len(got), got, len(tt.want), tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("row %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitRows_Corruption(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantErr    error
		wantOffset int
	}{
		{"unterminated quote", "(1,'abc),(2,'d')", ErrUnterminatedQuote, 14},
		{"missing closing paren", "(1,'a'),(2,'b'", ErrUnbalancedParens, 8},
		{"stray closing paren", "(1),)", ErrUnbalancedParens, 4},
		{"garbage between rows", "(1) x (2)", ErrUnexpectedToken, 4},
		{"escaped final quote", `(1,'abc\')`, ErrUnterminatedQuote, 3},
		{"trailing upsert clause", "(1,'a') ON DUPLICATE KEY UPDATE id=id", ErrUnexpectedToken, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := SplitRows(tt.payload)
			if err == nil {
				t.Fatalf("SplitRows() expected error, got rows %q", rows)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SplitRows() error = %v, want %v", err, tt.wantErr)
			}
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("SplitRows() error %T is not *SyntaxError", err)
			}
			if se.Offset != tt.wantOffset {
				t.Errorf("SyntaxError.Offset = %d, want %d", se.Offset, tt.wantOffset)
			}
			if rows != nil {
				t.Errorf("SplitRows() returned rows alongside error: %q", rows)
			}
		})
	}
}

func TestSyntaxError_QuotesOffendingText(t *testing.T) {
	_, err := SplitRows("(1,'a') ON DUPLICATE KEY UPDATE id=id")
	var se *SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("SplitRows() error %T is not *SyntaxError", err)
	}
	if se.Near != "ON DUPLICATE KEY UPDATE id=id" {
		t.Errorf("SyntaxError.Near = %q", se.Near)
	}
	want := `syntax error at offset 8 near "ON DUPLICATE KEY UPDATE id=id": unexpected text between rows`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	_, err = SplitRows("(1) " + strings.Repeat("x", 100))
	if !errors.As(err, &se) {
		t.Fatalf("SplitRows() error %T is not *SyntaxError", err)
	}
	if len(se.Near) != maxNear {
		t.Errorf("len(SyntaxError.Near) = %d, want %d", len(se.Near), maxNear)
	}
}

// Joining rows with "),(" and splitting them again must give the same rows
// back, whatever punctuation their literals contain.
func TestSplitRows_JoinRoundTrip(t *testing.T) {
	rows := []string{
		`1,'plain'`,
		`2,'a, b, c'`,
		`3,'(paren) and ),( inside'`,
		`4,'it\'s \"quoted\"'`,
		`5,"double ' mixed"`,
		`6,NULL,-12.50,'trailing backslash \\'`,
		`7,'O''Brien, Inc.'`,
	}

	for n := 1; n <= len(rows); n++ {
		payload := "(" + strings.Join(rows[:n], "),(") + ")"
		got, err := SplitRows(payload)
		if err != nil {
			t.Fatalf("n=%d: SplitRows() error = %v", n, err)
		}
		if len(got) != n {
			t.Fatalf("n=%d: got %d rows, want %d", n, len(got), n)
		}
		for i := range got {
			if got[i] != rows[i] {
				t.Errorf("n=%d row %d = %q, want %q", n, i, got[i], rows[i])
			}
		}
	}
}

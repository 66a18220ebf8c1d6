// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package sqldump

// SplitRows splits a VALUES payload such as `(1,'a'),(2,'b')` into the text
// of each row without its enclosing parentheses, in source order.
//
// Parentheses and commas inside quoted literals never split. Only whitespace
// and commas may appear between rows. A payload that ends inside a literal or
// with open parentheses is truncated or corrupted and yields a *SyntaxError;
// no rows are returned in that case.
func SplitRows(payload string) ([]string, error) {
	var (
		rows     []string
		t        quoteTracker
		depth    int
		rowStart int
		litStart int
	)

	for i := 0; i < len(payload); i++ {
		c := payload[i]

		if depth == 0 {
			switch {
			case isSpace(c) || c == ',':
			case c == '(':
				depth = 1
				rowStart = i + 1
			case c == ')':
				return nil, newSyntaxError(payload, i, ErrUnbalancedParens)
			default:
				return nil, newSyntaxError(payload, i, ErrUnexpectedToken)
			}
			continue
		}

		wasLiteral := t.inLiteral()
		if !t.step(c) {
			if !wasLiteral && t.inLiteral() {
				litStart = i
			}
			continue
		}

		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				rows = append(rows, payload[rowStart:i])
			}
		}
	}

	if t.inLiteral() {
		return nil, newSyntaxError(payload, litStart, ErrUnterminatedQuote)
	}
	if depth != 0 {
		return nil, newSyntaxError(payload, rowStart-1, ErrUnbalancedParens)
	}
	return rows, nil
}

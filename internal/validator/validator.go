// Package validator classifies raw query text as read-only-permitted or
// rejected. It is a whitelist on the statement's leading keyword plus a
// multi-statement check, not a SQL parser: no semantic analysis is attempted.
package validator

import (
	"strings"
)

// Reason identifies why a query was rejected.
type Reason string

const (
	ReasonWriteOperation Reason = "WriteOperationRejected"
	ReasonMultiStatement Reason = "MultiStatementRejected"
	ReasonEmptyQuery     Reason = "EmptyQueryRejected"
)

// Decision is the outcome of classifying a single query. When Allowed is
// true, Normalized holds the text to hand to the driver (trailing semicolons
// stripped, leading whitespace and comments removed); when false, Reason is set.
type Decision struct {
	Allowed    bool
	Normalized string
	Reason     Reason
}

// allowedKeywords is the closed set of permitted leading keywords.
// Matching is case-insensitive; everything after the keyword is passed
// through to the driver unmodified.
var allowedKeywords = map[string]bool{
	"SELECT":   true,
	"SHOW":     true,
	"DESCRIBE": true,
	"DESC":     true,
	"EXPLAIN":  true,
}

// Classify normalizes the query and decides whether it may run.
func Classify(query string) Decision {
	normalized := normalize(query)
	if normalized == "" {
		return Decision{Reason: ReasonEmptyQuery}
	}

	if hasSecondStatement(normalized) {
		return Decision{Reason: ReasonMultiStatement}
	}

	keyword := leadingKeyword(normalized)
	if !allowedKeywords[keyword] {
		return Decision{Reason: ReasonWriteOperation}
	}

	return Decision{Allowed: true, Normalized: normalized}
}

// normalize trims surrounding whitespace, skips leading SQL comments, and
// strips trailing semicolons so a single terminated statement is not
// mistaken for a multi-statement batch.
func normalize(query string) string {
	s := skipLeadingCommentsAndSpace(query)
	s = strings.TrimRight(s, " \t\r\n")
	for strings.HasSuffix(s, ";") {
		s = strings.TrimRight(strings.TrimSuffix(s, ";"), " \t\r\n")
	}
	return s
}

// skipLeadingCommentsAndSpace advances past whitespace, -- and # line
// comments, and /* */ block comments at the start of the query.
func skipLeadingCommentsAndSpace(s string) string {
	for {
		s = strings.TrimLeft(s, " \t\r\n")
		switch {
		case strings.HasPrefix(s, "--"), strings.HasPrefix(s, "#"):
			idx := strings.IndexByte(s, '\n')
			if idx < 0 {
				return ""
			}
			s = s[idx+1:]
		case strings.HasPrefix(s, "/*"):
			idx := strings.Index(s, "*/")
			if idx < 0 {
				return ""
			}
			s = s[idx+2:]
		default:
			return s
		}
	}
}

// leadingKeyword returns the first word of the query, upper-cased.
func leadingKeyword(s string) string {
	end := len(s)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '(' || c == ';' {
			end = i
			break
		}
	}
	return strings.ToUpper(s[:end])
}

// hasSecondStatement reports whether the query contains a semicolon outside
// string literals, quoted identifiers, and comments, followed by anything
// other than whitespace. Trailing semicolons were already stripped by
// normalize, so any remaining unquoted semicolon separates two statements.
func hasSecondStatement(s string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateBacktick
		stateLineComment
		stateBlockComment
	)
	state := stateNormal

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch state {
		case stateNormal:
			switch c {
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			case '`':
				state = stateBacktick
			case '-':
				if i+1 < len(s) && s[i+1] == '-' {
					state = stateLineComment
					i++
				}
			case '#':
				state = stateLineComment
			case '/':
				if i+1 < len(s) && s[i+1] == '*' {
					state = stateBlockComment
					i++
				}
			case ';':
				if strings.TrimSpace(s[i+1:]) != "" {
					return true
				}
			}
		case stateSingleQuote:
			if c == '\\' {
				i++
			} else if c == '\'' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if c == '\\' {
				i++
			} else if c == '"' {
				state = stateNormal
			}
		case stateBacktick:
			if c == '`' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
			}
		case stateBlockComment:
			if c == '*' && i+1 < len(s) && s[i+1] == '/' {
				state = stateNormal
				i++
			}
		}
	}
	return false
}

// Package sqlguard validates proposed read-only query text before execution.
//
// The validator is allow-list based: only a single SELECT statement built
// from known-safe token shapes is accepted. Comment sequences are rejected
// outright rather than trusted to be benign, and data-modifying keywords are
// rejected anywhere in the token stream, since a read-only leading keyword
// does not guarantee a read-only statement body. A false accept here is a
// direct injection vulnerability.
package sqlguard

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrUnsafeQuery indicates the query text was rejected. The rejected text is
// never executed, not even in a limited form.
var ErrUnsafeQuery = errors.New("unsafe query")

// Rejection categories. Messages stay at category granularity so a denial
// does not leak token-level detail to unauthorized callers.
const (
	reasonEmpty        = "query is empty"
	reasonMalformed    = "query is malformed"
	reasonMultiple     = "query must be a single statement"
	reasonComment      = "query comments are not allowed"
	reasonNotSelect    = "only SELECT statements are permitted"
	reasonForbiddenKWs = "query references a forbidden keyword"
)

// forbiddenKeywords lists data-modifying and control keywords rejected
// anywhere in the token stream.
var forbiddenKeywords = map[string]struct{}{
	"insert": {}, "update": {}, "delete": {}, "drop": {}, "alter": {},
	"truncate": {}, "grant": {}, "revoke": {}, "create": {}, "exec": {},
	"execute": {}, "call": {}, "merge": {}, "replace": {}, "into": {},
	"attach": {}, "detach": {}, "pragma": {}, "vacuum": {}, "reindex": {},
}

// Validate accepts or rejects query text. On acceptance it returns nil and
// the caller may execute the text verbatim; the validator never rewrites it.
// Row limits and timeouts are the execution layer's responsibility.
func Validate(queryText string) error {
	text := strings.TrimSpace(queryText)
	if text == "" {
		return reject(reasonEmpty)
	}

	tokens, err := scan(text)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return reject(reasonEmpty)
	}

	if !strings.EqualFold(tokens[0], "select") {
		return reject(reasonNotSelect)
	}
	for _, token := range tokens {
		if _, forbidden := forbiddenKeywords[strings.ToLower(token)]; forbidden {
			return reject(reasonForbiddenKWs)
		}
	}
	return nil
}

func reject(reason string) error {
	return fmt.Errorf("%w: %s", ErrUnsafeQuery, reason)
}

// scan walks the text and extracts word tokens outside string literals and
// quoted identifiers. It rejects comment introducers, unterminated literals,
// and a statement separator followed by further non-whitespace content.
func scan(text string) ([]string, error) {
	var tokens []string
	runes := []rune(text)

	for i := 0; i < len(runes); {
		r := runes[i]

		switch {
		case r == '\'' || r == '"' || r == '`':
			end, ok := skipQuoted(runes, i, r)
			if !ok {
				return nil, reject(reasonMalformed)
			}
			i = end

		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			return nil, reject(reasonComment)

		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			return nil, reject(reasonComment)

		case r == '#':
			return nil, reject(reasonComment)

		case r == ';':
			// A trailing separator is tolerated; anything after it is a
			// stacked statement.
			for j := i + 1; j < len(runes); j++ {
				if !unicode.IsSpace(runes[j]) {
					return nil, reject(reasonMultiple)
				}
			}
			i = len(runes)

		case isWordStart(r):
			start := i
			for i < len(runes) && isWordPart(runes[i]) {
				i++
			}
			tokens = append(tokens, string(runes[start:i]))

		default:
			i++
		}
	}

	return tokens, nil
}

// skipQuoted returns the index just past a quoted region starting at start.
// Doubled quote characters inside the region are treated as escapes.
func skipQuoted(runes []rune, start int, quote rune) (int, bool) {
	for i := start + 1; i < len(runes); i++ {
		if runes[i] != quote {
			continue
		}
		if i+1 < len(runes) && runes[i+1] == quote {
			i++
			continue
		}
		return i + 1, true
	}
	return 0, false
}

func isWordStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isWordPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

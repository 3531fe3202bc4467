package inventory

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// CodePrefix starts every base property code.
	CodePrefix = "PROP"
	// TagSuffix marks tag prefixes derived from the base code.
	TagSuffix = "TAG"

	separator = "-"
)

// SplitNumericSuffix splits s on its final "-" and parses the last token as a
// non-negative decimal. Only the final token is considered, so
// "TAG-001-EXTRA-002" yields ("TAG-001-EXTRA", 2). A value without any
// separator is parsed whole and returns an empty prefix.
func SplitNumericSuffix(s string) (prefix string, n int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", 0, &MalformedDataError{Value: s, Reason: "empty"}
	}
	last := s
	if i := strings.LastIndex(s, separator); i >= 0 {
		prefix, last = s[:i], s[i+1:]
	}
	n, err = parseDigits(last)
	if err != nil {
		return "", 0, &MalformedDataError{Value: s, Reason: err.Error()}
	}
	return prefix, n, nil
}

// ParseBaseNumber extracts the number right after "PROP-". "PROP-001" and
// "PROP-001-004" both give 1. Codes outside the PROP scheme return ok=false
// with a nil error; PROP codes with a bad number return a MalformedDataError.
func ParseBaseNumber(code string) (n int, ok bool, err error) {
	code = strings.TrimSpace(code)
	if !strings.HasPrefix(code, CodePrefix+separator) {
		return 0, false, nil
	}
	parts := strings.Split(code, separator)
	n, err = parseDigits(parts[1])
	if err != nil {
		return 0, false, &MalformedDataError{Value: code, Reason: err.Error()}
	}
	return n, true, nil
}

// BaseCode returns the first two segments of a property code
// ("PROP-001-003" -> "PROP-001"). Shorter codes are returned unchanged.
func BaseCode(code string) string {
	parts := strings.Split(strings.TrimSpace(code), separator)
	if len(parts) < 2 {
		return strings.TrimSpace(code)
	}
	return parts[0] + separator + parts[1]
}

// StripNumericSuffix drops a trailing numeric token from a multi-token serial
// ("LAPTOP-007" -> "LAPTOP"). Anything else is returned trimmed; a
// non-numeric last token stays part of the prefix ("SN-AB" -> "SN-AB").
func StripNumericSuffix(serial string) string {
	serial = strings.TrimSpace(serial)
	prefix, _, err := SplitNumericSuffix(serial)
	if err != nil || prefix == "" {
		return serial
	}
	return prefix
}

// FormatSuffix zero-pads to three digits; larger values grow wider.
func FormatSuffix(n int) string {
	return fmt.Sprintf("%03d", n)
}

// FormatBaseCode renders n as "PROP-%03d".
func FormatBaseCode(n int) string {
	return CodePrefix + separator + FormatSuffix(n)
}

// JoinSuffix appends "-%03d" to prefix.
func JoinSuffix(prefix string, n int) string {
	return prefix + separator + FormatSuffix(n)
}

// DefaultTagPrefix is used when no serial number is supplied.
func DefaultTagPrefix(baseCode string) string {
	return baseCode + separator + TagSuffix
}

func parseDigits(tok string) (int, error) {
	if tok == "" {
		return 0, fmt.Errorf("empty numeric token")
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-numeric token %q", tok)
		}
	}
	return strconv.Atoi(tok)
}

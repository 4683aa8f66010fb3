package utils

import (
	"strconv"
	"strings"
)

// Ptr returns a pointer to the provided value v.
func Ptr[T any](v T) *T {
	return &v
}

// IsNumericValue checks if a string represents a valid numeric literal,
// including a leading sign and scientific notation.
//
// Examples:
//   - "123" -> true
//   - "-123.45" -> true
//   - "1.23e-4" -> true
//   - "'123'" -> false (a string literal)
//   - "" -> false
func IsNumericValue(value string) bool {
	if value == "" {
		return false
	}

	_, err := strconv.ParseFloat(value, 64)
	return err == nil
}

// IsBooleanValue checks if a string is a boolean literal, case-insensitively.
//
// Examples:
//   - "true" -> true
//   - "FALSE" -> true
//   - "1" -> false (use IsNumericValue for numeric booleans)
func IsBooleanValue(value string) bool {
	lowered := strings.ToLower(value)
	return lowered == "true" || lowered == "false"
}

// IsNullValue checks if a string is the NULL literal, case-insensitively.
func IsNullValue(value string) bool {
	return strings.EqualFold(value, "null")
}

// NormalizeLiteral canonicalizes the spelling of a SQL literal so that
// equivalent values compare equal across parses: keywords (booleans, NULL)
// are lower-cased, numbers lose redundant leading plus signs and surrounding
// whitespace is trimmed. String literals and expressions are returned as is.
//
// Examples:
//   - " TRUE " -> "true"
//   - "NULL" -> "null"
//   - "+5" -> "5"
//   - "'Hello'" -> "'Hello'"
func NormalizeLiteral(value string) string {
	v := strings.TrimSpace(value)

	switch {
	case IsBooleanValue(v), IsNullValue(v):
		return strings.ToLower(v)
	case IsNumericValue(v):
		return strings.TrimPrefix(v, "+")
	}

	return v
}

// QuoteLiteral renders s as a standard SQL string literal, doubling embedded
// single quotes.
//
// Example:
//
//	utils.QuoteLiteral("it's") // 'it''s'
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

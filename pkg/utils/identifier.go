package utils

import "strings"

// QuoteIdentifier wraps an identifier in the given quote character, handling
// dotted (schema qualified) names by quoting each part. Quote characters
// embedded in a part are doubled. Parts that are already quoted are kept.
//
// Examples (quote = '"'):
//   - "users" -> "\"users\""
//   - "public.users" -> "\"public\".\"users\""
//   - "\"Users\"" -> "\"Users\"" (not double-quoted)
//   - "" -> ""
func QuoteIdentifier(name string, quote rune) string {
	if name == "" {
		return ""
	}

	if IsQuoted(name, quote) {
		return name
	}

	q := string(quote)
	parts := strings.Split(name, ".")
	for i, part := range parts {
		if IsQuoted(part, quote) {
			continue
		}
		parts[i] = q + strings.ReplaceAll(part, q, q+q) + q
	}
	return strings.Join(parts, ".")
}

// QuoteIdentifiers quotes every name and joins them with ", ".
//
// Example:
//
//	utils.QuoteIdentifiers([]string{"a", "b"}, '"') // "a", "b"
func QuoteIdentifiers(names []string, quote rune) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = QuoteIdentifier(n, quote)
	}
	return strings.Join(quoted, ", ")
}

// IsQuoted checks if s is a single identifier wrapped in the quote character.
//
// Examples (quote = '`'):
//   - "`table`" -> true
//   - "table" -> false
//   - "`db`.`table`" -> false (qualified name, not a single identifier)
func IsQuoted(s string, quote rune) bool {
	q := string(quote)
	return len(s) >= 2 &&
		strings.HasPrefix(s, q) &&
		strings.HasSuffix(s, q) &&
		!strings.Contains(strings.ReplaceAll(s[1:len(s)-1], q+q, ""), q)
}

// StripQuotes removes identifier quoting of any supported dialect: double
// quotes, backticks and square brackets. Doubled quote characters inside the
// identifier are collapsed.
//
// Examples:
//   - "`table`" -> "table"
//   - "\"My \"\"Table\"\"\"" -> "My \"Table\""
//   - "[users]" -> "users"
//   - "users" -> "users"
func StripQuotes(s string) string {
	if len(s) < 2 {
		return s
	}

	switch first, last := s[0], s[len(s)-1]; {
	case first == '"' && last == '"':
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	case first == '`' && last == '`':
		return strings.ReplaceAll(s[1:len(s)-1], "``", "`")
	case first == '[' && last == ']':
		return s[1 : len(s)-1]
	}
	return s
}

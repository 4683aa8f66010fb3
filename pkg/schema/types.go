package schema

import (
	"strings"
	"unicode"
)

// typeAliases maps lower-cased SQL type names to their canonical spelling.
var typeAliases = map[string]string{
	"int":                         "integer",
	"int4":                        "integer",
	"integer":                     "integer",
	"int2":                        "smallint",
	"smallint":                    "smallint",
	"int8":                        "bigint",
	"bigint":                      "bigint",
	"bool":                        "boolean",
	"boolean":                     "boolean",
	"float4":                      "real",
	"real":                        "real",
	"float8":                      "double precision",
	"double":                      "double precision",
	"double precision":            "double precision",
	"float":                       "double precision",
	"varchar":                     "varchar",
	"character varying":           "varchar",
	"char":                        "char",
	"character":                   "char",
	"decimal":                     "numeric",
	"numeric":                     "numeric",
	"text":                        "text",
	"date":                        "date",
	"time":                        "time",
	"timestamp":                   "timestamp",
	"timestamp without time zone": "timestamp",
	"timestamptz":                 "timestamptz",
	"timestamp with time zone":    "timestamptz",
	"uuid":                        "uuid",
	"json":                        "json",
	"jsonb":                       "jsonb",
	"bytea":                       "bytea",
	"blob":                        "blob",
	"serial":                      "serial",
	"bigserial":                   "bigserial",
}

// CanonicalType returns the canonical spelling of a SQL type. Well-known
// SQL types written in a single case (int, INT8, character varying(20)) are
// mapped to one spelling. Mixed-case names such as ClickHouse's UInt64 or
// DateTime are case sensitive and returned unchanged, as are unknown types.
//
// Examples:
//   - "INT4" -> "integer"
//   - "character varying(20)" -> "varchar(20)"
//   - "timestamp(3) with time zone" -> "timestamptz(3)"
//   - "numeric(10,2)" -> "numeric(10, 2)"
//   - "UInt64" -> "UInt64"
func CanonicalType(t string) string {
	t = strings.Join(strings.Fields(t), " ")
	if isMixedCase(t) {
		return t
	}

	lower := strings.ToLower(t)

	array := strings.HasSuffix(lower, "[]")
	lower = strings.TrimSuffix(lower, "[]")

	base, args, suffix := lower, "", ""
	if open := strings.IndexByte(lower, '('); open >= 0 {
		end := strings.IndexByte(lower[open:], ')')
		if end < 0 {
			return t
		}

		base = strings.TrimSpace(lower[:open])
		args = lower[open+1 : open+end]
		suffix = strings.TrimSpace(lower[open+end+1:])
	}

	canonical, ok := typeAliases[strings.TrimSpace(base+" "+suffix)]
	if !ok {
		return t
	}

	if args != "" {
		parts := strings.Split(args, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		canonical += "(" + strings.Join(parts, ", ") + ")"
	}

	if array {
		canonical += "[]"
	}

	return canonical
}

// TypeBase returns the type name without arguments or array suffix.
//
// Examples:
//   - "varchar(20)" -> "varchar"
//   - "Nullable(String)" -> "Nullable"
func TypeBase(t string) string {
	if open := strings.IndexByte(t, '('); open >= 0 {
		return strings.TrimSpace(t[:open])
	}
	return strings.TrimSuffix(t, "[]")
}

// TypeArgs returns the top-level arguments of a parametric type.
//
// Examples:
//   - "numeric(10, 2)" -> ["10", "2"]
//   - "Nullable(Decimal(10, 2))" -> ["Decimal(10, 2)"]
//   - "text" -> nil
func TypeArgs(t string) []string {
	open := strings.IndexByte(t, '(')
	closing := strings.LastIndexByte(t, ')')
	if open < 0 || closing < open {
		return nil
	}

	var (
		args  []string
		depth int
		start = open + 1
	)

	for i := open + 1; i < closing; i++ {
		switch t[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(t[start:i]))
				start = i + 1
			}
		}
	}

	return append(args, strings.TrimSpace(t[start:closing]))
}

func isMixedCase(s string) bool {
	var upper, lower bool
	for _, r := range s {
		upper = upper || unicode.IsUpper(r)
		lower = lower || unicode.IsLower(r)
	}
	return upper && lower
}

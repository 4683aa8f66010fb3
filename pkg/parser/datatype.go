package parser

import "strings"

type (
	// DataType represents a column type. It covers plain types (text), types
	// with trailing words (double precision, timestamp with time zone),
	// parametric types (varchar(255), numeric(10, 2)), nested parametric
	// types used by ClickHouse (Nullable(String), Array(UInt64)) and Postgres
	// array suffixes (text[]).
	DataType struct {
		Name   string      `parser:"@(Ident | QuotedIdent | BacktickIdent)"`
		Words  []string    `parser:"@('PRECISION' | 'VARYING' | 'UNSIGNED')*"`
		Args   []*TypeArg  `parser:"('(' @@ (',' @@)* ')')?"`
		Suffix []string    `parser:"@('WITH' | 'WITHOUT' | 'TIME' | 'ZONE' | 'LOCAL')*"`
		Array  bool        `parser:"@('[' ']')?"`
	}

	// TypeArg is a single argument of a parametric type.
	TypeArg struct {
		Value *string   `parser:"( @('-'? Number | String)"`
		Enum  *string   `parser:"('=' @('-'? Number))? )"`
		Type  *DataType `parser:"| @@"`
	}
)

// String renders the type as SQL text.
//
// Examples:
//   - varchar(255)
//   - double precision
//   - timestamp(3) with time zone
//   - Nullable(String)
//   - Enum8('a' = 1, 'b' = 2)
func (d *DataType) String() string {
	if d == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(d.Name)
	for _, w := range d.Words {
		sb.WriteString(" " + w)
	}

	if len(d.Args) > 0 {
		args := make([]string, len(d.Args))
		for i, a := range d.Args {
			args[i] = a.String()
		}
		sb.WriteString("(" + strings.Join(args, ", ") + ")")
	}

	for _, w := range d.Suffix {
		sb.WriteString(" " + w)
	}

	if d.Array {
		sb.WriteString("[]")
	}

	return sb.String()
}

// String renders a type argument.
func (a *TypeArg) String() string {
	switch {
	case a.Type != nil:
		return a.Type.String()
	case a.Value != nil && a.Enum != nil:
		return *a.Value + " = " + *a.Enum
	case a.Value != nil:
		return *a.Value
	}
	return ""
}

package parser

import (
	"io"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/utils"
)

var (
	// ddlLexer defines the lexer shared by the grammar and SplitStatements.
	ddlLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `--[^\r\n]*`},
		{Name: "MultilineComment", Pattern: `/\*[^*]*\*+([^/*][^*]*\*+)*/`},
		{Name: "String", Pattern: `'([^'\\]|\\.|'')*'`},
		{Name: "DollarString", Pattern: `\$\$(?s:.*?)\$\$`},
		{Name: "QuotedIdent", Pattern: `"([^"]|"")*"`},
		{Name: "BacktickIdent", Pattern: "`([^`]|``)*`"},
		{Name: "Number", Pattern: `\d+(\.\d*)?([eE][-+]?\d+)?`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_$]*`},
		{Name: "Cast", Pattern: `::`},
		{Name: "Operator", Pattern: `!=|<>|<=|>=|\|\|`},
		{Name: "Punct", Pattern: `[(),.;=+\-*/%<>\[\]!:{}?@#&|^~]`},
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "Other", Pattern: `\S`},
	})

	// parser is the participle parser instance for the DDL grammar
	parser = participle.MustBuild[SQL](
		participle.Lexer(ddlLexer),
		participle.Elide("Comment", "MultilineComment", "Whitespace"),
		participle.CaseInsensitive("Ident"),
		participle.Map(unquote, "QuotedIdent", "BacktickIdent"),
		participle.UseLookahead(4),
	)
)

type (
	// SQL defines the complete parsed DDL document
	SQL struct {
		Statements []*Statement `parser:"';'* (@@ ';'*)*"`
	}

	// Statement represents any supported statement
	Statement struct {
		CreateTable *CreateTableStmt `parser:"@@"`
		CreateIndex *CreateIndexStmt `parser:"| @@"`
		Insert      *InsertStmt      `parser:"| @@"`
	}

	// TableName is an optionally schema qualified table name.
	TableName struct {
		Schema *string `parser:"(@(Ident | QuotedIdent | BacktickIdent) '.')?"`
		Name   string  `parser:"@(Ident | QuotedIdent | BacktickIdent)"`
	}
)

// String returns the dotted name.
func (t *TableName) String() string {
	if t == nil {
		return ""
	}

	if t.Schema != nil && *t.Schema != "" {
		return *t.Schema + "." + t.Name
	}
	return t.Name
}

// Parse parses DDL statements from an io.Reader and returns the parsed SQL structure.
//
// Example usage:
//
//	file, err := os.Open("schema.sql")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer file.Close()
//
//	sql, err := parser.Parse(file)
//	if err != nil {
//		log.Fatalf("Parse error: %v", err)
//	}
//
// Returns an error if the reader cannot be read or contains invalid SQL.
func Parse(reader io.Reader) (*SQL, error) {
	sqlResult, err := parser.Parse("", reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse SQL")
	}

	return sqlResult, nil
}

// ParseString parses DDL statements from a string.
func ParseString(sql string) (*SQL, error) {
	return Parse(strings.NewReader(sql))
}

// SplitStatements cuts src into individual statements at top-level
// semicolons. Semicolons inside string literals, quoted identifiers, dollar
// quoted bodies and comments do not split. Segments holding only comments or
// whitespace are dropped, and the returned statements carry no trailing
// semicolon.
//
// Example:
//
//	stmts, err := parser.SplitStatements("INSERT INTO t VALUES ('a;b'); -- done;\nDELETE FROM t;")
//	// []string{"INSERT INTO t VALUES ('a;b')", "-- done;\nDELETE FROM t"}
func SplitStatements(src string) ([]string, error) {
	lex, err := ddlLexer.Lex("", strings.NewReader(src))
	if err != nil {
		return nil, errors.Wrap(err, "failed to lex SQL")
	}

	symbols := ddlLexer.Symbols()
	trivia := map[lexer.TokenType]bool{
		symbols["Comment"]:          true,
		symbols["MultilineComment"]: true,
		symbols["Whitespace"]:       true,
	}

	var (
		stmts       []string
		start       int
		significant bool
	)

	flush := func(end int) {
		if significant {
			stmts = append(stmts, strings.TrimSpace(src[start:end]))
		}
		significant = false
	}

	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, errors.Wrap(err, "failed to lex SQL")
		}

		if tok.EOF() {
			flush(len(src))
			return stmts, nil
		}

		switch {
		case tok.Type == symbols["Punct"] && tok.Value == ";":
			flush(tok.Pos.Offset)
			start = tok.Pos.Offset + 1
		case !trivia[tok.Type]:
			significant = true
		}
	}
}

func unquote(tok lexer.Token) (lexer.Token, error) {
	tok.Value = utils.StripQuotes(tok.Value)
	return tok, nil
}

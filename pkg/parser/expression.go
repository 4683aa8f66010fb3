package parser

import (
	"strings"
	"unicode"
)

type (
	// Expression captures a value expression such as a column default or a
	// seed value. The grammar does not model operators; it keeps the tokens
	// and nested parenthesized groups so the text can be rebuilt faithfully.
	// An expression ends at a top-level comma, a closing parenthesis, a
	// semicolon or a keyword that starts the next column constraint.
	Expression struct {
		Null   bool         `parser:"( @'NULL'"`
		Tokens []*ExprToken `parser:"| @@+ )"`
	}

	// ExprToken is a single token or a parenthesized group.
	ExprToken struct {
		Group *ExprGroup `parser:"@@"`
		Token *string    `parser:"| @(~('(' | ')' | ',' | ';' | 'NOT' | 'NULL' | 'PRIMARY' | 'UNIQUE' | 'REFERENCES' | 'CONSTRAINT' | 'COMMENT' | 'COLLATE' | 'DEFAULT'))"`
	}

	// ExprGroup is a parenthesized, comma separated list of expressions, as
	// found in function calls.
	ExprGroup struct {
		Items []*Expression `parser:"'(' (@@ (',' @@)*)? ')'"`
	}
)

// String rebuilds the expression as SQL text.
//
// Examples:
//   - now()
//   - 'active'
//   - -1
//   - CURRENT_TIMESTAMP
//   - 'now'::timestamp
func (e *Expression) String() string {
	if e == nil {
		return ""
	}

	if e.Null {
		return "NULL"
	}

	var sb strings.Builder
	for i, tok := range e.Tokens {
		switch {
		case tok.Group != nil:
			if i > 0 && needsSpace(e.previous(i), "(", i == 1) {
				sb.WriteString(" ")
			}
			sb.WriteString(tok.Group.String())
		case tok.Token != nil:
			if i > 0 && needsSpace(e.previous(i), *tok.Token, i == 1) {
				sb.WriteString(" ")
			}
			sb.WriteString(*tok.Token)
		}
	}

	return sb.String()
}

func (e *Expression) previous(i int) string {
	prev := e.Tokens[i-1]
	if prev.Token != nil {
		return *prev.Token
	}
	return ")"
}

// String renders the group with its parentheses.
func (g *ExprGroup) String() string {
	items := make([]string, len(g.Items))
	for i, item := range g.Items {
		items[i] = item.String()
	}
	return "(" + strings.Join(items, ", ") + ")"
}

// joinTokens rebuilds SQL text from captured tokens, omitting spaces where a
// human would: around '.' and '::', inside parentheses, before commas and
// between a name and its argument list.
func joinTokens(tokens []string) string {
	var sb strings.Builder
	for i, tok := range tokens {
		if i > 0 && needsSpace(tokens[i-1], tok, i == 1) {
			sb.WriteString(" ")
		}
		sb.WriteString(tok)
	}
	return sb.String()
}

func needsSpace(prev, cur string, prevIsFirst bool) bool {
	switch {
	case cur == ")" || cur == "," || cur == "." || cur == "::" || cur == "]":
		return false
	case prev == "(" || prev == "." || prev == "::" || prev == "[":
		return false
	case cur == "(" || cur == "[":
		return !endsWithWord(prev) || listKeywords[strings.ToUpper(prev)]
	case (prev == "-" || prev == "+") && prevIsFirst:
		return false
	}
	return true
}

// listKeywords are followed by a parenthesized list rather than called like a
// function.
var listKeywords = map[string]bool{
	"AND": true, "AS": true, "BY": true, "IN": true, "INDEX": true, "KEY": true,
	"NOT": true, "ON": true, "OR": true, "UNIQUE": true, "USING": true,
	"VALUES": true, "WITH": true,
}

func endsWithWord(s string) bool {
	if s == "" {
		return false
	}

	r := rune(s[len(s)-1])
	return r == '_' || r == ')' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

package lexer

import (
	"testing"

	"github.com/Wicayonima-Reborn/mylang/pkg/ast"
	"github.com/Wicayonima-Reborn/mylang/pkg/token"
)

func lex(t *testing.T, source string) []token.Token {
	t.Helper()

	m := &ast.Module{Path: "test.my", Source: source}
	if err := Lex(m); err != nil {
		t.Fatalf("unexpected lex error: %v", err)
	}
	return m.Tokens
}

func lexExpectingError(t *testing.T, source string) string {
	t.Helper()

	m := &ast.Module{Path: "test.my", Source: source}
	err := Lex(m)
	if err == nil {
		t.Fatalf("expected lex error for %q, got none", source)
	}
	return err.Error()
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	tokens := lex(t, "let for in int string print println foo _bar baz42")

	expected := []struct {
		typ    token.TokenType
		lexeme string
	}{
		{token.LET, "let"},
		{token.FOR, "for"},
		{token.IN, "in"},
		{token.INT_TYPE, "int"},
		{token.STRING_TYPE, "string"},
		{token.PRINT, "print"},
		{token.PRINTLN, "println"},
		{token.IDENTIFIER, "foo"},
		{token.IDENTIFIER, "_bar"},
		{token.IDENTIFIER, "baz42"},
		{token.EOF, "\x00"},
	}

	if len(tokens) != len(expected) {
		t.Fatalf("token count: got %d, want %d", len(tokens), len(expected))
	}
	for i, exp := range expected {
		if tokens[i].Type != exp.typ || tokens[i].Lexeme != exp.lexeme {
			t.Errorf("token[%d]: got (%s, %q), want (%s, %q)",
				i, tokens[i].Type, tokens[i].Lexeme, exp.typ, exp.lexeme)
		}
	}
}

func TestSymbols(t *testing.T) {
	tokens := lex(t, "{ } ( ) [ ] , ; : = ..")

	expected := []token.TokenType{
		token.LEFT_BRACE, token.RIGHT_BRACE,
		token.LEFT_PAREN, token.RIGHT_PAREN,
		token.LEFT_BRACKET, token.RIGHT_BRACKET,
		token.COMMA, token.SEMICOLON, token.COLON, token.EQUAL,
		token.DOT_DOT,
		token.EOF,
	}

	if len(tokens) != len(expected) {
		t.Fatalf("token count: got %d, want %d", len(tokens), len(expected))
	}
	for i, typ := range expected {
		if tokens[i].Type != typ {
			t.Errorf("token[%d]: got %s, want %s", i, tokens[i].Type, typ)
		}
	}
}

func TestIntegerLiterals(t *testing.T) {
	tokens := lex(t, "0 42 1000000")

	values := []int64{0, 42, 1000000}
	for i, want := range values {
		if tokens[i].Type != token.INT {
			t.Fatalf("token[%d]: got %s, want integer literal", i, tokens[i].Type)
		}
		if tokens[i].IntValue != want {
			t.Errorf("token[%d]: value %d, want %d", i, tokens[i].IntValue, want)
		}
	}
}

func TestStringLiteralEscapes(t *testing.T) {
	cases := []struct {
		source string
		want   string
	}{
		{`"hello"`, "hello"},
		{`"a\nb"`, "a\nb"},
		{`"a\tb"`, "a\tb"},
		{`"a\qb"`, "aqb"}, // unrecognized escapes pass through
		{`"say \"hi\""`, `say "hi"`},
	}

	for _, c := range cases {
		tokens := lex(t, c.source)
		if tokens[0].Type != token.STRING {
			t.Fatalf("%q: got %s, want string literal", c.source, tokens[0].Type)
		}
		if tokens[0].Lexeme != c.want {
			t.Errorf("%q: got %q, want %q", c.source, tokens[0].Lexeme, c.want)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	msg := lexExpectingError(t, `let s = "oops`)
	if want := "test.my:1:9: lexical error: unterminated string literal"; msg != want {
		t.Errorf("got %q, want %q", msg, want)
	}
}

func TestReferenceOperators(t *testing.T) {
	cases := []struct {
		source string
		types  []token.TokenType
	}{
		{"&x", []token.TokenType{token.AND, token.IDENTIFIER, token.EOF}},
		{"&mut x", []token.TokenType{token.AND_MUT, token.IDENTIFIER, token.EOF}},
		// `&m` not followed by the full `mut` sequence backtracks to a
		// bare `&` without eating the identifier.
		{"&m", []token.TokenType{token.AND, token.IDENTIFIER, token.EOF}},
		{"&mu", []token.TokenType{token.AND, token.IDENTIFIER, token.EOF}},
		{"&mango", []token.TokenType{token.AND, token.IDENTIFIER, token.EOF}},
	}

	for _, c := range cases {
		tokens := lex(t, c.source)
		if len(tokens) != len(c.types) {
			t.Fatalf("%q: token count %d, want %d", c.source, len(tokens), len(c.types))
		}
		for i, typ := range c.types {
			if tokens[i].Type != typ {
				t.Errorf("%q token[%d]: got %s, want %s", c.source, i, tokens[i].Type, typ)
			}
		}
	}
}

func TestBacktrackKeepsLexemeIntact(t *testing.T) {
	tokens := lex(t, "&mu")
	if tokens[1].Lexeme != "mu" {
		t.Errorf("identifier after backtrack: got %q, want %q", tokens[1].Lexeme, "mu")
	}
}

func TestPositions(t *testing.T) {
	tokens := lex(t, "let x;\nlet y;")

	expected := []token.Pos{
		{Line: 1, Column: 1},
		{Line: 1, Column: 5},
		{Line: 1, Column: 6},
		{Line: 2, Column: 1},
		{Line: 2, Column: 5},
		{Line: 2, Column: 6},
	}

	for i, pos := range expected {
		if tokens[i].Pos != pos {
			t.Errorf("token[%d] %q: pos %+v, want %+v", i, tokens[i].Lexeme, tokens[i].Pos, pos)
		}
	}
}

func TestUnknownCharacter(t *testing.T) {
	msg := lexExpectingError(t, "let x = 1 @ 2;")
	if want := "test.my:1:11: lexical error: unexpected character: @"; msg != want {
		t.Errorf("got %q, want %q", msg, want)
	}
}

func TestSingleDotIsAnError(t *testing.T) {
	msg := lexExpectingError(t, "1 . 2")
	if want := "test.my:1:3: lexical error: unexpected character: ."; msg != want {
		t.Errorf("got %q, want %q", msg, want)
	}
}

package lexer

import (
	"strings"

	"github.com/Wicayonima-Reborn/mylang/pkg/ast"
	"github.com/Wicayonima-Reborn/mylang/pkg/diagnostic"
	"github.com/Wicayonima-Reborn/mylang/pkg/token"
)

type Lexer struct {
	start     int
	current   int
	line      int
	lineBegin int
	tokens    []token.Token

	Module *ast.Module
}

func (l *Lexer) lexError(message string) *diagnostic.Error {
	return diagnostic.Errorf(diagnostic.Lexical, l.Module.Path, l.startPos(), "%s", message)
}

// startPos is the position of the lexeme currently being scanned.
func (l *Lexer) startPos() token.Pos {
	return token.Pos{Line: l.line, Column: l.start - l.lineBegin + 1}
}

func (l *Lexer) isAtEnd() bool {
	return l.current >= len(l.Module.Source)
}

func (l *Lexer) advance() byte {
	l.current++
	return l.Module.Source[l.current-1]
}

func (l *Lexer) match(c byte) bool {
	if l.isAtEnd() {
		return false
	} else if l.Module.Source[l.current] == c {
		l.current++
		return true
	}
	return false
}

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.Module.Source[l.current]
}

func (l *Lexer) addToken(typ token.TokenType, lexeme string) {
	if lexeme == "" {
		lexeme = l.Module.Source[l.start:l.current]
	}

	l.tokens = append(l.tokens, token.Token{
		Lexeme: lexeme,
		Type:   typ,
		Pos:    l.startPos(),
	})
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isIdentStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}

func isIdentChar(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}

func (l *Lexer) lexString() *diagnostic.Error {
	// Capture before scanning: the literal may span lines, and both the
	// token and an unterminated-string error report the opening quote.
	pos := l.startPos()

	var value strings.Builder

	for !l.isAtEnd() && l.peek() != '"' {
		c := l.advance()
		if c == '\n' {
			l.line++
			l.lineBegin = l.current
		}

		if c == '\\' && !l.isAtEnd() {
			esc := l.advance()
			switch esc {
			case 'n':
				value.WriteByte('\n')
			case 't':
				value.WriteByte('\t')
			default:
				// unrecognized escapes pass through
				value.WriteByte(esc)
			}
		} else {
			value.WriteByte(c)
		}
	}

	if l.isAtEnd() {
		return diagnostic.Errorf(diagnostic.Lexical, l.Module.Path, pos, "unterminated string literal")
	}

	l.advance() // closing quote
	l.tokens = append(l.tokens, token.Token{
		Lexeme: value.String(),
		Type:   token.STRING,
		Pos:    pos,
	})
	return nil
}

func (l *Lexer) lexNumber() {
	for isDigit(l.peek()) {
		l.advance()
	}

	// Deterministic wraparound on overflow, same accumulation the
	// runtime-facing reference used.
	var value int64
	for i := l.start; i < l.current; i++ {
		value = value*10 + int64(l.Module.Source[i]-'0')
	}

	l.addToken(token.INT, "")
	l.tokens[len(l.tokens)-1].IntValue = value
}

func (l *Lexer) lexIdent() {
	for isIdentChar(l.peek()) {
		l.advance()
	}

	text := l.Module.Source[l.start:l.current]

	for i, kw := range token.Keywords {
		if kw == text {
			l.addToken(token.TokenType(int(token.KEYWORD_BEGIN)+i+1), text)
			return
		}
	}

	l.addToken(token.IDENTIFIER, text)
}

func (l *Lexer) scanToken() *diagnostic.Error {
	c := l.advance()

	switch c {
	case '(':
		l.addToken(token.LEFT_PAREN, "")
	case ')':
		l.addToken(token.RIGHT_PAREN, "")
	case '{':
		l.addToken(token.LEFT_BRACE, "")
	case '}':
		l.addToken(token.RIGHT_BRACE, "")
	case '[':
		l.addToken(token.LEFT_BRACKET, "")
	case ']':
		l.addToken(token.RIGHT_BRACKET, "")
	case ',':
		l.addToken(token.COMMA, "")
	case ';':
		l.addToken(token.SEMICOLON, "")
	case ':':
		l.addToken(token.COLON, "")
	case '=':
		l.addToken(token.EQUAL, "")
	case '.':
		if l.match('.') {
			l.addToken(token.DOT_DOT, "")
		} else {
			return l.lexError("unexpected character: .")
		}
	case '&':
		// `&mut` is a single token; restore the scan position if the
		// exact `mut` sequence is not present.
		saved := l.current
		if l.match('m') && l.match('u') && l.match('t') {
			l.addToken(token.AND_MUT, "&mut")
		} else {
			l.current = saved
			l.addToken(token.AND, "&")
		}
	case ' ', '\r', '\t':
		// ignore whitespace
	case '\n':
		l.line++
		l.lineBegin = l.current
	case '"':
		return l.lexString()
	default:
		if isDigit(c) {
			l.lexNumber()
		} else if isIdentStart(c) {
			l.lexIdent()
		} else {
			return l.lexError("unexpected character: " + string(c))
		}
	}

	return nil
}

// Lex scans the module's source into its token stream. The stream always
// ends in an EOF token. The first lexical violation aborts the scan.
func Lex(m *ast.Module) *diagnostic.Error {
	l := Lexer{Module: m, line: 1}

	for !l.isAtEnd() {
		// we are at the beginning of the next lexeme.
		l.start = l.current
		if err := l.scanToken(); err != nil {
			return err
		}
	}

	l.start = l.current
	l.addToken(token.EOF, "\x00")
	m.Tokens = l.tokens
	return nil
}

package token

type TokenType int

const (
	STRING TokenType = iota
	INT
	IDENTIFIER
	EOF

	KEYWORD_BEGIN
	LET
	FOR
	IN
	INT_TYPE
	STRING_TYPE
	PRINT
	PRINTLN
	KEYWORD_END

	LEFT_PAREN
	RIGHT_PAREN
	LEFT_BRACE
	RIGHT_BRACE
	LEFT_BRACKET
	RIGHT_BRACKET
	COMMA
	SEMICOLON
	COLON
	EQUAL

	AND
	AND_MUT

	DOT_DOT
)

func (t TokenType) IsKeyword() bool {
	return t > KEYWORD_BEGIN && t < KEYWORD_END
}

// IsCallable reports whether a token may appear in callee position.
// The print builtins are keywords but behave like ordinary identifiers
// when called.
func (t TokenType) IsCallable() bool {
	return t == IDENTIFIER || t == PRINT || t == PRINTLN
}

func (t TokenType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

var typeNames = map[TokenType]string{
	STRING:        "string literal",
	INT:           "integer literal",
	IDENTIFIER:    "identifier",
	EOF:           "end of file",
	LET:           "`let`",
	FOR:           "`for`",
	IN:            "`in`",
	INT_TYPE:      "`int`",
	STRING_TYPE:   "`string`",
	PRINT:         "`print`",
	PRINTLN:       "`println`",
	LEFT_PAREN:    "`(`",
	RIGHT_PAREN:   "`)`",
	LEFT_BRACE:    "`{`",
	RIGHT_BRACE:   "`}`",
	LEFT_BRACKET:  "`[`",
	RIGHT_BRACKET: "`]`",
	COMMA:         "`,`",
	SEMICOLON:     "`;`",
	COLON:         "`:`",
	EQUAL:         "`=`",
	AND:           "`&`",
	AND_MUT:       "`&mut`",
	DOT_DOT:       "`..`",
}

type Token struct {
	Lexeme string
	Type   TokenType

	// IntValue is the parsed value for INT tokens, zero otherwise.
	IntValue int64

	Pos Pos
}

type Pos struct {
	Line   int
	Column int
}

// Keywords is ordered to match the token constants between
// KEYWORD_BEGIN and KEYWORD_END.
var Keywords = [...]string{
	"let",
	"for",
	"in",
	"int",
	"string",
	"print",
	"println",
}

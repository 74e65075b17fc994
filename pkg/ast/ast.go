package ast

import (
	"fmt"
	"strings"

	"github.com/Wicayonima-Reborn/mylang/pkg/token"
)

// Type is the resolved type of an expression or declaration. The analyzer
// fills every expression's Typ field in place; a nil Type is the
// pre-inference placeholder for declarations without an annotation.
type Type interface {
	isType()
	Equals(Type) bool
	String() string
}

// Primitive is one of the two scalar types, "int" or "string".
type Primitive struct {
	Name string
}

// Reference is a borrow of an inner type: `&T` when Mutable is false,
// `&mut T` when true.
type Reference struct {
	Mutable bool
	Inner   Type
}

// Rc is a reference-counted box. The type exists in the model but no
// surface syntax produces it yet.
type Rc struct {
	Inner Type
}

// RangeType is the type of `low..high` expressions. Endpoints are always
// ints so the element type is implicit.
type RangeType struct{}

// ArrayType is the type of array literals. Length is not part of type
// identity; it is carried for code generation.
type ArrayType struct {
	ElType Type
	Length int
}

func (*Primitive) isType() {}
func (*Reference) isType() {}
func (*Rc) isType()        {}
func (*RangeType) isType() {}
func (*ArrayType) isType() {}

func (p *Primitive) Equals(t Type) bool {
	if primType, ok := t.(*Primitive); ok {
		return p.Name == primType.Name
	}
	return false
}

func (p *Primitive) String() string {
	return p.Name
}

func (r *Reference) Equals(t Type) bool {
	if refType, ok := t.(*Reference); ok {
		return r.Mutable == refType.Mutable && r.Inner.Equals(refType.Inner)
	}
	return false
}

func (r *Reference) String() string {
	if r.Mutable {
		return fmt.Sprintf("&mut %s", r.Inner.String())
	}
	return fmt.Sprintf("&%s", r.Inner.String())
}

func (r *Rc) Equals(t Type) bool {
	if rcType, ok := t.(*Rc); ok {
		return r.Inner.Equals(rcType.Inner)
	}
	return false
}

func (r *Rc) String() string {
	return fmt.Sprintf("rc<%s>", r.Inner.String())
}

func (*RangeType) Equals(t Type) bool {
	_, ok := t.(*RangeType)
	return ok
}

func (*RangeType) String() string {
	return "range"
}

func (a *ArrayType) Equals(t Type) bool {
	if arrType, ok := t.(*ArrayType); ok {
		return a.ElType.Equals(arrType.ElType)
	}
	return false
}

func (a *ArrayType) String() string {
	return fmt.Sprintf("[%s]", a.ElType.String())
}

/// Module is one compilation unit: the source text, its token stream, and
// the implicit main function the parser wraps the program into.
type Module struct {
	Path     string
	Source   string
	Tokens   []token.Token
	Function *Function
}

// Function is the single implicit routine of a program. The current
// language surface has no user-defined functions, so there is always
// exactly one, named "main", with no parameters.
type Function struct {
	Name       string
	ReturnType Type
	Body       *BlockStatement
}

// TokenSourceContext returns a caret-annotated snippet of the source
// around the given token, for CLI diagnostics.
func (m *Module) TokenSourceContext(t *token.Token) string {
	source := strings.ReplaceAll(m.Source, "\r\n", "\n")
	sourceLines := strings.Split(source, "\n")

	if t.Pos.Line < 1 || t.Pos.Line > len(sourceLines) {
		return ""
	}

	line := sourceLines[t.Pos.Line-1]
	col := t.Pos.Column
	if col < 1 {
		col = 1
	}
	if col > len(line)+1 {
		col = len(line) + 1
	}

	offsetHighlight := make([]byte, col)
	for i := 0; i < col-1; i++ {
		if i < len(line) && line[i] == '\t' {
			offsetHighlight[i] = '\t'
		} else {
			offsetHighlight[i] = ' '
		}
	}
	offsetHighlight[col-1] = '^'

	return fmt.Sprintf("%4d | %s\n     | %s", t.Pos.Line, line, string(offsetHighlight))
}

type Statement interface {
	isStatement()
}

type VariableDeclaration struct {
	Identifier token.Token
	Type       Type
	Value      Expression
}

type ExpressionStatement struct {
	Expression Expression
}

type IfStatement struct {
	Condition Expression
	IfBlock   *BlockStatement
	ElseBlock *BlockStatement

	IfToken token.Token
}

type WhileStatement struct {
	Condition Expression
	Block     *BlockStatement

	WhileToken token.Token
}

type ForStatement struct {
	Identifier token.Token
	Iterable   Expression
	Block      *BlockStatement

	ForToken token.Token
}

type BlockStatement struct {
	Statements []Statement

	LeftBraceToken token.Token
}

type ReturnStatement struct {
	Expression Expression

	ReturnToken token.Token
}

type BreakStatement struct {
	BreakToken token.Token
}

type ContinueStatement struct {
	ContinueToken token.Token
}

func (*VariableDeclaration) isStatement() {}
func (*ExpressionStatement) isStatement() {}
func (*IfStatement) isStatement()         {}
func (*WhileStatement) isStatement()      {}
func (*ForStatement) isStatement()        {}
func (*BlockStatement) isStatement()      {}
func (*ReturnStatement) isStatement()     {}
func (*BreakStatement) isStatement()      {}
func (*ContinueStatement) isStatement()   {}

type Expression interface {
	isExpression()
	Type() Type
	ErrorToken() token.Token
}

// Literal is an int or string constant. LiteralValue holds the unescaped
// string content for STRING tokens; IntValue of the token holds the
// numeric value for INT tokens.
type Literal struct {
	Token        token.Token
	LiteralValue string

	Typ Type
}

type VariableExpression struct {
	Identifier token.Token

	Typ Type
}

// BinaryExpression exists in the grammar's data model but no current
// construct produces it; it is kept so the node set matches the language
// definition.
type BinaryExpression struct {
	Left     Expression
	Operator token.Token
	Right    Expression

	Typ Type
}

type CallExpression struct {
	Callee    token.Token
	Arguments []Expression

	Typ Type
}

type ReferenceOf struct {
	Mutable bool
	Target  Expression

	AndToken token.Token
	Typ      Type
}

type RangeExpression struct {
	Low  Expression
	High Expression

	DotDotToken token.Token
	Typ         Type
}

type ArrayLiteral struct {
	Elements []Expression

	LeftBracketToken token.Token
	Typ              Type
}

type IndexExpression struct {
	Target Expression
	Index  Expression

	LeftBracketToken token.Token
	Typ              Type
}

func (*Literal) isExpression()            {}
func (*VariableExpression) isExpression() {}
func (*BinaryExpression) isExpression()   {}
func (*CallExpression) isExpression()     {}
func (*ReferenceOf) isExpression()        {}
func (*RangeExpression) isExpression()    {}
func (*ArrayLiteral) isExpression()       {}
func (*IndexExpression) isExpression()    {}

func (l *Literal) Type() Type {
	return l.Typ
}

func (l *Literal) ErrorToken() token.Token {
	return l.Token
}

func (v *VariableExpression) Type() Type {
	return v.Typ
}

func (v *VariableExpression) ErrorToken() token.Token {
	return v.Identifier
}

func (b *BinaryExpression) Type() Type {
	return b.Typ
}

func (b *BinaryExpression) ErrorToken() token.Token {
	return b.Operator
}

func (c *CallExpression) Type() Type {
	return c.Typ
}

func (c *CallExpression) ErrorToken() token.Token {
	return c.Callee
}

func (r *ReferenceOf) Type() Type {
	return r.Typ
}

func (r *ReferenceOf) ErrorToken() token.Token {
	return r.AndToken
}

func (r *RangeExpression) Type() Type {
	return r.Typ
}

func (r *RangeExpression) ErrorToken() token.Token {
	return r.DotDotToken
}

func (a *ArrayLiteral) Type() Type {
	return a.Typ
}

func (a *ArrayLiteral) ErrorToken() token.Token {
	return a.LeftBracketToken
}

func (i *IndexExpression) Type() Type {
	return i.Typ
}

func (i *IndexExpression) ErrorToken() token.Token {
	return i.LeftBracketToken
}

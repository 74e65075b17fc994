package parser

import (
	"github.com/Wicayonima-Reborn/mylang/pkg/ast"
	"github.com/Wicayonima-Reborn/mylang/pkg/diagnostic"
	"github.com/Wicayonima-Reborn/mylang/pkg/token"
)

// Parser consumes the module's token stream with one token of lookahead
// and builds the AST. All parse failures abort at the first error.
type Parser struct {
	current int

	Module *ast.Module
}

func (p *Parser) parseError(t token.Token, message string) *diagnostic.Error {
	return diagnostic.Errorf(diagnostic.Parse, p.Module.Path, t.Pos, "%s", message)
}

func (p *Parser) peek(distance int) token.Token {
	return p.Module.Tokens[p.current+distance]
}

func (p *Parser) expect(typ token.TokenType, message string) (token.Token, *diagnostic.Error) {
	if p.peek(0).Type != typ {
		return token.Token{}, p.parseError(p.peek(0), message)
	}

	p.current++
	return p.peek(-1), nil
}

func (p *Parser) parseStatement() (ast.Statement, *diagnostic.Error) {
	t := p.peek(0)

	if t.Type == token.LET {
		// VariableDeclaration
		p.current++
		name, err := p.expect(token.IDENTIFIER, "Expect identifier after `let`.")
		if err != nil {
			return nil, err
		}

		var typ ast.Type
		if p.peek(0).Type == token.COLON {
			p.current++
			switch p.peek(0).Type {
			case token.INT_TYPE:
				typ = &ast.Primitive{Name: "int"}
			case token.STRING_TYPE:
				typ = &ast.Primitive{Name: "string"}
			default:
				return nil, p.parseError(p.peek(0), "Unknown type in declaration.")
			}
			p.current++
		}

		var value ast.Expression
		if p.peek(0).Type == token.EQUAL {
			p.current++
			value, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
		}

		if _, err := p.expect(token.SEMICOLON, "Expect `;` after variable declaration."); err != nil {
			return nil, err
		}

		return &ast.VariableDeclaration{
			Identifier: name,
			Type:       typ,
			Value:      value,
		}, nil
	} else if t.Type == token.FOR {
		// ForStatement
		p.current++
		name, err := p.expect(token.IDENTIFIER, "Expect loop variable after `for`.")
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(token.IN, "Expect `in` after loop variable."); err != nil {
			return nil, err
		}

		iterable, err := p.parseExpression()
		if err != nil {
			return nil, err
		}

		block, err := p.parseBlock()
		if err != nil {
			return nil, err
		}

		return &ast.ForStatement{
			ForToken:   t,
			Identifier: name,
			Iterable:   iterable,
			Block:      block,
		}, nil
	} else if t.Type == token.LEFT_BRACE {
		// BlockStatement
		return p.parseBlock()
	}

	// ExpressionStatement
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.SEMICOLON, "Expect `;` after expression."); err != nil {
		return nil, err
	}

	return &ast.ExpressionStatement{Expression: expr}, nil
}

func (p *Parser) parseBlock() (*ast.BlockStatement, *diagnostic.Error) {
	leftBrace, err := p.expect(token.LEFT_BRACE, "Expect `{` to open block.")
	if err != nil {
		return nil, err
	}

	statements := []ast.Statement{}
	for p.peek(0).Type != token.RIGHT_BRACE {
		if p.peek(0).Type == token.EOF {
			return nil, p.parseError(p.peek(0), "Unexpected end of file inside block.")
		}

		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}

	p.current++ // skip the `}`

	return &ast.BlockStatement{
		LeftBraceToken: leftBrace,
		Statements:     statements,
	}, nil
}

// parseExpression handles the range operator, the grammar's single
// lowest-precedence binary-ish construct. Ranges do not chain.
func (p *Parser) parseExpression() (ast.Expression, *diagnostic.Error) {
	lhs, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	if p.peek(0).Type == token.DOT_DOT {
		dotdot := p.peek(0)
		p.current++

		rhs, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}

		return &ast.RangeExpression{
			DotDotToken: dotdot,
			Low:         lhs,
			High:        rhs,
		}, nil
	}

	return lhs, nil
}

func (p *Parser) parseArguments(closing token.TokenType, closingMessage string) ([]ast.Expression, *diagnostic.Error) {
	arguments := []ast.Expression{}

	if p.peek(0).Type != closing {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			arguments = append(arguments, arg)

			if p.peek(0).Type != token.COMMA {
				break
			}
			p.current++ // skip the comma
		}
	}

	if _, err := p.expect(closing, closingMessage); err != nil {
		return nil, err
	}

	return arguments, nil
}

func (p *Parser) parsePrimary() (ast.Expression, *diagnostic.Error) {
	t := p.peek(0)

	if t.Type == token.INT || t.Type == token.STRING {
		p.current++
		return &ast.Literal{
			Token:        t,
			LiteralValue: t.Lexeme,
		}, nil
	}

	if t.Type == token.AND || t.Type == token.AND_MUT {
		p.current++
		target, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}

		return &ast.ReferenceOf{
			AndToken: t,
			Mutable:  t.Type == token.AND_MUT,
			Target:   target,
		}, nil
	}

	if t.Type == token.LEFT_BRACKET {
		// ArrayLiteral
		p.current++
		elements, err := p.parseArguments(token.RIGHT_BRACKET, "Expect `]` after array literal.")
		if err != nil {
			return nil, err
		}

		return &ast.ArrayLiteral{
			LeftBracketToken: t,
			Elements:         elements,
		}, nil
	}

	if t.Type.IsCallable() {
		p.current++

		var base ast.Expression = &ast.VariableExpression{Identifier: t}

		if p.peek(0).Type == token.LEFT_PAREN {
			p.current++

			arguments, err := p.parseArguments(token.RIGHT_PAREN, "Expect `)` after arguments.")
			if err != nil {
				return nil, err
			}

			base = &ast.CallExpression{
				Callee:    t,
				Arguments: arguments,
			}
		}

		// Postfix indexing chains through calls: `f(x)[0][1]`.
		for p.peek(0).Type == token.LEFT_BRACKET {
			leftBracket := p.peek(0)
			p.current++

			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}

			if _, err := p.expect(token.RIGHT_BRACKET, "Expect `]` after index."); err != nil {
				return nil, err
			}

			base = &ast.IndexExpression{
				LeftBracketToken: leftBracket,
				Target:           base,
				Index:            index,
			}
		}

		return base, nil
	}

	return nil, p.parseError(t, "Unexpected token "+t.Type.String()+".")
}

// Parse builds the module's AST from its token stream, wrapping the
// top-level statement list into the implicit main function.
func Parse(m *ast.Module) *diagnostic.Error {
	p := Parser{Module: m}

	statements := []ast.Statement{}
	for p.peek(0).Type != token.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return err
		}
		statements = append(statements, stmt)
	}

	m.Function = &ast.Function{
		Name:       "main",
		ReturnType: &ast.Primitive{Name: "int"},
		Body:       &ast.BlockStatement{Statements: statements},
	}
	return nil
}

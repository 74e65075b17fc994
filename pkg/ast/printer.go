package ast

import (
	"fmt"
	"strings"

	"github.com/Wicayonima-Reborn/mylang/pkg/token"
)

// Print returns a tree-like string representation of a function body for
// debugging.
func Print(f *Function) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Function %s\n", f.Name))
	printStatement(&sb, f.Body, 1)
	return sb.String()
}

func printStatement(sb *strings.Builder, stmt Statement, indent int) {
	prefix := strings.Repeat("  ", indent)

	switch s := stmt.(type) {
	case *VariableDeclaration:
		sb.WriteString(fmt.Sprintf("%sDecl %s", prefix, s.Identifier.Lexeme))
		if s.Type != nil {
			sb.WriteString(fmt.Sprintf(": %s", s.Type.String()))
		}
		sb.WriteString("\n")
		if s.Value != nil {
			printExpression(sb, s.Value, indent+1)
		}

	case *ExpressionStatement:
		sb.WriteString(prefix + "Expr\n")
		printExpression(sb, s.Expression, indent+1)

	case *BlockStatement:
		sb.WriteString(fmt.Sprintf("%sBlock (%d stmts)\n", prefix, len(s.Statements)))
		for _, child := range s.Statements {
			printStatement(sb, child, indent+1)
		}

	case *IfStatement:
		sb.WriteString(prefix + "If\n")
		printExpression(sb, s.Condition, indent+1)
		printStatement(sb, s.IfBlock, indent+1)
		if s.ElseBlock != nil {
			printStatement(sb, s.ElseBlock, indent+1)
		}

	case *WhileStatement:
		sb.WriteString(prefix + "While\n")
		printExpression(sb, s.Condition, indent+1)
		printStatement(sb, s.Block, indent+1)

	case *ForStatement:
		sb.WriteString(fmt.Sprintf("%sFor %s\n", prefix, s.Identifier.Lexeme))
		printExpression(sb, s.Iterable, indent+1)
		printStatement(sb, s.Block, indent+1)

	case *ReturnStatement:
		sb.WriteString(prefix + "Return\n")
		if s.Expression != nil {
			printExpression(sb, s.Expression, indent+1)
		}

	case *BreakStatement:
		sb.WriteString(prefix + "Break\n")

	case *ContinueStatement:
		sb.WriteString(prefix + "Continue\n")
	}
}

func printExpression(sb *strings.Builder, expr Expression, indent int) {
	prefix := strings.Repeat("  ", indent)

	switch e := expr.(type) {
	case *Literal:
		if e.Token.Type == token.STRING {
			sb.WriteString(fmt.Sprintf("%sString %q\n", prefix, e.LiteralValue))
		} else {
			sb.WriteString(fmt.Sprintf("%sInt %d\n", prefix, e.Token.IntValue))
		}

	case *VariableExpression:
		sb.WriteString(fmt.Sprintf("%sIdent %s\n", prefix, e.Identifier.Lexeme))

	case *BinaryExpression:
		sb.WriteString(fmt.Sprintf("%sBinary %s\n", prefix, e.Operator.Lexeme))
		printExpression(sb, e.Left, indent+1)
		printExpression(sb, e.Right, indent+1)

	case *CallExpression:
		sb.WriteString(fmt.Sprintf("%sCall %s\n", prefix, e.Callee.Lexeme))
		for _, arg := range e.Arguments {
			printExpression(sb, arg, indent+1)
		}

	case *ReferenceOf:
		if e.Mutable {
			sb.WriteString(prefix + "&mut\n")
		} else {
			sb.WriteString(prefix + "&\n")
		}
		printExpression(sb, e.Target, indent+1)

	case *RangeExpression:
		sb.WriteString(prefix + "Range\n")
		printExpression(sb, e.Low, indent+1)
		printExpression(sb, e.High, indent+1)

	case *ArrayLiteral:
		sb.WriteString(fmt.Sprintf("%sArray (%d items)\n", prefix, len(e.Elements)))
		for _, el := range e.Elements {
			printExpression(sb, el, indent+1)
		}

	case *IndexExpression:
		sb.WriteString(prefix + "Index\n")
		printExpression(sb, e.Target, indent+1)
		printExpression(sb, e.Index, indent+1)
	}
}

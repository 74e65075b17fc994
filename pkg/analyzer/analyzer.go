package analyzer

import (
	"github.com/Wicayonima-Reborn/mylang/pkg/ast"
	"github.com/Wicayonima-Reborn/mylang/pkg/diagnostic"
	"github.com/Wicayonima-Reborn/mylang/pkg/token"
)

// Symbol is one declared variable: its resolved type and the line it was
// declared on.
type Symbol struct {
	Type         ast.Type
	DeclaredLine int
}

// SymbolTable is a scope-chain frame. Lookup walks from the innermost
// frame outward, so inner declarations shadow outer ones.
type SymbolTable struct {
	values    map[string]Symbol
	enclosing *SymbolTable
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		values:    make(map[string]Symbol),
		enclosing: nil,
	}
}

func NewSymbolTableFromEnclosing(enclosing *SymbolTable) *SymbolTable {
	return &SymbolTable{
		values:    make(map[string]Symbol),
		enclosing: enclosing,
	}
}

func (s *SymbolTable) Get(name string) (Symbol, bool) {
	if value, ok := s.values[name]; ok {
		return value, true
	} else if s.enclosing == nil {
		return Symbol{}, false
	}

	return s.enclosing.Get(name)
}

// Declare adds a variable to the current frame. Redeclaring a name that
// already exists in this frame is rejected; shadowing an outer frame's
// name is fine.
func (s *SymbolTable) Declare(name string, sym Symbol) bool {
	if _, exists := s.values[name]; exists {
		return false
	}

	s.values[name] = sym
	return true
}

// Analyzer resolves names, infers types, and annotates every expression
// node's Typ field in place. Later passes read those annotations.
type Analyzer struct {
	Module *ast.Module

	namespace *SymbolTable
}

func (a *Analyzer) analysisError(t token.Token, format string, args ...interface{}) *diagnostic.Error {
	return diagnostic.Errorf(diagnostic.Semantic, a.Module.Path, t.Pos, format, args...)
}

// typesCompatible implements the deliberately loose declaration check:
// primitives must match by name, references need only agree on
// mutability, everything else matches on kind alone.
func typesCompatible(declared ast.Type, inferred ast.Type) bool {
	switch d := declared.(type) {
	case *ast.Primitive:
		i, ok := inferred.(*ast.Primitive)
		return ok && d.Name == i.Name
	case *ast.Reference:
		i, ok := inferred.(*ast.Reference)
		return ok && d.Mutable == i.Mutable
	case *ast.Rc:
		_, ok := inferred.(*ast.Rc)
		return ok
	case *ast.RangeType:
		_, ok := inferred.(*ast.RangeType)
		return ok
	case *ast.ArrayType:
		_, ok := inferred.(*ast.ArrayType)
		return ok
	}
	return false
}

func (a *Analyzer) inferExpression(expr ast.Expression) (ast.Type, *diagnostic.Error) {
	switch e := expr.(type) {
	case *ast.Literal:
		if e.Token.Type == token.STRING {
			e.Typ = &ast.Primitive{Name: "string"}
		} else {
			e.Typ = &ast.Primitive{Name: "int"}
		}
		return e.Typ, nil

	case *ast.VariableExpression:
		sym, ok := a.namespace.Get(e.Identifier.Lexeme)
		if !ok {
			return nil, a.analysisError(e.Identifier, "use of undeclared variable '%s'", e.Identifier.Lexeme)
		}
		e.Typ = sym.Type
		return e.Typ, nil

	case *ast.ReferenceOf:
		inner, err := a.inferExpression(e.Target)
		if err != nil {
			return nil, err
		}
		e.Typ = &ast.Reference{Mutable: e.Mutable, Inner: inner}
		return e.Typ, nil

	case *ast.CallExpression:
		return a.inferCall(e)

	case *ast.RangeExpression:
		for _, end := range []ast.Expression{e.Low, e.High} {
			t, err := a.inferExpression(end)
			if err != nil {
				return nil, err
			}
			if prim, ok := t.(*ast.Primitive); !ok || prim.Name != "int" {
				return nil, a.analysisError(end.ErrorToken(), "range endpoints must be ints, got '%s'", t.String())
			}
		}
		e.Typ = &ast.RangeType{}
		return e.Typ, nil

	case *ast.ArrayLiteral:
		if len(e.Elements) == 0 {
			return nil, a.analysisError(e.LeftBracketToken, "cannot infer element type of empty array literal")
		}

		elType, err := a.inferExpression(e.Elements[0])
		if err != nil {
			return nil, err
		}

		for _, el := range e.Elements[1:] {
			t, err := a.inferExpression(el)
			if err != nil {
				return nil, err
			}
			if !t.Equals(elType) {
				return nil, a.analysisError(el.ErrorToken(),
					"mixed element types in array literal: '%s' and '%s'", elType.String(), t.String())
			}
		}

		e.Typ = &ast.ArrayType{ElType: elType, Length: len(e.Elements)}
		return e.Typ, nil

	case *ast.IndexExpression:
		targetType, err := a.inferExpression(e.Target)
		if err != nil {
			return nil, err
		}

		arrType, ok := targetType.(*ast.ArrayType)
		if !ok {
			return nil, a.analysisError(e.LeftBracketToken, "cannot index into value of type '%s'", targetType.String())
		}

		indexType, err := a.inferExpression(e.Index)
		if err != nil {
			return nil, err
		}
		if prim, ok := indexType.(*ast.Primitive); !ok || prim.Name != "int" {
			return nil, a.analysisError(e.Index.ErrorToken(), "array index must be an int, got '%s'", indexType.String())
		}

		e.Typ = arrType.ElType
		return e.Typ, nil

	case *ast.BinaryExpression:
		return nil, a.analysisError(e.Operator, "binary operator '%s' is not supported", e.Operator.Lexeme)
	}

	return nil, a.analysisError(expr.ErrorToken(), "unsupported expression")
}

func (a *Analyzer) inferCall(e *ast.CallExpression) (ast.Type, *diagnostic.Error) {
	switch e.Callee.Lexeme {
	case "clone":
		if len(e.Arguments) != 1 {
			return nil, a.analysisError(e.Callee, "clone() expects exactly 1 argument, got %d", len(e.Arguments))
		}

		argType, err := a.inferExpression(e.Arguments[0])
		if err != nil {
			return nil, err
		}

		if prim, ok := argType.(*ast.Primitive); !ok || prim.Name != "string" {
			return nil, a.analysisError(e.Callee, "clone() is only implemented for strings, got '%s'", argType.String())
		}

		e.Typ = &ast.Primitive{Name: "string"}
		return e.Typ, nil

	case "print", "println":
		if len(e.Arguments) != 1 {
			return nil, a.analysisError(e.Callee, "%s() expects exactly 1 argument, got %d", e.Callee.Lexeme, len(e.Arguments))
		}

		if _, err := a.inferExpression(e.Arguments[0]); err != nil {
			return nil, err
		}

		// print returns int by convention so it composes as an
		// expression statement.
		e.Typ = &ast.Primitive{Name: "int"}
		return e.Typ, nil
	}

	return nil, a.analysisError(e.Callee, "unknown function '%s'", e.Callee.Lexeme)
}

func (a *Analyzer) analyzeStatement(stmt ast.Statement) *diagnostic.Error {
	switch s := stmt.(type) {
	case *ast.VariableDeclaration:
		declaredType := s.Type

		if s.Value != nil {
			inferredType, err := a.inferExpression(s.Value)
			if err != nil {
				return err
			}

			if declaredType == nil {
				declaredType = inferredType
			} else if !typesCompatible(declaredType, inferredType) {
				return a.analysisError(s.Identifier,
					"type mismatch in declaration of '%s': declared '%s' but initializer is '%s'",
					s.Identifier.Lexeme, declaredType.String(), inferredType.String())
			}
		} else if declaredType == nil {
			return a.analysisError(s.Identifier,
				"declaration of '%s' needs a type annotation or an initializer", s.Identifier.Lexeme)
		}

		if !a.namespace.Declare(s.Identifier.Lexeme, Symbol{
			Type:         declaredType,
			DeclaredLine: s.Identifier.Pos.Line,
		}) {
			return a.analysisError(s.Identifier, "redeclaration of '%s' in the same scope", s.Identifier.Lexeme)
		}

		// Propagate the resolved type back onto the declaration so
		// later passes never see the pre-inference placeholder.
		s.Type = declaredType
		return nil

	case *ast.ExpressionStatement:
		_, err := a.inferExpression(s.Expression)
		return err

	case *ast.BlockStatement:
		previous := a.namespace
		a.namespace = NewSymbolTableFromEnclosing(previous)
		defer func() { a.namespace = previous }()

		for _, child := range s.Statements {
			if err := a.analyzeStatement(child); err != nil {
				return err
			}
		}
		return nil

	case *ast.IfStatement:
		if _, err := a.inferExpression(s.Condition); err != nil {
			return err
		}
		if err := a.analyzeStatement(s.IfBlock); err != nil {
			return err
		}
		if s.ElseBlock != nil {
			return a.analyzeStatement(s.ElseBlock)
		}
		return nil

	case *ast.WhileStatement:
		if _, err := a.inferExpression(s.Condition); err != nil {
			return err
		}
		return a.analyzeStatement(s.Block)

	case *ast.ForStatement:
		iterType, err := a.inferExpression(s.Iterable)
		if err != nil {
			return err
		}

		var elType ast.Type
		switch t := iterType.(type) {
		case *ast.RangeType:
			elType = &ast.Primitive{Name: "int"}
		case *ast.ArrayType:
			elType = t.ElType
		default:
			return a.analysisError(s.ForToken, "cannot iterate over value of type '%s'", iterType.String())
		}

		// The loop variable lives in a frame that encloses the body.
		previous := a.namespace
		a.namespace = NewSymbolTableFromEnclosing(previous)
		defer func() { a.namespace = previous }()

		a.namespace.Declare(s.Identifier.Lexeme, Symbol{
			Type:         elType,
			DeclaredLine: s.Identifier.Pos.Line,
		})

		return a.analyzeStatement(s.Block)

	case *ast.ReturnStatement:
		if s.Expression != nil {
			_, err := a.inferExpression(s.Expression)
			return err
		}
		return nil

	case *ast.BreakStatement, *ast.ContinueStatement:
		return nil
	}

	return nil
}

// Analyze type-checks the module's function and annotates every
// expression in place. Running it again over an already-annotated tree
// is a fixed point.
func Analyze(m *ast.Module) *diagnostic.Error {
	a := Analyzer{
		Module:    m,
		namespace: NewSymbolTable(),
	}

	return a.analyzeStatement(m.Function.Body)
}

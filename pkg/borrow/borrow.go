// Package borrow enforces move semantics and shared/exclusive borrowing
// over a type-annotated AST. It runs after the analyzer and keeps its own
// ownership table, one entry per live variable, scoped to the variable's
// declaring block.
//
// The rule set is deliberately v0.1: a borrow's effect on the borrowed
// variable is never released when the *borrowing* variable goes out of
// scope; state only disappears when the borrowed variable's own scope
// ends and its entry is dropped.
package borrow

import (
	"github.com/Wicayonima-Reborn/mylang/pkg/ast"
	"github.com/Wicayonima-Reborn/mylang/pkg/diagnostic"
	"github.com/Wicayonima-Reborn/mylang/pkg/token"
)

// VarState is the ownership state of one live variable.
type VarState struct {
	Valid             bool
	SharedCount       int
	ExclusiveBorrowed bool
}

type frame map[string]*VarState

// Checker walks a function body and fails on the first ownership
// violation. Frames form an explicit scope stack: one is pushed when a
// block is entered and popped (discarding its variables) when it exits.
type Checker struct {
	Module *ast.Module

	frames []frame

	// Trace, when set, receives a snapshot of the live ownership table
	// after every checked statement. Used by --debug-borrow.
	Trace func(pos token.Pos, live map[string]VarState)
}

func (c *Checker) borrowError(pos token.Pos, format string, args ...interface{}) *diagnostic.Error {
	return diagnostic.Errorf(diagnostic.Borrow, c.Module.Path, pos, format, args...)
}

func (c *Checker) pushFrame() {
	c.frames = append(c.frames, frame{})
}

func (c *Checker) popFrame() {
	c.frames = c.frames[:len(c.frames)-1]
}

// find walks the frame stack from the innermost scope outward.
func (c *Checker) find(name string) *VarState {
	for i := len(c.frames) - 1; i >= 0; i-- {
		if v, ok := c.frames[i][name]; ok {
			return v
		}
	}
	return nil
}

func (c *Checker) declare(name string) {
	c.frames[len(c.frames)-1][name] = &VarState{Valid: true}
}

func (c *Checker) snapshot() map[string]VarState {
	live := make(map[string]VarState)
	for _, f := range c.frames {
		for name, state := range f {
			live[name] = *state
		}
	}
	return live
}

// visitExpression checks identifier uses inside arbitrary expressions:
// any variable read must still own its value.
func (c *Checker) visitExpression(expr ast.Expression) *diagnostic.Error {
	switch e := expr.(type) {
	case *ast.VariableExpression:
		v := c.find(e.Identifier.Lexeme)
		if v == nil {
			return c.borrowError(e.Identifier.Pos, "use of undeclared variable '%s'", e.Identifier.Lexeme)
		}
		if !v.Valid {
			return c.borrowError(e.Identifier.Pos, "use of moved value '%s'", e.Identifier.Lexeme)
		}
		return nil

	case *ast.CallExpression:
		for _, arg := range e.Arguments {
			if err := c.visitExpression(arg); err != nil {
				return err
			}
		}
		return nil

	case *ast.ReferenceOf:
		return c.visitExpression(e.Target)

	case *ast.RangeExpression:
		if err := c.visitExpression(e.Low); err != nil {
			return err
		}
		return c.visitExpression(e.High)

	case *ast.ArrayLiteral:
		for _, el := range e.Elements {
			if err := c.visitExpression(el); err != nil {
				return err
			}
		}
		return nil

	case *ast.IndexExpression:
		if err := c.visitExpression(e.Target); err != nil {
			return err
		}
		return c.visitExpression(e.Index)

	case *ast.BinaryExpression:
		if err := c.visitExpression(e.Left); err != nil {
			return err
		}
		return c.visitExpression(e.Right)
	}

	return nil
}

// checkInitializer applies the move/borrow rules for a declaration's
// right-hand side. It runs before the declared variable itself is
// registered, so the RHS can never see the new binding.
func (c *Checker) checkInitializer(decl *ast.VariableDeclaration) *diagnostic.Error {
	pos := decl.Identifier.Pos

	switch init := decl.Value.(type) {
	case *ast.VariableExpression:
		// MOVE: let b = a;
		src := init.Identifier.Lexeme
		v := c.find(src)

		if v == nil {
			return c.borrowError(pos, "use of undeclared variable '%s'", src)
		}
		if !v.Valid {
			return c.borrowError(pos, "use of moved value '%s'", src)
		}
		if v.SharedCount > 0 || v.ExclusiveBorrowed {
			return c.borrowError(pos, "cannot move '%s' because it is borrowed", src)
		}

		v.Valid = false
		return nil

	case *ast.ReferenceOf:
		target, ok := init.Target.(*ast.VariableExpression)
		if !ok {
			if init.Mutable {
				return c.borrowError(pos, "cannot mutably borrow a non-identifier expression")
			}
			return c.borrowError(pos, "cannot borrow a non-identifier expression")
		}

		name := target.Identifier.Lexeme
		v := c.find(name)
		if v == nil {
			return c.borrowError(pos, "borrow of undeclared variable '%s'", name)
		}
		if !v.Valid {
			return c.borrowError(pos, "borrow of moved value '%s'", name)
		}

		if init.Mutable {
			// EXCLUSIVE BORROW: let m = &mut a;
			if v.SharedCount > 0 || v.ExclusiveBorrowed {
				return c.borrowError(pos, "cannot mutably borrow '%s' because it is already borrowed", name)
			}
			v.ExclusiveBorrowed = true
		} else {
			// SHARED BORROW: let r = &a;
			if v.ExclusiveBorrowed {
				return c.borrowError(pos, "cannot borrow '%s' because it is mutably borrowed", name)
			}
			v.SharedCount++
		}
		return nil
	}

	// Any other initializer: literals, calls, nested expressions.
	// Identifier reads inside must still be valid.
	return c.visitExpression(decl.Value)
}

func (c *Checker) checkStatement(stmt ast.Statement) *diagnostic.Error {
	switch s := stmt.(type) {
	case *ast.VariableDeclaration:
		if s.Value != nil {
			if err := c.checkInitializer(s); err != nil {
				return err
			}
		}

		// The binding is registered after the RHS has been validated.
		c.declare(s.Identifier.Lexeme)
		c.traceAt(s.Identifier.Pos)
		return nil

	case *ast.ExpressionStatement:
		if err := c.visitExpression(s.Expression); err != nil {
			return err
		}
		c.traceAt(s.Expression.ErrorToken().Pos)
		return nil

	case *ast.BlockStatement:
		c.pushFrame()
		defer c.popFrame()

		for _, child := range s.Statements {
			if err := c.checkStatement(child); err != nil {
				return err
			}
		}
		return nil

	case *ast.IfStatement:
		if err := c.visitExpression(s.Condition); err != nil {
			return err
		}
		if err := c.checkStatement(s.IfBlock); err != nil {
			return err
		}
		if s.ElseBlock != nil {
			return c.checkStatement(s.ElseBlock)
		}
		return nil

	case *ast.WhileStatement:
		if err := c.visitExpression(s.Condition); err != nil {
			return err
		}
		return c.checkStatement(s.Block)

	case *ast.ForStatement:
		if err := c.visitExpression(s.Iterable); err != nil {
			return err
		}

		// The loop variable is a fresh owner scoped to the loop.
		c.pushFrame()
		defer c.popFrame()
		c.declare(s.Identifier.Lexeme)

		return c.checkStatement(s.Block)

	case *ast.ReturnStatement:
		if s.Expression != nil {
			return c.visitExpression(s.Expression)
		}
		return nil
	}

	return nil
}

func (c *Checker) traceAt(pos token.Pos) {
	if c.Trace != nil {
		c.Trace(pos, c.snapshot())
	}
}

// Check runs the borrow checker over the module's function. The analyzer
// must have completed first. The first violation aborts the pass.
func Check(m *ast.Module) *diagnostic.Error {
	c := Checker{Module: m}
	return c.checkStatement(m.Function.Body)
}

// CheckWithTrace is Check with an ownership-table trace callback, used
// for --debug-borrow output.
func CheckWithTrace(m *ast.Module, trace func(pos token.Pos, live map[string]VarState)) *diagnostic.Error {
	c := Checker{Module: m, Trace: trace}
	return c.checkStatement(m.Function.Body)
}

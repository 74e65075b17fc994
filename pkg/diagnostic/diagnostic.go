// Package diagnostic defines the structured error values produced by the
// compiler phases. Every phase fails fast: the first violation is returned
// up the pipeline as an *Error and compilation stops there.
package diagnostic

import (
	"fmt"

	"github.com/Wicayonima-Reborn/mylang/pkg/token"
)

// Category identifies which phase rejected the program.
type Category int

const (
	Lexical Category = iota
	Parse
	Semantic
	Borrow
	Codegen
)

func (c Category) String() string {
	switch c {
	case Lexical:
		return "lexical error"
	case Parse:
		return "parse error"
	case Semantic:
		return "semantic error"
	case Borrow:
		return "borrow error"
	case Codegen:
		return "codegen error"
	default:
		return "error"
	}
}

// Error is a single position-tagged compiler diagnostic.
type Error struct {
	Category Category
	Message  string
	File     string
	Pos      token.Pos
}

// Error renders the diagnostic as `<file>:<line>:<col>: <category>: <message>`.
func (e *Error) Error() string {
	file := e.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", file, e.Pos.Line, e.Pos.Column, e.Category, e.Message)
}

// Errorf builds a diagnostic with a formatted message.
func Errorf(category Category, file string, pos token.Pos, format string, args ...interface{}) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		File:     file,
		Pos:      pos,
	}
}

package llvmgen_test

import (
	"strings"
	"testing"

	"github.com/Wicayonima-Reborn/mylang/pkg/analyzer"
	"github.com/Wicayonima-Reborn/mylang/pkg/ast"
	"github.com/Wicayonima-Reborn/mylang/pkg/borrow"
	"github.com/Wicayonima-Reborn/mylang/pkg/diagnostic"
	llvmgen "github.com/Wicayonima-Reborn/mylang/pkg/gen/llvm"
	"github.com/Wicayonima-Reborn/mylang/pkg/lexer"
	"github.com/Wicayonima-Reborn/mylang/pkg/parser"
)

func lower(t *testing.T, source string) (string, *diagnostic.Error) {
	t.Helper()

	m := &ast.Module{Path: "test.my", Source: source}
	if err := lexer.Lex(m); err != nil {
		t.Fatalf("lex error: %v", err)
	}
	if err := parser.Parse(m); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if err := analyzer.Analyze(m); err != nil {
		t.Fatalf("semantic error: %v", err)
	}
	if err := borrow.Check(m); err != nil {
		t.Fatalf("borrow error: %v", err)
	}
	return llvmgen.Gen(m)
}

func mustLower(t *testing.T, source string) string {
	t.Helper()

	out, err := lower(t, source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out
}

func TestRuntimeDeclarationsAndMain(t *testing.T) {
	out := mustLower(t, "print(1);")

	for _, want := range []string{
		"declare i8* @runtime_new_string",
		"declare i32 @runtime_print_int",
		"declare i32 @runtime_print_string",
		"declare i8* @runtime_clone_string",
		"define i32 @main()",
		"call i32 @runtime_print_int",
		"ret i32 0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStringLiteralGlobal(t *testing.T) {
	out := mustLower(t, `println("Hi");`)

	if !strings.Contains(out, "@.str.1") {
		t.Errorf("output missing interned literal global:\n%s", out)
	}
	if !strings.Contains(out, `c"Hi\00"`) {
		t.Errorf("literal must be NUL-terminated:\n%s", out)
	}
	if !strings.Contains(out, "call i8* @runtime_new_string") {
		t.Errorf("literal must be built through the runtime:\n%s", out)
	}
	if !strings.Contains(out, "call i32 @runtime_print_string") {
		t.Errorf("string argument must route to runtime_print_string:\n%s", out)
	}
}

func TestCloneLowering(t *testing.T) {
	out := mustLower(t, "let s = \"x\";\nlet c = clone(s);")
	if !strings.Contains(out, "call i8* @runtime_clone_string") {
		t.Errorf("output missing clone runtime call:\n%s", out)
	}
}

func TestForRangeLowering(t *testing.T) {
	out := mustLower(t, "for i in 0..3 {\n    print(i);\n}")

	for _, want := range []string{
		"for.cond.1:",
		"for.body.2:",
		"for.end.3:",
		"icmp slt i64",
		"add i64",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("loop output missing %q:\n%s", want, out)
		}
	}
}

func TestDeterministicOutput(t *testing.T) {
	source := "let s = \"hello\";\nfor i in 0..5 {\n    println(i);\n}\nprintln(s);"

	first := mustLower(t, source)
	second := mustLower(t, source)
	if first != second {
		t.Errorf("same input produced different IR")
	}
}

func TestArrayLiteralIsRejected(t *testing.T) {
	_, err := lower(t, "let a = [1, 2];")
	if err == nil {
		t.Fatal("expected codegen error for array literal")
	}
	if err.Category != diagnostic.Codegen {
		t.Fatalf("expected codegen category, got %s", err.Category)
	}
}

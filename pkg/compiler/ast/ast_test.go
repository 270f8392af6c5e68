package ast

import (
	"testing"

	"github.com/zurustar/stacklang/pkg/langerr"
	"github.com/zurustar/stacklang/pkg/value"
)

func TestNewProgram_DuplicateFunction(t *testing.T) {
	f := &FunctionDef{Name: "f"}
	g := &FunctionDef{Name: "f", Params: []string{"x"}}

	_, err := NewProgram(f, g)
	if err == nil {
		t.Fatal("expected duplicate definition error")
	}
	if !langerr.Is(err, langerr.ErrorDuplicateDefinition) {
		t.Errorf("expected DUPLICATE_DEFINITION, got %v", err)
	}
}

func TestProgram_LookupPreservesOrder(t *testing.T) {
	p, err := NewProgram(&FunctionDef{Name: "b"}, &FunctionDef{Name: MainFunction})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Functions[0].Name != "b" || p.Functions[1].Name != MainFunction {
		t.Errorf("definition order not preserved: %v", p.Functions)
	}
	if _, ok := p.Lookup("b"); !ok {
		t.Error("Lookup(b) failed")
	}
	if _, ok := p.Lookup("c"); ok {
		t.Error("Lookup(c) should fail")
	}
}

func TestNodeString(t *testing.T) {
	tests := []struct {
		name     string
		node     Node
		expected string
	}{
		{
			name:     "indexed variable",
			node:     &Variable{Name: "a", Indexes: []Node{&Const{value.Number(1)}, &Variable{Name: "i"}}},
			expected: "a[1][i]",
		},
		{
			name: "assignment",
			node: &Assignment{
				Target: &Variable{Name: "x"},
				Value:  &Binary{Left: &Const{value.Number(1)}, Right: &UnaryMinus{&Variable{Name: "y"}}, Op: OpMul},
			},
			expected: "x := (1 * -y)",
		},
		{
			name:     "builtin call",
			node:     &BuiltinCall{Tag: Write, Args: []Node{&Const{value.NewStr("a")}}},
			expected: `write("a")`,
		},
		{
			name:     "repeat",
			node:     &RepeatLoop{Body: []Node{&Skip{}}, Cond: &Const{value.Number(1)}},
			expected: "repeat skip until 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.String(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestLookupOperator(t *testing.T) {
	for _, op := range Operators {
		got, ok := LookupOperator(op.String())
		if !ok || got != op {
			t.Errorf("LookupOperator(%q) = %v, %v", op.String(), got, ok)
		}
	}
	if _, ok := LookupOperator("&&"); ok {
		t.Error("&& is not a Binary operator")
	}
}

func TestBuiltinArity(t *testing.T) {
	tests := []struct {
		tag      BuiltinTag
		args     int
		accepted bool
	}{
		{Read, 0, true},
		{Read, 1, false},
		{Write, 0, false},
		{Write, 3, true},
		{Strset, 3, true},
		{Strsub, 2, false},
		{Arrlen, 1, true},
	}
	for _, tt := range tests {
		if got := tt.tag.AcceptsArgs(tt.args); got != tt.accepted {
			t.Errorf("%s.AcceptsArgs(%d) = %v, want %v", tt.tag, tt.args, got, tt.accepted)
		}
	}
}

func TestLookupBuiltin(t *testing.T) {
	if tag, ok := LookupBuiltin("Arrmake"); !ok || tag != Arrmake {
		t.Errorf("Arrmake alias not recognised")
	}
	if tag, ok := LookupBuiltin("strcmp"); !ok || tag != Strcmp {
		t.Errorf("strcmp not recognised")
	}
	if _, ok := LookupBuiltin("print"); ok {
		t.Error("print is not a builtin")
	}
}

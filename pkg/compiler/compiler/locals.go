package compiler

import "github.com/zurustar/stacklang/pkg/compiler/ast"

// CollectLocals returns every variable name referenced or assigned in f's
// body that is not a parameter, in order of first appearance.
func CollectLocals(f *ast.FunctionDef) []string {
	s := &localScanner{seen: make(map[string]bool)}
	for _, p := range f.Params {
		s.seen[p] = true
	}
	s.scanAll(f.Body)
	return s.names
}

type localScanner struct {
	seen  map[string]bool
	names []string
}

func (s *localScanner) add(name string) {
	if !s.seen[name] {
		s.seen[name] = true
		s.names = append(s.names, name)
	}
}

func (s *localScanner) scanAll(nodes []ast.Node) {
	for _, n := range nodes {
		s.scan(n)
	}
}

func (s *localScanner) scan(node ast.Node) {
	switch n := node.(type) {
	case *ast.Const, *ast.Skip:
	case *ast.Variable:
		s.add(n.Name)
		s.scanAll(n.Indexes)
	case *ast.Binary:
		s.scan(n.Left)
		s.scan(n.Right)
	case *ast.UnaryMinus:
		s.scan(n.Arg)
	case *ast.ArrayLit:
		s.scanAll(n.Elements)
	case *ast.BuiltinCall:
		s.scanAll(n.Args)
	case *ast.UserCall:
		s.scanAll(n.Args)
	case *ast.Assignment:
		s.scan(n.Target)
		s.scan(n.Value)
	case *ast.Conditional:
		s.scan(n.Cond)
		s.scanAll(n.Then)
		for _, e := range n.Elifs {
			s.scan(e.Cond)
			s.scanAll(e.Body)
		}
		s.scanAll(n.Else)
	case *ast.WhileLoop:
		s.scan(n.Cond)
		s.scanAll(n.Body)
	case *ast.ForLoop:
		s.scan(n.Init)
		s.scan(n.Cond)
		s.scan(n.Increment)
		s.scanAll(n.Body)
	case *ast.RepeatLoop:
		s.scanAll(n.Body)
		s.scan(n.Cond)
	}
}

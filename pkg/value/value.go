// Package value defines the runtime values shared by every execution backend.
//
// A Value is one of Number, Character, *Str, *Array or Void. Number and
// Character are immutable value types. Str and Array have reference
// semantics: every alias observes an in-place mutation until Copy is called.
package value

import (
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNumber Kind = iota
	KindCharacter
	KindStr
	KindArray
	KindVoid
)

var kindNames = map[Kind]string{
	KindNumber:    "Number",
	KindCharacter: "Character",
	KindStr:       "Str",
	KindArray:     "Array",
	KindVoid:      "Void",
}

// String returns the kind name used in error messages.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Value is a runtime value. The set of implementations is closed.
type Value interface {
	Kind() Kind
	// Copy returns a deep copy that shares no mutable state with the receiver.
	Copy() Value
	String() string
	sealed()
}

// Number is a 32-bit signed integer.
type Number int32

func (Number) Kind() Kind       { return KindNumber }
func (n Number) Copy() Value    { return n }
func (n Number) String() string { return strconv.FormatInt(int64(n), 10) }
func (Number) sealed()          {}

// Character is a single code point.
type Character rune

func (Character) Kind() Kind       { return KindCharacter }
func (c Character) Copy() Value    { return c }
func (c Character) String() string { return strconv.QuoteRune(rune(c)) }
func (Character) sealed()          {}

// Void is the value of statements that produce nothing.
type Void struct{}

func (Void) Kind() Kind     { return KindVoid }
func (v Void) Copy() Value  { return v }
func (Void) String() string { return "void" }
func (Void) sealed()        {}

// Str is a mutable character buffer.
type Str struct {
	runes []rune
}

// NewStr creates a Str holding the code points of s.
func NewStr(s string) *Str {
	return &Str{runes: []rune(s)}
}

// NewStrFromRunes creates a Str that owns a copy of runes.
func NewStrFromRunes(runes []rune) *Str {
	buf := make([]rune, len(runes))
	copy(buf, runes)
	return &Str{runes: buf}
}

func (*Str) Kind() Kind { return KindStr }

func (s *Str) Copy() Value {
	return NewStrFromRunes(s.runes)
}

func (s *Str) String() string { return strconv.Quote(string(s.runes)) }

func (*Str) sealed() {}

// Len returns the number of code points.
func (s *Str) Len() int { return len(s.runes) }

// At returns the code point at i. The caller checks bounds.
func (s *Str) At(i int) rune { return s.runes[i] }

// Set replaces the code point at i in place. The caller checks bounds.
func (s *Str) Set(i int, r rune) { s.runes[i] = r }

// Runes returns the backing buffer. Callers must not retain it across mutations.
func (s *Str) Runes() []rune { return s.runes }

// Text returns the buffer contents as a Go string.
func (s *Str) Text() string { return string(s.runes) }

// Array is a mutable ordered sequence of values.
type Array struct {
	elems []Value
}

// NewArray creates an Array that takes ownership of elems.
func NewArray(elems []Value) *Array {
	if elems == nil {
		elems = []Value{}
	}
	return &Array{elems: elems}
}

func (*Array) Kind() Kind { return KindArray }

// Copy copies the array and, recursively, every element.
func (a *Array) Copy() Value {
	elems := make([]Value, len(a.elems))
	for i, e := range a.elems {
		elems[i] = e.Copy()
	}
	return &Array{elems: elems}
}

func (a *Array) String() string {
	parts := make([]string, len(a.elems))
	for i, e := range a.elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (*Array) sealed() {}

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.elems) }

// At returns the element at i. The caller checks bounds.
func (a *Array) At(i int) Value { return a.elems[i] }

// Set replaces the element at i in place. The caller checks bounds.
func (a *Array) Set(i int, v Value) { a.elems[i] = v }

// Elements returns the backing slice.
func (a *Array) Elements() []Value { return a.elems }

// Equal reports whether a and b hold the same data. Str and Array compare by
// contents, so two distinct buffers with equal text are equal.
func Equal(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case *Str:
		return av.Text() == b.(*Str).Text()
	case *Array:
		bv := b.(*Array)
		if av.Len() != bv.Len() {
			return false
		}
		for i := range av.elems {
			if !Equal(av.elems[i], bv.elems[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

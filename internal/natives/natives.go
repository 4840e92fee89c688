// Package natives provides the native-function registry the parser
// consults when resolving a call site (spec §4.E, §4.G). Only the
// metadata the parser needs — name, arity, and whether each parameter
// is nilable — is modeled here; evaluating a native is a downstream
// phase's job.
package natives

import (
	"github.com/glint-lang/glint/internal/ast"
)

// NativeArg is one formal parameter of a native function.
type NativeArg struct {
	Name    string
	Type    ast.TypeNode
	Nilable bool
}

// NativeFun describes one native overload by name and arity; natives
// do not participate in the Sibf overload chain the way user
// functions do, so each NativeFun stands alone.
type NativeFun struct {
	Name string
	Args []NativeArg
}

// Arity reports how many parameters the native declares.
func (n *NativeFun) Arity() int { return len(n.Args) }

// Registry is what the parser's call resolver depends on: a name-to-
// overload-set lookup. A name may have several NativeFun entries at
// different arities (print() vs print(x) style overloading), mirrored
// by returning a slice.
type Registry interface {
	FindNative(name string) ([]*NativeFun, bool)
}

func builtinSeed() map[string][]*NativeFun {
	str := &ast.SimpleType{Name: "string"}
	anyT := &ast.SimpleType{Name: "any"}
	intT := &ast.SimpleType{Name: "int"}
	listAny := &ast.ListType{Elem: anyT}

	return map[string][]*NativeFun{
		"print": {
			{Name: "print", Args: []NativeArg{{Name: "x", Type: anyT}}},
		},
		"length": {
			{Name: "length", Args: []NativeArg{{Name: "x", Type: anyT}}},
		},
		"append": {
			{Name: "append", Args: []NativeArg{{Name: "xs", Type: listAny}, {Name: "x", Type: anyT}}},
		},
		"string": {
			{Name: "string", Args: []NativeArg{{Name: "x", Type: anyT}}},
		},
		"int": {
			{Name: "int", Args: []NativeArg{{Name: "x", Type: anyT}}},
		},
		"float": {
			{Name: "float", Args: []NativeArg{{Name: "x", Type: anyT}}},
		},
		"substring": {
			{Name: "substring", Args: []NativeArg{{Name: "s", Type: str}, {Name: "start", Type: intT}, {Name: "len", Type: intT, Nilable: true}}},
		},
	}
}

// MapRegistry is an in-memory Registry, the default used by the
// parser and by every parser test that has no database handle to
// give it.
type MapRegistry struct {
	byName map[string][]*NativeFun
}

// NewMapRegistry returns a registry seeded with the small built-in
// surface sufficient to exercise native-vs-user call resolution
// without depending on a downstream type system (SPEC_FULL.md §4.J).
func NewMapRegistry() *MapRegistry {
	return &MapRegistry{byName: builtinSeed()}
}

func (r *MapRegistry) FindNative(name string) ([]*NativeFun, bool) {
	fs, ok := r.byName[name]
	return fs, ok
}

// Register adds (or replaces) the overload set for name, letting
// embedders extend the built-in surface.
func (r *MapRegistry) Register(name string, fns ...*NativeFun) {
	r.byName[name] = fns
}

// SQLiteRegistry (in sqlite_registry.go) is the Registry implementation
// backed by modernc.org/sqlite; kept in its own file since it is
// substantially larger than the in-memory default above.

// Package predicate holds the plain and derived predicate definitions of a
// task configuration and validates the derivation DAG. Evaluation of plain
// predicates against raw event data is an external concern (§1, §2); this
// package only tracks names, bounds, and derivation relationships.
package predicate

import "fmt"

// AnyEventColumn is the name of the always-present, always-1 predicate
// column required by §3.
const AnyEventColumn = "_ANY_EVENT"

// RecordStartColumn and RecordEndColumn are the optional per-subject
// first/last row markers described in §3.
const (
	RecordStartColumn = "_RECORD_START"
	RecordEndColumn   = "_RECORD_END"
)

// Code identifies how a plain predicate's source rows are selected. Only
// the discriminant and literal fields are retained by the core; the actual
// matching against raw event codes is performed by the ingestion
// collaborator that builds the predicates table.
type Code struct {
	Literal string   // set when this is a literal code
	Any     []string // set when this is {any: [...]}
	Regex   string   // set when this is {regex: "..."}
}

// Kind reports which of the three code forms is populated.
func (c Code) Kind() string {
	switch {
	case len(c.Any) > 0:
		return "any"
	case c.Regex != "":
		return "regex"
	default:
		return "literal"
	}
}

// Plain is a plain predicate definition (§3).
type Plain struct {
	Name string
	Code Code

	ValueMin          *float64
	ValueMax          *float64
	ValueMinInclusive bool
	ValueMaxInclusive bool

	OtherCols map[string]any
	Static    bool
}

// Derived is a derived predicate definition: and()/or() over other defined
// predicate names, with no nesting and no negation (§3, Non-goals).
type Derived struct {
	Name     string
	Op       DerivedOp
	Operands []string
}

// DerivedOp is the boolean combinator used by a derived predicate.
type DerivedOp int

const (
	OpAnd DerivedOp = iota
	OpOr
)

func (op DerivedOp) String() string {
	if op == OpOr {
		return "or"
	}
	return "and"
}

// Set holds the full predicate namespace of a task configuration: plain
// predicates, derived predicates, and the derivation DAG built from them.
// A Set is immutable once returned by NewSet.
type Set struct {
	plain   map[string]Plain
	derived map[string]Derived
	order   []string // all names, insertion order, for deterministic iteration
}

// NewSet validates and assembles a predicate namespace. It enforces (§3):
//   - predicate names are unique across plain and derived definitions;
//   - derived operands reference predicates defined anywhere in the set
//     (plain or derived, in any order);
//   - the derivation graph is acyclic.
func NewSet(plain []Plain, derived []Derived) (*Set, error) {
	s := &Set{
		plain:   make(map[string]Plain, len(plain)),
		derived: make(map[string]Derived, len(derived)),
	}

	for _, p := range plain {
		if p.Name == "" {
			return nil, fmt.Errorf("predicate: plain predicate has empty name")
		}
		if _, exists := s.plain[p.Name]; exists {
			return nil, fmt.Errorf("predicate: duplicate predicate name %q", p.Name)
		}
		s.plain[p.Name] = p
		s.order = append(s.order, p.Name)
	}

	for _, d := range derived {
		if d.Name == "" {
			return nil, fmt.Errorf("predicate: derived predicate has empty name")
		}
		if _, exists := s.plain[d.Name]; exists {
			return nil, fmt.Errorf("predicate: duplicate predicate name %q", d.Name)
		}
		if _, exists := s.derived[d.Name]; exists {
			return nil, fmt.Errorf("predicate: duplicate predicate name %q", d.Name)
		}
		if len(d.Operands) < 2 {
			return nil, fmt.Errorf("predicate: derived predicate %q must have at least two operands, got %d", d.Name, len(d.Operands))
		}
		s.derived[d.Name] = d
		s.order = append(s.order, d.Name)
	}

	for _, d := range derived {
		for _, operand := range d.Operands {
			if !s.Has(operand) {
				return nil, fmt.Errorf("predicate: derived predicate %q references undefined predicate %q", d.Name, operand)
			}
		}
	}

	if err := s.checkAcyclic(); err != nil {
		return nil, err
	}

	return s, nil
}

// Has reports whether name is a defined plain or derived predicate, or one
// of the always-available special columns.
func (s *Set) Has(name string) bool {
	if name == AnyEventColumn || name == "*" {
		return true
	}
	if _, ok := s.plain[name]; ok {
		return true
	}
	_, ok := s.derived[name]
	return ok
}

// Plain returns the plain predicate definition for name, if any.
func (s *Set) Plain(name string) (Plain, bool) {
	p, ok := s.plain[name]
	return p, ok
}

// Derived returns the derived predicate definition for name, if any.
func (s *Set) Derived(name string) (Derived, bool) {
	d, ok := s.derived[name]
	return d, ok
}

// Names returns all predicate names (plain and derived) in the order they
// were defined.
func (s *Set) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// checkAcyclic performs a depth-first cycle check over the derivation graph
// (derived predicates pointing at their operands).
func (s *Set) checkAcyclic() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(s.derived))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		d, ok := s.derived[name]
		if !ok {
			return nil // plain predicate or special column: always a leaf
		}
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("predicate: cyclic derivation detected: %s -> %s", joinPath(path), name)
		}
		state[name] = visiting
		for _, operand := range d.Operands {
			if err := visit(operand, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for name := range s.derived {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}

func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " -> "
		}
		out += p
	}
	return out
}

package timeref

import "fmt"

// RefKind identifies what a Reference points at.
type RefKind int

const (
	RefTrigger RefKind = iota
	RefWindowStart
	RefWindowEnd
)

// Reference is either the trigger's timestamp or another window's resolved
// start/end boundary (§4.2).
type Reference struct {
	Kind   RefKind
	Window string // empty when Kind == RefTrigger
}

// Trigger is the reference to the task's single trigger event.
var Trigger = Reference{Kind: RefTrigger}

// WindowStart builds a reference to the named window's start boundary.
func WindowStart(name string) Reference { return Reference{Kind: RefWindowStart, Window: name} }

// WindowEnd builds a reference to the named window's end boundary.
func WindowEnd(name string) Reference { return Reference{Kind: RefWindowEnd, Window: name} }

func (r Reference) String() string {
	switch r.Kind {
	case RefTrigger:
		return "trigger"
	case RefWindowStart:
		return r.Window + ".start"
	case RefWindowEnd:
		return r.Window + ".end"
	default:
		return fmt.Sprintf("<invalid reference kind %d>", r.Kind)
	}
}

func (r Reference) Equal(o Reference) bool {
	return r.Kind == o.Kind && r.Window == o.Window
}

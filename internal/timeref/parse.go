package timeref

import (
	"fmt"
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`^\w+$`)

// ParseReference parses a boundary reference: "trigger", "<window>.start",
// or "<window>.end" (§6 boundary-expr grammar, `ref` production).
func ParseReference(s string) (Reference, error) {
	s = strings.TrimSpace(s)
	if s == "trigger" {
		return Trigger, nil
	}
	window, event, ok := strings.Cut(s, ".")
	if !ok || (event != "start" && event != "end") {
		return Reference{}, fmt.Errorf("timeref: invalid reference %q: expected \"trigger\", \"<window>.start\" or \"<window>.end\"", s)
	}
	if !wordPattern.MatchString(window) {
		return Reference{}, fmt.Errorf("timeref: invalid window name %q in reference %q", window, s)
	}
	if event == "start" {
		return WindowStart(window), nil
	}
	return WindowEnd(window), nil
}

// ParseEndpointExpr parses one side ("start" or "end") of a window's
// boundary-expr grammar (§6):
//
//	expr   := ref | ref " + " duration | ref " - " duration
//	        | ref " -> " predicate     | ref " <- " predicate
//	        | "NULL"
//
// side indicates whether this is the window's start or end expression, used
// only to tag a resulting NULL expression.
func ParseEndpointExpr(raw string, side Side) (EndpointExpr, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "NULL" {
		return Null(side), nil
	}

	if idx := strings.Index(s, " -> "); idx >= 0 {
		ref, err := ParseReference(s[:idx])
		if err != nil {
			return EndpointExpr{}, err
		}
		predicate := strings.TrimSpace(s[idx+len(" -> "):])
		if predicate == "" {
			return EndpointExpr{}, fmt.Errorf("timeref: missing predicate name after \"->\" in %q", raw)
		}
		return Next(ref, predicate), nil
	}

	if idx := strings.Index(s, " <- "); idx >= 0 {
		ref, err := ParseReference(s[:idx])
		if err != nil {
			return EndpointExpr{}, err
		}
		predicate := strings.TrimSpace(s[idx+len(" <- "):])
		if predicate == "" {
			return EndpointExpr{}, fmt.Errorf("timeref: missing predicate name after \"<-\" in %q", raw)
		}
		return Prev(ref, predicate), nil
	}

	if idx := strings.Index(s, " + "); idx >= 0 {
		ref, err := ParseReference(s[:idx])
		if err != nil {
			return EndpointExpr{}, err
		}
		d, err := ParseFiniteNonzeroDuration(s[idx+len(" + "):])
		if err != nil {
			return EndpointExpr{}, err
		}
		return Offset(ref, d), nil
	}

	if idx := strings.Index(s, " - "); idx >= 0 {
		ref, err := ParseReference(s[:idx])
		if err != nil {
			return EndpointExpr{}, err
		}
		d, err := ParseFiniteNonzeroDuration(s[idx+len(" - "):])
		if err != nil {
			return EndpointExpr{}, err
		}
		return Offset(ref, -d), nil
	}

	ref, err := ParseReference(s)
	if err != nil {
		return EndpointExpr{}, fmt.Errorf("timeref: could not parse boundary expression %q: %w", raw, err)
	}
	return Identity(ref), nil
}

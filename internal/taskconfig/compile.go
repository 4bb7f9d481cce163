package taskconfig

import (
	"fmt"

	"github.com/n0roo/aces/internal/predicate"
	"github.com/n0roo/aces/internal/timeref"
	"github.com/n0roo/aces/internal/windowtree"
	"github.com/n0roo/aces/internal/xerrors"
)

// TaskConfig is the immutable, compiled task configuration (§4.1). Once
// returned by Compile, none of its fields are mutated.
type TaskConfig struct {
	Predicates *predicate.Set
	Trigger    string
	Tree       *windowtree.Tree

	LabelWindow string // empty if no window carries `label`
	IndexWindow string // empty if no window carries `index_timestamp`
}

// Compile validates and assembles a rawDocument into a TaskConfig,
// enforcing every contract named in §4.1.
func Compile(doc rawDocument) (*TaskConfig, error) {
	if len(doc.Predicates) == 0 {
		return nil, xerrors.NewConfigError("predicates", fmt.Errorf("at least one predicate must be defined"))
	}
	if doc.Trigger == "" {
		return nil, xerrors.NewConfigError("trigger", fmt.Errorf("trigger predicate is required"))
	}
	if len(doc.Windows) == 0 {
		return nil, xerrors.NewConfigError("windows", fmt.Errorf("at least one window must be defined"))
	}

	plainDefs, derivedDefs, err := compilePredicateDefs(doc.Predicates)
	if err != nil {
		return nil, err
	}
	staticDefs, _, err := compilePredicateDefs(doc.PatientDemographics)
	if err != nil {
		return nil, err
	}
	for i := range staticDefs {
		staticDefs[i].Static = true
	}
	plainDefs = append(plainDefs, staticDefs...)

	predicates, err := predicate.NewSet(plainDefs, derivedDefs)
	if err != nil {
		return nil, xerrors.NewConfigError("predicates", err)
	}

	if !predicates.Has(doc.Trigger) {
		return nil, xerrors.NewConfigError("trigger", fmt.Errorf("trigger predicate %q is not defined", doc.Trigger))
	}

	specs := make([]windowtree.WindowSpec, 0, len(doc.Windows))
	var labelWindow, indexWindow string
	for name, rw := range doc.Windows {
		spec, err := compileWindow(name, rw, predicates)
		if err != nil {
			return nil, err
		}
		if spec.Label != "" {
			if labelWindow != "" {
				return nil, xerrors.NewConfigError("windows", fmt.Errorf(
					"at most one window may carry label, found %q and %q", labelWindow, name))
			}
			labelWindow = name
		}
		if spec.IndexTimestamp != "" {
			if indexWindow != "" {
				return nil, xerrors.NewConfigError("windows", fmt.Errorf(
					"at most one window may carry index_timestamp, found %q and %q", indexWindow, name))
			}
			indexWindow = name
		}
		specs = append(specs, spec)
	}

	tree, err := windowtree.Build(specs)
	if err != nil {
		return nil, err
	}

	return &TaskConfig{
		Predicates:  predicates,
		Trigger:     doc.Trigger,
		Tree:        tree,
		LabelWindow: labelWindow,
		IndexWindow: indexWindow,
	}, nil
}

func compilePredicateDefs(raw map[string]rawPredicate) ([]predicate.Plain, []predicate.Derived, error) {
	var plain []predicate.Plain
	var derived []predicate.Derived
	for name, rp := range raw {
		if rp.Expr != "" {
			if rp.Code != nil {
				return nil, nil, xerrors.NewConfigError("predicates."+name, fmt.Errorf("a predicate must set either code or expr, not both"))
			}
			op, operands, err := parseDerivedExpr(rp.Expr)
			if err != nil {
				return nil, nil, xerrors.NewConfigError("predicates."+name, err)
			}
			derived = append(derived, predicate.Derived{Name: name, Op: op, Operands: operands})
			continue
		}
		code, err := parseCode(rp.Code)
		if err != nil {
			return nil, nil, xerrors.NewConfigError("predicates."+name, err)
		}
		p := predicate.Plain{
			Name:              name,
			Code:              code,
			ValueMin:          rp.ValueMin,
			ValueMax:          rp.ValueMax,
			ValueMinInclusive: boolOr(rp.ValueMinInclusive, true),
			ValueMaxInclusive: boolOr(rp.ValueMaxInclusive, true),
			OtherCols:         rp.OtherCols,
		}
		plain = append(plain, p)
	}
	return plain, derived, nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func parseCode(raw any) (predicate.Code, error) {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return predicate.Code{}, fmt.Errorf("code must not be empty")
		}
		return predicate.Code{Literal: v}, nil
	case map[string]any:
		if anyVal, ok := v["any"]; ok {
			codes, err := stringSlice(anyVal)
			if err != nil {
				return predicate.Code{}, fmt.Errorf("code.any: %w", err)
			}
			if len(codes) == 0 {
				return predicate.Code{}, fmt.Errorf("code.any must not be empty")
			}
			return predicate.Code{Any: codes}, nil
		}
		if regexVal, ok := v["regex"]; ok {
			s, ok := regexVal.(string)
			if !ok || s == "" {
				return predicate.Code{}, fmt.Errorf("code.regex must be a non-empty string")
			}
			return predicate.Code{Regex: s}, nil
		}
		return predicate.Code{}, fmt.Errorf("code mapping must have \"any\" or \"regex\"")
	default:
		return predicate.Code{}, fmt.Errorf("code must be a string or mapping, got %T", raw)
	}
}

func stringSlice(raw any) ([]string, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list")
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string at index %d", i)
		}
		out[i] = s
	}
	return out, nil
}

// parseDerivedExpr parses `and(p1,p2,...)` or `or(p1,p2,...)` (§3).
func parseDerivedExpr(expr string) (predicate.DerivedOp, []string, error) {
	var op predicate.DerivedOp
	var rest string
	switch {
	case len(expr) > 4 && expr[:4] == "and(" && expr[len(expr)-1] == ')':
		op = predicate.OpAnd
		rest = expr[4 : len(expr)-1]
	case len(expr) > 3 && expr[:3] == "or(" && expr[len(expr)-1] == ')':
		op = predicate.OpOr
		rest = expr[3 : len(expr)-1]
	default:
		return 0, nil, fmt.Errorf("derived expr %q must be of the form and(p,q,...) or or(p,q,...)", expr)
	}
	operands := splitTrim(rest, ',')
	if len(operands) == 0 {
		return 0, nil, fmt.Errorf("derived expr %q has no operands", expr)
	}
	for _, o := range operands {
		if o == "" {
			return 0, nil, fmt.Errorf("derived expr %q has an empty operand", expr)
		}
	}
	return op, operands, nil
}

func splitTrim(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == sep {
			part := trimSpace(s[start:i])
			if part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}

func trimSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}

func compileWindow(name string, rw rawWindow, predicates *predicate.Set) (windowtree.WindowSpec, error) {
	if name == "" {
		return windowtree.WindowSpec{}, xerrors.NewConfigError("windows", fmt.Errorf("window name must not be empty"))
	}

	startExpr, err := timeref.ParseEndpointExpr(rw.Start, timeref.SideStart)
	if err != nil {
		return windowtree.WindowSpec{}, xerrors.NewConfigError("windows."+name+".start", err)
	}
	endExpr, err := timeref.ParseEndpointExpr(rw.End, timeref.SideEnd)
	if err != nil {
		return windowtree.WindowSpec{}, xerrors.NewConfigError("windows."+name+".end", err)
	}
	if startExpr.Kind == timeref.ExprNull && endExpr.Kind == timeref.ExprNull {
		return windowtree.WindowSpec{}, xerrors.NewConfigError("windows."+name, fmt.Errorf("start and end must not both be NULL"))
	}

	if p := startExpr.Predicate; p != "" && !predicates.Has(p) {
		return windowtree.WindowSpec{}, xerrors.NewConfigError("windows."+name+".start", fmt.Errorf("undefined predicate %q", p))
	}
	if p := endExpr.Predicate; p != "" && !predicates.Has(p) {
		return windowtree.WindowSpec{}, xerrors.NewConfigError("windows."+name+".end", fmt.Errorf("undefined predicate %q", p))
	}

	has := make(map[string]windowtree.HasConstraint, len(rw.Has))
	for pred, raw := range rw.Has {
		if !predicates.Has(pred) {
			return windowtree.WindowSpec{}, xerrors.NewConfigError("windows."+name+".has", fmt.Errorf("undefined predicate %q", pred))
		}
		c, err := parseHasConstraint(raw)
		if err != nil {
			return windowtree.WindowSpec{}, xerrors.NewConfigError("windows."+name+".has."+pred, err)
		}
		has[pred] = c
	}

	if rw.Label != "" && !predicates.Has(rw.Label) {
		return windowtree.WindowSpec{}, xerrors.NewConfigError("windows."+name+".label", fmt.Errorf("undefined predicate %q", rw.Label))
	}
	switch rw.IndexTimestamp {
	case "", "start", "end":
	default:
		return windowtree.WindowSpec{}, xerrors.NewConfigError("windows."+name+".index_timestamp", fmt.Errorf("must be \"start\" or \"end\", got %q", rw.IndexTimestamp))
	}

	return windowtree.WindowSpec{
		Name:           name,
		StartExpr:      startExpr,
		EndExpr:        endExpr,
		StartInclusive: boolOr(rw.StartInclusive, true),
		EndInclusive:   boolOr(rw.EndInclusive, true),
		Has:            has,
		Label:          rw.Label,
		IndexTimestamp: rw.IndexTimestamp,
	}, nil
}

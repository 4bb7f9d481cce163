// Package taskconfig parses and compiles the YAML task configuration
// language of §6 into an immutable TaskConfig, resolving every window's
// start/end to an endpoint expression and building the window tree.
//
// The raw document shape below mirrors the teacher's
// internal/config/project.go ProjectConfig: a plain struct tree with
// `yaml:"..."` tags, loaded with gopkg.in/yaml.v3 and then walked by hand
// to build the validated domain types — rather than trying to get
// yaml.v3 to unmarshal directly into the tagged-variant EndpointExpr.
package taskconfig

// rawDocument is the root of the YAML configuration document (§6).
type rawDocument struct {
	Predicates          map[string]rawPredicate `yaml:"predicates"`
	PatientDemographics map[string]rawPredicate `yaml:"patient_demographics"`
	Trigger             string                  `yaml:"trigger"`
	Windows             map[string]rawWindow    `yaml:"windows"`
}

// rawPredicate is one entry under `predicates:` or
// `patient_demographics:`. Exactly one of Code (plain) or Expr (derived)
// must be set.
type rawPredicate struct {
	Code              any            `yaml:"code"`
	Expr              string         `yaml:"expr"`
	ValueMin          *float64       `yaml:"value_min"`
	ValueMax          *float64       `yaml:"value_max"`
	ValueMinInclusive *bool          `yaml:"value_min_inclusive"`
	ValueMaxInclusive *bool          `yaml:"value_max_inclusive"`
	OtherCols         map[string]any `yaml:"other_cols"`
}

// rawWindow is one entry under `windows:`.
type rawWindow struct {
	Start          string            `yaml:"start"`
	End            string            `yaml:"end"`
	StartInclusive *bool             `yaml:"start_inclusive"`
	EndInclusive   *bool             `yaml:"end_inclusive"`
	Has            map[string]string `yaml:"has"`
	Label          string            `yaml:"label"`
	IndexTimestamp string            `yaml:"index_timestamp"`
}

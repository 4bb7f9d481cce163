package taskconfig

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/n0roo/aces/internal/xerrors"
)

// Load reads and compiles a task configuration document from the YAML
// file at path, following the teacher's LoadProjectConfig pattern
// (internal/config/project.go): read the whole file, then decode it into
// the raw document shape.
func Load(path string) (*TaskConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.NewConfigError("path", fmt.Errorf("reading %s: %w", path, err))
	}
	return Parse(data)
}

// Parse compiles a task configuration document from raw YAML bytes. The
// decoder runs with KnownFields(true) so an unrecognized or misspelled key
// anywhere in the document is rejected per §4.1's Contract ("Reject:
// unknown fields"), rather than silently ignored the way the package-level
// yaml.Unmarshal behaves.
func Parse(data []byte) (*TaskConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc rawDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, xerrors.NewConfigError("yaml", fmt.Errorf("parsing configuration: %w", err))
	}
	return Compile(doc)
}

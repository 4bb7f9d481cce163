package xerrors

import (
	"errors"
	"testing"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"config", NewConfigError("trigger", errors.New("missing")), 2},
		{"schema", NewSchemaError("timestamp", errors.New("not unique")), 3},
		{"runtime", NewRuntimeError("gap", 12, errors.New("boom")), 1},
		{"wrapped config", fmtWrap(NewConfigError("x", errors.New("y"))), 2},
	}
	for _, c := range cases {
		if got := ExitCode(c.err); got != c.want {
			t.Errorf("%s: ExitCode() = %d, want %d", c.name, got, c.want)
		}
	}
}

func fmtWrap(err error) error {
	return &wrapper{err}
}

type wrapper struct{ err error }

func (w *wrapper) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapper) Unwrap() error { return w.err }

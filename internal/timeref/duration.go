// Package timeref implements the duration and boundary-reference model used
// to express window endpoints relative to the trigger or to other windows.
package timeref

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Duration is a signed offset at microsecond resolution. Unlike time.Duration
// (nanoseconds, int64), predicate timestamps and offsets in the task
// configuration language are specified in whole microseconds, matching the
// resolution of the predicates table (§3).
type Duration int64

const (
	Microsecond Duration = 1
	Second               = 1_000_000 * Microsecond
	Minute               = 60 * Second
	Hour                 = 60 * Minute
	Day                  = 24 * Hour
)

// IsZero reports whether the duration is exactly zero.
func (d Duration) IsZero() bool { return d == 0 }

// Abs returns the absolute value of d.
func (d Duration) Abs() Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Min returns the smaller of two durations.
func Min(a, b Duration) Duration {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of two durations.
func Max(a, b Duration) Duration {
	if a > b {
		return a
	}
	return b
}

func (d Duration) String() string {
	if d == 0 {
		return "0s"
	}
	sign := ""
	v := d
	if v < 0 {
		sign = "-"
		v = -v
	}
	days := v / Day
	v -= days * Day
	hours := v / Hour
	v -= hours * Hour
	mins := v / Minute
	v -= mins * Minute
	secs := v / Second
	v -= secs * Second

	var b strings.Builder
	b.WriteString(sign)
	if days > 0 {
		fmt.Fprintf(&b, "%dd", days)
	}
	if hours > 0 {
		fmt.Fprintf(&b, "%dh", hours)
	}
	if mins > 0 {
		fmt.Fprintf(&b, "%dm", mins)
	}
	if secs > 0 || v > 0 || b.Len() == len(sign) {
		fmt.Fprintf(&b, "%ds", secs)
	}
	return b.String()
}

// termPattern matches one signed-number-unit term, e.g. "+12h", "-365days",
// "60s". Terms may be concatenated with optional separating whitespace to
// build up a combined duration, e.g. "1d 12h".
var termPattern = regexp.MustCompile(`(?i)^\s*([+-]?\d+)\s*(days?|d|hours?|h|minutes?|min|m|seconds?|s)\s*`)

// ParseDuration parses a task-configuration duration string of the form
// `[+|-] <integer> (d|days|h|hours|m|min|minutes|s|seconds)`, optionally
// repeated to combine multiple units (e.g. "1d 2h"). It is the Go
// counterpart of the original implementation's pytimeparse-based duration
// strings (see original_source/src/aces/utils.py:parse_timedelta).
func ParseDuration(s string) (Duration, error) {
	rest := s
	var total Duration
	matched := false

	for {
		m := termPattern.FindStringSubmatchIndex(rest)
		if m == nil {
			break
		}
		numStr := rest[m[2]:m[3]]
		unit := strings.ToLower(rest[m[4]:m[5]])

		n, err := strconv.ParseInt(numStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("timeref: invalid duration %q: %w", s, err)
		}

		var unitSize Duration
		switch unit {
		case "d", "day", "days":
			unitSize = Day
		case "h", "hour", "hours":
			unitSize = Hour
		case "m", "min", "minute", "minutes":
			unitSize = Minute
		case "s", "second", "seconds":
			unitSize = Second
		default:
			return 0, fmt.Errorf("timeref: unknown duration unit %q in %q", unit, s)
		}

		total += Duration(n) * unitSize
		matched = true
		rest = rest[m[1]:]
	}

	if !matched || strings.TrimSpace(rest) != "" {
		return 0, fmt.Errorf("timeref: could not fully parse duration %q", s)
	}

	return total, nil
}

// ParseFiniteNonzeroDuration parses s as a duration and rejects the zero
// duration, as required for OFFSET endpoint expressions (§4.1: "the
// configurable duration must be finite and nonzero for OFFSET").
func ParseFiniteNonzeroDuration(s string) (Duration, error) {
	d, err := ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d.IsZero() {
		return 0, fmt.Errorf("timeref: offset duration %q must be nonzero", s)
	}
	return d, nil
}

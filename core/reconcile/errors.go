package reconcile

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrConfiguration marks fatal setup problems: a missing directory, file or table,
	// or a violated run precondition. Never batched, never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrDataQuality marks structural problems in the input files. All violations of a
	// batch are reported together, before any mutation.
	ErrDataQuality = errors.New("data quality error")
)

// ConfigurationError names the path, table or identifier a run could not proceed without.
type ConfigurationError struct {
	// Subject is the missing or offending path, table or identifier.
	Subject string
	// Message describes what is wrong with it.
	Message string
}

// NewConfigurationError builds a ConfigurationError with a formatted message.
func NewConfigurationError(subject, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Subject: subject, Message: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Subject, e.Message)
}

// Is makes errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Violation is one broken rule at one place in one input file.
type Violation struct {
	File string `json:"file"`
	// Line is the 1-based line in File; 0 when the rule concerns the whole file.
	Line int    `json:"line"`
	Rule string `json:"rule"`
}

// DataQualityError aggregates every violation found in one table family's batch.
type DataQualityError struct {
	Table      string
	Violations []Violation
}

func (e *DataQualityError) Error() string {
	byFile := make(map[string][]Violation)
	for _, v := range e.Violations {
		byFile[v.File] = append(byFile[v.File], v)
	}
	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	var b strings.Builder
	fmt.Fprintf(&b, "data quality error: %d violation(s) in %d %s file(s)", len(e.Violations), len(files), e.Table)
	for _, f := range files {
		fmt.Fprintf(&b, "\n  %s:", f)
		for _, v := range byFile[f] {
			if v.Line > 0 {
				fmt.Fprintf(&b, "\n    line %d: %s", v.Line, v.Rule)
			} else {
				fmt.Fprintf(&b, "\n    %s", v.Rule)
			}
		}
	}
	return b.String()
}

// Is makes errors.Is(err, ErrDataQuality) match.
func (e *DataQualityError) Is(target error) bool {
	return target == ErrDataQuality
}

// Files returns the distinct files named by the violations, sorted.
func (e *DataQualityError) Files() []string {
	seen := make(Set)
	for _, v := range e.Violations {
		seen.Add(v.File)
	}
	return seen.Sorted()
}

// Violations collects rule violations for one table family.
type Violations struct {
	table string
	list  []Violation
}

// NewViolations starts an empty collection for the named table.
func NewViolations(table string) *Violations {
	return &Violations{table: table}
}

// Addf records a violation.
func (v *Violations) Addf(file string, line int, format string, args ...any) {
	v.list = append(v.list, Violation{File: file, Line: line, Rule: fmt.Sprintf(format, args...)})
}

// Len returns the number of violations recorded so far.
func (v *Violations) Len() int {
	return len(v.list)
}

// Err returns a *DataQualityError holding every violation, or nil when there are none.
func (v *Violations) Err() error {
	if len(v.list) == 0 {
		return nil
	}
	return &DataQualityError{Table: v.table, Violations: v.list}
}

// Location is a file and line where a key was seen.
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// DuplicateTracker detects keys repeated within or across the files of one batch.
type DuplicateTracker struct {
	label string
	seen  map[string][]Location
	order []string
}

// NewDuplicateTracker tracks keys of the named column (used in violation messages).
func NewDuplicateTracker(label string) *DuplicateTracker {
	return &DuplicateTracker{label: label, seen: make(map[string][]Location)}
}

// See records an occurrence of key.
func (d *DuplicateTracker) See(key, file string, line int) {
	if _, ok := d.seen[key]; !ok {
		d.order = append(d.order, key)
	}
	d.seen[key] = append(d.seen[key], Location{File: file, Line: line})
}

// Report adds one violation per occurrence of every repeated key, so each involved
// file is named.
func (d *DuplicateTracker) Report(v *Violations) {
	for _, key := range d.order {
		locs := d.seen[key]
		if len(locs) < 2 {
			continue
		}
		where := make([]string, len(locs))
		for i, l := range locs {
			where[i] = l.String()
		}
		for _, l := range locs {
			v.Addf(l.File, l.Line, "%s %q is duplicated across one or multiple files (%s)",
				d.label, key, strings.Join(where, ", "))
		}
	}
}

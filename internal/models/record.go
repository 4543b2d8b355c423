package models

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"time"
)

// StepStatus is the outcome of a single scenario step.
type StepStatus string

const (
	StepPassed  StepStatus = "passed"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// Valid reports whether s is one of the known step statuses.
func (s StepStatus) Valid() bool {
	switch s {
	case StepPassed, StepFailed, StepSkipped:
		return true
	}
	return false
}

// StepRecord is one executed step of a scenario.
type StepRecord struct {
	Name    string        `json:"name" yaml:"name" mapstructure:"name"`
	Status  StepStatus    `json:"status" yaml:"status" mapstructure:"status"`
	Elapsed time.Duration `json:"elapsed,omitempty" yaml:"elapsed,omitempty" mapstructure:"elapsed"`
}

// Exception describes the error that terminated the scenario.
type Exception struct {
	Type      string `json:"type" yaml:"type" mapstructure:"type"`
	Message   string `json:"message" yaml:"message" mapstructure:"message"`
	Traceback string `json:"traceback,omitempty" yaml:"traceback,omitempty" mapstructure:"traceback"`
}

// Assertion holds the operands of a failed comparison, when the host
// runner captured them.
type Assertion struct {
	Left     string `json:"left" yaml:"left" mapstructure:"left"`
	Operator string `json:"operator,omitempty" yaml:"operator,omitempty" mapstructure:"operator"`
	Right    string `json:"right,omitempty" yaml:"right,omitempty" mapstructure:"right"`
}

// Diff is an expected-versus-actual comparison. Text, when set, is a
// preformatted diff and wins over Expected/Actual.
type Diff struct {
	Expected string `json:"expected,omitempty" yaml:"expected,omitempty" mapstructure:"expected"`
	Actual   string `json:"actual,omitempty" yaml:"actual,omitempty" mapstructure:"actual"`
	Text     string `json:"text,omitempty" yaml:"text,omitempty" mapstructure:"text"`
}

// Empty reports whether the diff carries nothing to show.
func (d *Diff) Empty() bool {
	return d == nil || (d.Text == "" && d.Expected == "" && d.Actual == "")
}

// Source is the scenario's source code, starting at StartLine.
type Source struct {
	Code      string `json:"code" yaml:"code" mapstructure:"code"`
	StartLine int    `json:"start_line,omitempty" yaml:"start_line,omitempty" mapstructure:"start_line"`
}

// Variable is a named value captured from the scenario scope.
type Variable struct {
	Name  string `json:"name" yaml:"name" mapstructure:"name"`
	Value string `json:"value" yaml:"value" mapstructure:"value"`
}

// FailureRecord is everything the host runner knows about one failed
// scenario. Records are values: the plugin clones them on entry and never
// mutates them afterwards.
type FailureRecord struct {
	Scenario  string            `json:"scenario" yaml:"scenario" mapstructure:"scenario"`
	Location  string            `json:"location,omitempty" yaml:"location,omitempty" mapstructure:"location"`
	Steps     []StepRecord      `json:"steps,omitempty" yaml:"steps,omitempty" mapstructure:"steps"`
	Exception Exception         `json:"exception" yaml:"exception" mapstructure:"exception"`
	Assertion *Assertion        `json:"assertion,omitempty" yaml:"assertion,omitempty" mapstructure:"assertion"`
	Diff      *Diff             `json:"diff,omitempty" yaml:"diff,omitempty" mapstructure:"diff"`
	Source    *Source           `json:"source,omitempty" yaml:"source,omitempty" mapstructure:"source"`
	Variables []Variable        `json:"variables,omitempty" yaml:"variables,omitempty" mapstructure:"variables"`
	Extra     map[string]string `json:"extra,omitempty" yaml:"extra,omitempty" mapstructure:"extra"`
}

// ErrMissingScenario and ErrMissingMessage are returned by Validate.
var (
	ErrMissingScenario = errors.New("failure record has no scenario identifier")
	ErrMissingMessage  = errors.New("failure record has no exception message")
)

// Validate checks the fields a prompt cannot be rendered without.
func (r *FailureRecord) Validate() error {
	var errs []error
	if strings.TrimSpace(r.Scenario) == "" {
		errs = append(errs, ErrMissingScenario)
	}
	if strings.TrimSpace(r.Exception.Message) == "" {
		errs = append(errs, ErrMissingMessage)
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy of r.
func (r *FailureRecord) Clone() FailureRecord {
	c := *r
	c.Steps = slices.Clone(r.Steps)
	c.Variables = slices.Clone(r.Variables)
	c.Extra = maps.Clone(r.Extra)
	if r.Assertion != nil {
		a := *r.Assertion
		c.Assertion = &a
	}
	if r.Diff != nil {
		d := *r.Diff
		c.Diff = &d
	}
	if r.Source != nil {
		s := *r.Source
		c.Source = &s
	}
	return c
}

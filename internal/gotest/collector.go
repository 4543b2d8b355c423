package gotest

import (
	"strings"
	"time"

	"github.com/spboyer/debugprompt/internal/models"
)

type testState struct {
	name     string
	status   string
	elapsed  time.Duration
	output   []string
	children []string
}

type packageState struct {
	name        string
	status      string
	elapsed     time.Duration
	output      []string
	tests       map[string]*testState
	passed      int
	failed      int
	skipped     int
	failedTests int
}

// TestResult is the outcome of one top-level test.
type TestResult struct {
	Package string
	Name    string
	Status  string
	Elapsed time.Duration
}

// Failure is a failed test, or a failed package when Test is empty, with
// the record rebuilt from its output.
type Failure struct {
	Package string
	Test    string
	Record  models.FailureRecord
}

// PackageResult summarizes one package of the run.
type PackageResult struct {
	Name    string
	Status  string
	Elapsed time.Duration
	Passed  int
	Failed  int
	Skipped int
}

// Collector rebuilds tests from a test2json event stream. It is not safe for
// concurrent use.
type Collector struct {
	packages map[string]*packageState
	order    []string
	tests    []TestResult
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{packages: map[string]*packageState{}}
}

// Add consumes one event and returns the failures it completes: one per
// failed top-level test, or one for a package that failed without any
// failing test, such as a build failure.
func (c *Collector) Add(ev Event) []Failure {
	pkg := c.pkg(ev.Package)

	if ev.Test == "" {
		switch ev.Action {
		case ActionOutput:
			pkg.output = append(pkg.output, strings.TrimRight(ev.Output, "\n"))
		case ActionPass, ActionFail, ActionSkip:
			pkg.status = ev.Action
			pkg.elapsed = ev.Duration()
			if ev.Action == ActionFail && pkg.failedTests == 0 {
				return []Failure{{Package: pkg.name, Record: packageFailure(pkg)}}
			}
		}
		return nil
	}

	t := pkg.test(ev.Test)
	switch ev.Action {
	case ActionOutput:
		t.output = append(t.output, strings.TrimRight(ev.Output, "\n"))
	case ActionPass, ActionFail, ActionSkip:
		t.status = ev.Action
		t.elapsed = ev.Duration()
		if !ev.IsTopLevel() {
			return nil
		}
		c.tests = append(c.tests, TestResult{Package: pkg.name, Name: t.name, Status: ev.Action, Elapsed: t.elapsed})
		switch ev.Action {
		case ActionPass:
			pkg.passed++
		case ActionSkip:
			pkg.skipped++
		case ActionFail:
			pkg.failed++
			pkg.failedTests++
			rec := testFailure(pkg, t)
			pkg.forget(t)
			return []Failure{{Package: pkg.name, Test: t.name, Record: rec}}
		}
		pkg.forget(t)
	}
	return nil
}

// Tests returns the finished top-level tests in completion order.
func (c *Collector) Tests() []TestResult {
	return c.tests
}

// Packages returns per-package results in first-seen order.
func (c *Collector) Packages() []PackageResult {
	out := make([]PackageResult, 0, len(c.order))
	for _, name := range c.order {
		p := c.packages[name]
		out = append(out, PackageResult{
			Name:    p.name,
			Status:  p.status,
			Elapsed: p.elapsed,
			Passed:  p.passed,
			Failed:  p.failed,
			Skipped: p.skipped,
		})
	}
	return out
}

func (c *Collector) pkg(name string) *packageState {
	p, ok := c.packages[name]
	if !ok {
		p = &packageState{name: name, tests: map[string]*testState{}}
		c.packages[name] = p
		c.order = append(c.order, name)
	}
	return p
}

func (p *packageState) test(name string) *testState {
	t, ok := p.tests[name]
	if !ok {
		t = &testState{name: name}
		p.tests[name] = t
		if parent := Parent(name); parent != "" {
			pt := p.test(parent)
			pt.children = append(pt.children, name)
		}
	}
	return t
}

// forget drops a finished top-level test and its subtests.
func (p *packageState) forget(t *testState) {
	for _, child := range t.children {
		if ct, ok := p.tests[child]; ok {
			p.forget(ct)
		}
	}
	delete(p.tests, t.name)
}

// leafSteps appends one step per innermost subtest below t, in start order.
// Nested subtests are named by their path below the top-level test, so
// TestX/group/bad becomes "group/bad".
func (p *packageState) leafSteps(t *testState, rootPrefix string, steps []models.StepRecord) []models.StepRecord {
	for _, child := range t.children {
		ct := p.tests[child]
		if ct == nil {
			continue
		}
		if len(ct.children) > 0 {
			steps = p.leafSteps(ct, rootPrefix, steps)
			continue
		}
		steps = append(steps, models.StepRecord{
			Name:    strings.TrimPrefix(child, rootPrefix),
			Status:  stepStatus(ct.status),
			Elapsed: ct.elapsed,
		})
	}
	return steps
}

// failedOutput gathers the log lines of t and of every failed descendant.
func (p *packageState) failedOutput(t *testState) []string {
	lines := append([]string(nil), t.output...)
	for _, child := range t.children {
		ct := p.tests[child]
		if ct == nil || ct.status == ActionPass || ct.status == ActionSkip {
			continue
		}
		lines = append(lines, p.failedOutput(ct)...)
	}
	return lines
}

func testFailure(pkg *packageState, t *testState) models.FailureRecord {
	f := parseFailure(pkg.failedOutput(t))

	steps := pkg.leafSteps(t, t.name+"/", nil)
	if len(steps) == 0 {
		steps = []models.StepRecord{{Name: t.name, Status: models.StepFailed, Elapsed: t.elapsed}}
	}

	return models.FailureRecord{
		Scenario:  scenarioName(pkg.name, t.name),
		Location:  f.Location,
		Steps:     steps,
		Exception: f.Exception,
		Diff:      f.Diff,
		Source:    loadSource(f.Location),
		Extra:     map[string]string{"Package": pkg.name},
	}
}

func packageFailure(pkg *packageState) models.FailureRecord {
	lines := dropFraming(pkg.output)
	msg := strings.TrimSpace(strings.Join(lines, "\n"))
	if msg == "" {
		msg = "package failed without running any test"
	}
	return models.FailureRecord{
		Scenario:  scenarioName(pkg.name, ""),
		Exception: models.Exception{Type: TypeBuildFailure, Message: msg},
		Extra:     map[string]string{"Package": pkg.name},
	}
}

func scenarioName(pkg, test string) string {
	switch {
	case pkg == "" && test == "":
		return "go test"
	case pkg == "":
		return test
	case test == "":
		return pkg
	}
	return pkg + "." + test
}

func stepStatus(action string) models.StepStatus {
	switch action {
	case ActionPass:
		return models.StepPassed
	case ActionSkip:
		return models.StepSkipped
	}
	return models.StepFailed
}

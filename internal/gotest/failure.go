package gotest

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/spboyer/debugprompt/internal/models"
)

// Exception types assigned to failures recovered from test output.
const (
	TypeAssertion    = "AssertionError"
	TypeTestFailure  = "TestFailure"
	TypePanic        = "panic"
	TypeBuildFailure = "BuildFailure"
)

// sourceRadius is how many lines around the failing line are quoted.
const sourceRadius = 5

var (
	// decode_test.go:42: expected 3, got 2
	logLineRe = regexp.MustCompile(`^\s*([\w.\-]+\.go):(\d+):(?: (.*))?$`)
	// /home/u/proj/codec/decode_test.go:42 +0x1d
	frameRe = regexp.MustCompile(`^\s+(\S+\.go):(\d+)(?: \+0x[0-9a-f]+)?$`)
)

var testifyLabels = []string{"Error Trace", "Error", "Test", "Messages"}

type failure struct {
	Exception models.Exception
	Location  string
	Diff      *models.Diff
}

// parseFailure recovers the exception, location and diff of a failed test
// from its log output.
func parseFailure(lines []string) failure {
	lines = dropFraming(lines)
	if f, ok := parsePanic(lines); ok {
		return f
	}
	if f, ok := parseTestify(lines); ok {
		return f
	}
	return parsePlain(lines)
}

func isFraming(line string) bool {
	s := strings.TrimSpace(line)
	for _, p := range []string{"=== RUN", "=== PAUSE", "=== CONT", "=== NAME", "--- FAIL:", "--- PASS:", "--- SKIP:", "exit status ", "coverage:"} {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return s == "FAIL" || s == "PASS" || strings.HasPrefix(s, "FAIL\t") || strings.HasPrefix(s, "ok  \t")
}

func dropFraming(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if !isFraming(l) {
			out = append(out, l)
		}
	}
	return out
}

func parsePanic(lines []string) (failure, bool) {
	start := -1
	for i, l := range lines {
		if strings.HasPrefix(l, "panic: ") {
			start = i
			break
		}
	}
	if start < 0 {
		return failure{}, false
	}

	msg := strings.TrimPrefix(lines[start], "panic: ")
	if i := strings.Index(msg, " [recovered"); i >= 0 {
		msg = msg[:i]
	}

	trace := lines[start+1:]
	for i, l := range trace {
		if strings.HasPrefix(l, "goroutine ") {
			trace = trace[i:]
			break
		}
	}

	return failure{
		Exception: models.Exception{
			Type:      TypePanic,
			Message:   msg,
			Traceback: strings.TrimSpace(strings.Join(trace, "\n")),
		},
		Location: panicLocation(trace),
	}, true
}

// panicLocation picks the first test file frame, falling back to the first
// frame outside the runtime and testing packages.
func panicLocation(trace []string) string {
	var fallback string
	for _, l := range trace {
		m := frameRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		loc := m[1] + ":" + m[2]
		if strings.HasSuffix(m[1], "_test.go") {
			return loc
		}
		if fallback == "" && !strings.Contains(m[1], "/src/runtime/") && !strings.Contains(m[1], "/src/testing/") {
			fallback = loc
		}
	}
	return fallback
}

// testifyField strips the indentation testify puts in front of a block
// line. ok is false when the line is not part of a block.
func testifyField(line string) (string, bool) {
	s := strings.TrimLeft(line, " ")
	if !strings.HasPrefix(s, "\t") {
		return "", false
	}
	s = strings.TrimPrefix(s, "\t")
	s = strings.TrimLeft(s, " ")
	s = strings.TrimPrefix(s, "\t")
	return s, true
}

func parseTestify(lines []string) (failure, bool) {
	start := -1
	for i, l := range lines {
		if s, ok := testifyField(l); ok && strings.HasPrefix(s, "Error Trace:") {
			start = i
			break
		}
	}
	if start < 0 {
		return failure{}, false
	}

	fields := map[string][]string{}
	current := ""
	for _, l := range lines[start:] {
		s, ok := testifyField(l)
		if !ok {
			break
		}
		if label, value, isLabel := splitLabel(s); isLabel {
			current = label
			fields[current] = append(fields[current], value)
			continue
		}
		if current != "" {
			fields[current] = append(fields[current], s)
		}
	}

	var f failure
	f.Exception.Type = TypeAssertion

	var trace []string
	for _, t := range fields["Error Trace"] {
		if t = strings.TrimSpace(t); t != "" {
			trace = append(trace, t)
		}
	}
	f.Exception.Traceback = strings.Join(trace, "\n")
	if len(trace) > 0 {
		f.Location = trace[0]
	} else if start > 0 {
		if m := logLineRe.FindStringSubmatch(lines[start-1]); m != nil {
			f.Location = m[1] + ":" + m[2]
		}
	}

	var head, diff []string
	var expected, actual string
	inDiff := false
	for _, l := range fields["Error"] {
		switch {
		case inDiff:
			diff = append(diff, l)
		case strings.TrimSpace(l) == "Diff:":
			inDiff = true
		default:
			head = append(head, l)
			if v, ok := strings.CutPrefix(l, "expected:"); ok {
				expected = strings.TrimSpace(v)
			} else if v, ok := strings.CutPrefix(l, "actual  :"); ok {
				actual = strings.TrimSpace(v)
			}
		}
	}

	msg := strings.TrimSpace(strings.Join(head, "\n"))
	if m := strings.TrimSpace(strings.Join(fields["Messages"], "\n")); m != "" {
		msg += "\nMessages: " + m
	}
	if msg == "" {
		msg = "assertion failed"
	}
	f.Exception.Message = msg

	text := strings.TrimSpace(strings.Join(diff, "\n"))
	if text != "" || expected != "" || actual != "" {
		f.Diff = &models.Diff{Expected: expected, Actual: actual, Text: text}
	}
	return f, true
}

func splitLabel(s string) (label, value string, ok bool) {
	for _, l := range testifyLabels {
		if v, found := strings.CutPrefix(s, l+":"); found {
			return l, strings.TrimSpace(v), true
		}
	}
	return "", "", false
}

func parsePlain(lines []string) failure {
	f := failure{Exception: models.Exception{Type: TypeTestFailure}}

	var msg []string
	for i, l := range lines {
		m := logLineRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		f.Location = m[1] + ":" + m[2]
		msg = append(msg, m[3])
		for _, cont := range lines[i+1:] {
			if logLineRe.MatchString(cont) || !strings.HasPrefix(cont, "        ") {
				break
			}
			msg = append(msg, strings.TrimPrefix(cont, "        "))
		}
		break
	}

	all := strings.TrimSpace(strings.Join(lines, "\n"))
	f.Exception.Message = strings.TrimSpace(strings.Join(msg, "\n"))
	if f.Exception.Message == "" {
		f.Exception.Message = all
	}
	if f.Exception.Message == "" {
		f.Exception.Message = "test failed without output"
	}
	if all != f.Exception.Message {
		f.Exception.Traceback = all
	}
	return f
}

// loadSource quotes the lines around an absolute file:line location. It
// returns nil when the file cannot be read.
func loadSource(location string) *models.Source {
	i := strings.LastIndex(location, ":")
	if i < 0 {
		return nil
	}
	path := location[:i]
	line, err := strconv.Atoi(location[i+1:])
	if err != nil || line < 1 || !filepath.IsAbs(path) {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	all := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if line > len(all) {
		return nil
	}
	from := max(1, line-sourceRadius)
	to := min(len(all), line+sourceRadius)
	return &models.Source{
		Code:      strings.Join(all[from-1:to], "\n"),
		StartLine: from,
	}
}

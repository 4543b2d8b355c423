package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spboyer/debugprompt/internal/gotest"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one Go package.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one top-level test.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a test assertion failure.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError represents a package that failed outside any test, such as a
// build failure.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a test as skipped.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// packageCase names the test case that stands for a package-level failure.
const packageCase = "(package)"

// ConvertToJUnit converts a test run summary to JUnit XML, one suite per
// package. Details attached to failures, such as prompt paths, become the
// failure body.
func ConvertToJUnit(sum *gotest.Summary, ts time.Time) *JUnitTestSuites {
	failures := make(map[string]gotest.FailureResult, len(sum.Failures))
	for _, f := range sum.Failures {
		failures[f.Package+"\x00"+f.Test] = f
	}

	out := &JUnitTestSuites{}
	for _, pkg := range sum.Packages {
		suite := JUnitTestSuite{
			Name:      pkg.Name,
			Time:      pkg.Elapsed.Seconds(),
			Timestamp: ts.Format(time.RFC3339),
			Properties: []JUnitProperty{
				{Name: "status", Value: pkg.Status},
			},
		}

		for _, tr := range sum.Tests {
			if tr.Package != pkg.Name {
				continue
			}
			tc := JUnitTestCase{
				Name:      tr.Name,
				Classname: pkg.Name,
				Time:      tr.Elapsed.Seconds(),
			}
			switch tr.Status {
			case gotest.ActionFail:
				f, ok := failures[pkg.Name+"\x00"+tr.Name]
				if !ok {
					f = gotest.FailureResult{Type: gotest.TypeTestFailure, Message: "test failed"}
				}
				tc.Failure = &JUnitFailure{Message: f.Message, Type: f.Type, Body: failureBody(f)}
				suite.Failures++
			case gotest.ActionSkip:
				tc.Skipped = &JUnitSkipped{}
				suite.Skipped++
			}
			suite.TestCases = append(suite.TestCases, tc)
			suite.Tests++
		}

		if f, ok := failures[pkg.Name+"\x00"]; ok {
			suite.TestCases = append(suite.TestCases, JUnitTestCase{
				Name:      packageCase,
				Classname: pkg.Name,
				Error:     &JUnitError{Message: f.Message, Type: f.Type, Body: failureBody(f)},
			})
			suite.Tests++
			suite.Errors++
		}

		out.Tests += suite.Tests
		out.Failures += suite.Failures
		out.Errors += suite.Errors
		out.Time += suite.Time
		out.TestSuites = append(out.TestSuites, suite)
	}
	return out
}

func failureBody(f gotest.FailureResult) string {
	if len(f.Details) == 0 {
		return ""
	}
	return strings.Join(f.Details, "\n") + "\n"
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(sum *gotest.Summary, ts time.Time, path string) error {
	suites := ConvertToJUnit(sum, ts)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	if err := os.WriteFile(path, output, 0644); err != nil {
		return fmt.Errorf("writing JUnit XML: %w", err)
	}
	return nil
}

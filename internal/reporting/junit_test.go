package reporting

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spboyer/debugprompt/internal/gotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stamp = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestSummary() *gotest.Summary {
	return &gotest.Summary{
		Packages: []gotest.PackageResult{
			{Name: "example.com/codec", Status: gotest.ActionFail, Elapsed: 1500 * time.Millisecond, Passed: 1, Failed: 1, Skipped: 1},
			{Name: "example.com/broken", Status: gotest.ActionFail},
		},
		Tests: []gotest.TestResult{
			{Package: "example.com/codec", Name: "TestEncode", Status: gotest.ActionPass, Elapsed: time.Second},
			{Package: "example.com/codec", Name: "TestDecode", Status: gotest.ActionFail, Elapsed: 250 * time.Millisecond},
			{Package: "example.com/codec", Name: "TestLegacy", Status: gotest.ActionSkip},
		},
		Failures: []gotest.FailureResult{
			{
				Scenario: "example.com/codec.TestDecode",
				Package:  "example.com/codec",
				Test:     "TestDecode",
				Type:     gotest.TypeAssertion,
				Message:  "Not equal",
				Details:  []string{"AI Debug Prompt: prompts/prompt_0123456789abcdef0123456789abcdef.md"},
			},
			{
				Scenario: "example.com/broken",
				Package:  "example.com/broken",
				Type:     gotest.TypeBuildFailure,
				Message:  "undefined: frob",
			},
		},
	}
}

func TestConvertToJUnit_Structure(t *testing.T) {
	suites := ConvertToJUnit(newTestSummary(), stamp)

	assert.Equal(t, 4, suites.Tests)
	assert.Equal(t, 1, suites.Failures)
	assert.Equal(t, 1, suites.Errors)
	assert.InDelta(t, 1.5, suites.Time, 0.01)

	require.Len(t, suites.TestSuites, 2)
	suite := suites.TestSuites[0]

	assert.Equal(t, "example.com/codec", suite.Name)
	assert.Equal(t, 3, suite.Tests)
	assert.Equal(t, 1, suite.Failures)
	assert.Equal(t, 1, suite.Skipped)
	assert.Equal(t, "2026-06-15T12:00:00Z", suite.Timestamp)
	require.Len(t, suite.TestCases, 3)
	assert.Equal(t, []JUnitProperty{{Name: "status", Value: "fail"}}, suite.Properties)
}

func TestConvertToJUnit_PassedTestCase(t *testing.T) {
	tc := ConvertToJUnit(newTestSummary(), stamp).TestSuites[0].TestCases[0]

	assert.Equal(t, "TestEncode", tc.Name)
	assert.Equal(t, "example.com/codec", tc.Classname)
	assert.InDelta(t, 1.0, tc.Time, 0.01)
	assert.Nil(t, tc.Failure)
	assert.Nil(t, tc.Error)
	assert.Nil(t, tc.Skipped)
}

func TestConvertToJUnit_FailedTestCaseCarriesPromptPath(t *testing.T) {
	tc := ConvertToJUnit(newTestSummary(), stamp).TestSuites[0].TestCases[1]

	assert.Equal(t, "TestDecode", tc.Name)
	require.NotNil(t, tc.Failure)
	assert.Equal(t, gotest.TypeAssertion, tc.Failure.Type)
	assert.Equal(t, "Not equal", tc.Failure.Message)
	assert.Contains(t, tc.Failure.Body, "AI Debug Prompt: prompts/prompt_")
}

func TestConvertToJUnit_SkippedTestCase(t *testing.T) {
	tc := ConvertToJUnit(newTestSummary(), stamp).TestSuites[0].TestCases[2]
	assert.NotNil(t, tc.Skipped)
	assert.Nil(t, tc.Failure)
}

func TestConvertToJUnit_PackageFailureIsError(t *testing.T) {
	suite := ConvertToJUnit(newTestSummary(), stamp).TestSuites[1]

	assert.Equal(t, "example.com/broken", suite.Name)
	assert.Equal(t, 1, suite.Tests)
	assert.Equal(t, 1, suite.Errors)
	require.Len(t, suite.TestCases, 1)

	tc := suite.TestCases[0]
	assert.Equal(t, packageCase, tc.Name)
	require.NotNil(t, tc.Error)
	assert.Equal(t, gotest.TypeBuildFailure, tc.Error.Type)
	assert.Equal(t, "undefined: frob", tc.Error.Message)
	assert.Empty(t, tc.Error.Body)
}

func TestConvertToJUnit_FailureWithoutRecord(t *testing.T) {
	sum := &gotest.Summary{
		Packages: []gotest.PackageResult{{Name: "p", Status: gotest.ActionFail}},
		Tests:    []gotest.TestResult{{Package: "p", Name: "TestX", Status: gotest.ActionFail}},
	}

	tc := ConvertToJUnit(sum, stamp).TestSuites[0].TestCases[0]
	require.NotNil(t, tc.Failure)
	assert.Equal(t, gotest.TypeTestFailure, tc.Failure.Type)
}

func TestConvertToJUnit_EmptySummary(t *testing.T) {
	suites := ConvertToJUnit(&gotest.Summary{}, stamp)
	assert.Equal(t, 0, suites.Tests)
	assert.Empty(t, suites.TestSuites)
}

func TestWriteJUnitXML_ValidXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xml")

	err := WriteJUnitXML(newTestSummary(), stamp, path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	assert.True(t, strings.HasPrefix(content, "<?xml"))
	assert.Contains(t, content, "AssertionError")
	assert.Contains(t, content, "prompt_0123456789abcdef0123456789abcdef.md")

	var parsed JUnitTestSuites
	err = xml.Unmarshal(data, &parsed)
	require.NoError(t, err)
	assert.Equal(t, 4, parsed.Tests)
	assert.Equal(t, 1, parsed.Failures)
	require.Len(t, parsed.TestSuites, 2)
	assert.Len(t, parsed.TestSuites[0].TestCases, 3)
}

func TestWriteJUnitXML_BadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "results.xml")
	err := WriteJUnitXML(newTestSummary(), stamp, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writing JUnit XML")
}

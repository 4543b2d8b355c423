package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestFailureError(t *testing.T) {
	err := &TestFailureError{
		Message: "2 test(s) failed",
	}

	assert.Equal(t, "2 test(s) failed", err.Error())
}

func TestErrorTypeDetection(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType string
	}{
		{
			name:     "TestFailureError",
			err:      &TestFailureError{Message: "test failure"},
			wantType: "TestFailureError",
		},
		{
			name:     "regular error",
			err:      errors.New("config error"),
			wantType: "other",
		},
		{
			name:     "wrapped TestFailureError",
			err:      errors.Join(&TestFailureError{Message: "test failure"}, errors.New("additional context")),
			wantType: "TestFailureError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var testFailureErr *TestFailureError
			isTestFailure := errors.As(tt.err, &testFailureErr)

			if tt.wantType == "TestFailureError" {
				assert.True(t, isTestFailure, "expected error to be detected as TestFailureError")
			} else {
				assert.False(t, isTestFailure, "expected error NOT to be detected as TestFailureError")
			}
		})
	}
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"gotest", "render", "inspect", "init", "config", "session"} {
		sub, _, err := root.Find([]string{name})
		if assert.NoError(t, err, name) {
			assert.Equal(t, name, sub.Name())
		}
	}
}

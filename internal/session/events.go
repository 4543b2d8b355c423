package session

import "time"

// EventType identifies the kind of session event.
type EventType string

const (
	EventRunStart      EventType = "run_start"
	EventRunComplete   EventType = "run_complete"
	EventPromptWritten EventType = "prompt_written"
	EventPromptFailed  EventType = "prompt_failed"
)

// Event is a single timestamped entry in a session log.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]any) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		Type:      t,
		Data:      data,
	}
}

// RunStartData returns event data for the start of a test run.
func RunStartData(source, outputDir string, workers int) map[string]any {
	return map[string]any{
		"source":     source,
		"output_dir": outputDir,
		"workers":    workers,
	}
}

// RunCompleteData returns event data for the end of a test run.
func RunCompleteData(packages, failed, prompts int, durationMs int64) map[string]any {
	return map[string]any{
		"packages":    packages,
		"failed":      failed,
		"prompts":     prompts,
		"duration_ms": durationMs,
	}
}

// PromptWrittenData returns event data for a prompt saved to disk.
func PromptWrittenData(scenario, path string, tokens int) map[string]any {
	return map[string]any{
		"scenario": scenario,
		"path":     path,
		"tokens":   tokens,
	}
}

// PromptFailedData returns event data for a failure that produced no prompt.
func PromptFailedData(scenario, reason string) map[string]any {
	return map[string]any{
		"scenario": scenario,
		"reason":   reason,
	}
}

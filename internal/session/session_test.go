package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewEvent(t *testing.T) {
	data := map[string]any{"key": "value"}
	ev := NewEvent(EventRunStart, data)

	if ev.Type != EventRunStart {
		t.Errorf("Type = %q, want %q", ev.Type, EventRunStart)
	}
	if ev.Data["key"] != "value" {
		t.Errorf("Data[key] = %v, want %q", ev.Data["key"], "value")
	}
	if ev.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
}

func TestEventJSON(t *testing.T) {
	ts := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	ev := Event{
		Timestamp: ts,
		Type:      EventPromptWritten,
		Data:      PromptWrittenData("pkg.TestDecode", "prompts/prompt_x.md", 120),
	}

	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Event
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Type != EventPromptWritten {
		t.Errorf("decoded.Type = %q, want %q", decoded.Type, EventPromptWritten)
	}
	if !decoded.Timestamp.Equal(ts) {
		t.Errorf("decoded.Timestamp = %v, want %v", decoded.Timestamp, ts)
	}
	if decoded.Data["path"] != "prompts/prompt_x.md" {
		t.Errorf("path = %v, want %q", decoded.Data["path"], "prompts/prompt_x.md")
	}
}

func TestRunStartData(t *testing.T) {
	d := RunStartData("stdin", ".debugprompt", 4)
	if d["output_dir"] != ".debugprompt" {
		t.Errorf("output_dir = %v", d["output_dir"])
	}
	if d["workers"] != 4 {
		t.Errorf("workers = %v", d["workers"])
	}
}

func TestPromptFailedData(t *testing.T) {
	d := PromptFailedData("pkg.TestDecode", "could not save prompt: permission denied")
	if d["scenario"] != "pkg.TestDecode" {
		t.Errorf("scenario = %v", d["scenario"])
	}
	if d["reason"] != "could not save prompt: permission denied" {
		t.Errorf("reason = %v", d["reason"])
	}
}

func TestJSONLogger(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test-session.jsonl")

	logger, err := NewJSONLogger(path)
	if err != nil {
		t.Fatalf("NewJSONLogger: %v", err)
	}

	events := []Event{
		NewEvent(EventRunStart, RunStartData("stdin", "prompts", 2)),
		NewEvent(EventPromptWritten, PromptWrittenData("pkg.TestA", "prompts/a.md", 10)),
		NewEvent(EventPromptFailed, PromptFailedData("pkg.TestB", "disk full")),
		NewEvent(EventRunComplete, RunCompleteData(1, 2, 1, 1000)),
	}

	for _, ev := range events {
		if err := logger.Log(ev); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Verify the file was written with one JSON object per line
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}

	// Parse first line
	var first Event
	if err := json.Unmarshal(lines[0], &first); err != nil {
		t.Fatalf("Unmarshal line 0: %v", err)
	}
	if first.Type != EventRunStart {
		t.Errorf("first event type = %q, want %q", first.Type, EventRunStart)
	}
}

func TestJSONLoggerCloseTwiceAndLogAfterClose(t *testing.T) {
	logger, err := NewJSONLogger(filepath.Join(t.TempDir(), "x.jsonl"))
	if err != nil {
		t.Fatalf("NewJSONLogger: %v", err)
	}
	if err := logger.Log(Event{Type: EventRunStart}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if logger.Count() != 1 {
		t.Errorf("Count() = %d, want 1", logger.Count())
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close should not error: %v", err)
	}
	if err := logger.Log(Event{Type: EventRunComplete}); !errors.Is(err, ErrClosed) {
		t.Errorf("Log after Close = %v, want ErrClosed", err)
	}

	events, err := ReadEvents(logger.Path())
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 1 || events[0].Timestamp.IsZero() {
		t.Errorf("events = %+v, want one event with a timestamp", events)
	}
}

func TestJSONLoggerPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "test.jsonl")

	logger, err := NewJSONLogger(path)
	if err != nil {
		t.Fatalf("NewJSONLogger with subdirectory: %v", err)
	}
	defer logger.Close() //nolint:errcheck

	if logger.Path() != path {
		t.Errorf("Path() = %q, want %q", logger.Path(), path)
	}
}

func TestNopLogger(t *testing.T) {
	var logger Logger = NopLogger{}
	if err := logger.Log(NewEvent(EventRunStart, nil)); err != nil {
		t.Errorf("NopLogger.Log should not error: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("NopLogger.Close should not error: %v", err)
	}
}

func TestDefaultLogPath(t *testing.T) {
	p := DefaultLogPath("/tmp/sessions")
	if filepath.Dir(p) != "/tmp/sessions" {
		t.Errorf("dir = %q, want /tmp/sessions", filepath.Dir(p))
	}
	if ext := filepath.Ext(p); ext != ".jsonl" {
		t.Errorf("ext = %q, want .jsonl", ext)
	}
}

func TestListSessions(t *testing.T) {
	dir := t.TempDir()

	// Create some session files
	for _, name := range []string{
		"20260115T100000Z-session.jsonl",
		"20260116T100000Z-session.jsonl",
		"not-a-session.txt",
	} {
		os.WriteFile(filepath.Join(dir, name), []byte("{}\n"), 0644) //nolint:errcheck
	}

	files, err := ListSessions(dir)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	if files[0].Name != "20260116T100000Z-session.jsonl" {
		t.Errorf("files[0] = %q, want the newest log first", files[0].Name)
	}
}

func TestListSessionsTallies(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewJSONLogger(DefaultLogPath(dir))
	if err != nil {
		t.Fatalf("NewJSONLogger: %v", err)
	}
	logger.Log(NewEvent(EventRunStart, nil))                                      //nolint:errcheck
	logger.Log(NewEvent(EventPromptWritten, PromptWrittenData("a", "p/a.md", 1))) //nolint:errcheck
	logger.Log(NewEvent(EventPromptWritten, PromptWrittenData("b", "p/b.md", 1))) //nolint:errcheck
	logger.Log(NewEvent(EventPromptFailed, PromptFailedData("c", "boom")))        //nolint:errcheck
	logger.Close()                                                                //nolint:errcheck

	files, err := ListSessions(dir)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1", len(files))
	}
	f := files[0]
	if f.NumEvents != 4 || f.Written != 2 || f.Failed != 1 {
		t.Errorf("tallies = %d events, %d written, %d failed; want 4, 2, 1", f.NumEvents, f.Written, f.Failed)
	}
}

func TestListSessionsEmptyDir(t *testing.T) {
	dir := t.TempDir()
	files, err := ListSessions(dir)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("got %d files, want 0", len(files))
	}
}

func TestListSessionsNoDir(t *testing.T) {
	_, err := ListSessions("/nonexistent/dir")
	if err == nil {
		t.Error("expected error for nonexistent directory")
	}
}

func TestReadEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test-session.jsonl")

	// Write NDJSON
	logger, err := NewJSONLogger(path)
	if err != nil {
		t.Fatalf("NewJSONLogger: %v", err)
	}
	logger.Log(NewEvent(EventRunStart, RunStartData("stdin", "p", 1)))             //nolint:errcheck
	logger.Log(NewEvent(EventPromptWritten, PromptWrittenData("t1", "p/a.md", 5))) //nolint:errcheck
	logger.Log(NewEvent(EventPromptFailed, PromptFailedData("t2", "boom")))        //nolint:errcheck
	logger.Log(NewEvent(EventRunComplete, RunCompleteData(1, 2, 1, 100)))          //nolint:errcheck
	logger.Close()                                                                 //nolint:errcheck

	events, err := ReadEvents(path)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	if events[0].Type != EventRunStart {
		t.Errorf("events[0].Type = %q", events[0].Type)
	}
	if events[3].Type != EventRunComplete {
		t.Errorf("events[3].Type = %q", events[3].Type)
	}
}

func TestReadEventsSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test-session.jsonl")

	content := `{"timestamp":"2026-01-15T10:00:00Z","type":"run_start","data":{}}
not valid json
{"timestamp":"2026-01-15T10:00:01Z","type":"run_complete","data":{}}
`
	os.WriteFile(path, []byte(content), 0644) //nolint:errcheck

	events, err := ReadEvents(path)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (malformed line skipped)", len(events))
	}
}

func TestRenderTimeline(t *testing.T) {
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base, Type: EventRunStart, Data: RunStartData("stdin", ".debugprompt", 4)},
		{Timestamp: base.Add(100 * time.Millisecond), Type: EventPromptWritten, Data: PromptWrittenData("pkg.TestDecode", ".debugprompt/prompt_a.md", 321)},
		{Timestamp: base.Add(200 * time.Millisecond), Type: EventPromptFailed, Data: PromptFailedData("pkg.TestEncode", "something broke")},
		{Timestamp: base.Add(1500 * time.Millisecond), Type: EventRunComplete, Data: RunCompleteData(3, 2, 1, 1500)},
		{Timestamp: base.Add(1600 * time.Millisecond), Type: "custom", Data: map[string]any{"k": "v"}},
	}

	var buf bytes.Buffer
	RenderTimeline(&buf, events)

	output := buf.String()
	for _, want := range []string{
		"SESSION TIMELINE",
		"workers=4",
		"pkg.TestDecode",
		".debugprompt/prompt_a.md (~321 tokens)",
		"pkg.TestEncode: something broke",
		"3 package(s)  2 failed  1 prompt(s)  (1500ms)",
		"1.5s",
		"custom",
	} {
		if !bytes.Contains([]byte(output), []byte(want)) {
			t.Errorf("output should contain %q\n%s", want, output)
		}
	}
}

func TestRenderTimelineEmpty(t *testing.T) {
	var buf bytes.Buffer
	RenderTimeline(&buf, nil)
	if !bytes.Contains(buf.Bytes(), []byte("No events found.")) {
		t.Error("empty events should print 'No events found.'")
	}
}

func TestJSONNumber(t *testing.T) {
	tests := []struct {
		in   any
		want int
	}{
		{float64(12), 12},
		{7, 7},
		{int64(1500), 1500},
		{json.Number("42"), 42},
		{"nope", 0},
		{nil, 0},
	}
	for _, tt := range tests {
		if got := jsonNumber(tt.in); got != tt.want {
			t.Errorf("jsonNumber(%#v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const logSuffix = "-session.jsonl"

// SessionFile is a session log on disk with the tallies of what it holds.
type SessionFile struct {
	Path      string
	Name      string
	Size      int64
	ModTime   time.Time
	NumEvents int
	Written   int
	Failed    int
}

// ListSessions finds session logs in dir, newest first. The timestamp in
// the file name orders them; modification time breaks ties.
func ListSessions(dir string) ([]SessionFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading session directory: %w", err)
	}

	var files []SessionFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), logSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}

		f := SessionFile{
			Path:    filepath.Join(dir, e.Name()),
			Name:    e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		if evs, err := ReadEvents(f.Path); err == nil {
			f.NumEvents = len(evs)
			for _, ev := range evs {
				switch ev.Type {
				case EventPromptWritten:
					f.Written++
				case EventPromptFailed:
					f.Failed++
				}
			}
		}
		files = append(files, f)
	}

	slices.SortFunc(files, func(a, b SessionFile) int {
		if c := strings.Compare(b.Name, a.Name); c != 0 {
			return c
		}
		return b.ModTime.Compare(a.ModTime)
	})
	return files, nil
}

// ReadEvents parses all events from a session log file.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening session file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue // skip malformed lines
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	return events, nil
}

// RenderTimeline writes a human-readable session timeline to w.
//
//nolint:errcheck // display-only writes; errors are not actionable
func RenderTimeline(w io.Writer, events []Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(w, " SESSION TIMELINE")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(w)

	start := events[0].Timestamp
	for _, ev := range events {
		elapsed := ev.Timestamp.Sub(start)
		ts := formatDuration(elapsed)

		switch ev.Type {
		case EventRunStart:
			source, _ := ev.Data["source"].(string)  //nolint:errcheck
			dir, _ := ev.Data["output_dir"].(string) //nolint:errcheck
			workers := jsonNumber(ev.Data["workers"])
			fmt.Fprintf(w, "[%s] 🚀 Run started  source=%s  output=%s  workers=%d\n", ts, source, dir, workers)

		case EventPromptWritten:
			scenario, _ := ev.Data["scenario"].(string) //nolint:errcheck
			path, _ := ev.Data["path"].(string)         //nolint:errcheck
			size := jsonNumber(ev.Data["tokens"])
			fmt.Fprintf(w, "[%s] ✓  %s\n%s    → %s (~%d tokens)\n", ts, scenario, strings.Repeat(" ", len(ts)+2), path, size)

		case EventPromptFailed:
			scenario, _ := ev.Data["scenario"].(string) //nolint:errcheck
			reason, _ := ev.Data["reason"].(string)     //nolint:errcheck
			fmt.Fprintf(w, "[%s] ✗  %s: %s\n", ts, scenario, reason)

		case EventRunComplete:
			packages := jsonNumber(ev.Data["packages"])
			failed := jsonNumber(ev.Data["failed"])
			prompts := jsonNumber(ev.Data["prompts"])
			dur := jsonNumber(ev.Data["duration_ms"])
			fmt.Fprintf(w, "[%s] 🏁 Run complete  %d package(s)  %d failed  %d prompt(s)  (%dms)\n",
				ts, packages, failed, prompts, dur)

		default:
			fmt.Fprintf(w, "[%s] %s %v\n", ts, ev.Type, ev.Data)
		}
	}
	fmt.Fprintln(w)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%6dms", d.Milliseconds())
	}
	return fmt.Sprintf("%6.1fs", d.Seconds())
}

// jsonNumber extracts a number from a JSON-decoded interface{} (float64 or json.Number).
func jsonNumber(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case json.Number:
		i, _ := n.Int64() //nolint:errcheck
		return int(i)
	}
	return 0
}

package models

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// payloadAliases maps the field names different host runners use onto the
// canonical FailureRecord keys.
var payloadAliases = map[string]string{
	"scenario":      "scenario",
	"name":          "scenario",
	"subject":       "scenario",
	"test":          "scenario",
	"location":      "location",
	"path":          "location",
	"steps":         "steps",
	"step_results":  "steps",
	"exception":     "exception",
	"error":         "exception",
	"exc_info":      "exception",
	"assertion":     "assertion",
	"diff":          "diff",
	"source":        "source",
	"variables":     "variables",
	"scope":         "variables",
	"extra":         "extra",
	"extra_details": "extra",
}

var stepAliases = map[string]string{
	"name":      "name",
	"step_name": "name",
	"status":    "status",
	"result":    "status",
	"elapsed":   "elapsed",
	"duration":  "elapsed",
}

var exceptionAliases = map[string]string{
	"type":      "type",
	"kind":      "type",
	"class":     "type",
	"message":   "message",
	"msg":       "message",
	"value":     "message",
	"traceback": "traceback",
	"trace":     "traceback",
	"stack":     "traceback",
}

// FromPayload extracts a FailureRecord from a loosely shaped event payload,
// as produced by JSON or YAML decoding on the host side. Field names are
// matched case-insensitively against a set of known aliases; unknown keys
// are ignored.
func FromPayload(payload map[string]any) (FailureRecord, error) {
	normalized := normalizeKeys(payload, payloadAliases)

	if steps, ok := normalized["steps"].([]any); ok {
		out := make([]any, 0, len(steps))
		for _, s := range steps {
			if m, ok := asStringMap(s); ok {
				out = append(out, normalizeKeys(m, stepAliases))
				continue
			}
			out = append(out, s)
		}
		normalized["steps"] = out
	}

	switch exc := normalized["exception"].(type) {
	case string:
		normalized["exception"] = map[string]any{"message": exc}
	default:
		if m, ok := asStringMap(exc); ok {
			normalized["exception"] = normalizeKeys(m, exceptionAliases)
		}
	}

	if s, ok := normalized["source"].(string); ok {
		normalized["source"] = map[string]any{"code": s, "start_line": 1}
	}

	if d, ok := normalized["diff"].(string); ok {
		normalized["diff"] = map[string]any{"text": d}
	}

	if vars, ok := asStringMap(normalized["variables"]); ok {
		normalized["variables"] = variablesFromMap(vars)
	}

	var rec FailureRecord
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			secondsToDurationHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           &rec,
	})
	if err != nil {
		return FailureRecord{}, err
	}
	if err := dec.Decode(normalized); err != nil {
		return FailureRecord{}, fmt.Errorf("decoding failure payload: %w", err)
	}

	for i := range rec.Steps {
		rec.Steps[i].Status = normalizeStatus(string(rec.Steps[i].Status))
	}
	return rec, nil
}

// normalizeStatus maps host status spellings onto StepStatus.
func normalizeStatus(s string) StepStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "passed", "pass", "ok", "success":
		return StepPassed
	case "failed", "fail", "failure", "error":
		return StepFailed
	case "skipped", "skip", "pending":
		return StepSkipped
	}
	return StepStatus(s)
}

func normalizeKeys(in map[string]any, aliases map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		canonical, ok := aliases[strings.ToLower(k)]
		if !ok {
			continue
		}
		if _, taken := out[canonical]; taken && canonical != strings.ToLower(k) {
			// the canonical spelling wins over an alias
			continue
		}
		out[canonical] = v
	}
	return out
}

func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

func variablesFromMap(vars map[string]any) []any {
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	slices.Sort(names)

	out := make([]any, 0, len(names))
	for _, k := range names {
		out = append(out, map[string]any{"name": k, "value": fmt.Sprintf("%#v", vars[k])})
	}
	return out
}

// secondsToDurationHook treats bare numbers as seconds, which is how most
// runners report step timings.
func secondsToDurationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch v := data.(type) {
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case float32:
		return time.Duration(float64(v) * float64(time.Second)), nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	}
	return data, nil
}

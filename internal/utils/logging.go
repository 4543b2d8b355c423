package utils

import (
	"context"
	"log/slog"

	"github.com/spboyer/debugprompt/internal/models"
)

// RecordToSlog logs a failure record at debug level.
func RecordToSlog(rec *models.FailureRecord) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := []any{
		"scenario", rec.Scenario,
		"steps", len(rec.Steps),
		"exceptionType", rec.Exception.Type,
	}

	attrs = addIf(attrs, "assertion", rec.Assertion)
	attrs = addIf(attrs, "diff", rec.Diff)
	if rec.Location != "" {
		attrs = append(attrs, "location", rec.Location)
	}

	slog.Debug("Failure record received", attrs...)
}

func addIf[T any](attrs []any, name string, v *T) []any {
	if v != nil {
		attrs = append(attrs, name)
		attrs = append(attrs, *v)
	}

	return attrs
}

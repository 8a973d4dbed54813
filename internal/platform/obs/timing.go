package obs

import (
	"context"
	"log"
	"time"
)

type ctxKey string

// RunIDKey carries the pipeline run id through stage calls.
const RunIDKey ctxKey = "run_id"

// WithRunID returns a context tagged with the given run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// Time logs the duration of a pipeline stage when the returned func runs.
// Usage: defer obs.Time(ctx, "precompute")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	runID, _ := ctx.Value(RunIDKey).(string)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.Printf("run_id=%s stage=%s dur=%dms err=%v", runID, name, dur.Milliseconds(), *errp)
			return
		}
		log.Printf("run_id=%s stage=%s dur=%dms", runID, name, dur.Milliseconds())
	}
}

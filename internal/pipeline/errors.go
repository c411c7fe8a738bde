package pipeline

import "fmt"

// Kind is the spec.md §7 error taxonomy every stage failure is classified
// into, so the engine can decide whether a retry, a human-review route, or
// a straight failure applies.
type Kind string

const (
	KindTransientLLM Kind = "TRANSIENT_LLM"
	KindTimeout      Kind = "TIMEOUT"
	KindBadRequest   Kind = "BAD_REQUEST_LLM"
	KindParseError   Kind = "PARSE_ERROR"
	KindMissingKey   Kind = "MISSING_KEY"
	KindStorageIO    Kind = "STORAGE_IO"
	KindDBConflict   Kind = "DB_CONFLICT"
	KindQualityGate  Kind = "QUALITY_GATE"
	KindCancelled    Kind = "CANCELLED"
)

// StageError is the typed error every stage handler returns on failure. The
// engine inspects Kind to decide whether the failure is a hard error or a
// routing signal (QUALITY_GATE is not an error at all per spec.md §7 — it
// routes to NEEDS_REVIEW) and whether to enqueue CLEANUP (shouldCleanup).
// Neither the engine nor the worker pool calls Retryable: the queue
// re-attempts every failed job the same way.
type StageError struct {
	Stage string
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: stage %s failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Retryable reports whether the queue should re-attempt the stage.
func (e *StageError) Retryable() bool {
	return e.Kind == KindTransientLLM
}

func NewStageError(stage string, kind Kind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

package models

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when a deobfuscation run exceeds its time budget.
// It aborts the whole call; no partial result is returned.
var ErrTimeout = errors.New("deobfuscation timeout")

// DecodeError reports that a technique produced output that is not valid
// text. The technique's contribution is discarded and the pipeline
// continues; it is never surfaced as a hard failure to the caller.
type DecodeError struct {
	Technique string
	Reason    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("technique %s: %s", e.Technique, e.Reason)
}

// InvalidConfigError reports an out-of-range configuration value. It is
// raised at configuration time, never during a run.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

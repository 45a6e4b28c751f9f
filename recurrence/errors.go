package recurrence

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBySpec is returned for a BY-part value outside the legal
	// range of its field.
	ErrInvalidBySpec = errors.New("invalid BY-part value")
	// ErrInvalidFrequency is returned when FREQ is missing or cannot be
	// applied to the anchor.
	ErrInvalidFrequency = errors.New("invalid frequency")
	// ErrInvalidRule is returned for rule-level invariant violations such
	// as COUNT together with UNTIL.
	ErrInvalidRule = errors.New("invalid recurrence rule")
	// ErrEvaluationAborted marks an expansion cut short by the safety bound.
	ErrEvaluationAborted = errors.New("evaluation aborted")
)

// BySpecError reports the offending BY-part and value.
type BySpecError struct {
	Part  string
	Value int
}

func (e *BySpecError) Error() string {
	return fmt.Sprintf("%v: %s=%d", ErrInvalidBySpec, e.Part, e.Value)
}

func (e *BySpecError) Unwrap() error {
	return ErrInvalidBySpec
}

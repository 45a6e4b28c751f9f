package caltime

import "errors"

var (
	// ErrUnresolvedTimeZone is returned when a zone identifier cannot be
	// resolved by the zone table.
	ErrUnresolvedTimeZone = errors.New("unresolved time zone")
	// ErrInconsistentPeriod is returned when a Period or PeriodList
	// invariant is violated.
	ErrInconsistentPeriod = errors.New("inconsistent period")
	// ErrInvalidValue is returned for malformed date, date-time or
	// duration text.
	ErrInvalidValue = errors.New("invalid value")
)

package caltime

import (
	"fmt"
	"sync"
	"time"
)

// ZoneKind is the timezone disposition of a DateTime.
type ZoneKind int

const (
	// Floating values have no zone and read the same everywhere.
	Floating ZoneKind = iota
	// UTC values are absolute instants.
	UTC
	// Zoned values are local readings in a named zone.
	Zoned
)

func (k ZoneKind) String() string {
	switch k {
	case Floating:
		return "floating"
	case UTC:
		return "utc"
	case Zoned:
		return "zoned"
	default:
		return fmt.Sprintf("ZoneKind(%d)", int(k))
	}
}

// Zone is a timezone disposition, optionally carrying a TZID.
type Zone struct {
	kind ZoneKind
	id   string
}

// FloatingZone returns the floating disposition.
func FloatingZone() Zone { return Zone{kind: Floating} }

// UTCZone returns the UTC disposition.
func UTCZone() Zone { return Zone{kind: UTC} }

// NamedZone returns a zoned disposition. An empty id yields FloatingZone and
// the ids "UTC", "Etc/UTC" and "Z" yield UTCZone.
func NamedZone(id string) Zone {
	switch id {
	case "":
		return FloatingZone()
	case "UTC", "Etc/UTC", "Z":
		return UTCZone()
	}
	return Zone{kind: Zoned, id: id}
}

// Kind returns Floating, UTC or Zoned.
func (z Zone) Kind() ZoneKind { return z.kind }

// ID returns the TZID of a zoned disposition, "UTC" for UTC and "" for floating.
func (z Zone) ID() string {
	switch z.kind {
	case UTC:
		return "UTC"
	case Zoned:
		return z.id
	}
	return ""
}

// IsFloating reports whether z is the floating disposition.
func (z Zone) IsFloating() bool { return z.kind == Floating }

// IsUTC reports whether z is UTC.
func (z Zone) IsUTC() bool { return z.kind == UTC }

// Same reports whether two dispositions denote the same frame.
func (z Zone) Same(o Zone) bool { return z.kind == o.kind && z.id == o.id }

func (z Zone) String() string {
	if z.kind == Floating {
		return "floating"
	}
	return z.ID()
}

// ZoneTable resolves UTC offsets for zone identifiers. Wall-clock readings
// are passed as time.Time values in time.UTC whose fields are the local
// reading.
type ZoneTable interface {
	// LocalOffset returns the offset in effect in zone id at the given local
	// wall-clock reading.
	LocalOffset(id string, wall time.Time) (time.Duration, error)
	// UTCOffset returns the offset in effect in zone id at the given instant.
	UTCOffset(id string, instant time.Time) (time.Duration, error)
}

// LocationTable is a ZoneTable backed by the Go tz database.
type LocationTable struct {
	mu   sync.RWMutex
	locs map[string]*time.Location
}

// NewLocationTable creates an empty LocationTable. Locations are loaded
// lazily and memoized.
func NewLocationTable() *LocationTable {
	return &LocationTable{locs: make(map[string]*time.Location)}
}

// DefaultZones is the table used by values with no table of their own.
var DefaultZones ZoneTable = NewLocationTable()

// Location returns the *time.Location for id.
func (t *LocationTable) Location(id string) (*time.Location, error) {
	t.mu.RLock()
	loc, ok := t.locs[id]
	t.mu.RUnlock()
	if ok {
		return loc, nil
	}

	loc, err := time.LoadLocation(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnresolvedTimeZone, id, err)
	}

	t.mu.Lock()
	t.locs[id] = loc
	t.mu.Unlock()
	return loc, nil
}

// LocalOffset returns the offset in force at a wall reading of zone id.
func (t *LocationTable) LocalOffset(id string, wall time.Time) (time.Duration, error) {
	loc, err := t.Location(id)
	if err != nil {
		return 0, err
	}
	local := time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), 0, loc)
	_, off := local.Zone()
	return time.Duration(off) * time.Second, nil
}

// UTCOffset returns the offset of zone id at instant.
func (t *LocationTable) UTCOffset(id string, instant time.Time) (time.Duration, error) {
	loc, err := t.Location(id)
	if err != nil {
		return 0, err
	}
	_, off := instant.In(loc).Zone()
	return time.Duration(off) * time.Second, nil
}

// FixedTable is a ZoneTable of constant offsets, mostly useful in tests and
// for zones described only by a TZOFFSETTO.
type FixedTable map[string]time.Duration

// LocalOffset returns the fixed offset of id.
func (f FixedTable) LocalOffset(id string, _ time.Time) (time.Duration, error) {
	return f.lookup(id)
}

// UTCOffset returns the fixed offset of id.
func (f FixedTable) UTCOffset(id string, _ time.Time) (time.Duration, error) {
	return f.lookup(id)
}

func (f FixedTable) lookup(id string) (time.Duration, error) {
	off, ok := f[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnresolvedTimeZone, id)
	}
	return off, nil
}

package taxonomy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"annofuse/internal/annotation"
)

const captureDateLayout = "20060102"

// Predicate decides whether a capture is eligible for a change.
type Predicate func(captureID string) bool

// FilterByEligibility keeps only the keys whose capture id satisfies pred.
func FilterByEligibility(store *annotation.Store, pred Predicate) *annotation.Store {
	eligible, _ := Partition(store, pred)
	return eligible
}

// Partition splits store into the keys satisfying pred and the rest.
func Partition(store *annotation.Store, pred Predicate) (*annotation.Store, *annotation.Store) {
	eligible := annotation.NewStore()
	rest := annotation.NewStore()
	store.Range(func(key annotation.Key, boxes []annotation.Box) bool {
		if pred != nil && pred(key.CaptureID) {
			eligible.Put(key, boxes)
		} else {
			rest.Put(key, boxes)
		}
		return true
	})
	return eligible, rest
}

// Combine merges disjoint stores into one. For a key present in several
// parts, the last part wins.
func Combine(parts ...*annotation.Store) *annotation.Store {
	out := annotation.NewStore()
	for _, part := range parts {
		part.Range(func(key annotation.Key, boxes []annotation.Box) bool {
			out.Put(key, boxes)
			return true
		})
	}
	return out
}

// CaptureDate parses the YYYYMMDD prefix of a capture id.
func CaptureDate(captureID string) (time.Time, error) {
	captureID = strings.TrimSpace(captureID)
	if len(captureID) < len(captureDateLayout) {
		return time.Time{}, fmt.Errorf("capture id %q too short for a date prefix", captureID)
	}
	return time.Parse(captureDateLayout, captureID[:len(captureDateLayout)])
}

// DateWindow is an inclusive range of capture dates. A zero bound is open.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// ParseDateWindow parses YYYYMMDD bounds; empty strings leave a bound open.
func ParseDateWindow(start, end string) (DateWindow, error) {
	var w DateWindow
	var err error
	if s := strings.TrimSpace(start); s != "" {
		if w.Start, err = time.Parse(captureDateLayout, s); err != nil {
			return DateWindow{}, fmt.Errorf("window start %q: %w", s, err)
		}
	}
	if e := strings.TrimSpace(end); e != "" {
		if w.End, err = time.Parse(captureDateLayout, e); err != nil {
			return DateWindow{}, fmt.Errorf("window end %q: %w", e, err)
		}
	}
	if !w.Start.IsZero() && !w.End.IsZero() && w.End.Before(w.Start) {
		return DateWindow{}, errors.New("window end is before window start")
	}
	return w, nil
}

// Open reports whether neither bound is set.
func (w DateWindow) Open() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Contains reports whether the capture's date falls inside the window.
// Captures without a parseable date are never inside.
func (w DateWindow) Contains(captureID string) bool {
	date, err := CaptureDate(captureID)
	if err != nil {
		return false
	}
	if !w.Start.IsZero() && date.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && date.After(w.End) {
		return false
	}
	return true
}

func (w DateWindow) String() string {
	format := func(t time.Time) string {
		if t.IsZero() {
			return "*"
		}
		return t.Format(captureDateLayout)
	}
	return format(w.Start) + ".." + format(w.End)
}

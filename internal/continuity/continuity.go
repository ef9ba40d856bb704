// Package continuity checks that a set of frame indices covers its span
// without gaps and describes present and missing frames as compact ranges.
package continuity

import (
	"slices"
	"strconv"

	"annofuse/internal/services"
)

// EmptyInputError means there were no frames to check at all, as opposed to
// frames that exist with every index missing.
type EmptyInputError struct {
	Subject string
}

func (e *EmptyInputError) Error() string {
	if e.Subject == "" {
		return "no frames found"
	}
	return "no frames found in " + e.Subject
}

func (e *EmptyInputError) Unwrap() error { return services.ErrEmptyInput }

// Report describes one continuity check.
type Report struct {
	First         int      `json:"first"`
	Last          int      `json:"last"`
	Observed      int      `json:"observed"`
	Missing       int      `json:"missing"`
	IsContinuous  bool     `json:"is_continuous"`
	PresentRanges []string `json:"present_ranges"`
	MissingRanges []string `json:"missing_ranges"`
}

// Check compares the observed indices against first..last inclusive.
// Duplicate indices count once.
func Check(indices []int) (Report, error) {
	if len(indices) == 0 {
		return Report{}, &EmptyInputError{}
	}
	observed := slices.Clone(indices)
	slices.Sort(observed)
	observed = slices.Compact(observed)

	// Missing frames are described from the gaps between observed runs so a
	// sparse set never materializes its whole span.
	first, last := observed[0], observed[len(observed)-1]
	missing := 0
	missingRanges := make([]string, 0)
	for i := 1; i < len(observed); i++ {
		lo, hi := observed[i-1]+1, observed[i]-1
		if lo > hi {
			continue
		}
		missing += hi - lo + 1
		missingRanges = append(missingRanges, formatRange(lo, hi))
	}

	return Report{
		First:         first,
		Last:          last,
		Observed:      len(observed),
		Missing:       missing,
		IsContinuous:  missing == 0,
		PresentRanges: CompressRanges(observed),
		MissingRanges: missingRanges,
	}, nil
}

// CompressRanges folds consecutive runs of values into "start-end" strings
// and singletons into the bare number. The result is never nil.
func CompressRanges(values []int) []string {
	ranges := make([]string, 0)
	if len(values) == 0 {
		return ranges
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	start, prev := sorted[0], sorted[0]
	for _, v := range sorted[1:] {
		if v == prev+1 {
			prev = v
			continue
		}
		ranges = append(ranges, formatRange(start, prev))
		start, prev = v, v
	}
	return append(ranges, formatRange(start, prev))
}

func formatRange(start, end int) string {
	if start == end {
		return strconv.Itoa(start)
	}
	return strconv.Itoa(start) + "-" + strconv.Itoa(end)
}

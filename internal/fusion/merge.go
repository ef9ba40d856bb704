package fusion

import (
	"slices"

	"annofuse/internal/annotation"
	"annofuse/internal/overlap"
)

// Options controls duplicate suppression.
type Options struct {
	// Threshold is the IOU above which a secondary box is a duplicate.
	Threshold float64
	// Classes limits which secondary boxes take part. Empty means all.
	Classes []string
}

func (o Options) allows(class string) bool {
	return len(o.Classes) == 0 || slices.Contains(o.Classes, class)
}

// KeyReport summarizes the merge for one key.
type KeyReport struct {
	Key        annotation.Key
	Appended   int
	Suppressed int
	Filtered   int
	NewKey     bool
}

// Report summarizes a merge.
type Report struct {
	Modified   bool
	Appended   int
	Suppressed int
	Filtered   int
	NewKeys    int
	Keys       []KeyReport
}

func (r *Report) add(kr KeyReport) {
	r.Appended += kr.Appended
	r.Suppressed += kr.Suppressed
	r.Filtered += kr.Filtered
	if kr.NewKey && kr.Appended > 0 {
		r.NewKeys++
	}
	if kr.Appended > 0 {
		r.Modified = true
	}
	r.Keys = append(r.Keys, kr)
}

// Merge returns primary plus every non-duplicate box of secondary. Neither
// input is modified.
func Merge(primary, secondary *annotation.Store, opts Options) (*annotation.Store, Report) {
	out := primary.Clone()
	var report Report
	for _, key := range secondary.Keys() {
		existing := out.Lookup(key)
		merged, kr := MergeBoxes(existing, secondary.Lookup(key), opts)
		kr.Key = key
		kr.NewKey = len(existing) == 0
		if kr.Appended > 0 {
			out.Put(key, merged)
		}
		report.add(kr)
	}
	return out, report
}

// Broadcast merges one reference label into every key of primary, as when a
// fixed scene annotation applies to all frames of a capture.
func Broadcast(primary *annotation.Store, reference []annotation.Box, opts Options) (*annotation.Store, Report) {
	out := primary.Clone()
	var report Report
	for _, key := range primary.Keys() {
		merged, kr := MergeBoxes(out.Lookup(key), reference, opts)
		kr.Key = key
		if kr.Appended > 0 {
			out.Put(key, merged)
		}
		report.add(kr)
	}
	return out, report
}

// MergeBoxes appends the incoming boxes that do not duplicate a box in
// existing. Incoming boxes are only compared with existing, never with each
// other. The existing slice is not modified.
func MergeBoxes(existing, incoming []annotation.Box, opts Options) ([]annotation.Box, KeyReport) {
	merged := slices.Clone(existing)
	idx := overlap.NewIndex(existing)
	var kr KeyReport
	for _, b := range incoming {
		if !opts.allows(b.Class) || !b.Valid() {
			kr.Filtered++
			continue
		}
		if isDuplicate(idx, b, opts.Threshold) {
			kr.Suppressed++
			continue
		}
		merged = append(merged, b)
		kr.Appended++
	}
	return merged, kr
}

func isDuplicate(idx *overlap.Index, b annotation.Box, threshold float64) bool {
	candidates := idx.Candidates(b)
	if threshold < 0 {
		// Disjoint boxes score 0, which already exceeds a negative threshold.
		candidates = idx.All()
	}
	for _, c := range candidates {
		if c.SameGeometry(b) || overlap.IOU(b, c) > threshold {
			return true
		}
	}
	return false
}

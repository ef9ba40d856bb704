package taxonomy

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"annofuse/internal/annotation"
)

// Mapping maps source class names to target class names.
type Mapping map[string]string

// Normalizer canonicalizes class names before lookup.
type Normalizer struct {
	Fold bool
}

// Normalize trims name and, when folding is enabled, applies Unicode case
// folding so "Knee" and "knee" match the same mapping entry.
func (n Normalizer) Normalize(name string) string {
	name = strings.TrimSpace(name)
	if !n.Fold {
		return name
	}
	return cases.Fold().String(name)
}

// RemapReport counts what a remap did.
type RemapReport struct {
	Renamed     int
	Unchanged   int
	Dropped     int
	DroppedKeys int
	// DroppedClasses counts dropped boxes by original class.
	DroppedClasses map[string]int
}

// Remapper applies a mapping to stores.
type Remapper struct {
	mapping      Mapping
	keepUnmapped bool
	normalizer   Normalizer
}

// NewRemapper builds a remapper; mapping keys are normalized once up front.
func NewRemapper(mapping Mapping, keepUnmapped bool, normalizer Normalizer) *Remapper {
	normalized := make(Mapping, len(mapping))
	for from, to := range mapping {
		normalized[normalizer.Normalize(from)] = strings.TrimSpace(to)
	}
	return &Remapper{mapping: normalized, keepUnmapped: keepUnmapped, normalizer: normalizer}
}

// Remap rewrites every box class found in mapping. Boxes of other classes are
// dropped unless keepUnmapped is set; keys left empty disappear.
func Remap(store *annotation.Store, mapping Mapping, keepUnmapped bool) *annotation.Store {
	out, _ := NewRemapper(mapping, keepUnmapped, Normalizer{}).Apply(store)
	return out
}

// Apply returns a remapped copy of store.
func (r *Remapper) Apply(store *annotation.Store) (*annotation.Store, RemapReport) {
	out := annotation.NewStore()
	report := RemapReport{DroppedClasses: map[string]int{}}
	store.Range(func(key annotation.Key, boxes []annotation.Box) bool {
		kept := r.ApplyBoxes(boxes, &report)
		if len(kept) == 0 {
			report.DroppedKeys++
			return true
		}
		out.Put(key, kept)
		return true
	})
	return out, report
}

// ApplyBoxes remaps one box list, accumulating counts into report.
func (r *Remapper) ApplyBoxes(boxes []annotation.Box, report *RemapReport) []annotation.Box {
	kept := make([]annotation.Box, 0, len(boxes))
	for _, b := range boxes {
		class, ok := r.Lookup(b.Class)
		switch {
		case ok:
			if class != b.Class {
				report.Renamed++
			} else {
				report.Unchanged++
			}
			kept = append(kept, b.WithClass(class))
		case r.keepUnmapped:
			report.Unchanged++
			kept = append(kept, b)
		default:
			report.Dropped++
			if report.DroppedClasses != nil {
				report.DroppedClasses[b.Class]++
			}
		}
	}
	return kept
}

// Lookup returns the target class for class, if mapped.
func (r *Remapper) Lookup(class string) (string, bool) {
	to, ok := r.mapping[r.normalizer.Normalize(class)]
	return to, ok
}

// KeepOnly drops boxes whose class is not listed. Keys left empty disappear.
func KeepOnly(store *annotation.Store, classes []string) (*annotation.Store, int) {
	out := annotation.NewStore()
	dropped := 0
	store.Range(func(key annotation.Key, boxes []annotation.Box) bool {
		kept := make([]annotation.Box, 0, len(boxes))
		for _, b := range boxes {
			if slices.Contains(classes, b.Class) {
				kept = append(kept, b)
			} else {
				dropped++
			}
		}
		out.Put(key, kept)
		return true
	})
	return out, dropped
}

// Rename relabels class from to class to within one capture only.
func Rename(store *annotation.Store, captureID, from, to string) (*annotation.Store, int) {
	out := store.Clone()
	renamed := 0
	store.Range(func(key annotation.Key, boxes []annotation.Box) bool {
		if key.CaptureID != captureID {
			return true
		}
		changed := false
		next := slices.Clone(boxes)
		for i, b := range next {
			if b.Class == from {
				next[i] = b.WithClass(to)
				renamed++
				changed = true
			}
		}
		if changed {
			out.Put(key, next)
		}
		return true
	})
	return out, renamed
}

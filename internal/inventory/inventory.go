// Package inventory reports what an annotation store contains: class
// counts, captures holding unexpected classes, frames containing given
// classes and reproducible per-class samples for visual review.
package inventory

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat"

	"annofuse/internal/annotation"
)

// ClassCount is the number of boxes of one class.
type ClassCount struct {
	Class string `json:"class"`
	Count int    `json:"count"`
}

// FrameStats describes the number of boxes per labelled frame.
type FrameStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    int     `json:"min"`
	Max    int     `json:"max"`
}

// Summary is the inventory of a store.
type Summary struct {
	Keys          int                       `json:"keys"`
	Boxes         int                       `json:"boxes"`
	Captures      int                       `json:"captures"`
	Classes       []ClassCount              `json:"classes"`
	PerCapture    map[string]map[string]int `json:"per_capture"`
	PerChannel    map[string]map[string]int `json:"per_channel"`
	BoxesPerFrame FrameStats                `json:"boxes_per_frame"`
}

// Summarize counts classes overall, per capture and per channel.
func Summarize(store *annotation.Store) Summary {
	s := Summary{
		PerCapture: make(map[string]map[string]int),
		PerChannel: make(map[string]map[string]int),
	}
	totals := make(map[string]int)
	perFrame := make([]float64, 0, store.Len())
	store.Range(func(key annotation.Key, boxes []annotation.Box) bool {
		s.Keys++
		s.Boxes += len(boxes)
		perFrame = append(perFrame, float64(len(boxes)))
		for _, b := range boxes {
			totals[b.Class]++
			bump(s.PerCapture, key.CaptureID, b.Class)
			bump(s.PerChannel, key.Channel, b.Class)
		}
		return true
	})
	s.Captures = len(s.PerCapture)
	s.Classes = sortCounts(totals)
	s.BoxesPerFrame = frameStats(perFrame)
	return s
}

func bump(m map[string]map[string]int, outer, class string) {
	inner, ok := m[outer]
	if !ok {
		inner = make(map[string]int)
		m[outer] = inner
	}
	inner[class]++
}

// sortCounts orders by count descending, then class name.
func sortCounts(counts map[string]int) []ClassCount {
	out := make([]ClassCount, 0, len(counts))
	for class, n := range counts {
		out = append(out, ClassCount{Class: class, Count: n})
	}
	slices.SortFunc(out, func(a, b ClassCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Class, b.Class)
	})
	return out
}

func frameStats(values []float64) FrameStats {
	if len(values) == 0 {
		return FrameStats{}
	}
	mean, std := stat.MeanStdDev(values, nil)
	if len(values) < 2 || math.IsNaN(std) {
		std = 0
	}
	return FrameStats{
		Mean:   mean,
		StdDev: std,
		Min:    int(slices.Min(values)),
		Max:    int(slices.Max(values)),
	}
}

// CaptureClasses lists the offending classes found in one capture.
type CaptureClasses struct {
	CaptureID string       `json:"capture_id"`
	Classes   []ClassCount `json:"classes"`
}

// NonTarget returns the captures holding boxes of classes outside targets,
// sorted by capture id.
func NonTarget(store *annotation.Store, targets []string) []CaptureClasses {
	allowed := make(map[string]bool, len(targets))
	for _, t := range targets {
		allowed[t] = true
	}
	found := make(map[string]map[string]int)
	store.Range(func(key annotation.Key, boxes []annotation.Box) bool {
		for _, b := range boxes {
			if !allowed[b.Class] {
				bump(found, key.CaptureID, b.Class)
			}
		}
		return true
	})
	out := make([]CaptureClasses, 0, len(found))
	for id, counts := range found {
		out = append(out, CaptureClasses{CaptureID: id, Classes: sortCounts(counts)})
	}
	slices.SortFunc(out, func(a, b CaptureClasses) int { return cmp.Compare(a.CaptureID, b.CaptureID) })
	return out
}

// KeysWith returns, in key order, the keys holding at least one box of any
// listed class.
func KeysWith(store *annotation.Store, classes []string) []annotation.Key {
	keys := make([]annotation.Key, 0)
	store.Range(func(key annotation.Key, boxes []annotation.Box) bool {
		if slices.ContainsFunc(boxes, func(b annotation.Box) bool { return slices.Contains(classes, b.Class) }) {
			keys = append(keys, key)
		}
		return true
	})
	return keys
}

// Sample picks up to perClass keys for every class, reproducibly for a given
// seed. Each class's picks are returned in key order.
func Sample(store *annotation.Store, perClass int, seed uint64) map[string][]annotation.Key {
	byClass := make(map[string][]annotation.Key)
	store.Range(func(key annotation.Key, boxes []annotation.Box) bool {
		seen := make(map[string]bool, len(boxes))
		for _, b := range boxes {
			if !seen[b.Class] {
				seen[b.Class] = true
				byClass[b.Class] = append(byClass[b.Class], key)
			}
		}
		return true
	})

	classes := make([]string, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	slices.Sort(classes)

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make(map[string][]annotation.Key, len(classes))
	for _, class := range classes {
		keys := byClass[class]
		rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
		picked := keys[:min(perClass, len(keys))]
		slices.SortFunc(picked, annotation.CompareKeys)
		out[class] = picked
	}
	return out
}

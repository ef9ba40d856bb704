// Package overlap computes geometric overlap between annotation boxes.
package overlap

import (
	"annofuse/internal/annotation"
)

// IOU returns the intersection-over-union of a and b in [0,1]. Degenerate
// inputs whose union is not positive yield 0.
func IOU(a, b annotation.Box) float64 {
	inter := Intersection(a, b)
	union := area(a) + area(b) - inter
	if union <= 0 {
		return 0
	}
	iou := inter / union
	if iou > 1 {
		return 1
	}
	if iou < 0 {
		return 0
	}
	return iou
}

// Intersection returns the overlapping area of a and b, 0 when disjoint.
func Intersection(a, b annotation.Box) float64 {
	w := min(a.XMax, b.XMax) - max(a.XMin, b.XMin)
	h := min(a.YMax, b.YMax) - max(a.YMin, b.YMin)
	return max(0, w) * max(0, h)
}

func area(b annotation.Box) float64 {
	return b.Area()
}

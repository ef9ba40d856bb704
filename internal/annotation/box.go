package annotation

import "math"

// Box is an axis-aligned rectangle in absolute pixel corners.
type Box struct {
	Class string
	XMin  float64
	YMin  float64
	XMax  float64
	YMax  float64
}

// Valid reports whether the box has a positive extent on both axes.
func (b Box) Valid() bool {
	for _, v := range [...]float64{b.XMin, b.YMin, b.XMax, b.YMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.XMin < b.XMax && b.YMin < b.YMax
}

func (b Box) Width() float64  { return b.XMax - b.XMin }
func (b Box) Height() float64 { return b.YMax - b.YMin }

func (b Box) Area() float64 {
	return b.Width() * b.Height()
}

// SameGeometry reports exact equality of class and corners.
func (b Box) SameGeometry(other Box) bool {
	return b.Class == other.Class &&
		b.XMin == other.XMin && b.YMin == other.YMin &&
		b.XMax == other.XMax && b.YMax == other.YMax
}

// WithClass returns a copy of b relabelled to class.
func (b Box) WithClass(class string) Box {
	b.Class = class
	return b
}

// NormBox is a box in normalized center form.
type NormBox struct {
	Class string
	CX    float64
	CY    float64
	W     float64
	H     float64
}

// Absolute converts to pixel corners for an image of width x height,
// truncating each corner toward zero. ok is false when the result is
// degenerate.
func (n NormBox) Absolute(width, height int) (Box, bool) {
	if width <= 0 || height <= 0 {
		return Box{}, false
	}
	w, h := float64(width), float64(height)
	box := Box{
		Class: n.Class,
		XMin:  math.Trunc((n.CX - n.W/2) * w),
		YMin:  math.Trunc((n.CY - n.H/2) * h),
		XMax:  math.Trunc((n.CX + n.W/2) * w),
		YMax:  math.Trunc((n.CY + n.H/2) * h),
	}
	return box, box.Valid()
}

// Normalized converts b back to center form for an image of width x height.
func (b Box) Normalized(width, height int) NormBox {
	if width <= 0 || height <= 0 {
		return NormBox{Class: b.Class}
	}
	w, h := float64(width), float64(height)
	return NormBox{
		Class: b.Class,
		CX:    (b.XMin + b.XMax) / 2 / w,
		CY:    (b.YMin + b.YMax) / 2 / h,
		W:     b.Width() / w,
		H:     b.Height() / h,
	}
}

package rawframe

import (
	"fmt"
	"slices"

	"annofuse/internal/services"
)

// Default sensor resolution of the event channel.
const (
	DefaultHeight = 612
	DefaultWidth  = 816
)

// NumClasses is the number of legal pixel values.
const NumClasses = 3

// Frame is a dense ternary image.
type Frame struct {
	Height int
	Width  int
	Pix    []uint8
}

// NewFrame allocates an all-background frame.
func NewFrame(height, width int) *Frame {
	if height < 0 {
		height = 0
	}
	if width < 0 {
		width = 0
	}
	return &Frame{Height: height, Width: width, Pix: make([]uint8, height*width)}
}

func (f *Frame) At(row, col int) uint8 {
	return f.Pix[row*f.Width+col]
}

func (f *Frame) Set(row, col int, v uint8) {
	f.Pix[row*f.Width+col] = v
}

func (f *Frame) Clone() *Frame {
	return &Frame{Height: f.Height, Width: f.Width, Pix: slices.Clone(f.Pix)}
}

// Equal reports identical shape and pixels.
func (f *Frame) Equal(other *Frame) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.Height == other.Height && f.Width == other.Width && slices.Equal(f.Pix, other.Pix)
}

// InvalidValueError reports the first pixel outside {0,1,2}.
type InvalidValueError struct {
	Row   int
	Col   int
	Value uint8
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("pixel (%d,%d) has value %d, want 0, 1 or 2", e.Row, e.Col, e.Value)
}

func (e *InvalidValueError) Unwrap() error { return services.ErrFormat }

// Validate checks that every pixel holds a legal class value.
func (f *Frame) Validate() error {
	for i, v := range f.Pix {
		if v >= NumClasses {
			return &InvalidValueError{Row: i / f.Width, Col: i % f.Width, Value: v}
		}
	}
	return nil
}

// Histogram counts pixels per value. Index 3 collects every illegal value.
func (f *Frame) Histogram() [NumClasses + 1]int {
	var h [NumClasses + 1]int
	for _, v := range f.Pix {
		if v >= NumClasses {
			h[NumClasses]++
			continue
		}
		h[v]++
	}
	return h
}

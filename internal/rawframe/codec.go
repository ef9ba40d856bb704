package rawframe

import (
	"encoding/binary"
	"fmt"
	"os"
	"slices"

	"annofuse/internal/fileutil"
	"annofuse/internal/services"
)

// SizeMismatchError reports a byte stream whose length does not match the
// declared dimensions.
type SizeMismatchError struct {
	Want int
	Got  int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("raw size mismatch: want %d bytes, got %d", e.Want, e.Got)
}

func (e *SizeMismatchError) Unwrap() error { return services.ErrSizeMismatch }

// Decode wraps data as a height x width frame. The length must match
// exactly. The returned frame owns a copy of data.
func Decode(data []byte, height, width int) (*Frame, error) {
	if height <= 0 || width <= 0 {
		return nil, services.Wrap(services.ErrValidation, "rawframe", "decode", fmt.Sprintf("invalid dimensions %dx%d", height, width), nil)
	}
	want := height * width
	if len(data) != want {
		return nil, &SizeMismatchError{Want: want, Got: len(data)}
	}
	return &Frame{Height: height, Width: width, Pix: slices.Clone(data)}, nil
}

// Encode flattens the frame row-major.
func Encode(f *Frame) []byte {
	return slices.Clone(f.Pix)
}

// ReadFile decodes a raw file.
func ReadFile(path string, height, width int) (*Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Decode(data, height, width)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// WriteFile encodes f to path, creating parent directories.
func WriteFile(path string, f *Frame) error {
	return fileutil.WriteFileAtomic(path, Encode(f), 0o644)
}

// ProbeResult describes how a raw file of unknown sample width decodes.
type ProbeResult struct {
	BytesPerPixel int
	Frame         *Frame
}

// Probe tries little-endian sample widths of 1, 2 and 4 bytes and returns the
// first whose size matches and whose values are all ternary. Files written by
// older tooling sometimes store each pixel in a wider integer.
func Probe(data []byte, height, width int) (ProbeResult, error) {
	if height <= 0 || width <= 0 {
		return ProbeResult{}, services.Wrap(services.ErrValidation, "rawframe", "probe", fmt.Sprintf("invalid dimensions %dx%d", height, width), nil)
	}
	n := height * width
	var lastErr error = &SizeMismatchError{Want: n, Got: len(data)}
	for _, size := range []int{1, 2, 4} {
		if len(data) != n*size {
			continue
		}
		f := NewFrame(height, width)
		valid := true
		for i := range n {
			var v uint32
			switch size {
			case 1:
				v = uint32(data[i])
			case 2:
				v = uint32(binary.LittleEndian.Uint16(data[i*2:]))
			case 4:
				v = binary.LittleEndian.Uint32(data[i*4:])
			}
			if v >= NumClasses {
				lastErr = &InvalidValueError{Row: i / width, Col: i % width, Value: uint8(min(v, 255))}
				valid = false
				break
			}
			f.Pix[i] = uint8(v)
		}
		if valid {
			return ProbeResult{BytesPerPixel: size, Frame: f}, nil
		}
	}
	return ProbeResult{}, lastErr
}

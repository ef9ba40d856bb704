package rawframe

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func frameOf(rows ...[]uint8) *Frame {
	f := NewFrame(len(rows), len(rows[0]))
	for r, row := range rows {
		copy(f.Pix[r*f.Width:], row)
	}
	return f
}

func TestDenoiseRemovesIsolatedPixel(t *testing.T) {
	f := NewFrame(5, 5)
	f.Set(2, 2, 1)
	require.Equal(t, NewFrame(5, 5).Pix, Denoise(f, Options{Window: 3}).Pix)
}

func TestDenoiseErodesBlockCorners(t *testing.T) {
	f := frameOf(
		[]uint8{0, 0, 0, 0, 0},
		[]uint8{0, 2, 2, 2, 0},
		[]uint8{0, 2, 2, 2, 0},
		[]uint8{0, 2, 2, 2, 0},
		[]uint8{0, 0, 0, 0, 0},
	)
	want := frameOf(
		[]uint8{0, 0, 0, 0, 0},
		[]uint8{0, 0, 2, 0, 0},
		[]uint8{0, 2, 2, 2, 0},
		[]uint8{0, 0, 2, 0, 0},
		[]uint8{0, 0, 0, 0, 0},
	)
	for _, border := range []Border{BorderReflect, BorderConstant} {
		require.Equal(t, want.Pix, Denoise(f, Options{Window: 3, Border: border}).Pix, border.String())
	}
}

func TestDenoiseBorderModes(t *testing.T) {
	f := NewFrame(4, 4)
	for i := range f.Pix {
		f.Pix[i] = 1
	}

	got := Denoise(f, Options{Window: 3})
	require.True(t, f.Equal(got), "reflect keeps a uniform frame: %v", got.Pix)

	got = Denoise(f, Options{Window: 3, Border: BorderConstant})
	require.Equal(t, []uint8{
		0, 1, 1, 0,
		1, 1, 1, 1,
		1, 1, 1, 1,
		0, 1, 1, 0,
	}, got.Pix)
}

func TestDenoiseReflectMirrorsEdge(t *testing.T) {
	// Column 0 mirrors onto itself, so the edge pixel at (1,0) sees six 2s.
	f := frameOf(
		[]uint8{2, 0, 0},
		[]uint8{2, 0, 0},
		[]uint8{2, 0, 0},
	)
	got := Denoise(f, Options{Window: 3})
	require.Equal(t, f.Pix, got.Pix)

	got = Denoise(f, Options{Window: 3, Border: BorderConstant})
	require.Equal(t, NewFrame(3, 3).Pix, got.Pix)
}

func TestDenoiseEvenWindowAnchorsBottomRight(t *testing.T) {
	f := frameOf([]uint8{1, 1}, []uint8{1, 1})
	want := frameOf([]uint8{0, 1}, []uint8{1, 1})
	require.Equal(t, want.Pix, Denoise(f, Options{Window: 2, Border: BorderConstant}).Pix)
	require.Equal(t, f.Pix, Denoise(f, Options{Window: 2}).Pix)
}

func TestDenoiseWindowLargerThanFrame(t *testing.T) {
	f := frameOf([]uint8{1, 1}, []uint8{1, 1})
	require.Equal(t, f.Pix, Denoise(f, Options{Window: 7}).Pix)
}

func TestDenoiseOccupancy(t *testing.T) {
	f := frameOf([]uint8{1, 1, 1}, []uint8{1, 1, 1}, []uint8{1, 1, 1})
	got := Denoise(f, Options{Window: 3, Occupancy: 1, Border: BorderConstant})
	require.Equal(t, frameOf([]uint8{0, 0, 0}, []uint8{0, 1, 0}, []uint8{0, 0, 0}).Pix, got.Pix)
	got = Denoise(f, Options{Window: 3, Occupancy: 1})
	require.Equal(t, f.Pix, got.Pix)

	// a quarter of the window is enough at 0.25
	got = Denoise(frameOf([]uint8{0, 0}, []uint8{0, 2}), Options{Window: 2, Occupancy: 0.25})
	require.Equal(t, uint8(2), got.At(1, 1))
}

func TestParseBorder(t *testing.T) {
	for name, want := range map[string]Border{"": BorderReflect, "Reflect": BorderReflect, " constant ": BorderConstant} {
		got, err := ParseBorder(name)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseBorder("wrap")
	require.Error(t, err)
}

func TestDenoiseWindowOneCopies(t *testing.T) {
	f := frameOf([]uint8{0, 1}, []uint8{2, 1})
	got := Denoise(f, Options{Window: 1})
	require.True(t, f.Equal(got))
	got.Set(0, 0, 2)
	require.Equal(t, uint8(0), f.At(0, 0))
}

func TestDenoiseStaysTernary(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	for k := 1; k <= 6; k++ {
		for range 5 {
			f := randomFrame(rng, 3+rng.IntN(10), 3+rng.IntN(10))
			for _, border := range []Border{BorderReflect, BorderConstant} {
				got := Denoise(f, Options{Window: k, Border: border})
				require.Equal(t, f.Height, got.Height)
				require.Equal(t, f.Width, got.Width)
				require.NoError(t, got.Validate(), "window %d", k)
			}
		}
	}
}

func TestDenoiseDoesNotMutateInput(t *testing.T) {
	f := randomFrame(rand.New(rand.NewPCG(9, 9)), 8, 8)
	before := f.Clone()
	Denoise(f, Options{Window: 3})
	require.True(t, before.Equal(f))
}

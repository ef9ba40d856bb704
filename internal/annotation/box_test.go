package annotation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormBoxAbsoluteTruncates(t *testing.T) {
	n := NormBox{Class: "person", CX: 0.5, CY: 0.5, W: 0.25, H: 0.5}
	box, ok := n.Absolute(3264, 2448)
	require.True(t, ok)
	require.Equal(t, Box{Class: "person", XMin: 1224, YMin: 612, XMax: 2040, YMax: 1836}, box)

	// 0.1234*100 = 12.34 -> 12
	box, ok = NormBox{CX: 0.2, CY: 0.2, W: 0.1532, H: 0.1532}.Absolute(100, 100)
	require.True(t, ok)
	require.Equal(t, 12.0, box.XMin)
	require.Equal(t, 27.0, box.XMax)
}

func TestNormBoxAbsoluteDegenerate(t *testing.T) {
	_, ok := NormBox{CX: 0.5, CY: 0.5, W: 0, H: 0.2}.Absolute(100, 100)
	require.False(t, ok)
	_, ok = NormBox{CX: 0.505, CY: 0.5, W: 0.001, H: 0.2}.Absolute(100, 100)
	require.False(t, ok, "sub-pixel width truncates to zero")
	_, ok = NormBox{CX: 0.5, CY: 0.5, W: 0.2, H: 0.2}.Absolute(0, 100)
	require.False(t, ok)
}

func TestBoxValid(t *testing.T) {
	require.True(t, Box{XMin: 0, YMin: 0, XMax: 1, YMax: 1}.Valid())
	require.False(t, Box{XMin: 1, YMin: 0, XMax: 1, YMax: 1}.Valid())
	require.False(t, Box{XMin: 0, YMin: 2, XMax: 1, YMax: 1}.Valid())
	require.False(t, Box{XMin: math.NaN(), YMin: 0, XMax: 1, YMax: 1}.Valid())
}

func TestNormalizedRoundTrip(t *testing.T) {
	b := Box{Class: "car", XMin: 128, YMin: 64, XMax: 384, YMax: 320}
	n := b.Normalized(1024, 512)
	require.Equal(t, NormBox{Class: "car", CX: 0.25, CY: 0.375, W: 0.25, H: 0.5}, n)
	back, ok := n.Absolute(1024, 512)
	require.True(t, ok)
	require.Equal(t, b, back)
}

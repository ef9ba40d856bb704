package overlap

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"annofuse/internal/annotation"
)

func box(x1, y1, x2, y2 float64) annotation.Box {
	return annotation.Box{Class: "vehicle", XMin: x1, YMin: y1, XMax: x2, YMax: y2}
}

func TestIOUIdentity(t *testing.T) {
	a := box(10, 10, 50, 40)
	require.Equal(t, 1.0, IOU(a, a))
}

func TestIOUDisjointAndTouching(t *testing.T) {
	require.Zero(t, IOU(box(0, 0, 10, 10), box(20, 20, 30, 30)))
	require.Zero(t, IOU(box(0, 0, 10, 10), box(10, 0, 20, 10)), "shared edge has no area")
}

func TestIOUKnownValue(t *testing.T) {
	// 5x10 overlap, union 100+100-50
	require.InDelta(t, 50.0/150.0, IOU(box(0, 0, 10, 10), box(5, 0, 15, 10)), 1e-12)
	// contained box
	require.InDelta(t, 0.25, IOU(box(0, 0, 10, 10), box(0, 0, 5, 5)), 1e-12)
}

func TestIOUDegenerateUnion(t *testing.T) {
	require.Zero(t, IOU(box(5, 5, 5, 5), box(5, 5, 5, 5)))
	require.Zero(t, IOU(annotation.Box{}, annotation.Box{}))
}

func TestIOURangeAndSymmetry(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for range 500 {
		a := randomBox(rng)
		b := randomBox(rng)
		ab := IOU(a, b)
		require.GreaterOrEqual(t, ab, 0.0)
		require.LessOrEqual(t, ab, 1.0)
		require.Equal(t, ab, IOU(b, a))
	}
}

func randomBox(rng *rand.Rand) annotation.Box {
	x := rng.Float64() * 100
	y := rng.Float64() * 100
	return box(x, y, x+1+rng.Float64()*50, y+1+rng.Float64()*50)
}

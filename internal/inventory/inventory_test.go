package inventory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"annofuse/internal/annotation"
)

func box(class string) annotation.Box {
	return annotation.Box{Class: class, XMin: 0, YMin: 0, XMax: 10, YMax: 10}
}

func key(capture, channel string, frame int) annotation.Key {
	return annotation.Key{CaptureID: capture, Channel: channel, Frame: frame}
}

func fixture() *annotation.Store {
	s := annotation.NewStore()
	s.Put(key("c1", "aps", 1), []annotation.Box{box("stand"), box("sit")})
	s.Put(key("c1", "evs", 1), []annotation.Box{box("stand")})
	s.Put(key("c2", "aps", 1), []annotation.Box{box("stand"), box("knee"), box("knee")})
	s.Put(key("c3", "aps", 4), []annotation.Box{box("lie"), box("stand")})
	return s
}

func TestSummarize(t *testing.T) {
	s := Summarize(fixture())
	require.Equal(t, 4, s.Keys)
	require.Equal(t, 8, s.Boxes)
	require.Equal(t, 3, s.Captures)
	require.Equal(t, []ClassCount{
		{Class: "stand", Count: 4},
		{Class: "knee", Count: 2},
		{Class: "lie", Count: 1},
		{Class: "sit", Count: 1},
	}, s.Classes)
	require.Equal(t, map[string]int{"stand": 1}, s.PerChannel["evs"])
	require.Equal(t, map[string]int{"stand": 1, "knee": 2}, s.PerCapture["c2"])
	require.InDelta(t, 2.0, s.BoxesPerFrame.Mean, 1e-9)
	require.InDelta(t, 0.816496580927726, s.BoxesPerFrame.StdDev, 1e-9)
	require.Equal(t, 1, s.BoxesPerFrame.Min)
	require.Equal(t, 3, s.BoxesPerFrame.Max)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(annotation.NewStore())
	require.Zero(t, s.Keys)
	require.Empty(t, s.Classes)
	require.Equal(t, FrameStats{}, s.BoxesPerFrame)
}

func TestNonTarget(t *testing.T) {
	got := NonTarget(fixture(), []string{"stand", "sit", "lie", "kneel"})
	require.Equal(t, []CaptureClasses{
		{CaptureID: "c2", Classes: []ClassCount{{Class: "knee", Count: 2}}},
	}, got)
}

func TestKeysWith(t *testing.T) {
	require.Equal(t, []annotation.Key{key("c1", "aps", 1), key("c3", "aps", 4)}, KeysWith(fixture(), []string{"sit", "lie"}))
	require.Empty(t, KeysWith(fixture(), []string{"vehicle"}))
}

func TestSampleIsSeeded(t *testing.T) {
	s := annotation.NewStore()
	for i := range 50 {
		s.Put(key("c1", "aps", i), []annotation.Box{box("stand")})
	}
	a := Sample(s, 5, 42)
	b := Sample(s, 5, 42)
	require.Equal(t, a, b)
	require.Len(t, a["stand"], 5)
	require.IsIncreasing(t, frames(a["stand"]))

	all := Sample(fixture(), 10, 1)
	require.Len(t, all["stand"], 4)
	require.Len(t, all["knee"], 1)
}

func frames(keys []annotation.Key) []int {
	out := make([]int, len(keys))
	for i, k := range keys {
		out[i] = k.Frame
	}
	return out
}

package annotation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var k1 = Key{CaptureID: "c1", Channel: "aps", Frame: 1}

func TestLookupMissingKeyIsEmpty(t *testing.T) {
	s := NewStore()
	got := s.Lookup(k1)
	require.NotNil(t, got)
	require.Empty(t, got)

	var nilStore *Store
	require.Empty(t, nilStore.Lookup(k1))
	require.Zero(t, nilStore.Len())
}

func TestPutReplacesAndDropsDegenerate(t *testing.T) {
	s := NewStore()
	s.Put(k1, []Box{{Class: "a", XMax: 1, YMax: 1}})
	dropped := s.Put(k1, []Box{{Class: "b", XMax: 2, YMax: 2}, {Class: "bad", XMin: 3, XMax: 3, YMax: 1}})
	require.Equal(t, 1, dropped)
	require.Equal(t, []Box{{Class: "b", XMax: 2, YMax: 2}}, s.Lookup(k1))

	s.Put(k1, nil)
	require.False(t, s.Has(k1))
}

func TestLookupReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Append(k1, Box{Class: "a", XMax: 1, YMax: 1})
	got := s.Lookup(k1)
	got[0].Class = "mutated"
	require.Equal(t, "a", s.Lookup(k1)[0].Class)
}

func TestCloneAndEqual(t *testing.T) {
	s := NewStore()
	s.Append(k1, Box{Class: "a", XMax: 1, YMax: 1})
	c := s.Clone()
	require.True(t, s.Equal(c))
	c.Append(k1, Box{Class: "b", XMax: 1, YMax: 1})
	require.False(t, s.Equal(c))
	require.Equal(t, 1, s.BoxCount())
	require.Equal(t, 2, c.BoxCount())
	require.True(t, NewStore().Equal(NewStore()))
}

func TestLoadSkipsBadRecords(t *testing.T) {
	k2 := Key{CaptureID: "c2", Channel: "evs", Frame: 9}
	records := []Record{
		{Key: k1, Fields: []string{"0", "0.5", "0.5", "0.2", "0.2"}, Source: "a.txt", Line: 1},
		{Key: k1, Fields: []string{"0", "0.5", "0.5", "0.2"}, Source: "a.txt", Line: 2},
		{Key: k1, Fields: []string{"0", "0.5", "x", "0.2", "0.2"}, Source: "a.txt", Line: 3},
		{Key: k1, Fields: []string{"1", "0.25", "0.25", "0.1", "0.1"}, Source: "a.txt", Line: 4},
		{Key: k2, Fields: []string{"0", "0.5", "0.5", "0", "0.2"}, Source: "b.txt", Line: 1},
	}
	store, report := Load(records, YOLOParser(100, 100, []string{"person", "car"}))

	require.Equal(t, 2, report.Loaded)
	require.Equal(t, 3, report.Skipped)
	require.Equal(t, 1, report.Reasons["expected 5 fields, got 4"])
	require.Equal(t, 1, report.Reasons[`non-numeric field "x"`])
	require.Equal(t, 1, report.Reasons["degenerate box"])
	require.Len(t, report.Diagnostics, 3)
	require.Contains(t, report.Diagnostics[0], "a.txt:2")

	require.Equal(t, 1, store.Len())
	boxes := store.Lookup(k1)
	require.Len(t, boxes, 2)
	require.Equal(t, "person", boxes[0].Class)
	require.Equal(t, "car", boxes[1].Class)
	require.False(t, store.Has(k2))
}

func TestCornerParser(t *testing.T) {
	parse := CornerParser()
	box, err := parse([]string{"vehicle", "10", "20", "30", "40"})
	require.NoError(t, err)
	require.Equal(t, Box{Class: "vehicle", XMin: 10, YMin: 20, XMax: 30, YMax: 40}, box)

	_, err = parse([]string{"vehicle", "10.5", "20", "30", "40"})
	require.Error(t, err)
	_, err = parse([]string{"", "10", "20", "30", "40"})
	require.Error(t, err)
}

func TestLoadReportMerge(t *testing.T) {
	var total LoadReport
	total.Merge(LoadReport{Loaded: 2, Skipped: 1, Reasons: map[string]int{"x": 1}, Diagnostics: []string{"d1"}})
	total.Merge(LoadReport{Loaded: 1, Skipped: 2, Reasons: map[string]int{"x": 1, "y": 1}})
	require.Equal(t, 3, total.Loaded)
	require.Equal(t, 3, total.Skipped)
	require.Equal(t, map[string]int{"x": 2, "y": 1}, total.Reasons)
	require.Equal(t, []string{"d1"}, total.Diagnostics)
}

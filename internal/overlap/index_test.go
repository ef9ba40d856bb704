package overlap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"annofuse/internal/annotation"
)

func TestIndexCandidates(t *testing.T) {
	idx := NewIndex([]annotation.Box{
		box(0, 0, 10, 10),
		box(100, 100, 120, 120),
		box(5, 5, 15, 15),
	})
	got := idx.Candidates(box(8, 8, 12, 12))
	require.ElementsMatch(t, []annotation.Box{box(0, 0, 10, 10), box(5, 5, 15, 15)}, got)
	require.Empty(t, idx.Candidates(box(50, 50, 60, 60)))
}

func TestIndexEmpty(t *testing.T) {
	idx := NewIndex(nil)
	require.Empty(t, idx.Candidates(box(0, 0, 1, 1)))
	require.Empty(t, idx.All())
}

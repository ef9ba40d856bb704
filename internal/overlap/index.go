package overlap

import (
	flatbush "github.com/bmharper/flatbush-go"

	"annofuse/internal/annotation"
)

// Index answers "which boxes might overlap this one" for a fixed set of
// boxes. An Index is not safe for concurrent use.
type Index struct {
	boxes []annotation.Box
	tree  *flatbush.Flatbush[float64]
	hits  []int
}

// NewIndex builds a spatial index over boxes.
func NewIndex(boxes []annotation.Box) *Index {
	idx := &Index{boxes: boxes}
	if len(boxes) == 0 {
		return idx
	}
	fb := flatbush.NewFlatbush[float64]()
	fb.Reserve(len(boxes))
	for _, b := range boxes {
		fb.Add(b.XMin, b.YMin, b.XMax, b.YMax)
	}
	fb.Finish()
	idx.tree = fb
	return idx
}

// Candidates returns boxes whose extents touch b. Boxes outside that set
// have an IOU of zero with b.
func (i *Index) Candidates(b annotation.Box) []annotation.Box {
	if i.tree == nil {
		return nil
	}
	i.hits = i.tree.SearchFast(b.XMin, b.YMin, b.XMax, b.YMax, i.hits[:0])
	out := make([]annotation.Box, 0, len(i.hits))
	for _, pos := range i.hits {
		out = append(out, i.boxes[pos])
	}
	return out
}

// All returns every indexed box in insertion order.
func (i *Index) All() []annotation.Box {
	return i.boxes
}


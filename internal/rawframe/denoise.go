package rawframe

import (
	"fmt"
	"strings"
)

// Border selects how Denoise fills cells outside the frame.
type Border int

const (
	// BorderReflect mirrors the frame about its edge, repeating the edge
	// pixel (d c b a | a b c d | d c b a).
	BorderReflect Border = iota
	// BorderConstant treats cells outside the frame as belonging to no class.
	BorderConstant
)

func (b Border) String() string {
	if b == BorderConstant {
		return "constant"
	}
	return "reflect"
}

// ParseBorder resolves a border name ("reflect" or "constant").
func ParseBorder(name string) (Border, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "reflect":
		return BorderReflect, nil
	case "constant":
		return BorderConstant, nil
	default:
		return BorderReflect, fmt.Errorf("unknown border mode %q (want reflect or constant)", name)
	}
}

// Options configures Denoise.
type Options struct {
	// Window is the side of the square filter window. Values <= 1 disable
	// filtering.
	Window int
	// Occupancy, when in (0,1], assigns a class where at least this share of
	// the window holds it. Zero uses the binary median.
	Occupancy float64
	// Border fills the window where it hangs over the frame edge.
	Border Border
}

// Denoise median-filters each class plane independently. Classes are
// processed in ascending order and later classes overwrite earlier ones;
// pixels no class claims become background.
func Denoise(f *Frame, opts Options) *Frame {
	k := opts.Window
	if k <= 1 || f.Height == 0 || f.Width == 0 {
		return f.Clone()
	}
	h, w := f.Height, f.Width
	n := k * k
	need := n - n/2
	if opts.Occupancy > 0 && opts.Occupancy <= 1 {
		need = ceilShare(opts.Occupancy, n)
	}

	// The window around (r, c) covers offsets -k/2 .. (k-1)/2, so in padded
	// coordinates it spans rows r..r+k-1 and columns c..c+k-1.
	rows := paddedSources(h, k, opts.Border)
	cols := paddedSources(w, k, opts.Border)
	ph, pw := len(rows), len(cols)
	stride := pw + 1
	sums := make([]int, (ph+1)*stride)

	out := NewFrame(h, w)
	for class := range uint8(NumClasses) {
		// summed-area table of the padded indicator plane
		for pr, sr := range rows {
			rowSum := 0
			for pc, sc := range cols {
				if sr >= 0 && sc >= 0 && f.Pix[sr*w+sc] == class {
					rowSum++
				}
				sums[(pr+1)*stride+pc+1] = sums[pr*stride+pc+1] + rowSum
			}
		}
		for r := range h {
			for c := range w {
				ones := sums[(r+k)*stride+c+k] - sums[r*stride+c+k] - sums[(r+k)*stride+c] + sums[r*stride+c]
				if ones >= need {
					out.Pix[r*w+c] = class
				}
			}
		}
	}
	return out
}

// paddedSources maps each padded coordinate along an axis of length n to
// its source coordinate, or -1 for a constant border cell.
func paddedSources(n, k int, border Border) []int {
	before := k / 2
	src := make([]int, n+k-1)
	period := 2 * n
	for p := range src {
		i := p - before
		switch {
		case i >= 0 && i < n:
			src[p] = i
		case border == BorderConstant:
			src[p] = -1
		default:
			m := i % period
			if m < 0 {
				m += period
			}
			if m >= n {
				m = period - 1 - m
			}
			src[p] = m
		}
	}
	return src
}

// ceilShare is the smallest count whose share of n reaches occupancy.
func ceilShare(occupancy float64, n int) int {
	need := int(occupancy * float64(n))
	if float64(need) < occupancy*float64(n) {
		need++
	}
	return max(need, 1)
}

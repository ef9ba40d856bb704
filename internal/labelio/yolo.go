package labelio

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"annofuse/internal/annotation"
	"annofuse/internal/fileutil"
)

// YOLOLine is one "class cx cy w h" entry.
type YOLOLine struct {
	Class int
	CX    float64
	CY    float64
	W     float64
	H     float64
}

// Norm returns the line as a normalized box with the given class label.
func (l YOLOLine) Norm(class string) annotation.NormBox {
	return annotation.NormBox{Class: class, CX: l.CX, CY: l.CY, W: l.W, H: l.H}
}

func (l YOLOLine) String() string {
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return strings.Join([]string{strconv.Itoa(l.Class), format(l.CX), format(l.CY), format(l.W), format(l.H)}, " ")
}

// YOLORecords splits a YOLO file into raw records under key. Blank lines are
// ignored; field validation is left to the parser.
func YOLORecords(path string, key annotation.Key) ([]annotation.Record, error) {
	data, err := readText(path)
	if err != nil {
		return nil, err
	}
	var records []annotation.Record
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		records = append(records, annotation.Record{Key: key, Fields: fields, Source: path, Line: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return records, nil
}

// ReadYOLO parses a YOLO file into lines. Malformed lines are returned as
// format errors and otherwise skipped.
func ReadYOLO(path string) ([]YOLOLine, []error, error) {
	records, err := YOLORecords(path, annotation.Key{})
	if err != nil {
		return nil, nil, err
	}
	lines := make([]YOLOLine, 0, len(records))
	var skipped []error
	for _, rec := range records {
		l, err := parseYOLOFields(rec.Fields)
		if err != nil {
			skipped = append(skipped, &annotation.FormatError{Source: rec.Source, Line: rec.Line, Reason: err.Error()})
			continue
		}
		lines = append(lines, l)
	}
	return lines, skipped, nil
}

func parseYOLOFields(fields []string) (YOLOLine, error) {
	if len(fields) != 5 {
		return YOLOLine{}, fmt.Errorf("expected 5 fields, got %d", len(fields))
	}
	class, err := strconv.Atoi(fields[0])
	if err != nil || class < 0 {
		return YOLOLine{}, fmt.Errorf("invalid class index %q", fields[0])
	}
	var v [4]float64
	for i, f := range fields[1:] {
		v[i], err = strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return YOLOLine{}, fmt.Errorf("non-numeric field %q", f)
		}
	}
	return YOLOLine{Class: class, CX: v[0], CY: v[1], W: v[2], H: v[3]}, nil
}

// FormatYOLO renders lines one per row with a trailing newline.
func FormatYOLO(lines []YOLOLine) []byte {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l.String())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// WriteYOLO writes lines to path.
func WriteYOLO(path string, lines []YOLOLine) error {
	return fileutil.WriteFileAtomic(path, FormatYOLO(lines), 0o644)
}

// ZeroClass returns a copy of lines with every class index set to 0.
func ZeroClass(lines []YOLOLine) []YOLOLine {
	out := make([]YOLOLine, len(lines))
	for i, l := range lines {
		l.Class = 0
		out[i] = l
	}
	return out
}

// YOLOFromBoxes converts absolute boxes back to normalized lines. classIndex
// resolves a label to its index; unknown labels are skipped.
func YOLOFromBoxes(boxes []annotation.Box, width, height int, classIndex map[string]int) []YOLOLine {
	lines := make([]YOLOLine, 0, len(boxes))
	for _, b := range boxes {
		idx, ok := classIndex[b.Class]
		if !ok {
			if n, err := strconv.Atoi(b.Class); err == nil && n >= 0 {
				idx, ok = n, true
			}
		}
		if !ok {
			continue
		}
		n := b.Normalized(width, height)
		lines = append(lines, YOLOLine{Class: idx, CX: n.CX, CY: n.CY, W: n.W, H: n.H})
	}
	return lines
}

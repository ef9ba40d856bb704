package annotation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const maxDiagnostics = 20

// Record is one raw box as produced by a label parser, before numeric
// conversion.
type Record struct {
	Key    Key
	Fields []string
	Source string
	Line   int
}

// RecordResult is the outcome of converting a single record.
type RecordResult struct {
	Key Key
	Box Box
	Err error
}

// Skipped reports whether the record was dropped.
func (r RecordResult) Skipped() bool { return r.Err != nil }

// BoxParser converts raw fields into a box.
type BoxParser func(fields []string) (Box, error)

// LoadReport aggregates per-record outcomes of a Load call.
type LoadReport struct {
	Loaded      int
	Skipped     int
	Reasons     map[string]int
	Diagnostics []string
}

func (r *LoadReport) record(res RecordResult) {
	if !res.Skipped() {
		r.Loaded++
		return
	}
	r.Skipped++
	if r.Reasons == nil {
		r.Reasons = make(map[string]int)
	}
	reason := "invalid record"
	var fe *FormatError
	if errors.As(res.Err, &fe) {
		reason = fe.Reason
	}
	r.Reasons[reason]++
	if len(r.Diagnostics) < maxDiagnostics {
		r.Diagnostics = append(r.Diagnostics, res.Err.Error())
	}
}

// Merge folds another report into r.
func (r *LoadReport) Merge(other LoadReport) {
	r.Loaded += other.Loaded
	r.Skipped += other.Skipped
	for reason, n := range other.Reasons {
		if r.Reasons == nil {
			r.Reasons = make(map[string]int)
		}
		r.Reasons[reason] += n
	}
	for _, d := range other.Diagnostics {
		if len(r.Diagnostics) >= maxDiagnostics {
			break
		}
		r.Diagnostics = append(r.Diagnostics, d)
	}
}

// ParseRecord converts rec with parse, reporting a FormatError on failure.
func ParseRecord(rec Record, parse BoxParser) RecordResult {
	box, err := parse(rec.Fields)
	if err != nil {
		reason := err.Error()
		var fe *FormatError
		if errors.As(err, &fe) {
			reason = fe.Reason
		}
		return RecordResult{Key: rec.Key, Err: &FormatError{Source: rec.Source, Line: rec.Line, Reason: reason}}
	}
	if !box.Valid() {
		return RecordResult{Key: rec.Key, Err: &FormatError{Source: rec.Source, Line: rec.Line, Reason: "degenerate box"}}
	}
	return RecordResult{Key: rec.Key, Box: box}
}

// Load groups records into a new store. Bad records are skipped and counted;
// boxes for the same key accumulate within one call.
func Load(records []Record, parse BoxParser) (*Store, LoadReport) {
	store := NewStore()
	var report LoadReport
	for _, rec := range records {
		res := ParseRecord(rec, parse)
		report.record(res)
		if !res.Skipped() {
			store.Append(res.Key, res.Box)
		}
	}
	return store, report
}

// YOLOParser reads "class cx cy w h" fields and converts them to pixel
// corners for a width x height image. names maps class indices to labels;
// indices outside names keep their numeric text.
func YOLOParser(width, height int, names []string) BoxParser {
	return func(fields []string) (Box, error) {
		if len(fields) != 5 {
			return Box{}, &FormatError{Reason: fmt.Sprintf("expected 5 fields, got %d", len(fields))}
		}
		values, err := parseFloats(fields)
		if err != nil {
			return Box{}, err
		}
		class := strings.TrimSpace(fields[0])
		if idx := int(values[0]); float64(idx) == values[0] && idx >= 0 && idx < len(names) {
			class = names[idx]
		}
		norm := NormBox{Class: class, CX: values[1], CY: values[2], W: values[3], H: values[4]}
		box, ok := norm.Absolute(width, height)
		if !ok {
			return Box{}, &FormatError{Reason: "degenerate box"}
		}
		return box, nil
	}
}

// CornerParser reads "name xmin ymin xmax ymax" fields as produced from VOC
// objects. Corners must be integers.
func CornerParser() BoxParser {
	return func(fields []string) (Box, error) {
		if len(fields) != 5 {
			return Box{}, &FormatError{Reason: fmt.Sprintf("expected 5 fields, got %d", len(fields))}
		}
		name := strings.TrimSpace(fields[0])
		if name == "" {
			return Box{}, &FormatError{Reason: "empty class name"}
		}
		var corners [4]float64
		for i, f := range fields[1:] {
			v, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return Box{}, &FormatError{Reason: fmt.Sprintf("non-integer corner %q", f)}
			}
			corners[i] = float64(v)
		}
		return Box{Class: name, XMin: corners[0], YMin: corners[1], XMax: corners[2], YMax: corners[3]}, nil
	}
}

func parseFloats(fields []string) ([]float64, error) {
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &FormatError{Reason: fmt.Sprintf("non-numeric field %q", f)}
		}
		values[i] = v
	}
	return values, nil
}

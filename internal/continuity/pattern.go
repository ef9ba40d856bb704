package continuity

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

// Pattern selects frame files by name. With an empty Prefix the index is the
// token after the last underscore and before the first dot.
type Pattern struct {
	Name   string `toml:"name"`
	Prefix string `toml:"prefix"`
	Suffix string `toml:"suffix"`
}

// Built-in naming schemes of the two sensor channels.
var (
	APSPNG = Pattern{Name: "aps_png", Prefix: "3264_2448_10_", Suffix: ".png"}
	APSRaw = Pattern{Name: "aps_raw", Prefix: "3264_2448_10_", Suffix: ".raw"}
	EVSPNG = Pattern{Name: "evs_png", Prefix: "816_612_8_", Suffix: ".png"}
	EVSRaw = Pattern{Name: "evs_raw", Prefix: "816_612_8_", Suffix: ".raw"}
	EVSTxt = Pattern{Name: "evs_txt", Prefix: "816_612_8_", Suffix: ".txt"}
)

// BuiltinPatterns returns the known patterns keyed by name.
func BuiltinPatterns() map[string]Pattern {
	return map[string]Pattern{
		APSPNG.Name: APSPNG,
		APSRaw.Name: APSRaw,
		EVSPNG.Name: EVSPNG,
		EVSRaw.Name: EVSRaw,
		EVSTxt.Name: EVSTxt,
	}
}

// Index extracts the frame index from name. ok is false when the name does
// not follow the pattern.
func (p Pattern) Index(name string) (int, bool) {
	if p.Suffix != "" && !strings.HasSuffix(name, p.Suffix) {
		return 0, false
	}
	if p.Prefix == "" {
		stem, _, _ := strings.Cut(name, ".")
		if i := strings.LastIndex(stem, "_"); i >= 0 {
			stem = stem[i+1:]
		}
		return parseIndex(stem)
	}
	if !strings.HasPrefix(name, p.Prefix) {
		return 0, false
	}
	middle := strings.TrimSuffix(strings.TrimPrefix(name, p.Prefix), p.Suffix)
	if p.Suffix == "" {
		middle, _, _ = strings.Cut(middle, ".")
	}
	return parseIndex(middle)
}

func parseIndex(token string) (int, bool) {
	if token == "" {
		return 0, false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ScanResult lists the indices found in one directory.
type ScanResult struct {
	Dir      string
	Indices  []int
	Excluded int
}

// ScanDir collects the frame indices of the regular files in dir matching p.
func ScanDir(dir string, p Pattern) (ScanResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ScanResult{}, fmt.Errorf("scan %s: %w", dir, err)
	}
	res := ScanResult{Dir: dir, Indices: make([]int, 0, len(entries))}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		idx, ok := p.Index(entry.Name())
		if !ok {
			res.Excluded++
			continue
		}
		res.Indices = append(res.Indices, idx)
	}
	slices.Sort(res.Indices)
	return res, nil
}

// CheckDir scans dir and checks the indices found. A directory with no
// matching files yields an EmptyInputError naming it.
func CheckDir(dir string, p Pattern) (Report, ScanResult, error) {
	scan, err := ScanDir(dir, p)
	if err != nil {
		return Report{}, scan, err
	}
	if len(scan.Indices) == 0 {
		return Report{}, scan, &EmptyInputError{Subject: dir}
	}
	report, err := Check(scan.Indices)
	return report, scan, err
}

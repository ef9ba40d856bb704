package capture

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strings"
)

// ListIDs returns the names of the subdirectories of dir starting with
// prefix, sorted.
func ListIDs(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			ids = append(ids, entry.Name())
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// ReadIDList reads one capture id per line, ignoring blanks and # comments.
func ReadIDList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\uFEFF"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ids, nil
}

// IDDiff is the comparison of two capture-id sets.
type IDDiff struct {
	OnlyLeft  []string `json:"only_left"`
	OnlyRight []string `json:"only_right"`
	Common    []string `json:"common"`
}

// Diff compares two id lists as sets. Each output list is sorted and never
// nil.
func Diff(left, right []string) IDDiff {
	inLeft := make(map[string]bool, len(left))
	for _, id := range left {
		inLeft[id] = true
	}
	inRight := make(map[string]bool, len(right))
	for _, id := range right {
		inRight[id] = true
	}
	d := IDDiff{OnlyLeft: []string{}, OnlyRight: []string{}, Common: []string{}}
	for id := range inLeft {
		if inRight[id] {
			d.Common = append(d.Common, id)
		} else {
			d.OnlyLeft = append(d.OnlyLeft, id)
		}
	}
	for id := range inRight {
		if !inLeft[id] {
			d.OnlyRight = append(d.OnlyRight, id)
		}
	}
	slices.Sort(d.OnlyLeft)
	slices.Sort(d.OnlyRight)
	slices.Sort(d.Common)
	return d
}

package capture

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

var duplicateName = regexp.MustCompile(`^(.+?)\(\d+\)\.xml$`)

// Duplicate is a label copy such as "frame_1(1).xml" whose original
// "frame_1.xml" sits in the same directory.
type Duplicate struct {
	Path     string `json:"path"`
	Original string `json:"original"`
}

// FindDuplicates walks dir for duplicate label copies.
func FindDuplicates(dir string) ([]Duplicate, error) {
	var dups []Duplicate
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		m := duplicateName.FindStringSubmatch(d.Name())
		if m == nil {
			return nil
		}
		original := filepath.Join(filepath.Dir(path), m[1]+".xml")
		if exists(original) {
			dups = append(dups, Duplicate{Path: path, Original: original})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(dups, func(a, b Duplicate) int { return strings.Compare(a.Path, b.Path) })
	return dups, nil
}

// RemoveDuplicates deletes the duplicate copies, never the originals.
func RemoveDuplicates(dups []Duplicate) (int, error) {
	removed := 0
	var errs []error
	for _, d := range dups {
		if err := os.Remove(d.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

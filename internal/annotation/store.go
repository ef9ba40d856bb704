package annotation

import (
	"slices"
)

// Store maps keys to their boxes. The zero value is not usable; call NewStore.
// A key is present only while it holds at least one box.
type Store struct {
	entries map[Key][]Box
}

func NewStore() *Store {
	return &Store{entries: make(map[Key][]Box)}
}

// Put replaces the boxes stored under key. Degenerate boxes are dropped and
// their count returned. A key left without boxes is removed.
func (s *Store) Put(key Key, boxes []Box) int {
	kept := make([]Box, 0, len(boxes))
	for _, b := range boxes {
		if b.Valid() {
			kept = append(kept, b)
		}
	}
	if len(kept) == 0 {
		delete(s.entries, key)
	} else {
		s.entries[key] = kept
	}
	return len(boxes) - len(kept)
}

// Append adds boxes to key, keeping whatever is already there. It reports
// how many were stored.
func (s *Store) Append(key Key, boxes ...Box) int {
	added := 0
	for _, b := range boxes {
		if !b.Valid() {
			continue
		}
		s.entries[key] = append(s.entries[key], b)
		added++
	}
	return added
}

// Lookup returns a copy of the boxes under key. Absent keys yield an empty
// slice.
func (s *Store) Lookup(key Key) []Box {
	if s == nil {
		return []Box{}
	}
	boxes, ok := s.entries[key]
	if !ok {
		return []Box{}
	}
	return slices.Clone(boxes)
}

func (s *Store) Has(key Key) bool {
	if s == nil {
		return false
	}
	_, ok := s.entries[key]
	return ok
}

func (s *Store) Delete(key Key) {
	delete(s.entries, key)
}

// Len returns the number of keys.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// BoxCount returns the number of boxes across all keys.
func (s *Store) BoxCount() int {
	if s == nil {
		return 0
	}
	total := 0
	for _, boxes := range s.entries {
		total += len(boxes)
	}
	return total
}

// Keys returns every key in capture/channel/frame order.
func (s *Store) Keys() []Key {
	if s == nil {
		return nil
	}
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, CompareKeys)
	return keys
}

// Range visits keys in order until fn returns false. The slice passed to fn
// must not be retained or modified.
func (s *Store) Range(fn func(Key, []Box) bool) {
	for _, k := range s.Keys() {
		if !fn(k, s.entries[k]) {
			return
		}
	}
}

// Clone returns a deep copy.
func (s *Store) Clone() *Store {
	out := NewStore()
	if s == nil {
		return out
	}
	for k, boxes := range s.entries {
		out.entries[k] = slices.Clone(boxes)
	}
	return out
}

// Equal reports whether both stores hold the same keys with the same boxes in
// the same order.
func (s *Store) Equal(other *Store) bool {
	if s.Len() != other.Len() {
		return false
	}
	if s.Len() == 0 {
		return true
	}
	for k, boxes := range s.entries {
		theirs, ok := other.entries[k]
		if !ok || !slices.Equal(boxes, theirs) {
			return false
		}
	}
	return true
}

// Captures returns the distinct capture ids in sorted order.
func (s *Store) Captures() []string {
	seen := make(map[string]struct{})
	for k := range s.entriesOrEmpty() {
		seen[k.CaptureID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (s *Store) entriesOrEmpty() map[Key][]Box {
	if s == nil {
		return nil
	}
	return s.entries
}

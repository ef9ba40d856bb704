package annotation

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Key identifies one labelled frame across directory trees.
type Key struct {
	CaptureID string
	Channel   string
	Frame     int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d", k.CaptureID, k.Channel, k.Frame)
}

// Less orders keys by capture, channel, then frame.
func (k Key) Less(other Key) bool {
	if k.CaptureID != other.CaptureID {
		return k.CaptureID < other.CaptureID
	}
	if k.Channel != other.Channel {
		return k.Channel < other.Channel
	}
	return k.Frame < other.Frame
}

// CompareKeys is a three-way comparison suitable for slices.SortFunc.
func CompareKeys(a, b Key) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}

// DeriveKey extracts a key from a path whose first segment is the scan root,
// followed by the capture id, the channel, and eventually the file. Both
// slash styles are accepted so keys derived on different hosts compare equal.
func DeriveKey(path string) (Key, error) {
	parts := splitPath(path)
	if len(parts) < 4 {
		return Key{}, &MalformedKeyError{Path: path, Reason: fmt.Sprintf("expected root/capture/channel/file, got %d segments", len(parts))}
	}
	capture := strings.TrimSpace(parts[1])
	channel := strings.ToLower(strings.TrimSpace(parts[2]))
	if capture == "" || channel == "" {
		return Key{}, &MalformedKeyError{Path: path, Reason: "empty capture or channel segment"}
	}
	frame, err := FrameIndex(parts[len(parts)-1])
	if err != nil {
		return Key{}, &MalformedKeyError{Path: path, Reason: err.Error()}
	}
	return Key{CaptureID: capture, Channel: channel, Frame: frame}, nil
}

// DeriveKeyUnder derives a key for path relative to root; the root directory
// name becomes segment zero.
func DeriveKeyUnder(root, path string) (Key, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return Key{}, &MalformedKeyError{Path: path, Reason: fmt.Sprintf("not under %s", root)}
	}
	if rel == "." || strings.HasPrefix(rel, "..") {
		return Key{}, &MalformedKeyError{Path: path, Reason: fmt.Sprintf("not under %s", root)}
	}
	return DeriveKey(filepath.Join(filepath.Base(root), rel))
}

// FrameIndex parses the frame number from a file name: the token after the
// last underscore, up to the first dot.
func FrameIndex(name string) (int, error) {
	base := name
	if idx := strings.LastIndexAny(base, `/\`); idx >= 0 {
		base = base[idx+1:]
	}
	token := base
	if idx := strings.LastIndex(token, "_"); idx >= 0 {
		token = token[idx+1:]
	}
	if idx := strings.Index(token, "."); idx >= 0 {
		token = token[:idx]
	}
	if token == "" {
		return 0, fmt.Errorf("no frame token in %q", base)
	}
	frame, err := strconv.Atoi(token)
	if err != nil || frame < 0 || strings.ContainsAny(token, "+-") {
		return 0, fmt.Errorf("frame token %q is not an unsigned integer", token)
	}
	return frame, nil
}

func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	})
}

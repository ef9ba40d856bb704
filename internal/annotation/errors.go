package annotation

import (
	"fmt"

	"annofuse/internal/services"
)

// MalformedKeyError reports a path that does not follow the
// root/capture/channel/.../name_<frame>.ext layout.
type MalformedKeyError struct {
	Path   string
	Reason string
}

func (e *MalformedKeyError) Error() string {
	return fmt.Sprintf("malformed key %q: %s", e.Path, e.Reason)
}

func (e *MalformedKeyError) Unwrap() error { return services.ErrStructural }

// FormatError reports a single record that could not be turned into a box.
type FormatError struct {
	Source string
	Line   int
	Reason string
}

func (e *FormatError) Error() string {
	switch {
	case e.Source != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Reason)
	case e.Source != "":
		return fmt.Sprintf("%s: %s", e.Source, e.Reason)
	default:
		return e.Reason
	}
}

func (e *FormatError) Unwrap() error { return services.ErrFormat }

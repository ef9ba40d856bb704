package logging

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

// infoHighlightKeys are printed first, in this order, on info lines.
var infoHighlightKeys = []string{
	FieldEventType,
	FieldPath,
	"error_message",
	FieldErrorHint,
	FieldImpact,
	"status",
	"files_processed",
	"files_modified",
	"files_written",
	"files_removed",
	"keys_total",
	"keys_modified",
	"boxes_appended",
	"boxes_suppressed",
	"boxes_renamed",
	"boxes_dropped",
	"records_skipped",
	"frames_processed",
	"frames_failed",
	"missing_ranges",
	"findings",
	"errors",
	"warnings",
	"elapsed",
	"reason",
}

// selectInfoFields returns formatted info-level fields and a count of hidden entries.
// limit=0 means no limit. includeDebug controls whether debug-only keys are allowed.
func selectInfoFields(attrs []kv, limit int, includeDebug bool) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	if limit < 0 {
		limit = 0
	}
	used := make([]bool, len(attrs))
	result := make([]infoField, 0, infoAttrLimit)
	hidden := 0

	take := func(idx int) {
		attr := attrs[idx]
		used[idx] = true
		if skipInfoKey(attr.key) {
			return
		}
		if !includeDebug && isDebugOnlyKey(attr.key) {
			hidden++
			return
		}
		val := formatValueForKey(attr.key, attr.value)
		if !includeDebug && shouldHideInfoValue(attr.key, val) {
			hidden++
			return
		}
		if limit > 0 && len(result) >= limit {
			hidden++
			return
		}
		result = append(result, infoField{label: displayLabel(attr.key), value: val})
	}

	for _, key := range infoHighlightKeys {
		for idx, attr := range attrs {
			if !used[idx] && attr.key == key {
				take(idx)
				break
			}
		}
	}
	for idx := range attrs {
		if !used[idx] {
			take(idx)
		}
	}
	return result, hidden
}

// formatValueForKey applies friendlier formatting based on the key name.
func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()

	if isByteSizeKey(key) {
		switch v.Kind() {
		case slog.KindInt64:
			if v.Int64() >= 0 {
				return humanize.IBytes(uint64(v.Int64()))
			}
		case slog.KindUint64:
			return humanize.IBytes(v.Uint64())
		}
	}
	if isCountKey(key) {
		switch v.Kind() {
		case slog.KindInt64:
			return humanize.Comma(v.Int64())
		case slog.KindUint64:
			return humanize.Comma(int64(v.Uint64()))
		}
	}
	if v.Kind() == slog.KindDuration {
		return formatDuration(v.Duration())
	}
	if v.Kind() == slog.KindBool {
		if v.Bool() {
			return "yes"
		}
		return "no"
	}

	value := formatValue(v)
	if key == "error" || key == "error_message" {
		value = truncateErrorValue(value)
	}
	return value
}

func isByteSizeKey(key string) bool {
	return strings.HasSuffix(key, "_bytes") || key == "size" || key == "free_space"
}

func isCountKey(key string) bool {
	switch {
	case strings.HasPrefix(key, "files_"),
		strings.HasPrefix(key, "boxes_"),
		strings.HasPrefix(key, "keys_"),
		strings.HasPrefix(key, "frames_"),
		strings.HasPrefix(key, "records_"):
		return true
	}
	return false
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return strconv.FormatFloat(d.Seconds(), 'f', 1, 64) + "s"
	default:
		return d.Round(time.Second).String()
	}
}

func truncateErrorValue(value string) string {
	value = strings.TrimSpace(value)
	const maxLen = 200
	if len(value) > maxLen {
		value = value[:maxLen] + "…"
	}
	return value
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldComponent, FieldCommand, FieldCaptureID:
		return true
	default:
		return false
	}
}

func isDebugOnlyKey(key string) bool {
	switch key {
	case "", FieldRunID, "pid", "workers", "config_path":
		return true
	}
	return strings.HasSuffix(key, "_dir") && key != "out_dir"
}

func shouldHideInfoValue(key, value string) bool {
	switch key {
	case "error_message", "error", FieldPath, FieldErrorHint:
		return false
	}
	return len(value) > 120
}

func displayLabel(key string) string {
	switch key {
	case FieldEventType:
		return "Event"
	case FieldErrorHint:
		return "Hint"
	case "error_message":
		return "Error"
	case "files_processed":
		return "Files"
	case "files_modified":
		return "Modified"
	case "keys_total":
		return "Keys"
	case "boxes_appended":
		return "Appended"
	case "boxes_suppressed":
		return "Suppressed"
	case "records_skipped":
		return "Skipped"
	case "frames_failed":
		return "Failed Frames"
	case "missing_ranges":
		return "Missing"
	default:
		return titleizeKey(key)
	}
}

func titleizeKey(key string) string {
	if key == "" {
		return ""
	}
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	if len(parts) == 0 {
		return key
	}
	for i, part := range parts {
		parts[i] = capitalizeASCII(part)
	}
	return strings.Join(parts, " ")
}

func capitalizeASCII(value string) string {
	switch len(value) {
	case 0:
		return ""
	case 1:
		return strings.ToUpper(value)
	default:
		lower := strings.ToLower(value)
		return strings.ToUpper(lower[:1]) + lower[1:]
	}
}

// infoSummaryKey scopes the repeated-field filter to one capture. Lines
// without a capture are never filtered.
func infoSummaryKey(component string, subj subject) string {
	if subj.captureID == "" {
		return ""
	}
	return component + "|" + subj.String()
}

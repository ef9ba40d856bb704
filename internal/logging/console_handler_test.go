package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSubjectString(t *testing.T) {
	tests := []struct {
		subj subject
		want string
	}{
		{subject{}, ""},
		{subject{command: "merge"}, "merge"},
		{subject{captureID: "cap"}, "cap"},
		{subject{command: " merge ", captureID: "cap"}, "merge · cap"},
	}
	for _, tt := range tests {
		if got := tt.subj.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.subj, got, tt.want)
		}
	}
}

func TestFormatValueForKey(t *testing.T) {
	tests := []struct {
		key  string
		val  slog.Value
		want string
	}{
		{"output_bytes", slog.Int64Value(1536), "1.5 KiB"},
		{"files_modified", slog.Int64Value(1200000), "1,200,000"},
		{"elapsed", slog.DurationValue(1500 * time.Millisecond), "1.5s"},
		{"elapsed", slog.DurationValue(90 * time.Second), "1m30s"},
		{"keep_unmapped", slog.BoolValue(true), "yes"},
		{"reason", slog.StringValue("two words"), `"two words"`},
	}
	for _, tt := range tests {
		if got := formatValueForKey(tt.key, tt.val); got != tt.want {
			t.Errorf("formatValueForKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestSelectInfoFieldsOrdersHighlightsFirst(t *testing.T) {
	attrs := []kv{
		{key: "threshold", value: slog.Float64Value(0.5)},
		{key: "files_modified", value: slog.Int64Value(3)},
		{key: FieldEventType, value: slog.StringValue("merge_complete")},
		{key: FieldRunID, value: slog.StringValue("abc")},
	}
	fields, hidden := selectInfoFields(attrs, 0, false)
	if hidden != 1 {
		t.Fatalf("hidden = %d, want 1 (run id is debug-only)", hidden)
	}
	var labels []string
	for _, f := range fields {
		labels = append(labels, f.label)
	}
	if got := strings.Join(labels, ","); got != "Event,Modified,Threshold" {
		t.Fatalf("labels = %s", got)
	}
}

func TestRepeatedInfoFieldsCollapsePerCapture(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false)).With(FieldCaptureID, "cap1")

	logger.Info("first", "status", "ok", "frames_failed", 0)
	logger.Info("second", "status", "ok", "frames_failed", 2)

	out := buf.String()
	if strings.Count(out, "Status: ok") != 1 {
		t.Fatalf("unchanged field should print once: %q", out)
	}
	if !strings.Contains(out, "Failed Frames: 2") {
		t.Fatalf("changed field should print: %q", out)
	}
}

func TestProgressSampler(t *testing.T) {
	s := NewProgressSampler(25)
	var logged []int
	for done := 1; done <= 10; done++ {
		if s.ShouldLog(done, 10) {
			logged = append(logged, done)
		}
	}
	// 10%, 30%, 50%, 80%, and the final item.
	want := []int{1, 3, 5, 8, 10}
	if len(logged) != len(want) {
		t.Fatalf("logged = %v, want %v", logged, want)
	}
	for i := range want {
		if logged[i] != want[i] {
			t.Fatalf("logged = %v, want %v", logged, want)
		}
	}

	s.Reset()
	if !s.ShouldLog(1, 10) {
		t.Fatal("reset sampler should log again")
	}
	var nilSampler *ProgressSampler
	if !nilSampler.ShouldLog(1, 2) {
		t.Fatal("nil sampler logs everything")
	}
}

package capture

import "fmt"

// Severity ranks a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding categories.
const (
	CategoryMissingDir    = "missing_dir"
	CategoryMissingVideo  = "missing_video"
	CategoryNoFrames      = "no_frames"
	CategoryDiscontinuous = "discontinuous"
	CategoryExtraFile     = "extra_file"
	CategoryDuplicate     = "duplicate_label"
)

// Finding is one problem found while checking a capture.
type Finding struct {
	CaptureID string   `json:"capture_id"`
	Severity  Severity `json:"severity"`
	Category  string   `json:"category"`
	Subject   string   `json:"subject"`
	Message   string   `json:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Subject, f.Message)
}

// CountBySeverity tallies findings.
func CountBySeverity(findings []Finding) map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}

package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"annofuse/internal/continuity"
)

// Stream is one frame directory expected inside a capture.
type Stream struct {
	Name    string
	Dir     string
	Pattern continuity.Pattern
}

// Layout lists the paths a complete capture contains.
type Layout struct {
	CaptureID string
	Root      string
	Streams   []Stream
	Videos    []string
	Extras    []string
}

// LayoutFor returns the expected layout of the capture rooted at dir. The
// capture id is the directory name.
func LayoutFor(dir string) Layout {
	id := filepath.Base(filepath.Clean(dir))
	apsBase := filepath.Join(dir, "APS", "quadbayer_10bit_3264_2448_"+id)
	evsBase := filepath.Join(dir, "EVS", "normal_v2_816_612_"+id)
	return Layout{
		CaptureID: id,
		Root:      dir,
		Streams: []Stream{
			{Name: "aps_png", Dir: filepath.Join(apsBase, "aps_png"), Pattern: continuity.APSPNG},
			{Name: "aps_raw", Dir: filepath.Join(apsBase, "aps_raw"), Pattern: continuity.APSRaw},
			{Name: "evs_png", Dir: filepath.Join(evsBase, "evs_png"), Pattern: continuity.EVSPNG},
			{Name: "evs_raw", Dir: filepath.Join(evsBase, "evs_raw"), Pattern: continuity.EVSRaw},
		},
		Videos: []string{
			filepath.Join(apsBase, "Video", "quadbayer_10bit_3264_2448_"+id+"_aps.avi"),
			filepath.Join(apsBase, "Video", "quadbayer_10bit_3264_2448_"+id+"_evs_aps.avi"),
			filepath.Join(evsBase, "Video", "normal_v2_816_612_"+id+"_evs.avi"),
		},
		Extras: []string{
			filepath.Join(dir, "ApsEvsInfo.txt"),
			filepath.Join(dir, "DeviceCfg.txt"),
			apsBase + ".bin",
			evsBase + ".bin",
		},
	}
}

// StreamReport is the continuity outcome for one stream.
type StreamReport struct {
	Name     string            `json:"name"`
	Dir      string            `json:"dir"`
	Present  bool              `json:"present"`
	Excluded int               `json:"excluded"`
	Report   continuity.Report `json:"report"`
}

// Result collects everything found for one capture.
type Result struct {
	CaptureID string         `json:"capture_id"`
	Streams   []StreamReport `json:"streams"`
	Extras    []string       `json:"extras"`
	Findings  []Finding      `json:"findings"`
}

// OK reports whether the capture has no error findings.
func (r Result) OK() bool {
	return !slices.ContainsFunc(r.Findings, func(f Finding) bool { return f.Severity == SeverityError })
}

// Check verifies the capture rooted at dir.
func Check(dir string) (Result, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Result{}, err
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("%s is not a directory", dir)
	}
	layout := LayoutFor(dir)
	res := Result{CaptureID: layout.CaptureID, Streams: make([]StreamReport, 0, len(layout.Streams))}
	add := func(sev Severity, category, subject, message string) {
		res.Findings = append(res.Findings, Finding{
			CaptureID: layout.CaptureID,
			Severity:  sev,
			Category:  category,
			Subject:   relTo(dir, subject),
			Message:   message,
		})
	}

	for _, stream := range layout.Streams {
		sr := StreamReport{Name: stream.Name, Dir: stream.Dir}
		report, scan, err := continuity.CheckDir(stream.Dir, stream.Pattern)
		var empty *continuity.EmptyInputError
		switch {
		case errors.Is(err, os.ErrNotExist):
			add(SeverityError, CategoryMissingDir, stream.Dir, "directory does not exist")
		case errors.As(err, &empty):
			sr.Present = true
			sr.Excluded = scan.Excluded
			add(SeverityError, CategoryNoFrames, stream.Dir, fmt.Sprintf("no files matching %s*%s", stream.Pattern.Prefix, stream.Pattern.Suffix))
		case err != nil:
			return Result{}, err
		default:
			sr.Present = true
			sr.Excluded = scan.Excluded
			sr.Report = report
			if !report.IsContinuous {
				add(SeverityError, CategoryDiscontinuous, stream.Dir, "missing frames "+strings.Join(report.MissingRanges, ","))
			}
		}
		res.Streams = append(res.Streams, sr)
	}

	for _, video := range layout.Videos {
		if !exists(video) {
			add(SeverityError, CategoryMissingVideo, video, "expected video file is missing")
		}
	}
	for _, extra := range layout.Extras {
		if exists(extra) {
			res.Extras = append(res.Extras, extra)
			add(SeverityWarning, CategoryExtraFile, extra, "device file left in capture")
		}
	}
	return res, nil
}

// RemoveExtras deletes the listed files and reports how many were removed.
func RemoveExtras(paths []string) (int, error) {
	removed := 0
	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

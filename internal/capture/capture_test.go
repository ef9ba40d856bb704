package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

// buildCapture lays out a complete capture with frames 1..n in each stream.
func buildCapture(t *testing.T, root, id string, n int) string {
	t.Helper()
	dir := filepath.Join(root, id)
	layout := LayoutFor(dir)
	for _, s := range layout.Streams {
		for i := 1; i <= n; i++ {
			touch(t, filepath.Join(s.Dir, fmt.Sprintf("%s%d%s", s.Pattern.Prefix, i, s.Pattern.Suffix)))
		}
	}
	for _, v := range layout.Videos {
		touch(t, v)
	}
	return dir
}

func TestCheckCompleteCapture(t *testing.T) {
	dir := buildCapture(t, t.TempDir(), "20250601120000", 3)

	res, err := Check(dir)
	require.NoError(t, err)
	require.True(t, res.OK())
	require.Empty(t, res.Findings)
	require.Len(t, res.Streams, 4)
	for _, s := range res.Streams {
		require.True(t, s.Report.IsContinuous, s.Name)
		require.Equal(t, []string{"1-3"}, s.Report.PresentRanges)
	}
}

func TestCheckReportsProblems(t *testing.T) {
	dir := buildCapture(t, t.TempDir(), "20250601120000", 5)
	layout := LayoutFor(dir)

	require.NoError(t, os.Remove(filepath.Join(layout.Streams[1].Dir, "3264_2448_10_3.raw")))
	require.NoError(t, os.RemoveAll(layout.Streams[2].Dir))
	require.NoError(t, os.Remove(layout.Videos[2]))
	for _, name := range []string{"816_612_8_1.raw", "816_612_8_2.raw", "816_612_8_3.raw", "816_612_8_4.raw", "816_612_8_5.raw"} {
		require.NoError(t, os.Remove(filepath.Join(layout.Streams[3].Dir, name)))
	}
	touch(t, filepath.Join(layout.Streams[3].Dir, "readme.txt"))
	touch(t, layout.Extras[0])
	touch(t, layout.Extras[3])

	res, err := Check(dir)
	require.NoError(t, err)
	require.False(t, res.OK())

	categories := map[string]int{}
	for _, f := range res.Findings {
		categories[f.Category]++
		require.Equal(t, "20250601120000", f.CaptureID)
	}
	require.Equal(t, map[string]int{
		CategoryDiscontinuous: 1,
		CategoryMissingDir:    1,
		CategoryMissingVideo:  1,
		CategoryNoFrames:      1,
		CategoryExtraFile:     2,
	}, categories)
	require.Equal(t, []string{"3"}, res.Streams[1].Report.MissingRanges)
	require.Equal(t, 1, res.Streams[3].Excluded)
	require.Equal(t, 2, CountBySeverity(res.Findings)[SeverityWarning])

	removed, err := RemoveExtras(res.Extras)
	require.NoError(t, err)
	require.Equal(t, 2, removed)
	require.NoFileExists(t, layout.Extras[0])
}

func TestCheckRejectsMissingDirectory(t *testing.T) {
	_, err := Check(filepath.Join(t.TempDir(), "absent"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestListIDsAndDiff(t *testing.T) {
	root := t.TempDir()
	for _, id := range []string{"20250601", "20250602", "old_capture"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, id), 0o755))
	}
	touch(t, filepath.Join(root, "20250603"))

	ids, err := ListIDs(root, "2025")
	require.NoError(t, err)
	require.Equal(t, []string{"20250601", "20250602"}, ids)

	listPath := filepath.Join(root, "ids.txt")
	require.NoError(t, os.WriteFile(listPath, []byte("\uFEFF20250602\n\n# retired\n20250609\n20250602\n"), 0o644))
	listed, err := ReadIDList(listPath)
	require.NoError(t, err)

	d := Diff(listed, ids)
	require.Equal(t, []string{"20250609"}, d.OnlyLeft)
	require.Equal(t, []string{"20250601"}, d.OnlyRight)
	require.Equal(t, []string{"20250602"}, d.Common)

	empty := Diff(nil, nil)
	require.NotNil(t, empty.OnlyLeft)
	require.Empty(t, empty.Common)
}

func TestFindAndRemoveDuplicates(t *testing.T) {
	root := t.TempDir()
	aps := filepath.Join(root, "20250601", "aps")
	touch(t, filepath.Join(aps, "frame_1.xml"))
	touch(t, filepath.Join(aps, "frame_1(1).xml"))
	touch(t, filepath.Join(aps, "frame_1(2).xml"))
	touch(t, filepath.Join(aps, "frame_2(1).xml"))

	dups, err := FindDuplicates(root)
	require.NoError(t, err)
	require.Len(t, dups, 2)
	require.Equal(t, filepath.Join(aps, "frame_1(1).xml"), dups[0].Path)
	require.Equal(t, filepath.Join(aps, "frame_1.xml"), dups[0].Original)

	removed, err := RemoveDuplicates(dups)
	require.NoError(t, err)
	require.Equal(t, 2, removed)
	require.FileExists(t, filepath.Join(aps, "frame_1.xml"))
	require.FileExists(t, filepath.Join(aps, "frame_2(1).xml"))
}

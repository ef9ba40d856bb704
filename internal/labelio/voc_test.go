package labelio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"annofuse/internal/annotation"
	"annofuse/internal/services"
)

const sampleVOC = `<?xml version="1.0" encoding="utf-8"?>
<annotation>
	<folder>aps_png</folder>
	<filename>3264_2448_10_000001.png</filename>
	<source><database>Unknown</database></source>
	<size><width>3264</width><height>2448</height><depth>3</depth></size>
	<segmented>0</segmented>
	<object>
		<name>vehicle</name>
		<pose>Unspecified</pose>
		<truncated>0</truncated>
		<difficult>0</difficult>
		<occluded>1</occluded>
		<bndbox><xmin>10</xmin><ymin>20</ymin><xmax>110</xmax><ymax>220</ymax></bndbox>
	</object>
	<object>
		<name>person</name>
		<bndbox><xmin>1.5</xmin><ymin>2</ymin><xmax>30</xmax><ymax>40</ymax></bndbox>
	</object>
</annotation>
`

func TestParseVOCBoxes(t *testing.T) {
	doc, err := ParseVOC([]byte(sampleVOC), "frame.xml")
	require.NoError(t, err)

	boxes, skipped := doc.Boxes("frame.xml")
	require.Equal(t, []annotation.Box{{Class: "vehicle", XMin: 10, YMin: 20, XMax: 110, YMax: 220}}, boxes)
	require.Len(t, skipped, 1)
	require.ErrorIs(t, skipped[0], services.ErrFormat)

	w, h, ok := doc.Size.Dims()
	require.True(t, ok)
	require.Equal(t, 3264, w)
	require.Equal(t, 2448, h)
}

func TestVOCRewriteKeepsUnknownElements(t *testing.T) {
	doc, err := ParseVOC([]byte(sampleVOC), "frame.xml")
	require.NoError(t, err)
	doc.AppendBox(annotation.Box{Class: "danger", XMin: 5.9, YMin: 6, XMax: 50, YMax: 60})

	path := filepath.Join(t.TempDir(), "frame.xml")
	require.NoError(t, WriteVOC(path, doc))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	require.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	require.Contains(t, out, "<database>Unknown</database>")
	require.Contains(t, out, "<occluded>1</occluded>")
	require.Contains(t, out, "<name>danger</name>")
	require.Contains(t, out, "<xmin>5</xmin>")

	again, err := ReadVOC(path)
	require.NoError(t, err)
	require.Len(t, again.Objects, 3)
	require.Equal(t, "Unspecified", again.Objects[2].Pose)
}

func TestSyncObjectsKeepsUnchangedObjects(t *testing.T) {
	doc, err := ParseVOC([]byte(sampleVOC), "frame.xml")
	require.NoError(t, err)
	kept := annotation.Box{Class: "vehicle", XMin: 10, YMin: 20, XMax: 110, YMax: 220}
	added := annotation.Box{Class: "vehicle", XMin: 500, YMin: 500, XMax: 600, YMax: 600}

	doc.SyncObjects([]annotation.Box{kept, added})
	require.Len(t, doc.Objects, 2)
	require.Len(t, doc.Objects[0].Extra, 1)
	require.Equal(t, "600", doc.Objects[1].BndBox.XMax)
}

func TestReadVOCGB18030(t *testing.T) {
	text := strings.Replace(sampleVOC, `encoding="utf-8"`, `encoding="gb2312"`, 1)
	text = strings.Replace(text, "<name>person</name>", "<name>行人</name>", 1)
	encoded, err := simplifiedchinese.GB18030.NewEncoder().String(text)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "frame.xml")
	writeFile(t, path, []byte(encoded))

	doc, err := ReadVOC(path)
	require.NoError(t, err)
	require.Equal(t, "行人", doc.Objects[1].Name)
}

func TestParseVOCRejectsBrokenMarkup(t *testing.T) {
	_, err := ParseVOC([]byte("<annotation><object>"), "bad.xml")
	require.ErrorIs(t, err, services.ErrFormat)
}

package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteText writes s to path, creating parent directories.
func WriteText(t testing.TB, path, s string) {
	t.Helper()
	WriteFile(t, path, []byte(s))
}

// ReadText returns the contents of path.
func ReadText(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// VOCObject is a labelled box for VOCXML.
type VOCObject struct {
	Name                   string
	XMin, YMin, XMax, YMax int
}

// VOCXML renders a minimal Pascal VOC document.
func VOCXML(filename string, width, height int, objects ...VOCObject) string {
	var b strings.Builder
	b.WriteString("<annotation>\n")
	fmt.Fprintf(&b, "\t<filename>%s</filename>\n", filename)
	fmt.Fprintf(&b, "\t<size>\n\t\t<width>%d</width>\n\t\t<height>%d</height>\n\t\t<depth>3</depth>\n\t</size>\n", width, height)
	for _, obj := range objects {
		fmt.Fprintf(&b, "\t<object>\n\t\t<name>%s</name>\n\t\t<bndbox>\n", obj.Name)
		fmt.Fprintf(&b, "\t\t\t<xmin>%d</xmin>\n\t\t\t<ymin>%d</ymin>\n\t\t\t<xmax>%d</xmax>\n\t\t\t<ymax>%d</ymax>\n",
			obj.XMin, obj.YMin, obj.XMax, obj.YMax)
		b.WriteString("\t\t</bndbox>\n\t</object>\n")
	}
	b.WriteString("</annotation>\n")
	return b.String()
}

// RawFrame returns height*width one-byte samples set to fill, with the
// listed flat indices overridden by value.
func RawFrame(height, width int, fill byte, set map[int]byte) []byte {
	data := make([]byte, height*width)
	for i := range data {
		data[i] = fill
	}
	for idx, v := range set {
		data[idx] = v
	}
	return data
}

package labelio

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"annofuse/internal/annotation"
	"annofuse/internal/fileutil"
)

// VOCDocument is a Pascal VOC annotation. Elements the struct does not name
// are kept in Extra so a rewrite does not lose them.
type VOCDocument struct {
	XMLName   xml.Name     `xml:"annotation"`
	Folder    string       `xml:"folder,omitempty"`
	Filename  string       `xml:"filename,omitempty"`
	Path      string       `xml:"path,omitempty"`
	Size      *VOCSize     `xml:"size,omitempty"`
	Segmented string       `xml:"segmented,omitempty"`
	Extra     []rawElement `xml:",any"`
	Objects   []VOCObject  `xml:"object"`
}

type VOCSize struct {
	Width  string `xml:"width"`
	Height string `xml:"height"`
	Depth  string `xml:"depth,omitempty"`
}

// Dims returns the declared image size when both values are positive integers.
func (s *VOCSize) Dims() (width, height int, ok bool) {
	if s == nil {
		return 0, 0, false
	}
	w, errW := strconv.Atoi(strings.TrimSpace(s.Width))
	h, errH := strconv.Atoi(strings.TrimSpace(s.Height))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// VOCObject keeps corners as text so non-integer values can be reported
// instead of failing the whole document.
type VOCObject struct {
	Name      string       `xml:"name"`
	Pose      string       `xml:"pose,omitempty"`
	Truncated string       `xml:"truncated,omitempty"`
	Difficult string       `xml:"difficult,omitempty"`
	BndBox    VOCBndBox    `xml:"bndbox"`
	Extra     []rawElement `xml:",any"`
}

type VOCBndBox struct {
	XMin string `xml:"xmin"`
	YMin string `xml:"ymin"`
	XMax string `xml:"xmax"`
	YMax string `xml:"ymax"`
}

type rawElement struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   string     `xml:",innerxml"`
}

// ParseVOC decodes a VOC document from UTF-8, BOM-prefixed or GB18030 bytes.
func ParseVOC(data []byte, source string) (*VOCDocument, error) {
	text, err := toUTF8(data, source)
	if err != nil {
		return nil, err
	}
	dec := xml.NewDecoder(bytes.NewReader(text))
	// content is already UTF-8 whatever the declaration says
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }
	var doc VOCDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, &annotation.FormatError{Source: source, Reason: "unparsable markup: " + err.Error()}
	}
	return &doc, nil
}

// ReadVOC reads and decodes a VOC file.
func ReadVOC(path string) (*VOCDocument, error) {
	data, err := readText(path)
	if err != nil {
		return nil, err
	}
	return ParseVOC(data, path)
}

// Records turns the document's objects into raw records under key.
func (d *VOCDocument) Records(key annotation.Key, source string) []annotation.Record {
	records := make([]annotation.Record, 0, len(d.Objects))
	for i, obj := range d.Objects {
		records = append(records, annotation.Record{
			Key:    key,
			Fields: []string{obj.Name, obj.BndBox.XMin, obj.BndBox.YMin, obj.BndBox.XMax, obj.BndBox.YMax},
			Source: source,
			Line:   i + 1,
		})
	}
	return records
}

// Boxes converts every well-formed object. Objects with missing or
// non-integer corners are returned as format errors.
func (d *VOCDocument) Boxes(source string) ([]annotation.Box, []error) {
	parse := annotation.CornerParser()
	boxes := make([]annotation.Box, 0, len(d.Objects))
	var skipped []error
	for _, rec := range d.Records(annotation.Key{}, source) {
		res := annotation.ParseRecord(rec, parse)
		if res.Skipped() {
			skipped = append(skipped, res.Err)
			continue
		}
		boxes = append(boxes, res.Box)
	}
	return boxes, skipped
}

// AppendBox adds an object for b with default pose and flags.
func (d *VOCDocument) AppendBox(b annotation.Box) {
	d.Objects = append(d.Objects, objectFor(b))
}

// SetObjects replaces all objects with boxes.
func (d *VOCDocument) SetObjects(boxes []annotation.Box) {
	d.Objects = make([]VOCObject, 0, len(boxes))
	for _, b := range boxes {
		d.Objects = append(d.Objects, objectFor(b))
	}
}

// SyncObjects rewrites the document so its objects match boxes while keeping
// the original XML of objects that are unchanged.
func (d *VOCDocument) SyncObjects(boxes []annotation.Box) {
	existing := make(map[annotation.Box][]VOCObject)
	parse := annotation.CornerParser()
	for _, rec := range d.Records(annotation.Key{}, "") {
		res := annotation.ParseRecord(rec, parse)
		if !res.Skipped() {
			existing[res.Box] = append(existing[res.Box], d.Objects[rec.Line-1])
		}
	}
	objects := make([]VOCObject, 0, len(boxes))
	for _, b := range boxes {
		if prior := existing[b]; len(prior) > 0 {
			objects = append(objects, prior[0])
			existing[b] = prior[1:]
			continue
		}
		objects = append(objects, objectFor(b))
	}
	d.Objects = objects
}

func objectFor(b annotation.Box) VOCObject {
	corner := func(v float64) string { return strconv.FormatInt(int64(math.Trunc(v)), 10) }
	return VOCObject{
		Name:      b.Class,
		Pose:      "Unspecified",
		Truncated: "0",
		Difficult: "0",
		BndBox: VOCBndBox{
			XMin: corner(b.XMin),
			YMin: corner(b.YMin),
			XMax: corner(b.XMax),
			YMax: corner(b.YMax),
		},
	}
}

// MarshalVOC renders the document with an XML declaration.
func MarshalVOC(d *VOCDocument) ([]byte, error) {
	body, err := xml.MarshalIndent(d, "", "\t")
	if err != nil {
		return nil, fmt.Errorf("encode voc: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(strings.TrimSpace(xml.Header))
	buf.WriteByte('\n')
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// WriteVOC writes d to path.
func WriteVOC(path string, d *VOCDocument) error {
	data, err := MarshalVOC(d)
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, data, 0o644)
}

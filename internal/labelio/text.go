package labelio

import (
	"bytes"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"annofuse/internal/annotation"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readText returns the file content as UTF-8. A leading BOM is dropped and
// content that is not valid UTF-8 is decoded as GB18030, the encoding older
// labelling tools wrote on Chinese-locale hosts.
func readText(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return toUTF8(data, path)
}

func toUTF8(data []byte, source string) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}
	decoded, _, err := transform.Bytes(simplifiedchinese.GB18030.NewDecoder(), data)
	if err != nil {
		return nil, &annotation.FormatError{Source: source, Reason: "undecodable text: " + err.Error()}
	}
	return decoded, nil
}

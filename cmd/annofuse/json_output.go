package main

import (
	"bytes"
	"encoding/json"

	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// summaryFields flattens the scalar fields of a JSON-serializable summary
// into ordered key/value pairs, in struct field order.
func summaryFields(v any) [][2]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil
	}
	var fields [][2]any
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fields
		}
		key, _ := keyTok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return fields
		}
		switch value.(type) {
		case json.Number, string, bool:
			fields = append(fields, [2]any{key, value})
		}
	}
	return fields
}

package output

import (
	"encoding/json"
	"io"
)

// JSONWriter выводит Result одним JSON-документом с отступом в два пробела.
type JSONWriter struct{}

// NewJSONWriter создаёт JSONWriter.
func NewJSONWriter() *JSONWriter { return &JSONWriter{} }

// Write кодирует result. Summary в JSON живёт внутри metadata, поэтому
// кодируется копия с перенесённой сводкой, а сам result не меняется.
func (*JSONWriter) Write(w io.Writer, result *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(withSummaryInMetadata(result))
}

func withSummaryInMetadata(result *Result) *Result {
	if result == nil || result.Summary == nil || result.Metadata == nil {
		return result
	}
	meta := *result.Metadata
	meta.Summary = result.Summary
	out := *result
	out.Metadata = &meta
	return &out
}

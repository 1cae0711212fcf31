package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a document serialization format.
type Format string

const (
	// FormatYAML is used for the local document file.
	FormatYAML Format = "yaml"

	// FormatJSON is used for the remote payload.
	FormatJSON Format = "json"
)

// FormatFromPath infers the format from a file extension. Unknown extensions are YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// ParseFormat parses a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q (expected yaml or json)", s)
	}
}

// Encode serializes the document. Map keys are written in sorted order by both encoders.
func Encode(doc *Document, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeTo(&buf, doc, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeTo serializes the document to w.
func EncodeTo(w io.Writer, doc *Document, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode document as JSON: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode document as YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// Decode parses a document. Unknown fields are rejected so that typos in a
// hand-edited file surface instead of being dropped on the next write.
func Decode(data []byte, format Format) (*Document, error) {
	doc := &Document{}
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(doc); err != nil {
			return nil, fmt.Errorf("failed to decode JSON document: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(doc); err != nil {
			if errors.Is(err, io.EOF) {
				return NewDocument(), nil
			}
			return nil, fmt.Errorf("failed to decode YAML document: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	doc.EnsureMaps()
	return doc, nil
}

// ToTree converts the document into a generic tree of maps, slices and scalars
// using the JSON field names.
func ToTree(doc *Document) (map[string]interface{}, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document tree: %w", err)
	}
	return tree, nil
}

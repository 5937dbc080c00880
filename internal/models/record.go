// Package models defines the records stored alongside vectors and the shapes of search results.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Languages a record can be scanned from.
const (
	LanguagePython = "python"
	LanguageGo     = "go"
)

// MetadataRecord describes one tagged class found in a source file.
// Its JSON encoding is what the metadata store keeps for each position.
type MetadataRecord struct {
	ID         string   `json:"id,omitempty"`
	ClassName  string   `json:"class_name"`
	Docstring  string   `json:"docstring,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
	Methods    []string `json:"methods,omitempty"`
	Source     string   `json:"source,omitempty"`
	Line       int      `json:"line,omitempty"`
	Language   string   `json:"language,omitempty"`
}

// Text renders the record into the blob that gets embedded.
func (r MetadataRecord) Text() string {
	var b strings.Builder
	b.WriteString("class_name: ")
	b.WriteString(r.ClassName)
	b.WriteString("\ndocstring: ")
	b.WriteString(r.Docstring)
	b.WriteString("\nattributes: ")
	b.WriteString(strings.Join(r.Attributes, ", "))
	b.WriteString("\nmethods: ")
	b.WriteString(strings.Join(r.Methods, ", "))
	return b.String()
}

// Encode returns the JSON row stored for the record.
func (r MetadataRecord) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode record %s: %w", r.ClassName, err)
	}
	return string(data), nil
}

// DecodeRecord parses a metadata row written by Encode.
// ok is false for rows that are plain text rather than a record.
func DecodeRecord(row string) (rec MetadataRecord, ok bool) {
	trimmed := strings.TrimSpace(row)
	if !strings.HasPrefix(trimmed, "{") {
		return MetadataRecord{}, false
	}
	if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
		return MetadataRecord{}, false
	}
	if rec.ClassName == "" {
		return MetadataRecord{}, false
	}
	return rec, true
}

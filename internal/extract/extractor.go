// Package extract turns document files into plain text that can be embedded.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Extractor reads text out of documents. The zero value is ready to use.
type Extractor struct{}

// NewExtractor returns an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

var documentExts = map[string]bool{
	".pdf":  true,
	".docx": true,
	".odt":  true,
	".xlsx": true,
	".pptx": true,
	".odp":  true,
	".ods":  true,
}

// IsDocument reports whether path has an extension handled by a binary format reader
// rather than read as plain text.
func IsDocument(path string) bool {
	return documentExts[strings.ToLower(filepath.Ext(path))]
}

// Extract reads the file at path and returns its text.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	text, err := e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return text, nil
}

// ExtractBytes extracts text from content according to ext, which includes the leading dot.
// Unknown extensions are treated as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return readPDF(content)
	case ".xlsx":
		return readWorkbook(content)
	case ".docx":
		return readDOCX(content)
	case ".pptx":
		return readPPTX(content)
	case ".odt", ".odp", ".ods":
		return readOpenDocument(content, ext)
	default:
		return plain(content), nil
	}
}

func plain(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	return strings.ToValidUTF8(string(content), "�")
}

// Package fileid derives stable identifiers for scanned source files and the records found in them.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

const recordPrefix = "rec:"

// SourceKey returns path relative to root with forward slashes. Records store it as their
// source so that a rescan of one file can find the rows it produced earlier.
func SourceKey(root, path string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", path, root)
	}
	return filepath.ToSlash(rel), nil
}

// RecordID returns a stable ID for the class name declared in source.
// The same pair always yields the same ID.
func RecordID(source, className string) string {
	normalized := filepath.ToSlash(filepath.Clean(source)) + "#" + className
	hash := sha256.Sum256([]byte(normalized))
	return recordPrefix + hex.EncodeToString(hash[:12])
}

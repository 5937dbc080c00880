package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataRecord_Text(t *testing.T) {
	rec := MetadataRecord{
		ClassName:  "UserRepository",
		Docstring:  "Loads users.",
		Attributes: []string{"table", "timeout"},
		Methods:    []string{"get", "save"},
	}
	assert.Equal(t, "class_name: UserRepository\ndocstring: Loads users.\nattributes: table, timeout\nmethods: get, save", rec.Text())

	empty := MetadataRecord{ClassName: "Empty"}
	assert.Equal(t, "class_name: Empty\ndocstring: \nattributes: \nmethods: ", empty.Text())
}

func TestMetadataRecord_EncodeDecode(t *testing.T) {
	rec := MetadataRecord{
		ID:        "rec:abc",
		ClassName: "Parser",
		Docstring: "line one\nline two",
		Methods:   []string{"parse"},
		Source:    "pkg/parser.py",
		Line:      12,
		Language:  LanguagePython,
	}
	row, err := rec.Encode()
	require.NoError(t, err)
	assert.NotContains(t, row, "\n")

	got, ok := DecodeRecord(row)
	require.True(t, ok)
	assert.Equal(t, rec, got)
}

func TestDecodeRecord_PlainText(t *testing.T) {
	for _, row := range []string{"A", "", "{not json", `{"source":"x.py"}`} {
		_, ok := DecodeRecord(row)
		assert.False(t, ok, row)
	}
}

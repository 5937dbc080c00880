package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegasics/VectorScan/internal/models"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := `index:
  dimension: 32
  path: state/index.vsx
metadata:
  path: state/metadata.txt
embedding:
  provider: hash
search:
  default_k: 5
`
	path := filepath.Join(dir, "vectorscan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func execute(t *testing.T, cfgPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func mustExecute(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	out, errOut, err := execute(t, cfgPath, args...)
	require.NoError(t, err, "stderr: %s", errOut)
	return out
}

func TestIndexSizeSearch(t *testing.T) {
	cfg := writeConfig(t)

	out := mustExecute(t, cfg, "index", "fetch user orders", "render invoice pdf", "parse yaml config")
	assert.Contains(t, out, "indexed 3 texts (index size 3)")
	assert.Equal(t, "3\n", mustExecute(t, cfg, "size"))

	out = mustExecute(t, cfg, "search", "render invoice pdf", "-k", "2", "--json")
	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Hits, 2)
	assert.Equal(t, "render invoice pdf", resp.Hits[0].Record)
	assert.Equal(t, 1, resp.Hits[0].Position)
	assert.InDelta(t, 0, resp.Hits[0].Distance, 1e-5)
	assert.Equal(t, models.ModeSnapshot, resp.Mode)

	out = mustExecute(t, cfg, "search", "parse yaml config")
	assert.True(t, strings.HasPrefix(out, "Found 3 results for \"parse yaml config\""), out)
}

func TestIndexFromFile(t *testing.T) {
	cfg := writeConfig(t)
	input := filepath.Join(t.TempDir(), "texts.txt")
	require.NoError(t, os.WriteFile(input, []byte("alpha\n\nbeta\ngamma\n"), 0o600))

	out := mustExecute(t, cfg, "index", "--file", input)
	assert.Contains(t, out, "indexed 3 texts")

	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetIn(strings.NewReader("delta\n"))
	cmd.SetArgs([]string{"--config", cfg, "index", "-f", "-"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "index size 4")
}

func TestIndexDocument(t *testing.T) {
	cfg := writeConfig(t)
	f, err := os.OpenFile(cfg, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("documents:\n  chunk_words: 3\n  chunk_overlap: 1\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	var doc bytes.Buffer
	zw := zip.NewWriter(&doc)
	body, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = body.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>OrderRepository loads orders</w:t></w:r>` +
		`<w:r><w:t xml:space="preserve"> from postgres by customer</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.docx")
	require.NoError(t, os.WriteFile(path, doc.Bytes(), 0o600))

	out := mustExecute(t, cfg, "index", "--file", path)
	assert.Contains(t, out, "indexed 3 texts (index size 3)")

	out = mustExecute(t, cfg, "search", "orders from postgres", "-k", "3", "--json")
	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Hits, 3)
	assert.Equal(t, "orders from postgres", resp.Hits[0].Record)
	assert.Equal(t, 1, resp.Hits[0].Position)

	broken := filepath.Join(dir, "broken.xlsx")
	require.NoError(t, os.WriteFile(broken, []byte("not a workbook"), 0o600))
	_, _, err = execute(t, cfg, "index", "--file", broken)
	assert.ErrorContains(t, err, "broken.xlsx")
	assert.Equal(t, "3\n", mustExecute(t, cfg, "size"))
}

func TestIndexErrors(t *testing.T) {
	cfg := writeConfig(t)
	_, _, err := execute(t, cfg, "index")
	assert.Error(t, err)

	_, _, err = execute(t, cfg, "index", "--file", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestSearchErrors(t *testing.T) {
	cfg := writeConfig(t)
	mustExecute(t, cfg, "index", "one")

	_, _, err := execute(t, cfg, "search", "   ")
	assert.Error(t, err)
	_, _, err = execute(t, cfg, "search", "one", "--mode", "fuzzy")
	assert.Error(t, err)
	_, _, err = execute(t, cfg, "search", "one", "-k", "-1")
	assert.Error(t, err)
	_, _, err = execute(t, cfg, "search")
	assert.Error(t, err)
}

func TestSearchExplicitZeroK(t *testing.T) {
	cfg := writeConfig(t)
	mustExecute(t, cfg, "index", "one", "two")

	out := mustExecute(t, cfg, "search", "one", "-k", "0", "--json")
	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Empty(t, resp.Hits)
	assert.Equal(t, 0, resp.K)
}

func TestDeleteCompactStatus(t *testing.T) {
	cfg := writeConfig(t)
	mustExecute(t, cfg, "index", "a", "b", "c")

	assert.Contains(t, mustExecute(t, cfg, "delete", "1"), "deleted 1 positions")

	out := mustExecute(t, cfg, "status", "--json")
	var stats models.IndexStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 3, stats.Size)
	assert.Equal(t, 2, stats.Live)
	assert.Equal(t, 1, stats.Tombstones)
	assert.True(t, stats.Aligned)
	assert.Greater(t, stats.DiskUsageBytes, int64(0))

	out = mustExecute(t, cfg, "search", "b", "-k", "5", "--json")
	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	for _, hit := range resp.Hits {
		assert.NotEqual(t, 1, hit.Position)
	}

	assert.Contains(t, mustExecute(t, cfg, "compact"), "removed 1 items (index size 2)")
	assert.Equal(t, "2\n", mustExecute(t, cfg, "size"))

	_, _, err := execute(t, cfg, "delete", "7")
	assert.Error(t, err)
	_, _, err = execute(t, cfg, "delete", "x")
	assert.Error(t, err)
}

func TestSaveAndLoadIndex(t *testing.T) {
	cfg := writeConfig(t)
	mustExecute(t, cfg, "index", "a", "b")

	backup := filepath.Join(t.TempDir(), "backup.vsx")
	assert.Contains(t, mustExecute(t, cfg, "save-index", backup), "saved 2 vectors")
	assert.FileExists(t, backup)

	assert.Contains(t, mustExecute(t, cfg, "load-index", backup), "loaded 2 vectors")

	mustExecute(t, cfg, "index", "c")
	assert.Contains(t, mustExecute(t, cfg, "load-index", backup), "loaded 2 vectors")
	assert.Equal(t, "3\n", mustExecute(t, cfg, "size"), "load without --persist leaves the index alone")

	assert.Contains(t, mustExecute(t, cfg, "load-index", backup, "--persist"), "loaded 2 vectors")
	out := mustExecute(t, cfg, "status", "--json")
	var stats models.IndexStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, 2, stats.MetadataRows)
	assert.True(t, stats.Aligned)

	_, _, err := execute(t, cfg, "load-index", filepath.Join(t.TempDir(), "nope.vsx"))
	assert.Error(t, err)

	corrupt := filepath.Join(t.TempDir(), "corrupt.vsx")
	require.NoError(t, os.WriteFile(corrupt, []byte("garbage"), 0o600))
	_, _, err = execute(t, cfg, "load-index", corrupt)
	assert.Error(t, err)
}

const taggedPython = `@index_for_vector_db
class Invoice:
    """Bills a customer."""
    total = 0

    def send(self):
        pass


class Plain:
    pass
`

func TestScan(t *testing.T) {
	cfg := writeConfig(t)
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "billing.py"), []byte(taggedPython), 0o600))

	out := mustExecute(t, cfg, "scan", src, "--dry-run")
	var rec models.MetadataRecord
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &rec))
	assert.Equal(t, "Invoice", rec.ClassName)
	assert.Equal(t, "billing.py", rec.Source)
	assert.Equal(t, []string{"send"}, rec.Methods)
	assert.Equal(t, "0\n", mustExecute(t, cfg, "size"))

	assert.Contains(t, mustExecute(t, cfg, "scan", src), "indexed 1 classes from 1 files (0 replaced, 0 removed, index size 1)")
	assert.Contains(t, mustExecute(t, cfg, "scan", src), "(1 replaced, 0 removed, index size 2)")

	out = mustExecute(t, cfg, "search", "Invoice bills a customer", "--json")
	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, 1, resp.Hits[0].Position)
	require.NotNil(t, resp.Hits[0].Parsed)
	assert.Equal(t, "Invoice", resp.Hits[0].Parsed.ClassName)

	_, _, err := execute(t, cfg, "scan", filepath.Join(src, "missing"))
	assert.Error(t, err)
}

func TestScanRetiresStaleSources(t *testing.T) {
	cfg := writeConfig(t)
	src := t.TempDir()
	billing := filepath.Join(src, "billing.py")
	shipping := filepath.Join(src, "shipping.py")
	require.NoError(t, os.WriteFile(billing, []byte(taggedPython), 0o600))
	require.NoError(t, os.WriteFile(shipping, []byte(strings.ReplaceAll(taggedPython, "Invoice", "Parcel")), 0o600))
	assert.Contains(t, mustExecute(t, cfg, "scan", src), "indexed 2 classes from 2 files")

	// Marker dropped from one file, the other file deleted.
	require.NoError(t, os.WriteFile(billing, []byte(strings.TrimPrefix(taggedPython, "@index_for_vector_db\n")), 0o600))
	require.NoError(t, os.Remove(shipping))
	assert.Contains(t, mustExecute(t, cfg, "scan", src), "indexed 0 classes from 0 files (0 replaced, 2 removed, index size 2)")

	out := mustExecute(t, cfg, "status", "--json")
	var stats models.IndexStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 0, stats.Live)

	out = mustExecute(t, cfg, "search", "Invoice bills a customer", "--json")
	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Empty(t, resp.Hits)
}

func TestBadConfig(t *testing.T) {
	_, _, err := execute(t, filepath.Join(t.TempDir(), "missing.yaml"), "size")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out := mustExecute(t, writeConfig(t), "version")
	assert.Equal(t, "vectorscan version dev\n", out)
}

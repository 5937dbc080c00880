// Package cli provides output formatting for the vectorscan commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olegasics/VectorScan/internal/models"
	"github.com/olegasics/VectorScan/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// FormatFor returns OutputJSON when asJSON is set.
func FormatFor(asJSON bool) OutputFormat {
	if asJSON {
		return OutputJSON
	}
	return OutputText
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "Found %d results for %q in %dms (%s)\n", response.Total, response.Query, response.QueryTime, response.Mode)
	for i, hit := range response.Hits {
		writeOneHit(w, i+1, hit)
	}
}

func writeOneHit(w io.Writer, rank int, hit models.SearchHit) {
	score := fmt.Sprintf("distance %.4f", hit.Distance)
	if hit.Score != 0 {
		score = fmt.Sprintf("score %.4f", hit.Score)
	}
	if hit.Parsed == nil {
		fmt.Fprintf(w, "%d. [%d] %s | %s\n", rank, hit.Position, score, Truncate(hit.Record, 200))
		return
	}
	rec := hit.Parsed
	fmt.Fprintf(w, "%d. [%d] %s | %s", rank, hit.Position, score, rec.ClassName)
	if rec.Source != "" {
		fmt.Fprintf(w, " (%s:%d)", rec.Source, rec.Line)
	}
	fmt.Fprintln(w)
	if doc := utils.FirstLine(rec.Docstring); doc != "" {
		fmt.Fprintf(w, "   %s\n", Truncate(doc, 120))
	}
	if len(rec.Methods) > 0 {
		fmt.Fprintf(w, "   methods: %s\n", TruncateWords(strings.Join(rec.Methods, ", "), 12))
	}
}

// WriteStats writes index statistics to w in the given format.
func WriteStats(w io.Writer, stats models.IndexStats, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, stats)
	}
	fmt.Fprintf(w, "Index:      %s (%s, dim %d)\n", stats.IndexPath, stats.IndexType, stats.Dimension)
	fmt.Fprintf(w, "Metadata:   %s\n", stats.MetadataPath)
	fmt.Fprintf(w, "Vectors:    %d (%d live, %d deleted)\n", stats.Size, stats.Live, stats.Tombstones)
	fmt.Fprintf(w, "Rows:       %d\n", stats.MetadataRows)
	fmt.Fprintf(w, "Disk usage: %s\n", FormatBytes(stats.DiskUsageBytes))
	if !stats.Aligned {
		fmt.Fprintln(w, "WARNING: index and metadata are out of step; run compact or rebuild")
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatBytes renders n as a human-readable size.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	return utils.Truncate(s, maxLen)
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

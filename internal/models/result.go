package models

// SearchHit is one neighbor joined with its metadata row.
type SearchHit struct {
	Position int     `json:"position"`
	Distance float32 `json:"distance"`
	// Score is the relevance of a keyword hit; vector hits leave it zero.
	Score  float64 `json:"score,omitempty"`
	Record string  `json:"record"`
	// Parsed is set when Record is a JSON-encoded MetadataRecord.
	Parsed *MetadataRecord `json:"parsed,omitempty"`
}

// SearchResponse is returned by the HTTP API and the CLI in JSON mode.
type SearchResponse struct {
	Query     string      `json:"query"`
	Mode      string      `json:"mode"`
	K         int         `json:"k"`
	Hits      []SearchHit `json:"hits"`
	Total     int         `json:"total"`
	QueryTime int64       `json:"query_time_ms"`
}

// IndexStats summarizes the state of an index and its metadata.
type IndexStats struct {
	Size           int    `json:"size"`
	Live           int    `json:"live"`
	Tombstones     int    `json:"tombstones"`
	MetadataRows   int    `json:"metadata_rows"`
	Dimension      int    `json:"dimension"`
	IndexType      string `json:"index_type"`
	IndexPath      string `json:"index_path"`
	MetadataPath   string `json:"metadata_path"`
	DiskUsageBytes int64  `json:"disk_usage_bytes,omitempty"`
	Aligned        bool   `json:"aligned"`
}

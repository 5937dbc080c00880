package coordinator

import "errors"

var (
	// ErrInconsistentIndex is returned when a vector position has no metadata row, or when
	// the index and the metadata store disagree on their sizes.
	ErrInconsistentIndex = errors.New("inconsistent index")
	// ErrEmbeddingFailure is returned when the embedder fails or returns fewer vectors than
	// texts. Nothing is mutated.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrNoIndexPath is returned by Save, Load and snapshot searches when no index path is configured.
	ErrNoIndexPath = errors.New("no index path configured")
)

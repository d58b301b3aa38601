package store

import "errors"

var (
	// ErrNotInitialized is returned when the store is used before Init.
	ErrNotInitialized = errors.New("retrieval store not initialized")
	// ErrNotFound is returned by Update when the id does not exist.
	ErrNotFound = errors.New("chunk not found")
	// ErrLengthMismatch is returned by Add when contents and metadatas differ.
	ErrLengthMismatch = errors.New("contents and metadatas length mismatch")
)

// Metadata keys injected by the store. Callers own title and source_type.
const (
	MetaAddedAt     = "added_at"
	MetaUpdatedAt   = "updated_at"
	MetaSource      = "source"
	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"
	MetaChunkSize   = "chunk_size"
)

// sourceTag marks every chunk written by this system.
const sourceTag = "jurisrag"

// #region chunk
// Chunk is one retrievable text segment with its metadata.
type Chunk struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// #endregion chunk

// #region result
// Result is one similarity query hit. Similarity is normalized to [0,1]:
// 1.0 means identical. Scores outside the range (possible when the index
// distance metric is unbounded) are clamped rather than passed through.
type Result struct {
	Chunk      Chunk
	Similarity float64
}

// #endregion result

// #region stats
// Stats summarizes the collection. MetadataKeys is a sample-based estimate
// over a bounded number of records, not an exhaustive schema: the true
// global key set would require a full scan.
type Stats struct {
	TotalCount   uint64
	MetadataKeys []string
	SampleSize   int
}

// #endregion stats

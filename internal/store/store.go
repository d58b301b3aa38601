package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/viniciusmartins/jurisrag/internal/chunker"
	"github.com/viniciusmartins/jurisrag/internal/llm"
	"github.com/viniciusmartins/jurisrag/internal/vecindex"
)

// #region index-interface
// Index is the nearest-neighbor capability the store is layered on.
// *vecindex.Client is the production implementation.
type Index interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, points []vecindex.Point) error
	Search(ctx context.Context, vector []float32, k int, filter map[string]string) ([]vecindex.SearchHit, error)
	Get(ctx context.Context, id string) (*vecindex.StoredPoint, error)
	Delete(ctx context.Context, ids []string) error
	Count(ctx context.Context) (uint64, error)
	Sample(ctx context.Context, limit uint32) ([]vecindex.StoredPoint, error)
}

// #endregion index-interface

// #region config
// Config holds the store's chunking and sampling parameters.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	SampleLimit  uint32 // bound for the Stats metadata-key sample
}

// DefaultConfig mirrors the process-wide defaults.
func DefaultConfig() Config {
	return Config{ChunkSize: 1000, ChunkOverlap: 200, SampleLimit: 10}
}

// #endregion config

// #region store-struct
// Store is the semantic layer over the vector index: it owns chunk records,
// their metadata conventions, and similarity queries.
type Store struct {
	index       Index
	embedder    llm.Embedder
	config      Config
	log         *zap.Logger
	initialized bool
}

// NewStore wires a Store. Init must be called before any operation.
func NewStore(index Index, embedder llm.Embedder, config Config, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{index: index, embedder: embedder, config: config, log: log}
}

// Init ensures the collection exists and verifies connectivity.
func (s *Store) Init(ctx context.Context) error {
	if err := s.index.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	count, err := s.index.Count(ctx)
	if err != nil {
		return fmt.Errorf("connection test: %w", err)
	}
	s.initialized = true
	s.log.Info("retrieval store initialized", zap.Uint64("documents", count))
	return nil
}

// #endregion store-struct

// #region add
// Add embeds and writes one chunk per content entry. Metadata gets added_at
// and source stamps; ids are generated. Always creates new records, no
// dedup by content.
func (s *Store) Add(ctx context.Context, contents []string, metadatas []map[string]string) ([]string, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	if len(contents) != len(metadatas) {
		return nil, fmt.Errorf("%w: %d contents, %d metadatas", ErrLengthMismatch, len(contents), len(metadatas))
	}

	now := time.Now().UTC().Format(time.RFC3339)
	ids := make([]string, len(contents))
	points := make([]vecindex.Point, len(contents))

	for i, content := range contents {
		vec, err := s.embedder.Embed(ctx, content)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", i, err)
		}

		meta := make(map[string]string, len(metadatas[i])+2)
		for k, v := range metadatas[i] {
			meta[k] = v
		}
		meta[MetaAddedAt] = now
		meta[MetaSource] = sourceTag

		ids[i] = uuid.New().String()
		points[i] = vecindex.Point{ID: ids[i], Vector: vec, Content: content, Metadata: meta}
	}

	if err := s.index.Upsert(ctx, points); err != nil {
		return nil, fmt.Errorf("add documents: %w", err)
	}

	s.log.Info("chunks added", zap.Int("count", len(ids)))
	return ids, nil
}

// AddDocument splits one document and writes every chunk with inherited
// metadata plus chunk_index, total_chunks and chunk_size.
func (s *Store) AddDocument(ctx context.Context, content string, metadata map[string]string) ([]string, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}

	segments, err := chunker.Split(content, s.config.ChunkSize, s.config.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("split document: %w", err)
	}

	metadatas := make([]map[string]string, len(segments))
	for i, seg := range segments {
		meta := make(map[string]string, len(metadata)+3)
		for k, v := range metadata {
			meta[k] = v
		}
		meta[MetaChunkIndex] = strconv.Itoa(i)
		meta[MetaTotalChunks] = strconv.Itoa(len(segments))
		meta[MetaChunkSize] = strconv.Itoa(len(seg))
		metadatas[i] = meta
	}

	ids, err := s.Add(ctx, segments, metadatas)
	if err != nil {
		return nil, err
	}
	s.log.Info("document ingested",
		zap.Int("chunks", len(segments)),
		zap.String("source_type", metadata["source_type"]))
	return ids, nil
}

// #endregion add

// #region query
// Query embeds text and returns up to topK hits ordered by descending
// similarity. filter restricts hits to exact metadata matches. An empty
// index or filter miss yields an empty slice, not an error.
func (s *Store) Query(ctx context.Context, text string, topK int, filter map[string]string) ([]Result, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Search(ctx, vec, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	results := make([]Result, len(hits))
	for i, hit := range hits {
		results[i] = Result{
			Chunk:      Chunk{ID: hit.ID, Content: hit.Content, Metadata: hit.Metadata},
			Similarity: clamp01(float64(hit.Score)),
		}
	}

	s.log.Debug("similarity query",
		zap.Int("query_length", len(text)),
		zap.Int("results", len(results)))
	return results, nil
}

// clamp01 bounds a similarity to [0,1]. The underlying metric is cosine,
// so out-of-range values only appear with a misconfigured collection.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion query

// #region get-delete
// GetByID reads one chunk. Returns nil when the id is absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Chunk, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}

	point, err := s.index.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get chunk: %w", err)
	}
	if point == nil {
		return nil, nil
	}
	return &Chunk{ID: point.ID, Content: point.Content, Metadata: point.Metadata}, nil
}

// Delete removes chunks by id. Deleting an absent id is a no-op.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.index.Delete(ctx, ids); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	s.log.Info("chunks deleted", zap.Int("count", len(ids)))
	return nil
}

// #endregion get-delete

// #region update
// Update replaces a chunk's content and metadata and stamps updated_at.
// Fails with ErrNotFound when the id does not exist.
func (s *Store) Update(ctx context.Context, id, content string, metadata map[string]string) error {
	if !s.initialized {
		return ErrNotInitialized
	}

	existing, err := s.index.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("update lookup: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}

	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("embed updated chunk: %w", err)
	}

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[MetaUpdatedAt] = time.Now().UTC().Format(time.RFC3339)

	err = s.index.Upsert(ctx, []vecindex.Point{{ID: id, Vector: vec, Content: content, Metadata: meta}})
	if err != nil {
		return fmt.Errorf("update chunk: %w", err)
	}
	s.log.Info("chunk updated", zap.String("id", id))
	return nil
}

// #endregion update

// #region stats
// Stats reports the total count plus a sample-based metadata key estimate.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if !s.initialized {
		return Stats{}, ErrNotInitialized
	}

	count, err := s.index.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count: %w", err)
	}

	limit := s.config.SampleLimit
	if limit == 0 {
		limit = 10
	}
	sample, err := s.index.Sample(ctx, limit)
	if err != nil {
		return Stats{}, fmt.Errorf("metadata sample: %w", err)
	}

	keySet := make(map[string]struct{})
	for _, p := range sample {
		for k := range p.Metadata {
			keySet[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return Stats{TotalCount: count, MetadataKeys: keys, SampleSize: len(sample)}, nil
}

// #endregion stats

package eval

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/viniciusmartins/jurisrag/internal/llm"
)

// #region scorer-interface
// Scorer is the pluggable metric backend. Implementations map a metric name
// and a sample to a score in [0,1]; the Evaluator only aggregates.
type Scorer interface {
	Score(ctx context.Context, metric Metric, sample Sample) (float64, error)
}

// #endregion scorer-interface

// #region embedding-scorer
// EmbeddingScorer approximates the standard RAG metrics with embedding
// cosine similarities. Cheaper than an LLM judge and good enough for
// trend monitoring; swap the Scorer for a stronger backend when needed.
type EmbeddingScorer struct {
	embedder llm.Embedder
}

// NewEmbeddingScorer builds a scorer on the given embedder.
func NewEmbeddingScorer(embedder llm.Embedder) *EmbeddingScorer {
	return &EmbeddingScorer{embedder: embedder}
}

// Score computes one metric for the sample.
func (s *EmbeddingScorer) Score(ctx context.Context, metric Metric, sample Sample) (float64, error) {
	switch metric {
	case Faithfulness:
		return s.similarity(ctx, sample.Answer, strings.Join(sample.Contexts, "\n"))
	case AnswerRelevancy:
		return s.similarity(ctx, sample.Answer, sample.Question)
	case ContextPrecision:
		return s.meanSimilarity(ctx, sample.Question, sample.Contexts)
	case ContextRecall:
		ref := sample.GroundTruth
		if ref == "" {
			ref = sample.Answer
		}
		return s.meanSimilarity(ctx, ref, sample.Contexts)
	case AnswerSimilarity:
		return s.similarity(ctx, sample.Answer, sample.GroundTruth)
	case AnswerCorrectness:
		sim, err := s.similarity(ctx, sample.Answer, sample.GroundTruth)
		if err != nil {
			return 0, err
		}
		faith, err := s.similarity(ctx, sample.Answer, strings.Join(sample.Contexts, "\n"))
		if err != nil {
			return 0, err
		}
		return (sim + faith) / 2, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", metric)
	}
}

func (s *EmbeddingScorer) similarity(ctx context.Context, a, b string) (float64, error) {
	if a == "" || b == "" {
		return 0, nil
	}
	va, err := s.embedder.Embed(ctx, a)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}
	vb, err := s.embedder.Embed(ctx, b)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}
	return normalizedCosine(va, vb), nil
}

func (s *EmbeddingScorer) meanSimilarity(ctx context.Context, ref string, texts []string) (float64, error) {
	if len(texts) == 0 {
		return 0, nil
	}
	var sum float64
	for _, t := range texts {
		sim, err := s.similarity(ctx, ref, t)
		if err != nil {
			return 0, err
		}
		sum += sim
	}
	return sum / float64(len(texts)), nil
}

// #endregion embedding-scorer

// #region cosine
// normalizedCosine maps cosine similarity from [-1,1] to [0,1].
func normalizedCosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	score := (cos + 1) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// #endregion cosine

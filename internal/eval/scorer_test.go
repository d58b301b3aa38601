package eval

import (
	"context"
	"math"
	"testing"
)

// axisEmbedder maps known strings to fixed unit vectors.
type axisEmbedder struct {
	vectors map[string][]float32
}

func (e *axisEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0}, nil
}

func TestNormalizedCosineBounds(t *testing.T) {
	cases := []struct {
		a, b []float32
		want float64
	}{
		{[]float32{1, 0}, []float32{1, 0}, 1.0},
		{[]float32{1, 0}, []float32{-1, 0}, 0.0},
		{[]float32{1, 0}, []float32{0, 1}, 0.5},
		{[]float32{1, 0}, []float32{}, 0.0},
		{[]float32{0, 0}, []float32{1, 0}, 0.0},
	}
	for i, c := range cases {
		got := normalizedCosine(c.a, c.b)
		if math.Abs(got-c.want) > 1e-6 {
			t.Fatalf("case %d: got %f, want %f", i, got, c.want)
		}
	}
}

func TestScoreRoutesMetrics(t *testing.T) {
	emb := &axisEmbedder{vectors: map[string][]float32{
		"resposta": {1, 0},
		"pergunta": {0, 1},
		"verdade":  {1, 0},
	}}
	s := NewEmbeddingScorer(emb)
	sample := Sample{
		Question:    "pergunta",
		Answer:      "resposta",
		Contexts:    []string{"verdade"},
		GroundTruth: "verdade",
	}

	relevancy, err := s.Score(context.Background(), AnswerRelevancy, sample)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if math.Abs(relevancy-0.5) > 1e-6 {
		t.Fatalf("orthogonal answer/question should score 0.5, got %f", relevancy)
	}

	similarity, err := s.Score(context.Background(), AnswerSimilarity, sample)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if math.Abs(similarity-1.0) > 1e-6 {
		t.Fatalf("identical answer/truth vectors should score 1.0, got %f", similarity)
	}

	if _, err := s.Score(context.Background(), Metric("invented"), sample); err == nil {
		t.Fatal("unknown metric must error")
	}
}

func TestScoreEmptyInputs(t *testing.T) {
	s := NewEmbeddingScorer(&axisEmbedder{})

	score, err := s.Score(context.Background(), Faithfulness, Sample{Answer: "", Contexts: []string{"c"}})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score != 0 {
		t.Fatalf("empty answer should score 0, got %f", score)
	}

	score, err = s.Score(context.Background(), ContextPrecision, Sample{Question: "q"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score != 0 {
		t.Fatalf("no contexts should score 0, got %f", score)
	}
}

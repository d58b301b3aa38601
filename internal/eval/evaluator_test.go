package eval

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// scriptedScorer returns a fixed score per metric, or an error for samples
// whose question contains a trigger string.
type scriptedScorer struct {
	scores     map[Metric]float64
	failOn     string
	scoreCalls int
}

func (s *scriptedScorer) Score(ctx context.Context, metric Metric, sample Sample) (float64, error) {
	s.scoreCalls++
	if s.failOn != "" && strings.Contains(sample.Question, s.failOn) {
		return 0, errors.New("scoring backend down")
	}
	return s.scores[metric], nil
}

func uniformScorer(v float64) *scriptedScorer {
	scores := make(map[Metric]float64)
	for _, m := range AllMetrics() {
		scores[m] = v
	}
	return &scriptedScorer{scores: scores}
}

func sample(gt string) Sample {
	return Sample{
		Question:    "O que diz o artigo 5º?",
		Answer:      "Todos são iguais perante a lei.",
		Contexts:    []string{"Art. 5º Todos são iguais perante a lei."},
		GroundTruth: gt,
	}
}

func TestEvaluateDisabled(t *testing.T) {
	e := NewEvaluator(uniformScorer(0.9), NewMemoryHistory(10), false, nil)

	rec, err := e.Evaluate(context.Background(), sample(""))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !rec.Disabled() {
		t.Fatalf("expected disabled record, got status %q", rec.Status)
	}
	if rec.ID == "" {
		t.Fatal("disabled record still needs an id")
	}

	total, _ := e.history.Total()
	if total != 0 {
		t.Fatal("disabled evaluation must not touch history")
	}
}

func TestEvaluateMetricSetByGroundTruth(t *testing.T) {
	e := NewEvaluator(uniformScorer(0.8), nil, true, nil)

	rec, err := e.Evaluate(context.Background(), sample(""))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(rec.Scores) != 3 {
		t.Fatalf("expected 3 reference-free metrics, got %d", len(rec.Scores))
	}
	if rec.HasGroundTruth {
		t.Fatal("HasGroundTruth should be false without a reference")
	}
	if _, ok := rec.Scores[AnswerSimilarity]; ok {
		t.Fatal("answer_similarity requires ground truth")
	}

	rec, err = e.Evaluate(context.Background(), sample("Igualdade perante a lei."))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(rec.Scores) != 6 {
		t.Fatalf("expected full metric set, got %d", len(rec.Scores))
	}
	if !rec.HasGroundTruth {
		t.Fatal("HasGroundTruth should be true with a reference")
	}
}

func TestEvaluateOverallIsUnweightedMean(t *testing.T) {
	scorer := &scriptedScorer{scores: map[Metric]float64{
		Faithfulness:     0.9,
		AnswerRelevancy:  0.6,
		ContextPrecision: 0.3,
	}}
	e := NewEvaluator(scorer, nil, true, nil)

	rec, err := e.Evaluate(context.Background(), sample(""))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	want := (0.9 + 0.6 + 0.3) / 3
	if diff := rec.OverallScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("overall score %f, want %f", rec.OverallScore, want)
	}
}

func TestEvaluateAppendsToHistory(t *testing.T) {
	h := NewMemoryHistory(10)
	e := NewEvaluator(uniformScorer(0.7), h, true, nil)

	if _, err := e.Evaluate(context.Background(), sample("")); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	total, _ := h.Total()
	if total != 1 {
		t.Fatalf("expected 1 history record, got %d", total)
	}
}

func TestEvaluateScoringErrorSkipsHistory(t *testing.T) {
	h := NewMemoryHistory(10)
	scorer := uniformScorer(0.7)
	scorer.failOn = "artigo"
	e := NewEvaluator(scorer, h, true, nil)

	if _, err := e.Evaluate(context.Background(), sample("")); err == nil {
		t.Fatal("expected scoring error to propagate")
	}
	total, _ := h.Total()
	if total != 0 {
		t.Fatal("failed evaluations must not be retained")
	}
}

func TestBatchMixedGroundTruthFallsBack(t *testing.T) {
	e := NewEvaluator(uniformScorer(0.8), nil, true, nil)

	result, err := e.BatchEvaluate(context.Background(), []Sample{
		sample("tem referência"),
		sample(""),
	})
	if err != nil {
		t.Fatalf("BatchEvaluate: %v", err)
	}
	if result.HasGroundTruth {
		t.Fatal("mixed batch must not use ground truth")
	}
	if len(result.Metrics) != 3 {
		t.Fatalf("expected reference-free metric set, got %d metrics", len(result.Metrics))
	}
	for _, it := range result.Items {
		if len(it.Scores) != 3 {
			t.Fatalf("item scored %d metrics, want 3", len(it.Scores))
		}
	}
}

func TestBatchItemFailureIsolated(t *testing.T) {
	scorer := uniformScorer(0.8)
	scorer.failOn = "quebra"
	e := NewEvaluator(scorer, nil, true, nil)

	good := sample("")
	bad := sample("")
	bad.Question = "pergunta que quebra o backend"

	result, err := e.BatchEvaluate(context.Background(), []Sample{good, bad, good})
	if err != nil {
		t.Fatalf("BatchEvaluate: %v", err)
	}
	if result.Items[1].Err == "" {
		t.Fatal("failed item should carry its error")
	}
	if result.Items[0].Err != "" || result.Items[2].Err != "" {
		t.Fatal("healthy items must not be affected by a sibling failure")
	}
	if result.Metrics[Faithfulness].Count != 2 {
		t.Fatalf("aggregates should cover the 2 healthy items, got %d", result.Metrics[Faithfulness].Count)
	}
	if result.OverallMean != 0.8 {
		t.Fatalf("overall mean over healthy items should be 0.8, got %f", result.OverallMean)
	}
}

func TestBatchStatistics(t *testing.T) {
	calls := 0
	scorer := &varyingScorer{values: []float64{0.2, 0.8}, calls: &calls}
	e := NewEvaluator(scorer, nil, true, nil)

	result, err := e.BatchEvaluate(context.Background(), []Sample{sample(""), sample("")})
	if err != nil {
		t.Fatalf("BatchEvaluate: %v", err)
	}
	stats := result.Metrics[Faithfulness]
	if stats.Min != 0.2 || stats.Max != 0.8 {
		t.Fatalf("min/max wrong: %+v", stats)
	}
	if diff := stats.Mean - 0.5; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("mean %f, want 0.5", stats.Mean)
	}
	if diff := stats.Std - 0.3; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("std %f, want 0.3", stats.Std)
	}
}

// varyingScorer alternates values per item, constant across an item's
// metrics.
type varyingScorer struct {
	values []float64
	calls  *int
}

func (s *varyingScorer) Score(ctx context.Context, metric Metric, sample Sample) (float64, error) {
	metricsPerItem := len(BaseMetrics())
	idx := (*s.calls / metricsPerItem) % len(s.values)
	*s.calls++
	return s.values[idx], nil
}

func TestBatchDisabled(t *testing.T) {
	e := NewEvaluator(uniformScorer(0.9), nil, false, nil)

	result, err := e.BatchEvaluate(context.Background(), []Sample{sample("")})
	if err != nil {
		t.Fatalf("BatchEvaluate: %v", err)
	}
	if result.Status != StatusDisabled {
		t.Fatalf("expected disabled status, got %q", result.Status)
	}
}

func TestSummaryNoHistory(t *testing.T) {
	e := NewEvaluator(uniformScorer(0.9), NewMemoryHistory(10), true, nil)

	s, err := e.Summary(7)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.Status != SummaryNoHistory {
		t.Fatalf("expected no_history, got %q", s.Status)
	}
}

func TestSummaryNoneInWindow(t *testing.T) {
	h := NewMemoryHistory(10)
	h.Append(Record{
		ID:           "old",
		Timestamp:    time.Now().UTC().AddDate(0, 0, -30),
		Scores:       map[Metric]float64{Faithfulness: 0.5},
		OverallScore: 0.5,
	})
	e := NewEvaluator(uniformScorer(0.9), h, true, nil)

	s, err := e.Summary(7)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.Status != SummaryNoneInWindow {
		t.Fatalf("expected no_evaluations_in_window, got %q", s.Status)
	}
	if s.AllTimeCount != 1 {
		t.Fatalf("all-time count should still report 1, got %d", s.AllTimeCount)
	}
}

func TestSummaryMeanWeighsEveryMetricScore(t *testing.T) {
	h := NewMemoryHistory(10)
	now := time.Now().UTC()

	full := make(map[Metric]float64, 6)
	for _, m := range AllMetrics() {
		full[m] = 0.9
	}
	base := make(map[Metric]float64, 3)
	for _, m := range BaseMetrics() {
		base[m] = 0.3
	}
	h.Append(Record{ID: "full", Timestamp: now, Scores: full, OverallScore: 0.9, HasGroundTruth: true})
	h.Append(Record{ID: "base", Timestamp: now, Scores: base, OverallScore: 0.3})

	e := NewEvaluator(uniformScorer(0.9), h, true, nil)
	s, err := e.Summary(7)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	// Nine individual scores, not two record means: (6*0.9 + 3*0.3) / 9.
	want := (6*0.9 + 3*0.3) / 9
	if diff := s.OverallMeanScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("overall mean %f, want %f", s.OverallMeanScore, want)
	}
}

func TestSummaryAggregatesWindow(t *testing.T) {
	h := NewMemoryHistory(100)
	now := time.Now().UTC()
	h.Append(Record{
		ID: "a", Timestamp: now.Add(-48 * time.Hour),
		Scores:       map[Metric]float64{Faithfulness: 0.6, AnswerRelevancy: 0.4},
		OverallScore: 0.5,
	})
	h.Append(Record{
		ID: "b", Timestamp: now.Add(-1 * time.Hour),
		Scores:       map[Metric]float64{Faithfulness: 0.8, AnswerRelevancy: 0.6},
		OverallScore: 0.7,
	})
	h.Append(Record{
		ID: "stale", Timestamp: now.AddDate(0, 0, -20),
		Scores:       map[Metric]float64{Faithfulness: 0.1},
		OverallScore: 0.1,
	})
	e := NewEvaluator(uniformScorer(0.9), h, true, nil)

	s, err := e.Summary(7)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.Status != SummaryOK {
		t.Fatalf("expected ok, got %q", s.Status)
	}
	if s.TotalEvaluations != 2 {
		t.Fatalf("expected 2 records in window, got %d", s.TotalEvaluations)
	}
	if s.AllTimeCount != 3 {
		t.Fatalf("expected 3 all-time, got %d", s.AllTimeCount)
	}
	if diff := s.OverallMeanScore - 0.6; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("overall mean %f, want 0.6", s.OverallMeanScore)
	}
	faith := s.MetricStatistics[Faithfulness]
	if faith.Count != 2 || faith.Min != 0.6 || faith.Max != 0.8 {
		t.Fatalf("faithfulness stats wrong: %+v", faith)
	}
	if !s.LastEvaluation.Equal(now.Add(-1 * time.Hour)) {
		t.Fatalf("last evaluation should be the newest in window, got %v", s.LastEvaluation)
	}
	if diff := s.EvaluationsPerDay - 2.0/7.0; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("evaluations per day %f, want %f", s.EvaluationsPerDay, 2.0/7.0)
	}
}

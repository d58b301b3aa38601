package eval

import "time"

// #region metrics
// Metric names one quality dimension of a question/answer/context triple.
type Metric string

const (
	Faithfulness      Metric = "faithfulness"
	AnswerRelevancy   Metric = "answer_relevancy"
	ContextPrecision  Metric = "context_precision"
	ContextRecall     Metric = "context_recall"
	AnswerSimilarity  Metric = "answer_similarity"
	AnswerCorrectness Metric = "answer_correctness"
)

// BaseMetrics are the metrics that do not require a ground-truth answer.
func BaseMetrics() []Metric {
	return []Metric{Faithfulness, AnswerRelevancy, ContextPrecision}
}

// AllMetrics are the full set, usable only when ground truth is supplied.
func AllMetrics() []Metric {
	return []Metric{
		Faithfulness, AnswerRelevancy, ContextPrecision,
		ContextRecall, AnswerSimilarity, AnswerCorrectness,
	}
}

// #endregion metrics

// #region sample
// Sample is one triple to score. An empty GroundTruth means absent.
type Sample struct {
	Question    string
	Answer      string
	Contexts    []string
	GroundTruth string
}

// #endregion sample

// #region record
// StatusDisabled marks results produced while evaluation is turned off.
const StatusDisabled = "evaluation_disabled"

// Record is one scored evaluation. Records are immutable after creation.
type Record struct {
	ID             string
	Timestamp      time.Time
	Scores         map[Metric]float64
	OverallScore   float64
	ProcessingTime time.Duration
	HasGroundTruth bool
	Status         string // empty for a normal record
}

// Disabled reports whether the record is a disabled-status marker.
func (r Record) Disabled() bool { return r.Status == StatusDisabled }

// #endregion record

// #region batch
// MetricStats aggregates one metric across a batch.
type MetricStats struct {
	Mean  float64
	Std   float64
	Min   float64
	Max   float64
	Count int
}

// BatchItem is one item's slot in a batch result. A failed item carries its
// error text; the remaining items still execute.
type BatchItem struct {
	Scores map[Metric]float64
	Err    string
}

// BatchResult aggregates a batch evaluation.
type BatchResult struct {
	ID             string
	Timestamp      time.Time
	BatchSize      int
	Items          []BatchItem
	Metrics        map[Metric]MetricStats
	OverallMean    float64
	ProcessingTime time.Duration
	HasGroundTruth bool
	Status         string
}

// #endregion batch

// #region summary
// Summary statuses distinguish an idle system from an empty window.
const (
	SummaryOK           = "ok"
	SummaryNoHistory    = "no_history"
	SummaryNoneInWindow = "no_evaluations_in_window"
)

// SummaryStats aggregates one metric over the summary window.
type SummaryStats struct {
	Mean  float64
	Min   float64
	Max   float64
	Count int
}

// Summary reports evaluation quality over a trailing window of days.
type Summary struct {
	Status            string
	WindowDays        int
	TotalEvaluations  int // records inside the window
	AllTimeCount      int // records ever retained in history
	OverallMeanScore  float64
	MetricStatistics  map[Metric]SummaryStats
	EvaluationsPerDay float64
	LastEvaluation    time.Time
}

// #endregion summary

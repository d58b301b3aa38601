package eval

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// #region evaluator
// Evaluator scores answered questions and keeps a bounded history of the
// results. Scoring backend and history store are injected.
type Evaluator struct {
	scorer  Scorer
	history HistoryStore
	enabled bool
	log     *zap.Logger
}

// NewEvaluator wires an Evaluator. history may be nil, in which case results
// are computed but not retained.
func NewEvaluator(scorer Scorer, history HistoryStore, enabled bool, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{
		scorer:  scorer,
		history: history,
		enabled: enabled,
		log:     log,
	}
}

// Enabled reports whether evaluation is active.
func (e *Evaluator) Enabled() bool { return e.enabled }

// #endregion evaluator

// #region evaluate
// Evaluate scores one sample. With ground truth the full metric set runs,
// without it only the reference-free metrics. The record is appended to
// history only when every metric scored.
func (e *Evaluator) Evaluate(ctx context.Context, sample Sample) (Record, error) {
	if !e.enabled {
		return Record{
			ID:        uuid.NewString(),
			Timestamp: time.Now().UTC(),
			Status:    StatusDisabled,
		}, nil
	}

	start := time.Now()
	metrics := BaseMetrics()
	hasTruth := sample.GroundTruth != ""
	if hasTruth {
		metrics = AllMetrics()
	}

	scores := make(map[Metric]float64, len(metrics))
	for _, m := range metrics {
		score, err := e.scorer.Score(ctx, m, sample)
		if err != nil {
			return Record{}, fmt.Errorf("score %s: %w", m, err)
		}
		scores[m] = score
	}

	rec := Record{
		ID:             uuid.NewString(),
		Timestamp:      time.Now().UTC(),
		Scores:         scores,
		OverallScore:   meanOf(scores),
		ProcessingTime: time.Since(start),
		HasGroundTruth: hasTruth,
	}

	if e.history != nil {
		if err := e.history.Append(rec); err != nil {
			// The score itself is still valid; the caller gets it along
			// with the retention failure.
			return rec, fmt.Errorf("append history: %w", err)
		}
	}

	e.log.Info("evaluation completed",
		zap.String("evaluation_id", rec.ID),
		zap.Float64("overall_score", rec.OverallScore),
		zap.Bool("has_ground_truth", hasTruth))
	return rec, nil
}

// #endregion evaluate

// #region batch-evaluate
// BatchEvaluate scores a set of samples together. Ground truth is used only
// when every sample carries it; a mixed batch falls back to the
// reference-free metrics so the aggregates stay comparable. One failing item
// does not abort the batch. Batch results are not appended to history.
func (e *Evaluator) BatchEvaluate(ctx context.Context, samples []Sample) (BatchResult, error) {
	if !e.enabled {
		return BatchResult{
			ID:        uuid.NewString(),
			Timestamp: time.Now().UTC(),
			BatchSize: len(samples),
			Status:    StatusDisabled,
		}, nil
	}
	if len(samples) == 0 {
		return BatchResult{}, fmt.Errorf("empty batch")
	}

	start := time.Now()
	hasTruth := true
	for _, s := range samples {
		if s.GroundTruth == "" {
			hasTruth = false
			break
		}
	}
	metrics := BaseMetrics()
	if hasTruth {
		metrics = AllMetrics()
	}

	items := make([]BatchItem, len(samples))
	for i, s := range samples {
		sample := s
		if !hasTruth {
			sample.GroundTruth = ""
		}
		scores := make(map[Metric]float64, len(metrics))
		var itemErr error
		for _, m := range metrics {
			score, err := e.scorer.Score(ctx, m, sample)
			if err != nil {
				itemErr = err
				break
			}
			scores[m] = score
		}
		if itemErr != nil {
			items[i] = BatchItem{Err: itemErr.Error()}
			e.log.Warn("batch item failed",
				zap.Int("item", i), zap.Error(itemErr))
			continue
		}
		items[i] = BatchItem{Scores: scores}
	}

	stats := make(map[Metric]MetricStats, len(metrics))
	for _, m := range metrics {
		var values []float64
		for _, it := range items {
			if it.Err == "" {
				values = append(values, it.Scores[m])
			}
		}
		stats[m] = statsOf(values)
	}

	var overallSum float64
	var overallN int
	for _, it := range items {
		if it.Err == "" {
			overallSum += meanOf(it.Scores)
			overallN++
		}
	}
	var overallMean float64
	if overallN > 0 {
		overallMean = overallSum / float64(overallN)
	}

	result := BatchResult{
		ID:             uuid.NewString(),
		Timestamp:      time.Now().UTC(),
		BatchSize:      len(samples),
		Items:          items,
		Metrics:        stats,
		OverallMean:    overallMean,
		ProcessingTime: time.Since(start),
		HasGroundTruth: hasTruth,
	}

	e.log.Info("batch evaluation completed",
		zap.String("batch_id", result.ID),
		zap.Int("batch_size", len(samples)),
		zap.Int("succeeded", overallN),
		zap.Float64("overall_mean", overallMean))
	return result, nil
}

// #endregion batch-evaluate

// #region summary
// Summary aggregates the trailing windowDays of history. It distinguishes a
// system that never evaluated from one whose records all fell out of the
// window.
func (e *Evaluator) Summary(windowDays int) (Summary, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	if e.history == nil {
		return Summary{Status: SummaryNoHistory, WindowDays: windowDays}, nil
	}

	allTime, err := e.history.Total()
	if err != nil {
		return Summary{}, fmt.Errorf("history total: %w", err)
	}
	if allTime == 0 {
		return Summary{Status: SummaryNoHistory, WindowDays: windowDays}, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -windowDays)
	records, err := e.history.Since(cutoff)
	if err != nil {
		return Summary{}, fmt.Errorf("history since: %w", err)
	}
	if len(records) == 0 {
		return Summary{
			Status:       SummaryNoneInWindow,
			WindowDays:   windowDays,
			AllTimeCount: allTime,
		}, nil
	}

	// The overall mean weighs every individual metric score equally, so a
	// record carrying the full metric set counts more than a 3-metric one.
	perMetric := make(map[Metric][]float64)
	var scoreSum float64
	var scoreCount int
	var last time.Time
	for _, rec := range records {
		if rec.Timestamp.After(last) {
			last = rec.Timestamp
		}
		for m, v := range rec.Scores {
			perMetric[m] = append(perMetric[m], v)
			scoreSum += v
			scoreCount++
		}
	}

	metricStats := make(map[Metric]SummaryStats, len(perMetric))
	for m, values := range perMetric {
		s := statsOf(values)
		metricStats[m] = SummaryStats{Mean: s.Mean, Min: s.Min, Max: s.Max, Count: s.Count}
	}

	var overallMean float64
	if scoreCount > 0 {
		overallMean = scoreSum / float64(scoreCount)
	}

	return Summary{
		Status:            SummaryOK,
		WindowDays:        windowDays,
		TotalEvaluations:  len(records),
		AllTimeCount:      allTime,
		OverallMeanScore:  overallMean,
		MetricStatistics:  metricStats,
		EvaluationsPerDay: float64(len(records)) / float64(windowDays),
		LastEvaluation:    last,
	}, nil
}

// #endregion summary

// #region aggregation
func meanOf(scores map[Metric]float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, v := range scores {
		sum += v
	}
	return sum / float64(len(scores))
}

func statsOf(values []float64) MetricStats {
	if len(values) == 0 {
		return MetricStats{}
	}
	min, max := values[0], values[0]
	var sum float64
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return MetricStats{
		Mean:  mean,
		Std:   math.Sqrt(variance),
		Min:   min,
		Max:   max,
		Count: len(values),
	}
}

// #endregion aggregation

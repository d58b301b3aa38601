package eval

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func record(i int, ts time.Time) Record {
	return Record{
		ID:           fmt.Sprintf("rec-%04d", i),
		Timestamp:    ts,
		Scores:       map[Metric]float64{Faithfulness: 0.8},
		OverallScore: 0.8,
	}
}

func TestMemoryHistoryEvictsOldest(t *testing.T) {
	h := NewMemoryHistory(1000)
	base := time.Now().UTC()

	for i := 0; i < 1050; i++ {
		if err := h.Append(record(i, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	total, err := h.Total()
	if err != nil {
		t.Fatalf("Total: %v", err)
	}
	if total != 1000 {
		t.Fatalf("expected exactly 1000 retained, got %d", total)
	}

	records, err := h.Since(time.Time{})
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if records[0].ID != "rec-0050" {
		t.Fatalf("oldest retained should be rec-0050, got %s", records[0].ID)
	}
	if records[len(records)-1].ID != "rec-1049" {
		t.Fatalf("newest retained should be rec-1049, got %s", records[len(records)-1].ID)
	}
}

func TestMemoryHistorySinceFiltersByTimestamp(t *testing.T) {
	h := NewMemoryHistory(10)
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		h.Append(record(i, base.Add(time.Duration(i)*time.Hour)))
	}

	records, err := h.Since(base.Add(3 * time.Hour))
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records at or after cutoff, got %d", len(records))
	}
	if records[0].ID != "rec-0003" {
		t.Fatalf("unexpected first record: %s", records[0].ID)
	}
}

func TestSQLiteHistoryRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	h, err := NewSQLiteHistory(dbPath, 1000)
	if err != nil {
		t.Fatalf("NewSQLiteHistory: %v", err)
	}
	defer h.Close()

	rec := Record{
		ID:        "round-trip",
		Timestamp: time.Now().UTC(),
		Scores: map[Metric]float64{
			Faithfulness:     0.91,
			AnswerRelevancy:  0.74,
			ContextPrecision: 0.66,
		},
		OverallScore:   0.77,
		ProcessingTime: 120 * time.Millisecond,
		HasGroundTruth: true,
	}
	if err := h.Append(rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := h.Since(time.Time{})
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.ID != rec.ID {
		t.Fatalf("id mismatch: %s", got.ID)
	}
	if got.Scores[Faithfulness] != 0.91 {
		t.Fatalf("scores did not survive the round trip: %v", got.Scores)
	}
	if !got.HasGroundTruth {
		t.Fatal("ground truth flag lost")
	}
	if got.ProcessingTime != 120*time.Millisecond {
		t.Fatalf("processing time mismatch: %v", got.ProcessingTime)
	}
}

func TestSQLiteHistoryTrimsToCapacity(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	h, err := NewSQLiteHistory(dbPath, 20)
	if err != nil {
		t.Fatalf("NewSQLiteHistory: %v", err)
	}
	defer h.Close()

	base := time.Now().UTC()
	for i := 0; i < 35; i++ {
		if err := h.Append(record(i, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	total, err := h.Total()
	if err != nil {
		t.Fatalf("Total: %v", err)
	}
	if total != 20 {
		t.Fatalf("expected 20 retained, got %d", total)
	}

	records, err := h.Since(time.Time{})
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if records[0].ID != "rec-0015" {
		t.Fatalf("oldest retained should be rec-0015, got %s", records[0].ID)
	}
	if records[len(records)-1].ID != "rec-0034" {
		t.Fatalf("newest retained should be rec-0034, got %s", records[len(records)-1].ID)
	}
}

package evalqueue

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/viniciusmartins/jurisrag/internal/eval"
)

// DefaultBuffer is the enqueue buffer size. Sized for bursts of interactive
// queries; sustained overload drops to the dead letter instead of blocking
// the query path.
const DefaultBuffer = 64

// #region queue
// Queue runs evaluations in the background. Submit never blocks and never
// surfaces errors to the caller; failures and overflow land in the dead
// letter.
type Queue struct {
	evaluator *eval.Evaluator
	tasks     chan eval.Sample
	db        *sql.DB // dead-letter sink, may be nil
	log       *zap.Logger
	wg        sync.WaitGroup
	closeOnce sync.Once

	mu     sync.Mutex // guards closed and sends into tasks
	closed bool
}

// New starts the worker. db may be nil to disable the dead letter.
func New(evaluator *eval.Evaluator, db *sql.DB, buffer int, log *zap.Logger) *Queue {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if log == nil {
		log = zap.NewNop()
	}
	q := &Queue{
		evaluator: evaluator,
		tasks:     make(chan eval.Sample, buffer),
		db:        db,
		log:       log,
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Submit hands a triple to the background worker. When the buffer is full,
// or the queue is already closed, the sample is dead-lettered rather than
// stalling or panicking the caller.
func (q *Queue) Submit(question, answer string, contexts []string) {
	sample := eval.Sample{Question: question, Answer: answer, Contexts: contexts}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.log.Warn("evaluation queue closed, dropping sample")
		q.deadLetter(sample, "queue_closed")
		return
	}
	select {
	case q.tasks <- sample:
		q.mu.Unlock()
	default:
		q.mu.Unlock()
		q.log.Warn("evaluation queue full, dropping sample",
			zap.Int("buffer", cap(q.tasks)))
		q.deadLetter(sample, "queue_full")
	}
}

// Close stops accepting work, drains the buffer and waits for the worker.
// The closed flag flips under the same lock that guards sends, so a racing
// Submit either lands before the close or dead-letters.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.tasks)
	})
	q.wg.Wait()
}

// #endregion queue

// #region worker
func (q *Queue) run() {
	defer q.wg.Done()
	for sample := range q.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		rec, err := q.evaluator.Evaluate(ctx, sample)
		cancel()
		if err != nil {
			q.log.Warn("background evaluation failed", zap.Error(err))
			q.deadLetter(sample, err.Error())
			continue
		}
		if rec.Disabled() {
			continue
		}
		q.log.Debug("background evaluation stored",
			zap.String("evaluation_id", rec.ID),
			zap.Float64("overall_score", rec.OverallScore))
	}
}

// #endregion worker

// #region dead-letter
// deadLetter records a sample that could not be evaluated. The question is
// enough to re-run it against history later; answer and contexts are
// regenerable.
func (q *Queue) deadLetter(sample eval.Sample, reason string) {
	if q.db == nil {
		return
	}
	_, err := q.db.Exec(
		`INSERT INTO dead_letter (question, reason, created_at) VALUES (?, ?, ?)`,
		sample.Question,
		reason,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		q.log.Error("dead letter write failed", zap.Error(err))
	}
}

// DeadLetterCount reports how many samples were dropped or failed.
func DeadLetterCount(db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM dead_letter`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count dead letter: %w", err)
	}
	return n, nil
}

// #endregion dead-letter

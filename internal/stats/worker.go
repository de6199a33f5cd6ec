package stats

import (
	"context"

	"github.com/cephie-studios/pfcontrol/pkg/logger"
)

// Worker serializes stats recomputes behind a buffered queue so bursts
// of finalizations don't pile up concurrent full-table scans.
type Worker struct {
	agg   *Aggregator
	queue chan string
	log   *logger.Logger
}

func NewWorker(agg *Aggregator, queueSize int, log *logger.Logger) *Worker {
	return &Worker{
		agg:   agg,
		queue: make(chan string, queueSize),
		log:   log.Named("stats-worker"),
	}
}

// Enqueue schedules a recompute for the user. Never blocks: when the
// queue is full the request is dropped, which is safe because
// recomputes are full rebuilds and the next successful enqueue catches
// everything up.
func (w *Worker) Enqueue(userID string) {
	select {
	case w.queue <- userID:
	default:
		w.log.Warn("Stats queue full, dropping refresh", logger.String("user_id", userID))
	}
}

// Run consumes the queue until the context is cancelled, then drains
// whatever is already queued before returning.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case userID := <-w.queue:
					w.recompute(userID)
				default:
					return
				}
			}
		case userID := <-w.queue:
			w.recompute(userID)
		}
	}
}

func (w *Worker) recompute(userID string) {
	if _, err := w.agg.Recompute(userID); err != nil {
		w.log.Error("Stats recompute failed",
			logger.String("user_id", userID),
			logger.Error(err))
	}
}

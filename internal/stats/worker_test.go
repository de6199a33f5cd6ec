package stats

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/cephie-studios/pfcontrol/internal/testutils"
	"github.com/cephie-studios/pfcontrol/pkg/logger"
)

func TestWorkerProcessesQueue(t *testing.T) {
	agg, mock := newTestAggregator(t)
	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return now }

	mock.ExpectQuery(`FROM flights`).
		WithArgs("user-1", "completed").
		WillReturnRows(sqlmock.NewRows(flightCols))
	mock.ExpectExec(`INSERT INTO stats_cache`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := NewWorker(agg, 4, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.Enqueue("user-1")

	err := testutils.WaitForCondition(func() bool {
		return mock.ExpectationsWereMet() == nil
	}, 2*time.Second)
	if err != nil {
		t.Fatalf("recompute never ran: %v", mock.ExpectationsWereMet())
	}
}

func TestWorkerEnqueueNeverBlocks(t *testing.T) {
	agg, _ := newTestAggregator(t)
	w := NewWorker(agg, 1, logger.NewNop())

	// No Run loop draining; the second enqueue must drop, not block.
	done := make(chan struct{})
	go func() {
		w.Enqueue("user-1")
		w.Enqueue("user-2")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}

package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// Exactly one concurrent Consume of the same digest may win; every loser
// must observe the reuse verdict.
func TestConsumeConcurrentSingleWinner(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	rec := testRecord(now)
	if err := store.Save(ctx, "digest-race", rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	const workers = 16

	start := make(chan struct{})
	results := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := store.Consume(ctx, "digest-race", rec.ID, rec.FamilyID, uuid.New(), now)
			results <- err
		}()
	}

	close(start)
	wg.Wait()
	close(results)

	winners := 0
	reused := 0
	for err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrRecordReused):
			reused++
		default:
			t.Fatalf("unexpected consume outcome: %v", err)
		}
	}

	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	if reused != workers-1 {
		t.Fatalf("expected %d reuse verdicts, got %d", workers-1, reused)
	}
}

// Package closing couples the destruction of all face descriptors to the
// accounting closing record. Both commit as one unit or not at all; a
// recorded closing with live descriptors is a privacy failure, not a bug.
package closing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/juandiegoalamohe-alt/localpix/internal/observability"
)

// ErrPurgeInProgress is returned when a closing is already being processed.
// Each invocation is one irreversible unit of work; overlapping them is a
// caller error.
var ErrPurgeInProgress = errors.New("a closing purge is already in progress")

// Writer commits the closing summary inside the purge transaction.
type Writer interface {
	Commit(ctx context.Context, tx pgx.Tx) error
}

// Store is the transactional purge capability of the descriptor store.
type Store interface {
	PurgeAllWith(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) (int64, error)
}

// Coordinator serializes closing purges. State machine: Idle -> Purging ->
// Idle; a second closing while one runs is rejected rather than queued.
type Coordinator struct {
	store Store

	mu      sync.Mutex
	purging bool
}

func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{store: store}
}

// PurgeOnClosing writes the closing record and destroys every descriptor in
// one transaction. Any failure aborts the whole operation: neither the
// closing record nor a partial purge survives. Returns the number of
// descriptors destroyed.
func (c *Coordinator) PurgeOnClosing(ctx context.Context, writer Writer) (int64, error) {
	c.mu.Lock()
	if c.purging {
		c.mu.Unlock()
		return 0, ErrPurgeInProgress
	}
	c.purging = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.purging = false
		c.mu.Unlock()
	}()

	purged, err := c.store.PurgeAllWith(ctx, writer.Commit)
	if err != nil {
		return 0, fmt.Errorf("closing purge failed: %w", err)
	}

	observability.DescriptorsPurged.Add(float64(purged))
	slog.Info("closing purge complete", "descriptors_purged", purged)
	return purged, nil
}

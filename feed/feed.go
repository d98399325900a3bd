// Package feed delivers full issue snapshots to observers whenever the
// underlying collection changes.
package feed

import (
	"context"
	"sync"

	"github.com/apex/log"

	"civicsync/metrics"
	"civicsync/models"
)

// Source reads snapshots and reports that something changed.
type Source interface {
	// Snapshot returns every issue currently stored.
	Snapshot(ctx context.Context) ([]models.Issue, error)
	// Watch signals on the returned channel after each change. The channel is
	// closed when ctx is done.
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// Observer receives the complete snapshot after each change.
type Observer func(issues []models.Issue)

// Feed turns change signals from a Source into full snapshots.
type Feed struct {
	source Source

	mu        sync.RWMutex
	observers []Observer
}

// New creates a feed over source.
func New(source Source) *Feed {
	return &Feed{source: source}
}

// Subscribe registers fn. Observers are called from the Run goroutine, one
// snapshot at a time.
func (f *Feed) Subscribe(fn Observer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, fn)
}

// Run loads the initial snapshot and then reloads the whole collection after
// every change signal until ctx is done. A failed read keeps the previous
// snapshot in place.
func (f *Feed) Run(ctx context.Context) error {
	changes, err := f.source.Watch(ctx)
	if err != nil {
		return err
	}

	f.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			drain(changes)
			f.refresh(ctx)
		}
	}
}

func (f *Feed) refresh(ctx context.Context) {
	issues, err := f.source.Snapshot(ctx)
	if err != nil {
		if ctx.Err() == nil {
			metrics.FeedErrors.WithLabelValues("snapshot").Inc()
			log.WithError(err).Error("failed to load issue snapshot")
		}
		return
	}

	f.mu.RLock()
	observers := make([]Observer, len(f.observers))
	copy(observers, f.observers)
	f.mu.RUnlock()

	for _, fn := range observers {
		fn(issues)
	}
}

// drain discards signals that queued up while a snapshot was loading; the
// next read covers them.
func drain(ch <-chan struct{}) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

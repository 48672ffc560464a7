package grid

import (
	"context"
	"time"

	"staffing-grid/internal/events"
)

// Snapshotter is any store the Coordinator can rewind: the grid, the
// annotation store, or both at once.
type Snapshotter interface {
	Snapshot() any
	Restore(any)
}

const defaultRevalidateDelay = 2500 * time.Millisecond

// Coordinator is the single path for mutating the in-memory stores:
// snapshot, apply optimistically, persist, then either schedule a deferred
// revalidation or roll back to the snapshot. Every call site gets the same
// rollback guarantee instead of re-implementing it ad hoc.
type Coordinator struct {
	stores     []Snapshotter
	events     events.Publisher
	revalidate func()
	delay      time.Duration

	// schedule defaults to time.AfterFunc; tests swap it out.
	schedule func(time.Duration, func())
}

func NewCoordinator(ev events.Publisher, revalidate func(), stores ...Snapshotter) *Coordinator {
	if ev == nil {
		ev = events.Discard
	}
	return &Coordinator{
		stores:     stores,
		events:     ev,
		revalidate: revalidate,
		delay:      defaultRevalidateDelay,
		schedule:   func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// SetRevalidateDelay overrides how long after a successful persist the full
// refetch is scheduled.
func (c *Coordinator) SetRevalidateDelay(d time.Duration) { c.delay = d }

// Apply runs one optimistic mutation. mutate updates the in-memory stores
// synchronously so the caller's view reflects the change immediately;
// persist performs the backing write. On persist failure every store is
// restored to its pre-mutation snapshot and the error is returned verbatim.
// On success a background revalidation is scheduled after a short delay so
// ground truth supersedes the optimistic guess. Nothing is retried
// automatically; retrying is the user re-invoking the command.
func (c *Coordinator) Apply(ctx context.Context, label string, mutate func(), persist func(context.Context) error) error {
	snaps := make([]any, len(c.stores))
	for i, s := range c.stores {
		snaps[i] = s.Snapshot()
	}

	mutate()

	if err := persist(ctx); err != nil {
		for i, s := range c.stores {
			s.Restore(snaps[i])
		}
		c.events.Publish(events.Failure("persistence", err.Error()))
		return err
	}

	c.events.Publish(events.Success(label))
	if c.revalidate != nil {
		c.schedule(c.delay, c.revalidate)
	}
	return nil
}

package tui

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// fetchJoin runs a loading step's fetches concurrently. Required fetches
// fail the join (first error wins, the rest are cancelled); optional
// fetches that fail simply leave their destination at its zero value.
//
// Each fetch writes its result into view-local fields it owns exclusively,
// so no locking is needed beyond the join itself.
type fetchJoin struct {
	g   *errgroup.Group
	ctx context.Context
}

func newFetchJoin(ctx context.Context) *fetchJoin {
	g, gctx := errgroup.WithContext(ctx)
	return &fetchJoin{g: g, ctx: gctx}
}

// Required adds a fetch whose failure fails the whole join.
func (f *fetchJoin) Required(fn func(ctx context.Context) error) {
	f.g.Go(func() error {
		return fn(f.ctx)
	})
}

// Optional adds a best-effort fetch; its error is swallowed.
func (f *fetchJoin) Optional(fn func(ctx context.Context) error) {
	f.g.Go(func() error {
		_ = fn(f.ctx)
		return nil
	})
}

// Wait blocks until every fetch settles and returns the first required
// failure, if any.
func (f *fetchJoin) Wait() error {
	return f.g.Wait()
}

package backtest

import (
	"context"
	"fmt"

	"github.com/rustyeddy/tradeguard/engine"
	"github.com/rustyeddy/tradeguard/feed"
)

// Runner replays one or more bar feeds through an engine and summarizes
// the outcome.
type Runner struct {
	Engine *engine.Engine
	Feeds  []feed.Feed
}

// Run executes the replay and returns the summary. Feeds are closed by
// the engine's Run; calling Run twice is an error because the feeds are
// spent.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Engine == nil {
		return Result{}, fmt.Errorf("backtest: Engine is required")
	}
	if len(r.Feeds) == 0 {
		return Result{}, fmt.Errorf("backtest: at least one feed is required")
	}

	if err := r.Engine.Run(ctx, r.Feeds...); err != nil {
		return Result{}, err
	}

	return Summarize(r.Engine), nil
}

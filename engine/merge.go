package engine

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/rustyeddy/tradeguard/feed"
	"github.com/rustyeddy/tradeguard/market"
)

// Run replays every feed through the engine, interleaving symbols in
// chronological order (symbol name breaks timestamp ties, so replays
// are deterministic). Feeds are closed before Run returns. Unless
// KeepOpenAtEnd is set, surviving positions are force-closed on their
// symbol's final bar.
func (e *Engine) Run(ctx context.Context, feeds ...feed.Feed) error {
	defer func() {
		for _, f := range feeds {
			f.Close()
		}
	}()

	h := &barHeap{}
	for _, f := range feeds {
		bar, ok, err := f.Next()
		if err != nil {
			return fmt.Errorf("engine: feed %s: %w", f.Symbol(), err)
		}
		if ok {
			heap.Push(h, cursor{bar: bar, src: f})
		}
	}

	for h.Len() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		cur := heap.Pop(h).(cursor)
		if err := e.Step(cur.bar); err != nil {
			return err
		}

		bar, ok, err := cur.src.Next()
		if err != nil {
			return fmt.Errorf("engine: feed %s: %w", cur.src.Symbol(), err)
		}
		if ok {
			heap.Push(h, cursor{bar: bar, src: cur.src})
		}
	}

	e.finish()
	return nil
}

type cursor struct {
	bar market.Bar
	src feed.Feed
}

type barHeap []cursor

func (h barHeap) Len() int { return len(h) }

func (h barHeap) Less(i, j int) bool {
	if !h[i].bar.Time.Equal(h[j].bar.Time) {
		return h[i].bar.Time.Before(h[j].bar.Time)
	}
	return h[i].bar.Symbol < h[j].bar.Symbol
}

func (h barHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *barHeap) Push(x any) { *h = append(*h, x.(cursor)) }

func (h *barHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

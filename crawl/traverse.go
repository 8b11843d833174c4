package crawl

import (
	"context"
	"errors"
	"fmt"

	"github.com/fwojciec/lawdoc"
)

// errStop ends a walk early without reporting an error.
var errStop = errors.New("stop walk")

// Traverser pages through a source's search endpoint and hands every new
// stub to a callback. Pages are fetched strictly in order.
type Traverser struct {
	Source  *lawdoc.SourceConfig
	Adapter lawdoc.Adapter
	Ledger  lawdoc.Ledger

	// Fetch issues list requests, typically with retries.
	Fetch FetchFunc

	// MaxEmptyPages is the number of consecutive unexpected pages after
	// which traversal stops. Defaults to lawdoc.DefaultMaxEmptyPages.
	MaxEmptyPages int

	// Force hands over stubs the ledger already marks as done.
	Force bool

	// OnPage, if set, is called after each list page with the number of
	// stubs discovered so far.
	OnPage func(page, known int)
}

// TraverseStats summarizes one walk.
type TraverseStats struct {
	Pages   int
	Known   int
	Skipped int
}

// Walk fetches list pages from page 1 until the adapter reports no more
// results, the source's page cap is reached, or MaxEmptyPages consecutive
// pages are empty, unparseable or contain only stubs already seen in this
// walk. Stubs completed in the ledger are skipped unless Force is set.
//
// If fn returns errStop the walk ends without error; any other error ends
// the walk and is returned.
func (t *Traverser) Walk(ctx context.Context, fn func(stub *lawdoc.DocumentStub) error) (*TraverseStats, error) {
	maxEmpty := t.MaxEmptyPages
	if maxEmpty <= 0 {
		maxEmpty = lawdoc.DefaultMaxEmptyPages
	}

	stats := &TraverseStats{}
	seen := make(map[lawdoc.Key]bool)
	var empty int
	var lastErr error

	for page := 1; t.Source.MaxPages == 0 || page <= t.Source.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		body, err := t.Fetch(ctx, t.Adapter.ListRequest(page))
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			return stats, fmt.Errorf("list page %d: %w", page, err)
		}
		stats.Pages++

		list, err := t.Adapter.ParseList(page, body)
		if err == nil && len(list.Stubs) == 0 && !list.HasMore {
			break
		}

		var fresh []*lawdoc.DocumentStub
		if err == nil {
			for _, stub := range list.Stubs {
				if stub.Validate() != nil || seen[stub.Key()] {
					continue
				}
				seen[stub.Key()] = true
				fresh = append(fresh, stub)
			}
		}
		stats.Known = len(seen)
		if t.OnPage != nil {
			t.OnPage(page, stats.Known)
		}

		if len(fresh) == 0 {
			if err != nil {
				lastErr = fmt.Errorf("list page %d: %w", page, err)
			}
			empty++
			if empty >= maxEmpty {
				return stats, lastErr
			}
			continue
		}
		empty, lastErr = 0, nil

		for _, stub := range fresh {
			if !t.Force {
				done, err := t.Ledger.IsDone(ctx, stub.Key())
				if err != nil {
					return stats, err
				}
				if done {
					stats.Skipped++
					continue
				}
			}
			if err := fn(stub); errors.Is(err, errStop) {
				return stats, nil
			} else if err != nil {
				return stats, err
			}
		}

		if !list.HasMore {
			break
		}
	}
	return stats, nil
}

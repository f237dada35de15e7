package jira

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/raveheart1/tracklog/internal/changelog"
)

// DefaultMaxConcurrentFetches bounds simultaneous upstream ticket
// fetches so the tracker's own rate limits are respected.
const DefaultMaxConcurrentFetches = 5

// Fetcher fetches one ticket from the issue tracker.
type Fetcher interface {
	FetchTicket(ctx context.Context, key string) (*changelog.Ticket, error)
}

// Resolver resolves ticket keys with at most one upstream fetch per key
// per run, no matter how many times or how concurrently a key is
// requested. Completed results (and failures) are cached for the
// resolver's lifetime; concurrent requests for the same key coalesce
// onto a single in-flight fetch, and total in-flight fetches are
// bounded by a resolver-wide semaphore shared across every Resolve
// call. Construct a fresh Resolver for each run so no state leaks
// across invocations.
type Resolver struct {
	fetcher Fetcher
	sem     *semaphore.Weighted

	mu     sync.Mutex
	done   map[string]*changelog.Ticket
	failed map[string]error

	flight singleflight.Group
}

// NewResolver returns a resolver over the given fetcher. maxConcurrent
// bounds simultaneous upstream fetches; values < 1 select the default.
func NewResolver(fetcher Fetcher, maxConcurrent int) *Resolver {
	if maxConcurrent < 1 {
		maxConcurrent = DefaultMaxConcurrentFetches
	}
	return &Resolver{
		fetcher: fetcher,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		done:    make(map[string]*changelog.Ticket),
		failed:  make(map[string]error),
	}
}

// Resolve fetches the given keys, returning resolved tickets and
// per-key failures. A failure for one key never aborts the others:
// partial success is a valid outcome, and failed keys are simply
// excluded from the ticket map. Repeated keys in the input are
// resolved once.
func (r *Resolver) Resolve(ctx context.Context, keys []string) (map[string]*changelog.Ticket, map[string]error) {
	tickets := make(map[string]*changelog.Ticket, len(keys))
	failures := make(map[string]error)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true

		g.Go(func() error {
			ticket, err := r.resolveOne(gctx, key)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[key] = err
			} else {
				tickets[key] = ticket
			}
			return nil
		})
	}

	g.Wait() // goroutines never return errors; isolation is per key
	return tickets, failures
}

// resolveOne returns the run-scoped settled result for a key, fetching
// at most once. The first caller wins the fetch; callers arriving while
// it is in flight share its outcome. The semaphore holds the fetch
// bound even when many Resolve calls run concurrently.
func (r *Resolver) resolveOne(ctx context.Context, key string) (*changelog.Ticket, error) {
	r.mu.Lock()
	if ticket, ok := r.done[key]; ok {
		r.mu.Unlock()
		return ticket, nil
	}
	if err, ok := r.failed[key]; ok {
		r.mu.Unlock()
		return nil, err
	}
	r.mu.Unlock()

	v, err, _ := r.flight.Do(key, func() (any, error) {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		ticket, err := r.fetcher.FetchTicket(ctx, key)
		r.sem.Release(1)

		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			r.failed[key] = err
			return nil, err
		}
		r.done[key] = ticket
		return ticket, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*changelog.Ticket), nil
}

package changelog

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sync"

	"golang.org/x/sync/errgroup"
)

// TicketSource resolves a set of ticket keys to ticket metadata.
// Failed keys are reported in the second map and omitted from the first;
// a partial result is a valid outcome.
type TicketSource interface {
	Resolve(ctx context.Context, keys []string) (map[string]*Ticket, map[string]error)
}

// IdentitySource matches a commit author to a chat-platform identity.
type IdentitySource interface {
	FindUser(ctx context.Context, email, name string) (*ChatIdentity, bool)
}

// Correlator enriches raw commits with resolved tickets and chat
// identities. It owns no caches itself; deduplication and directory
// caching live in the sources it is given.
type Correlator struct {
	Tickets    TicketSource
	Identities IdentitySource

	// Pattern extracts ticket keys from commit message text.
	Pattern *regexp.Regexp
	// TypeMap maps tracker-native issue type names to canonical category
	// labels. Types without an entry normalize to an empty category.
	TypeMap map[string]string

	// Warnings receives per-key resolution failure notices. Nil discards.
	// Writes are serialized; the writer itself need not be safe for
	// concurrent use.
	Warnings io.Writer

	warnMu sync.Mutex
}

// Enrich attaches tickets and identities to every commit in place.
// Ticket resolution failures are warned about and skipped; a commit
// whose keys all failed simply ends up with no tickets. Only context
// cancellation aborts the pass.
func (c *Correlator) Enrich(ctx context.Context, commits []*Commit) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, commit := range commits {
		g.Go(func() error {
			keys := ExtractKeys(commit.FullText, c.Pattern)
			if len(keys) > 0 {
				resolved, failed := c.Tickets.Resolve(gctx, keys)
				for key, err := range failed {
					c.warnf("skipping ticket %s: %v", key, err)
				}
				for _, key := range keys {
					if ticket, ok := resolved[key]; ok {
						commit.Tickets = append(commit.Tickets, ticket)
					}
				}
			}

			if c.Identities != nil {
				if id, ok := c.Identities.FindUser(gctx, commit.AuthorEmail, commit.AuthorName); ok {
					commit.Identity = id
				}
			}
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("enriching commits: %w", err)
	}

	c.normalizeTypes(commits)
	return nil
}

// normalizeTypes rewrites each ticket's category through the type map.
// Runs after enrichment so shared ticket instances are normalized once.
func (c *Correlator) normalizeTypes(commits []*Commit) {
	done := make(map[string]bool)
	for _, commit := range commits {
		for _, ticket := range commit.Tickets {
			if done[ticket.Key] {
				continue
			}
			done[ticket.Key] = true
			ticket.Category = c.TypeMap[ticket.Type]
		}
	}
}

func (c *Correlator) warnf(format string, args ...any) {
	if c.Warnings == nil {
		return
	}
	c.warnMu.Lock()
	defer c.warnMu.Unlock()
	fmt.Fprintf(c.Warnings, "Warning: "+format+"\n", args...)
}

package changelog

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTickets resolves keys from a fixed table and records every
// requested key.
type stubTickets struct {
	mu      sync.Mutex
	known   map[string]*Ticket
	failing map[string]error
	asked   []string
}

func (s *stubTickets) Resolve(_ context.Context, keys []string) (map[string]*Ticket, map[string]error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved := make(map[string]*Ticket)
	failed := make(map[string]error)
	for _, key := range keys {
		s.asked = append(s.asked, key)
		if err, ok := s.failing[key]; ok {
			failed[key] = err
			continue
		}
		if ticket, ok := s.known[key]; ok {
			resolved[key] = ticket
		} else {
			failed[key] = fmt.Errorf("unknown key %s", key)
		}
	}
	return resolved, failed
}

// stubIdentities matches a single email.
type stubIdentities struct {
	email    string
	identity *ChatIdentity
}

func (s *stubIdentities) FindUser(_ context.Context, email, _ string) (*ChatIdentity, bool) {
	if strings.EqualFold(email, s.email) {
		return s.identity, true
	}
	return nil, false
}

func testPattern(t *testing.T) *regexp.Regexp {
	t.Helper()
	pattern, err := CompileTicketPattern(DefaultTicketPattern)
	require.NoError(t, err)
	return pattern
}

func TestCorrelatorEnrichAttachesTickets(t *testing.T) {
	proj1 := &Ticket{Key: "PROJ-1", Type: "Bug"}
	proj2 := &Ticket{Key: "PROJ-2", Type: "Story"}
	source := &stubTickets{known: map[string]*Ticket{"PROJ-1": proj1, "PROJ-2": proj2}}

	commit := &Commit{
		Revision: "aaa",
		FullText: "PROJ-2 depends on PROJ-1",
	}

	c := &Correlator{
		Tickets: source,
		Pattern: testPattern(t),
		TypeMap: map[string]string{"Bug": "Bug Fixes", "Story": "Feature"},
	}
	require.NoError(t, c.Enrich(context.Background(), []*Commit{commit}))

	// Tickets attach in the order the keys appear in the message.
	require.Len(t, commit.Tickets, 2)
	assert.Same(t, proj2, commit.Tickets[0])
	assert.Same(t, proj1, commit.Tickets[1])

	// Types normalized through the mapping table.
	assert.Equal(t, "Feature", proj2.Category)
	assert.Equal(t, "Bug Fixes", proj1.Category)
}

func TestCorrelatorEnrichSkipsFailedKeys(t *testing.T) {
	proj1 := &Ticket{Key: "PROJ-1", Type: "Bug"}
	source := &stubTickets{
		known:   map[string]*Ticket{"PROJ-1": proj1},
		failing: map[string]error{"PROJ-2": fmt.Errorf("tracker error")},
	}

	var warnings strings.Builder
	commit := &Commit{Revision: "aaa", FullText: "PROJ-1 and PROJ-2"}

	c := &Correlator{
		Tickets:  source,
		Pattern:  testPattern(t),
		TypeMap:  map[string]string{},
		Warnings: &warnings,
	}
	require.NoError(t, c.Enrich(context.Background(), []*Commit{commit}))

	require.Len(t, commit.Tickets, 1)
	assert.Equal(t, "PROJ-1", commit.Tickets[0].Key)
	assert.Contains(t, warnings.String(), "PROJ-2")
}

func TestCorrelatorEnrichUnmappedTypeHasNoCategory(t *testing.T) {
	exotic := &Ticket{Key: "PROJ-9", Type: "Epic"}
	source := &stubTickets{known: map[string]*Ticket{"PROJ-9": exotic}}

	commit := &Commit{Revision: "aaa", FullText: "PROJ-9"}
	c := &Correlator{
		Tickets: source,
		Pattern: testPattern(t),
		TypeMap: map[string]string{"Bug": "Bug Fixes"},
	}
	require.NoError(t, c.Enrich(context.Background(), []*Commit{commit}))

	assert.Empty(t, exotic.Category)
}

func TestCorrelatorEnrichWarnsConcurrentlyIntoOneWriter(t *testing.T) {
	failing := make(map[string]error, 20)
	commits := make([]*Commit, 0, 20)
	for i := 1; i <= 20; i++ {
		key := fmt.Sprintf("PROJ-%d", i)
		failing[key] = fmt.Errorf("tracker error")
		commits = append(commits, &Commit{
			Revision: fmt.Sprintf("%02d", i),
			FullText: key + " change",
		})
	}

	var warnings strings.Builder
	c := &Correlator{
		Tickets:  &stubTickets{failing: failing},
		Pattern:  testPattern(t),
		TypeMap:  map[string]string{},
		Warnings: &warnings,
	}
	require.NoError(t, c.Enrich(context.Background(), commits))

	for key := range failing {
		assert.Contains(t, warnings.String(), key)
	}
}

func TestCorrelatorEnrichMatchesIdentity(t *testing.T) {
	identity := &ChatIdentity{ID: "U1", DisplayName: "ann"}
	commits := []*Commit{
		{Revision: "aaa", AuthorEmail: "ann@x.com", FullText: "no keys here"},
		{Revision: "bbb", AuthorEmail: "stranger@x.com", FullText: "none either"},
	}

	c := &Correlator{
		Tickets:    &stubTickets{},
		Identities: &stubIdentities{email: "ann@x.com", identity: identity},
		Pattern:    testPattern(t),
	}
	require.NoError(t, c.Enrich(context.Background(), commits))

	assert.Same(t, identity, commits[0].Identity)
	assert.Nil(t, commits[1].Identity)
}

func TestCorrelatorEnrichNoIdentitySource(t *testing.T) {
	commit := &Commit{Revision: "aaa", FullText: "nothing"}
	c := &Correlator{Tickets: &stubTickets{}, Pattern: testPattern(t)}

	require.NoError(t, c.Enrich(context.Background(), []*Commit{commit}))
	assert.Nil(t, commit.Identity)
	assert.Empty(t, commit.Tickets)
}

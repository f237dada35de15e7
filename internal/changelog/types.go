package changelog

import "time"

// Commit represents a single commit read from version control history.
// The identity and ticket fields start empty and are filled in by the
// Correlator; nothing else mutates a Commit after it has been read.
type Commit struct {
	// Revision is the full commit hash and uniquely identifies the commit.
	Revision string
	// Date is the author date of the commit.
	Date time.Time
	// Summary is the first line of the commit message.
	Summary string
	// FullText is the complete commit message (summary plus body).
	FullText string
	// AuthorName and AuthorEmail come straight from the commit signature.
	AuthorName  string
	AuthorEmail string

	// Identity is the chat-platform user matched to the author, or nil
	// when no match was found or the chat integration is disabled.
	Identity *ChatIdentity
	// Tickets lists the tickets referenced by this commit message, in the
	// order their keys appear in the text, with duplicates collapsed.
	Tickets []*Ticket
}

// HasTickets reports whether any ticket keys resolved for this commit.
func (c *Commit) HasTickets() bool {
	return len(c.Tickets) > 0
}

// Reporter identifies the person who filed a ticket.
type Reporter struct {
	Name  string
	Email string
}

// Ticket is a unit of tracked work fetched from the issue tracker.
// A ticket key is globally unique within a run: every commit referencing
// the same key shares one Ticket instance, and Commits accumulates all
// of them in the order they were folded into the index.
type Ticket struct {
	// Key is the project-prefixed identifier, e.g. "PROJ-123".
	Key string
	// Type is the tracker-native issue type name as fetched.
	Type string
	// Category is the canonical category label Type mapped to, or empty
	// when the type has no mapping. Uncategorized tickets stay in the
	// full ticket list but are excluded from every session.
	Category string
	// Status is the tracker status name, matched exactly (case-sensitive)
	// against the approval-status set.
	Status   string
	Summary  string
	Reporter Reporter

	// Commits are the commits referencing this ticket, populated during
	// aggregation rather than fetch.
	Commits []*Commit
}

// ChatIdentity is one entry of the chat-platform user directory.
// The directory is loaded once per run and read-only thereafter.
type ChatIdentity struct {
	ID                 string
	DisplayName        string
	Email              string
	RealName           string
	RealNameNormalized string
}

// MergeRequest is a code-host record of a merged branch, correlated to
// the changelog range by merge timestamp only.
type MergeRequest struct {
	ID       int
	Title    string
	WebURL   string
	MergedAt time.Time
	Author   string
}

// Committer is one entry of the committer roll-up, deduplicated by chat
// user ID when an identity resolved, else by author email. Username is
// the chat display name when available, else the raw author email.
type Committer struct {
	Username string
	Name     string
}

// OwnerGroup collects the pending tickets filed by a single reporter.
type OwnerGroup struct {
	Email string
	Name  string
	// Tickets appear in the order they were encountered in the pending
	// list. Groups themselves keep first-seen reporter order.
	Tickets []*Ticket
}

// CommitSet partitions the commits of a run by ticket association.
// Every commit appears in All and in exactly one of Tickets/NoTickets.
type CommitSet struct {
	All       []*Commit
	Tickets   []*Commit
	NoTickets []*Commit
}

// TicketSet partitions the tickets of a run by approval status.
// Every ticket appears in All and in exactly one of Approved/Pending.
type TicketSet struct {
	All            []*Ticket
	Approved       []*Ticket
	Pending        []*Ticket
	PendingByOwner []OwnerGroup
}

// Dataset is the aggregate root handed to the renderer: the normalized,
// query-ready view of one changelog run. It is rebuilt from scratch on
// every invocation and has no persistence.
type Dataset struct {
	Commits CommitSet
	Tickets TicketSet

	// Sessions maps each canonical category label to the tickets whose
	// normalized category equals it, in aggregate sort order.
	Sessions map[string][]*Ticket
	// SessionTypes is the configured category taxonomy, in render order.
	SessionTypes []string

	Committers    []Committer
	MergeRequests []MergeRequest
}

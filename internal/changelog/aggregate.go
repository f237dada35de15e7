package changelog

import "sort"

// Aggregate folds enriched commits and merge requests into the
// normalized Dataset. It performs no I/O and cannot fail on valid
// input: missing ticket or identity data is treated as absent, never
// as an error.
//
// approvalStatuses is the set of tracker status names that mean a
// ticket is finalized (matched exactly, case-sensitive). categories is
// the canonical session taxonomy in render order.
func Aggregate(commits []*Commit, mergeRequests []MergeRequest, approvalStatuses []string, categories []string) *Dataset {
	tickets := indexTickets(commits)

	// Stable sort by category keeps insertion order inside each category,
	// so grouping order is deterministic regardless of fetch order.
	sort.SliceStable(tickets, func(i, j int) bool {
		return tickets[i].Category < tickets[j].Category
	})

	approved := make(map[string]bool, len(approvalStatuses))
	for _, s := range approvalStatuses {
		approved[s] = true
	}

	ds := &Dataset{
		Sessions:      make(map[string][]*Ticket, len(categories)),
		SessionTypes:  categories,
		MergeRequests: mergeRequests,
	}
	ds.Tickets.All = tickets

	for _, ticket := range tickets {
		if approved[ticket.Status] {
			ds.Tickets.Approved = append(ds.Tickets.Approved, ticket)
		} else {
			ds.Tickets.Pending = append(ds.Tickets.Pending, ticket)
		}
	}
	ds.Tickets.PendingByOwner = groupByOwner(ds.Tickets.Pending)

	for _, label := range categories {
		session := []*Ticket{}
		for _, ticket := range tickets {
			if ticket.Category == label {
				session = append(session, ticket)
			}
		}
		ds.Sessions[label] = session
	}

	ds.Commits.All = commits
	for _, commit := range commits {
		if commit.HasTickets() {
			ds.Commits.Tickets = append(ds.Commits.Tickets, commit)
		} else {
			ds.Commits.NoTickets = append(ds.Commits.NoTickets, commit)
		}
	}

	ds.Committers = rollUpCommitters(commits)
	return ds
}

// indexTickets builds the unique ticket list from the commit log.
// The first commit referencing a key contributes the Ticket instance;
// every referencing commit is appended to that instance's commit list
// in commit-log order.
func indexTickets(commits []*Commit) []*Ticket {
	index := make(map[string]*Ticket)
	var tickets []*Ticket

	for _, commit := range commits {
		for _, ticket := range commit.Tickets {
			indexed, ok := index[ticket.Key]
			if !ok {
				index[ticket.Key] = ticket
				tickets = append(tickets, ticket)
				indexed = ticket
			}
			indexed.Commits = append(indexed.Commits, commit)
		}
	}
	return tickets
}

// groupByOwner buckets pending tickets under their reporter's email.
// Both the groups and the tickets within each group keep first-seen
// order, which is the only deterministic ordering the reporter data
// supports.
func groupByOwner(pending []*Ticket) []OwnerGroup {
	index := make(map[string]int)
	groups := []OwnerGroup{}

	for _, ticket := range pending {
		email := ticket.Reporter.Email
		if i, ok := index[email]; ok {
			groups[i].Tickets = append(groups[i].Tickets, ticket)
			continue
		}
		index[email] = len(groups)
		groups = append(groups, OwnerGroup{
			Email:   email,
			Name:    ticket.Reporter.Name,
			Tickets: []*Ticket{ticket},
		})
	}
	return groups
}

// rollUpCommitters deduplicates commit authors, preserving first-seen
// order. The dedup key is the chat user ID when an identity resolved,
// else the raw author email; the displayed username prefers the chat
// display name over the email.
func rollUpCommitters(commits []*Commit) []Committer {
	seen := make(map[string]bool)
	var committers []Committer

	for _, commit := range commits {
		key := commit.AuthorEmail
		username := commit.AuthorEmail
		if commit.Identity != nil {
			if commit.Identity.ID != "" {
				key = commit.Identity.ID
			}
			if commit.Identity.DisplayName != "" {
				username = commit.Identity.DisplayName
			}
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		committers = append(committers, Committer{Username: username, Name: commit.AuthorName})
	}
	return committers
}

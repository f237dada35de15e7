// Package changelog implements the issue-correlation and aggregation
// core of tracklog: extracting ticket keys from commit messages,
// attaching resolved tickets and chat identities to commits, and
// folding the enriched log into the normalized dataset the renderer
// consumes. All network access is behind the TicketSource and
// IdentitySource interfaces; this package itself performs no I/O.
package changelog

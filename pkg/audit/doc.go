// Package audit keeps a persistent trail of security-relevant HTTP
// activity.
//
// The trail records two classes of traffic: state-changing requests
// (anything other than GET or HEAD) and rejected requests of any
// method. Successful reads are deliberately left out so the table
// tracks decisions, not browsing.
//
// Events are written by Middleware after the response is committed,
// on a detached context so request cancellation cannot lose the entry
// and a slow database write cannot delay the response. The recorder is
// PostgreSQL-backed; Migrate creates the table.
//
// System administrators query the trail through Handlers.List, which
// filters by actor, organization, event type, status and time range.
// Prune enforces the retention window and is meant to run on a
// schedule.
package audit

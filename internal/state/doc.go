// Package state provides the client-side cache that sits between the portal
// API and every consumer in jobdeck.
//
// # Overview
//
// A Store holds one remote collection (companies, jobs) together with the
// time of the last successful fetch, a loading flag and the most recent
// failure message. The UI, the CLI and the refresh control all read the same
// Store instance; none of them write to it directly.
//
// # Fetch Semantics
//
// An unforced Load(ctx, false) is a no-op while a fetch is in flight or while
// the cache is younger than the TTL; otherwise it fetches.
//
// A forced Load(ctx, true) or ForceRefresh(ctx) always fetches. If a fetch is
// in flight it queues one trailing fetch and waits for it.
//
// At most one fetch runs at a time. Forced callers that arrive while a fetch
// is running share a single follow-up fetch, so a forced refresh always
// observes data requested after it was issued.
//
// On success the items are replaced, LastFetch is set, the error is cleared
// and older local overrides are dropped. On failure the items and LastFetch are
// left untouched and Error is set to a fixed user-facing message such as:
//
//	Failed to load companies. Please try again later.
//
// The underlying error is logged, never returned; Options.Classify may add
// fields to that log entry, such as whether the error is worth retrying.
// Fetches are detached from the caller's context so an abandoned caller
// cannot leave the store half-updated; the HTTP client's timeout bounds them
// instead.
//
// # Local Overrides
//
// Patch applies a local change (for example bumping an applicant count after
// a successful application) without a round trip. Overrides are kept apart
// from server data: Snapshot.Local lists the affected keys. A successful fetch
// discards the overrides written before it started; newer ones survive until
// a later fetch, since the server data may not include them yet. Callers
// that make an authoritative write should follow it with ForceRefresh.
//
// # Revalidation Triggers
//
// Activate registers three triggers and returns a stop func:
//
//   - mount: one unforced load immediately
//   - interval: an unforced load every TTL, skipped while the Presence is hidden
//   - focus: an unforced load whenever the Presence reports focus gained
//
// Trigger fetches run on their own goroutines, so stop returns promptly. It
// does not cancel a fetch already in flight.
//
// # Testing Considerations
//
// Options.Clock controls TTL and age calculations; tests substitute a manual
// clock and advance it. The interval ticker uses real time.
package state

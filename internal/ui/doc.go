// Package ui is the Bubble Tea front end for jobdeck.
//
// # Layout
//
//	┌ header: counts, "Updated Ns ago" / Refreshing..., STALE ───────────┐
//	├ command bar: key hints for the active view ────────────────────────┤
//	│ ┌── Jobs (42) ──────────┐┌── Job ─────────────────────────────┐ │
//	│ │ #12 Go Engineer · Acme ││ title, badges, fields, description │ │
//	│ └────────────────────────┘└─────────────────────────────────────┘ │
//
// Two views share the layout: Jobs, filterable by category, and Companies.
// tab switches between them.
//
// # Data
//
// The model never fetches. A one-second tick re-reads each store's Snapshot
// and Status; the stores' own triggers decide when to hit the network. The
// r key calls Options.Refresh, which force-refreshes every store.
//
// The body follows the store state:
//
//   - no data and loading: a spinner
//   - no data and an error: the error and a retry hint
//   - data and an error: the cached rows under a warning banner
//
// Rows carrying a local override are marked with "*".
//
// # Focus
//
// The program runs with focus reporting on. tea.FocusMsg calls
// state.Focus.Gained, which revalidates the stores and resumes interval
// polling; tea.BlurMsg calls Focus.Lost, which pauses it.
//
// # Preferences
//
// Theme, view and category are written to the prefs file whenever they
// change and restored by the next session.
package ui

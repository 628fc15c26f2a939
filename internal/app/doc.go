// Package app is the composition root for jobdeck.
//
// # Overview
//
// NewServices wires the portal client, its detail cache and the two entity
// stores from a resolved config. The CLI commands use those services
// directly; Run additionally activates the stores' background triggers and
// hands control to the TUI.
//
// # Data Flow
//
//	┌──────────────┐
//	│ NewServices  │
//	└──────┬───────┘
//	       ├─────> portal.NewClient()    HTTP client + detail cache
//	       ├─────> catalog.NewCompanies() companies store
//	       └─────> catalog.NewJobs()      jobs store
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> state.NewFocus()       terminal focus/visibility
//	       ├─────> store.Activate() x2    mount, interval and focus triggers
//	       └─────> ui.Run()               TUI (blocks)
//	               deferred stop() x2     triggers removed on exit
//
// # Refresh Control
//
// RefreshAll forces every store at once and waits for all of them. The
// returned Summary carries each store's status and the combined age, which is
// the age of the oldest store, or unknown if any store has never fetched:
//
//	summary := app.RefreshAll(ctx, svc.Stores()...)
//	fmt.Println(summary.Label()) // Updated 0s ago
//
// # Actions
//
// Apply and ToggleSaved perform a write through the portal and record the
// result as a local override on the jobs store, so the UI reflects it before
// the next fetch. Apply also forces a jobs refresh afterwards.
package app

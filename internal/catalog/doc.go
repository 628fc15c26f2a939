// Package catalog binds the generic state.Store to the portal's companies and
// jobs and adds the lookups the UI and CLI need.
package catalog

// Package portal is the HTTP client for the job portal API.
//
// It covers the company and job listings, single-record lookups, the apply
// and save actions, job edits and the contact form. List endpoints accept
// either a bare JSON array or a {"data": [...]} envelope. Single-record GETs
// can be cached for a few seconds through a DetailCache; every write through
// the same Client drops the affected entry.
//
// Every request carries a fresh X-Request-ID so server logs can be matched to
// client logs. Failures with a status of 400 or above come back as *APIError.
package portal

// Package admin owns the HTTP surface of a taskwire process.
//
// Ownership boundary:
// - health and readiness
// - registry listing and lookup
// - parcel header inspection
// - prometheus scrape endpoint
package admin

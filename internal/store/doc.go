// Package store keeps the latest rendering of each dashboard region.
//
// This package is internal to EventBoard. Each region id maps to exactly one
// [Region]; an update fully replaces the previous rendering unless it comes
// from an older poll round than the one already stored, in which case it is
// discarded so a late response cannot overwrite fresher data.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [Region]: Storage representation of a rendered region
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers miss updates rather than block the poller).
package store

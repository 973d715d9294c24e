// Package poller fetches the upstream payloads that feed the EventBoard
// regions.
//
// This package is internal to EventBoard. A [Poller] runs one round
// immediately on start and another on every tick of a fixed-period ticker.
// A round issues one statistics fetch and one event fetch per category, each
// in its own goroutine, so a slow upstream never delays the other regions or
// the next round.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper with per-request timeouts and size limits
//   - [Poller]: Owns the ticker and the round lifecycle
//   - [DecodeFields]: Ordered decode of flat JSON objects into [Field] values
//   - [Result]: The settled outcome of one fetch, tagged with its region
//
// Users of the eventboard library should not need to interact with this
// package directly.
package poller

package store

import "time"

// Region is the latest rendering of one dashboard region.
//
// Region is the storage representation used by the REST API and SSE stream.
// It is decoupled from the poller's types so the two can evolve separately.
type Region struct {
	// ID is the DOM id of the region, e.g. "stats" or "event-sensor-data".
	ID string `json:"id"`

	// Kind is "stats" or "event".
	Kind string `json:"kind"`

	// Category is the event category; empty for the stats region.
	Category string `json:"category,omitempty"`

	// Index is the event slot shown in the heading; nil for stats.
	Index *int `json:"index,omitempty"`

	// HTML is the rendered fragment that replaces the region's content.
	HTML string `json:"html"`

	// Round is the poll round whose fetch produced this rendering.
	Round uint64 `json:"round"`

	// Error contains the failure message if the fetch failed.
	Error *string `json:"error"`

	// UpdatedAt is when the fetch settled.
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines storage and subscription for region renderings.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Update stores a region rendering and notifies subscribers. It returns
	// false, and stores nothing, when the region already holds a rendering
	// from a newer round.
	Update(region Region) bool

	// Get returns the latest rendering for a region id.
	Get(id string) (Region, bool)

	// GetAll returns all current renderings sorted by id.
	GetAll() []Region

	// Subscribe returns a channel that receives region updates.
	// Slow consumers may miss updates. Caller must call Unsubscribe.
	Subscribe() <-chan Region

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Region)
}

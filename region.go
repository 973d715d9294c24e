package eventboard

import "time"

// Categories with a dedicated panel on the dashboard page.
const (
	CategorySensorData  = "sensor-data"
	CategoryUserCommand = "user-command"
)

// Kind is the payload shape a region displays.
type Kind string

const (
	// KindStats is the statistics region.
	KindStats Kind = "stats"

	// KindEvent is a single audit event region.
	KindEvent Kind = "event"
)

// Field is one displayed key/value pair, in payload order.
type Field struct {
	Key   string
	Value string
}

// RegionUpdate describes one settled fetch after it has been rendered.
//
// It is delivered to callbacks registered with [WithRegionCallback]. Fields
// is a copy and may be retained.
type RegionUpdate struct {
	// Region is the display region id: "stats" or "event-<category>".
	Region string

	// Kind is the payload shape.
	Kind Kind

	// Category is the event category; empty for statistics.
	Category string

	// Index is the requested event slot; zero for statistics.
	Index int

	// Round is the poll round that issued the fetch, starting at 1.
	Round uint64

	// URL is the URL that was requested, including the index parameter.
	URL string

	// Fields holds the displayed pairs on success.
	Fields []Field

	// HTML is the rendered fragment.
	HTML string

	// Error is nil on success.
	Error error

	// Applied is false when the store already held a rendering from a newer
	// round and this one was discarded.
	Applied bool

	// StatusCode is the HTTP status code, zero if no response arrived.
	StatusCode int

	// Latency is the time taken by the HTTP request.
	Latency time.Duration

	// CheckedAt is when the fetch settled.
	CheckedAt time.Time
}

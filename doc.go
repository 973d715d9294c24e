// Package eventboard provides an embeddable live dashboard for an audit
// pipeline: a statistics endpoint plus one indexed event endpoint per
// category.
//
// On a fixed period a [Board] fetches the statistics and, for every event
// category, one event at a randomly chosen index. Each response is decoded
// into ordered key/value pairs, rendered server side into its display region
// ("stats" or "event-<category>") and pushed to browsers over Server-Sent
// Events. Rounds are independent: nothing is retried or deduplicated, and a
// late response from an older round never overwrites a newer rendering.
//
// # Quick Start
//
//	stats, _ := eventboard.NewSource("http://localhost:8100/stats")
//	sensors, _ := eventboard.NewSource("http://localhost:8110/sensor_data")
//	commands, _ := eventboard.NewSource("http://localhost:8110/user_command")
//
//	b, _ := eventboard.New(
//	    eventboard.WithStatsSource(stats),
//	    eventboard.WithEventSource(eventboard.CategorySensorData, sensors),
//	    eventboard.WithEventSource(eventboard.CategoryUserCommand, commands),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	b.Start(ctx) // blocks until ctx is cancelled
//
// # Regions
//
// The statistics region shows one "key: value" line per field, or the error
// message. An event region is headed "Event <index>" and shows one
// label/value block per field, or the error message. Event payloads must
// come back with a 2xx status; statistics payloads are accepted with any
// status as long as they decode.
//
// # Architecture
//
//   - internal/poller: ticker, fetchers and the payload decoder
//   - internal/render: HTML fragments for each region
//   - internal/store: latest rendering per region with pub/sub
//   - internal/server: dashboard page, REST API and SSE stream
//   - dashboard: embedded browser shell
//
// The internal packages are not part of the public API.
package eventboard

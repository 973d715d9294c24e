// Package server provides the HTTP server for the EventBoard dashboard and API.
//
// This package is internal to EventBoard and handles all HTTP concerns:
//
//   - Dashboard serving: the embedded page that owns the region mount points
//   - REST API: JSON snapshot at "/api/regions", one fragment at "/api/regions/{id}"
//   - Server-Sent Events: live region updates at "/api/sse"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server

// Package server provides the HTTP server for the ScoutBoard dashboard and API.
//
// This package is internal to ScoutBoard and handles all HTTP concerns:
//
//   - Dashboard serving: Serves the embedded HTML/CSS/JS dashboard at "/"
//   - REST API: "/api/status" for the board state, "/api/arrivals" for
//     recent new conversations
//   - Server-Sent Events: Real-time updates at "/api/sse"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server

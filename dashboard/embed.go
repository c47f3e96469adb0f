// Package dashboard provides the embedded web UI assets for ScoutBoard.
//
// The dashboard is a single HTML page with inline CSS and JavaScript that
// reads /api/status once and then follows /api/sse. Embedding keeps the
// binary self-contained.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Main dashboard page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS

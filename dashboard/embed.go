// Package dashboard embeds the browser shell for EventBoard.
//
// The page declares the region mount points and applies region fragments
// pushed over the SSE stream. All rendering happens server side.
package dashboard

import "embed"

// Assets holds assets/index.html, served at "/" by the server package.
//
//go:embed assets/*
var Assets embed.FS

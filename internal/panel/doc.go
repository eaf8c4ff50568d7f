// Package panel serves the dashboard page that drives the device API.
//
// The page, its script and stylesheet are embedded with go:embed, so the
// binary has no runtime dependency on files next to it. For development
// the api.static_dir setting points Handler at a directory on disk instead.
//
// Unknown paths fall back to index.html so client-side routing works.
// Paths under /api are routed before this handler and never reach it.
package panel

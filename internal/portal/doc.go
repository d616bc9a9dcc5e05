// Package portal assembles and runs the ledger portal.
//
// New wires the SQLite store, the ledger service, flash sessions, the page
// surface and the JSON API from a config.Config. When the config names a
// gateway (or a default preset) the connection is opened at startup; a
// failure there is logged and the portal starts unconnected.
//
// Run serves the pages on server.http_addr and the API on server.api_addr,
// or both on a tailnet when tailscale is enabled, until its context is
// canceled. Both surfaces answer GET /health; the page surface also answers
// GET /health/ready with 503 until a gateway is connected.
package portal

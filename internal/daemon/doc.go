// Package daemon coordinates the long-running AirDesk process.
//
// It wires configuration, the SQLite store, the call workflow manager, the
// intake session store, and the HTTP API into a single lifecycle with
// flock-based locking to prevent multiple instances. The API authenticates
// with a static bearer token, scopes every request to the firm named in the
// X-Firm-ID header, and rate limits per firm.
//
// Keep orchestration and transport here: call processing lives in the
// workflow and pipeline packages, and ticket rules live in ticket and store.
package daemon

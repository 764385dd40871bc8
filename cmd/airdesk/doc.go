// Package main hosts the AirDesk CLI entrypoint and command graph.
//
// Commands read the configuration once, then either talk to a running
// airdeskd over its HTTP API or open the SQLite store directly. Board moves
// and call submission prefer the daemon and fall back to the store when it is
// not reachable, so the CLI stays useful while the daemon is down.
package main

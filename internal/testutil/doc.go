// Package testutil contains helpers shared by tests: an event collector that
// subscribes to a bus and records what it sees, and tools with scripted
// failure behavior. They are not intended for production usage.
package testutil

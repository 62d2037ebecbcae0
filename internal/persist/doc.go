// Package persist defines the durable record keeper behind the
// versioned cache: a monotonically-versioned store that keeps every
// version ever written for a key. It ships a Bolt-backed implementation
// for nodes and a map-backed one for tests.
package persist

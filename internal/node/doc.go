// Package node serves one backend node's store operations over
// HTTP/JSON: put, versioned get, cache stats and database stats.
package node

// Package router decides which backend node serves an inbound gateway
// operation and keeps per-node request and latency counters. Routing is
// driven by the consistent-hash ring for key-addressing paths and by an
// explicit target for administrative stats paths. The counters feed the
// hot-spot / slow-node insights report.
package router

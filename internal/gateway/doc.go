// Package gateway implements the stateless routing gateway. Requests
// are mapped to a backend node via the consistent-hash router, proxied
// over HTTP with a bounded timeout, and measured per node. The gateway
// also serves the aggregated metrics snapshot and the hot-spot /
// slow-node insights report.
package gateway

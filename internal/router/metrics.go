package router

import (
	"errors"
	"math"
	"sort"
	"sync"
)

// LatencyWindow is the number of most recent latency samples retained
// per node. Older samples slide out; nothing is aggregated.
const LatencyWindow = 50

// ErrNoMetrics is returned by Insights when nothing has been recorded.
var ErrNoMetrics = errors.New("router: no metrics recorded")

// NodeStats is one node's counters as reported by Snapshot.
type NodeStats struct {
	Requests     uint64  `json:"request_count"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
}

// Insights is the derived hot-spot / slow-node report.
type Insights struct {
	TotalRequests uint64               `json:"total_requests"`
	AvgLatencyMS  float64              `json:"avg_latency_ms"`
	HotSpots      []string             `json:"hot_spots"`
	SlowServers   []string             `json:"slow_servers"`
	Servers       map[string]NodeStats `json:"servers"`
}

// hotSpotFactor flags a node as hot or slow when its counter exceeds
// this multiple of the population mean.
const hotSpotFactor = 1.5

// nodeMetrics carries its own lock: recording for one node never
// contends with recording for another.
type nodeMetrics struct {
	mu       sync.Mutex
	requests uint64
	window   []float64
}

func (nm *nodeMetrics) record(latencyMS float64) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	nm.requests++
	if len(nm.window) == LatencyWindow {
		copy(nm.window, nm.window[1:])
		nm.window[LatencyWindow-1] = latencyMS
		return
	}
	nm.window = append(nm.window, latencyMS)
}

func (nm *nodeMetrics) stats() NodeStats {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	return NodeStats{
		Requests:     nm.requests,
		AvgLatencyMS: round2(mean(nm.window)),
	}
}

// Metrics tracks request counts and a sliding latency window per node.
// Safe for concurrent writers from multiple in-flight requests.
type Metrics struct {
	mu    sync.RWMutex
	nodes map[string]*nodeMetrics
}

// NewMetrics creates an empty recorder.
func NewMetrics() *Metrics {
	return &Metrics{nodes: make(map[string]*nodeMetrics)}
}

// Record ingests one latency sample for node. Fire and forget.
func (m *Metrics) Record(node string, latencyMS float64) {
	m.node(node).record(latencyMS)
}

func (m *Metrics) node(name string) *nodeMetrics {
	m.mu.RLock()
	nm, ok := m.nodes[name]
	m.mu.RUnlock()
	if ok {
		return nm
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if nm, ok = m.nodes[name]; ok {
		return nm
	}
	nm = &nodeMetrics{}
	m.nodes[name] = nm
	return nm
}

// Snapshot reports counters for each of the given nodes. Nodes without
// recorded traffic appear with zero counts; their zeros participate in
// the insight means.
func (m *Metrics) Snapshot(nodes []string) map[string]NodeStats {
	out := make(map[string]NodeStats, len(nodes))
	for _, name := range nodes {
		m.mu.RLock()
		nm, ok := m.nodes[name]
		m.mu.RUnlock()
		if !ok {
			out[name] = NodeStats{}
			continue
		}
		out[name] = nm.stats()
	}
	return out
}

// Insights classifies hot spots and slow nodes against 1.5x the
// population mean over the given nodes. Returns ErrNoMetrics when no
// request has been recorded for any of them.
func (m *Metrics) Insights(nodes []string) (Insights, error) {
	snap := m.Snapshot(nodes)
	if len(snap) == 0 {
		return Insights{}, ErrNoMetrics
	}

	var totalRequests uint64
	var latencySum float64
	for _, st := range snap {
		totalRequests += st.Requests
		latencySum += st.AvgLatencyMS
	}
	if totalRequests == 0 {
		return Insights{}, ErrNoMetrics
	}

	meanRequests := float64(totalRequests) / float64(len(snap))
	meanLatency := latencySum / float64(len(snap))

	report := Insights{
		TotalRequests: totalRequests,
		AvgLatencyMS:  round2(meanLatency),
		HotSpots:      []string{},
		SlowServers:   []string{},
		Servers:       snap,
	}

	for name, st := range snap {
		if float64(st.Requests) > meanRequests*hotSpotFactor {
			report.HotSpots = append(report.HotSpots, name)
		}
		if st.AvgLatencyMS > meanLatency*hotSpotFactor {
			report.SlowServers = append(report.SlowServers, name)
		}
	}
	sort.Strings(report.HotSpots)
	sort.Strings(report.SlowServers)

	return report, nil
}

func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

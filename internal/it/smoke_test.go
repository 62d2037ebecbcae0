package it

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmoke_PutGetThroughGateway(t *testing.T) {
	c := StartCluster(t, 3, 16)

	put := c.Put(t, "user:1", `{"name": "ada"}`)
	assert.Equal(t, "create", put["operation"])
	assert.Equal(t, float64(1), put["new_version"])

	got, status := c.Get(t, "user:1", 0)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(1), got["version"])
	assert.Equal(t, "cache", got["source"])
	obj, ok := got["value"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ada", obj["name"])
}

func TestSmoke_VersionsAccumulateOnOneNode(t *testing.T) {
	c := StartCluster(t, 3, 16)

	for i := 1; i <= 4; i++ {
		put := c.Put(t, "counter", fmt.Sprintf("%d", i))
		assert.Equal(t, float64(i), put["new_version"])
	}

	// All writes for one key land on a single node's persistence.
	owners := 0
	for _, h := range c.Nodes {
		if _, err := h.DB.Get("counter", 0); err == nil {
			owners++
			st, err := h.DB.Stats()
			require.NoError(t, err)
			assert.Equal(t, 4, st.TotalVersions)
		}
	}
	assert.Equal(t, 1, owners)

	got, status := c.Get(t, "counter", 2)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(2), got["value"])
	assert.Equal(t, float64(2), got["version"])
}

func TestSmoke_KeysSpreadAcrossNodes(t *testing.T) {
	c := StartCluster(t, 3, 64)

	for i := 0; i < 60; i++ {
		c.Put(t, fmt.Sprintf("key-%d", i), `"x"`)
	}

	nodesWithData := 0
	for _, h := range c.Nodes {
		st, err := h.DB.Stats()
		require.NoError(t, err)
		if st.TotalKeys > 0 {
			nodesWithData++
		}
	}
	assert.Equal(t, 3, nodesWithData, "60 keys should touch every node")
}

func TestSmoke_NotFoundThroughGateway(t *testing.T) {
	c := StartCluster(t, 2, 16)

	body, status := c.Get(t, "never-written", 0)
	assert.Equal(t, 404, status)
	assert.Contains(t, body["error"], "never-written")

	c.Put(t, "exists", `1`)
	_, status = c.Get(t, "exists", 99)
	assert.Equal(t, 404, status)
}

func TestSmoke_CacheStatsRequireServerParam(t *testing.T) {
	c := StartCluster(t, 2, 16)

	body, status := c.GetJSON(t, "/cache/stats")
	assert.Equal(t, 400, status)
	assert.Contains(t, body["error"], "server parameter is required")

	target := c.Addrs[0]
	stats, status := c.GetJSON(t, "/cache/stats?server="+url.QueryEscape(target))
	require.Equal(t, 200, status)
	assert.Equal(t, float64(16), stats["max_size"])

	_, status = c.GetJSON(t, "/db/stats?server=127.0.0.1:1")
	assert.Equal(t, 400, status)
}

func TestSmoke_InsightsAfterTraffic(t *testing.T) {
	c := StartCluster(t, 2, 16)

	body, status := c.GetJSON(t, "/insights")
	require.Equal(t, 200, status)
	assert.Equal(t, "no metrics data available", body["error"])

	for i := 0; i < 10; i++ {
		c.Put(t, fmt.Sprintf("k-%d", i), `true`)
	}

	report, status := c.GetJSON(t, "/insights")
	require.Equal(t, 200, status)
	assert.Equal(t, float64(10), report["total_requests"])
	servers, ok := report["servers"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, servers, 2)
}

func TestSmoke_EvictionVisibleInCacheStats(t *testing.T) {
	c := StartCluster(t, 1, 2)
	target := c.Addrs[0]

	for i := 0; i < 5; i++ {
		c.Put(t, fmt.Sprintf("k-%d", i), `"v"`)
	}

	stats, status := c.GetJSON(t, "/cache/stats?server="+url.QueryEscape(target))
	require.Equal(t, 200, status)
	assert.Equal(t, float64(2), stats["current_size"])
	assert.Equal(t, true, stats["is_full"])

	// Evicted keys are still durable and readable, served from the
	// database on first touch.
	got, getStatus := c.Get(t, "k-0", 0)
	require.Equal(t, 200, getStatus)
	assert.Equal(t, "database", got["source"])
}

func TestSmoke_SameKeyAlwaysSameNode(t *testing.T) {
	c := StartCluster(t, 3, 16)

	c.Put(t, "pin", `"first"`)
	for i := 0; i < 5; i++ {
		c.Put(t, "pin", `"again"`)
	}

	// Exactly one node ever saw the key.
	seen := 0
	for _, h := range c.Nodes {
		st, err := h.DB.Stats()
		require.NoError(t, err)
		if st.TotalKeys > 0 {
			seen++
			assert.Equal(t, 6, st.TotalVersions)
		}
	}
	assert.Equal(t, 1, seen)
}

package it

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"distkv/internal/gateway"
	"distkv/internal/node"
	"distkv/internal/persist"
	"distkv/internal/ring"
	"distkv/internal/router"
	"distkv/internal/store"
)

// Cluster is an in-process test cluster: several node servers behind
// one gateway, all over httptest.
type Cluster struct {
	Gateway *httptest.Server
	Nodes   map[string]*NodeHandle // addr -> handle
	Addrs   []string               // insertion order
}

// NodeHandle exposes one node's internals for assertions.
type NodeHandle struct {
	Addr   string
	Server *httptest.Server
	Store  *store.Store
	DB     *persist.MemoryStore
}

// StartCluster spins up n nodes with the given cache size and a
// gateway routing across them.
func StartCluster(t *testing.T, n, maxCacheSize int) *Cluster {
	t.Helper()

	c := &Cluster{Nodes: make(map[string]*NodeHandle)}
	r := ring.New(64)

	for i := 0; i < n; i++ {
		db := persist.NewMemoryStore()
		st, err := store.New(db, maxCacheSize)
		require.NoError(t, err)

		srv := httptest.NewServer(node.NewServer(st, db, nil).Handler())
		t.Cleanup(srv.Close)

		u, err := url.Parse(srv.URL)
		require.NoError(t, err)

		handle := &NodeHandle{Addr: u.Host, Server: srv, Store: st, DB: db}
		c.Nodes[u.Host] = handle
		c.Addrs = append(c.Addrs, u.Host)
		r.AddNode(u.Host)
	}

	c.Gateway = httptest.NewServer(gateway.NewServer(router.New(r), nil).Handler())
	t.Cleanup(c.Gateway.Close)
	return c
}

// Put writes a value through the gateway and returns the decoded
// response.
func (c *Cluster) Put(t *testing.T, key string, valueJSON string) map[string]any {
	t.Helper()
	body := fmt.Sprintf(`{"value": %s}`, valueJSON)
	resp, err := http.Post(c.Gateway.URL+"/put/"+key, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode(t, resp)
}

// Get reads a key through the gateway; version 0 means latest. Returns
// the decoded body and the HTTP status.
func (c *Cluster) Get(t *testing.T, key string, version int) (map[string]any, int) {
	t.Helper()
	u := c.Gateway.URL + "/get/" + key
	if version > 0 {
		u += fmt.Sprintf("?version=%d", version)
	}
	resp, err := http.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	return decode(t, resp), resp.StatusCode
}

// GetJSON fetches an arbitrary gateway path.
func (c *Cluster) GetJSON(t *testing.T, path string) (map[string]any, int) {
	t.Helper()
	resp, err := http.Get(c.Gateway.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	return decode(t, resp), resp.StatusCode
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

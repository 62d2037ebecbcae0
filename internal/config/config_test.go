package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distkv/internal/ring"
	"distkv/internal/store"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadGateway_FromYAML(t *testing.T) {
	path := writeFile(t, `
listen_addr: ":9000"
servers:
  - "127.0.0.1:8081"
  - "127.0.0.1:8082"
virtual_nodes: 64
`)

	cfg, err := LoadGateway(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, []string{"127.0.0.1:8081", "127.0.0.1:8082"}, cfg.Servers)
	assert.Equal(t, 64, cfg.VirtualNodes)
}

func TestLoadGateway_Defaults(t *testing.T) {
	path := writeFile(t, `
servers:
  - "127.0.0.1:8081"
`)

	cfg, err := LoadGateway(path)
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, ring.DefaultVirtualNodes, cfg.VirtualNodes)
}

func TestLoadGateway_EnvOverrides(t *testing.T) {
	path := writeFile(t, `
listen_addr: ":9000"
servers:
  - "127.0.0.1:8081"
`)
	t.Setenv("GATEWAY_LISTEN_ADDR", ":7000")
	t.Setenv("GATEWAY_SERVERS", "10.0.0.1:8080, 10.0.0.2:8080")

	cfg, err := LoadGateway(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, []string{"10.0.0.1:8080", "10.0.0.2:8080"}, cfg.Servers)
}

func TestLoadGateway_RequiresServers(t *testing.T) {
	_, err := LoadGateway("")
	assert.Error(t, err)
}

func TestLoadGateway_RejectsBadServerAddr(t *testing.T) {
	path := writeFile(t, `
servers:
  - "not-an-addr"
`)
	_, err := LoadGateway(path)
	assert.Error(t, err)
}

func TestLoadGateway_MissingFile(t *testing.T) {
	_, err := LoadGateway(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadNode_FromYAML(t *testing.T) {
	path := writeFile(t, `
listen_addr: ":8081"
data_path: "/var/lib/distkv/node1.db"
max_cache_size: 32
`)

	cfg, err := LoadNode(path)
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.ListenAddr)
	assert.Equal(t, "/var/lib/distkv/node1.db", cfg.DataPath)
	assert.Equal(t, 32, cfg.MaxCacheSize)
}

func TestLoadNode_Defaults(t *testing.T) {
	cfg, err := LoadNode("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "kv_store.db", cfg.DataPath)
	assert.Equal(t, store.DefaultMaxCacheSize, cfg.MaxCacheSize)
}

func TestLoadNode_EnvOverrides(t *testing.T) {
	t.Setenv("NODE_LISTEN_ADDR", ":8090")
	t.Setenv("NODE_DATA_PATH", "override.db")
	t.Setenv("NODE_MAX_CACHE_SIZE", "7")

	cfg, err := LoadNode("")
	require.NoError(t, err)
	assert.Equal(t, ":8090", cfg.ListenAddr)
	assert.Equal(t, "override.db", cfg.DataPath)
	assert.Equal(t, 7, cfg.MaxCacheSize)
}

func TestLoadNode_InvalidEnvCacheSize(t *testing.T) {
	t.Setenv("NODE_MAX_CACHE_SIZE", "many")
	_, err := LoadNode("")
	assert.Error(t, err)
}

func TestParseServers(t *testing.T) {
	assert.Equal(t, []string{"a:1", "b:2"}, ParseServers("a:1, b:2"))
	assert.Equal(t, []string{"a:1"}, ParseServers("a:1,,  "))
	assert.Empty(t, ParseServers(""))
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"distkv/internal/ring"
	"distkv/internal/store"
)

// Gateway holds the routing gateway configuration.
type Gateway struct {
	ListenAddr   string   `yaml:"listen_addr"`
	Servers      []string `yaml:"servers"`
	VirtualNodes int      `yaml:"virtual_nodes"`
}

// Node holds a backend node configuration.
type Node struct {
	ListenAddr   string `yaml:"listen_addr"`
	DataPath     string `yaml:"data_path"`
	MaxCacheSize int    `yaml:"max_cache_size"`
}

// LoadGateway loads gateway configuration from a YAML file if path is
// non-empty, then applies environment overrides (GATEWAY_LISTEN_ADDR,
// GATEWAY_SERVERS, GATEWAY_VIRTUAL_NODES) and defaults.
func LoadGateway(path string) (*Gateway, error) {
	var cfg Gateway
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}

	if v := os.Getenv("GATEWAY_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("GATEWAY_SERVERS"); v != "" {
		cfg.Servers = ParseServers(v)
	}
	if v := os.Getenv("GATEWAY_VIRTUAL_NODES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid GATEWAY_VIRTUAL_NODES %q: %w", v, err)
		}
		cfg.VirtualNodes = n
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8000"
	}
	if cfg.VirtualNodes <= 0 {
		cfg.VirtualNodes = ring.DefaultVirtualNodes
	}
	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("config: at least one server is required (set servers in the config file or GATEWAY_SERVERS)")
	}
	for _, s := range cfg.Servers {
		if !strings.Contains(s, ":") {
			return nil, fmt.Errorf("config: server %q must be host:port", s)
		}
	}
	return &cfg, nil
}

// LoadNode loads node configuration from a YAML file if path is
// non-empty, then applies environment overrides (NODE_LISTEN_ADDR,
// NODE_DATA_PATH, NODE_MAX_CACHE_SIZE) and defaults.
func LoadNode(path string) (*Node, error) {
	var cfg Node
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}

	if v := os.Getenv("NODE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("NODE_DATA_PATH"); v != "" {
		cfg.DataPath = v
	}
	if v := os.Getenv("NODE_MAX_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid NODE_MAX_CACHE_SIZE %q: %w", v, err)
		}
		cfg.MaxCacheSize = n
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.DataPath == "" {
		cfg.DataPath = "kv_store.db"
	}
	if cfg.MaxCacheSize <= 0 {
		cfg.MaxCacheSize = store.DefaultMaxCacheSize
	}
	return &cfg, nil
}

// ParseServers parses a comma-separated list of host:port addresses.
func ParseServers(raw string) []string {
	parts := strings.Split(raw, ",")
	servers := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			servers = append(servers, p)
		}
	}
	return servers
}

func loadYAML(path string, out any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Package proxy wires the protocol stack together: it accepts the player's
// connection, dials the game, relays both byte streams through the telnet,
// MPI, and markup layers, and feeds the recovered events into a single
// mapper session.
package proxy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arda-maps/gomapper/pkg/mapper"
)

// Config holds proxy-level configuration parameters, loaded from YAML.
type Config struct {
	// --- Endpoints ---
	ListenAddr string `yaml:"listen_addr"`
	GameAddr   string `yaml:"game_addr"`

	// --- TLS on the player-facing listener ---
	TLS      bool   `yaml:"tls"`
	TLSCert  string `yaml:"tls_cert"`
	TLSKey   string `yaml:"tls_key"`
	TLSDir   string `yaml:"tls_dir"`    // self-signed cert cache
	TLSACME  string `yaml:"tls_domain"` // Let's Encrypt domain, empty = off

	// --- Map persistence ---
	MapFile    string `yaml:"map_file"`
	LabelsFile string `yaml:"labels_file"`
	CacheFile  string `yaml:"cache_file"` // bbolt snapshot, empty = disabled
	SaveOnExit bool   `yaml:"save_on_exit"`

	// --- Output toward the player ---
	Format string `yaml:"format"` // plain | raw

	// --- Remote editing ---
	Editor string `yaml:"editor"`
	Pager  string `yaml:"pager"`

	// --- Observability ---
	MetricsAddr string `yaml:"metrics_addr"` // ":9774" style, empty = disabled
	FeedAddr    string `yaml:"feed_addr"`    // websocket event feed, empty = disabled

	// --- Mapper tunables ---
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	RoadDiscount        float64 `yaml:"road_discount"`
	FindFormat          string  `yaml:"find_format"`

	// --- Internals ---
	EventQueueSize int `yaml:"event_queue_size"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:     "127.0.0.1:4000",
		GameAddr:       "mume.org:4242",
		MapFile:        "maps/map.json",
		LabelsFile:     "maps/labels.json",
		SaveOnExit:     true,
		Format:         "plain",
		Editor:         "nano -w",
		Pager:          "less",
		EventQueueSize: 256,
	}
}

// LoadConfig reads a YAML config file over the defaults. A missing file is
// not an error; the defaults are returned.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML %s: %w", path, err)
	}
	return cfg, nil
}

// MapperConfig projects the proxy config onto the mapper's tunables.
func (c *Config) MapperConfig() mapper.Config {
	return mapper.Config{
		SimilarityThreshold: c.SimilarityThreshold,
		RoadDiscount:        c.RoadDiscount,
		FindFormat:          c.FindFormat,
	}
}

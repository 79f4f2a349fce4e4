package proxy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "no-such.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	def := DefaultConfig()
	if cfg.ListenAddr != def.ListenAddr || cfg.GameAddr != def.GameAddr {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:4000" || cfg.GameAddr != "mume.org:4242" {
		t.Errorf("endpoints = %s, %s", cfg.ListenAddr, cfg.GameAddr)
	}
	if !cfg.SaveOnExit || cfg.Format != "plain" || cfg.EventQueueSize != 256 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
listen_addr: "0.0.0.0:5000"
tls: true
tls_domain: "map.example.org"
map_file: "data/arda.json"
save_on_exit: false
road_discount: 0.5
metrics_addr: ":9774"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:5000" || !cfg.TLS || cfg.TLSACME != "map.example.org" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.MapFile != "data/arda.json" || cfg.SaveOnExit {
		t.Errorf("persistence = %s, %v", cfg.MapFile, cfg.SaveOnExit)
	}
	if cfg.RoadDiscount != 0.5 || cfg.MetricsAddr != ":9774" {
		t.Errorf("tunables = %v, %s", cfg.RoadDiscount, cfg.MetricsAddr)
	}
	// Untouched keys keep their defaults.
	if cfg.GameAddr != "mume.org:4242" || cfg.Editor != "nano -w" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: [broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestMapperConfigProjection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SimilarityThreshold = 0.9
	cfg.RoadDiscount = 0.6
	cfg.FindFormat = "{vnum} {name}"
	mc := cfg.MapperConfig()
	if mc.SimilarityThreshold != 0.9 || mc.RoadDiscount != 0.6 || mc.FindFormat != "{vnum} {name}" {
		t.Errorf("mapper config = %+v", mc)
	}
}

package main

import (
	"flag"
	"log"
	"os"

	"github.com/arda-maps/gomapper/pkg/proxy"
)

// envDefault returns the environment variable value if set, otherwise the fallback.
func envDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

func main() {
	confFile := flag.String("conf", envDefault("GOMAPPER_CONF", ""), "Path to YAML config file (env: GOMAPPER_CONF)")
	listen := flag.String("listen", envDefault("GOMAPPER_LISTEN", ""), "Player-facing listen address, overrides config (env: GOMAPPER_LISTEN)")
	gameAddr := flag.String("game", envDefault("GOMAPPER_GAME", ""), "Game server address, overrides config (env: GOMAPPER_GAME)")
	mapFile := flag.String("map", envDefault("GOMAPPER_MAP", ""), "Path to the map file, overrides config (env: GOMAPPER_MAP)")
	labelsFile := flag.String("labels", envDefault("GOMAPPER_LABELS", ""), "Path to the labels file, overrides config (env: GOMAPPER_LABELS)")
	format := flag.String("format", envDefault("GOMAPPER_FORMAT", ""), "Output format: plain or raw (env: GOMAPPER_FORMAT)")
	useTLS := flag.Bool("tls", os.Getenv("GOMAPPER_TLS") == "true", "Serve the player connection over TLS (env: GOMAPPER_TLS)")
	flag.Parse()

	cfg, err := proxy.LoadConfig(*confFile)
	if err != nil {
		log.Fatalf("gomapper: %v", err)
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}
	if *gameAddr != "" {
		cfg.GameAddr = *gameAddr
	}
	if *mapFile != "" {
		cfg.MapFile = *mapFile
	}
	if *labelsFile != "" {
		cfg.LabelsFile = *labelsFile
	}
	if *format != "" {
		cfg.Format = *format
	}
	if *useTLS {
		cfg.TLS = true
	}

	p := proxy.New(cfg)
	log.Printf("gomapper: %d rooms, %d labels loaded", len(p.World().Rooms), len(p.World().Labels))
	if err := p.ListenAndServe(); err != nil {
		log.Fatalf("gomapper: %v", err)
	}
}

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/arda-maps/gomapper/pkg/mapdb"
)

func main() {
	mapPath := flag.String("map", "", "Path to a map file (any supported schema version)")
	labelsPath := flag.String("labels", "", "Path to a labels file")
	outPath := flag.String("out", "", "Write the map back out at the current schema version")
	outLabels := flag.String("outlabels", "", "Write the labels back out at the current schema version")
	validate := flag.Bool("validate", false, "Run referential integrity checks")
	cachePath := flag.String("cache", "", "Snapshot the map into a bbolt cache file")
	stats := flag.Bool("stats", false, "Print room and terrain statistics")
	flag.Parse()

	if *mapPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: mapconv -map <path> [options]")
		fmt.Fprintln(os.Stderr, "  -labels <path>     Load a labels file as well")
		fmt.Fprintln(os.Stderr, "  -out <path>        Migrate the map to the current schema version")
		fmt.Fprintln(os.Stderr, "  -outlabels <path>  Migrate the labels to the current schema version")
		fmt.Fprintln(os.Stderr, "  -validate          Run integrity checks")
		fmt.Fprintln(os.Stderr, "  -cache <path>      Snapshot into a bbolt cache")
		fmt.Fprintln(os.Stderr, "  -stats             Print room statistics")
		os.Exit(1)
	}

	fmt.Printf("Loading map: %s\n", *mapPath)
	start := time.Now()
	world, err := mapdb.LoadMap(*mapPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	if *labelsPath != "" {
		labels, err := mapdb.LoadLabels(*labelsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
		world.Labels = labels
	}
	fmt.Printf("Loaded %d rooms, %d labels in %v\n", len(world.Rooms), len(world.Labels), time.Since(start))

	if *validate {
		errs := world.Check()
		if len(errs) == 0 {
			fmt.Println("No integrity errors.")
		} else {
			for _, err := range errs {
				fmt.Printf("  %v\n", err)
			}
			fmt.Printf("%d integrity errors.\n", len(errs))
		}
	}

	if *stats {
		printStats(world)
	}

	if *outPath != "" {
		if err := mapdb.SaveMap(world, *outPath); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote schema v%d map to %s\n", mapdb.MapSchemaVersion, *outPath)
	}
	if *outLabels != "" {
		if err := mapdb.SaveLabels(world.Labels, *outLabels); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote schema v%d labels to %s\n", mapdb.LabelsSchemaVersion, *outLabels)
	}

	if *cachePath != "" {
		cache, err := mapdb.OpenCache(*cachePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
		defer cache.Close()
		if err := cache.Snapshot(world); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Snapshotted into %s\n", *cachePath)
	}
}

func printStats(world *mapdb.World) {
	terrains := make(map[string]int)
	exits, doors, oneways := 0, 0, 0
	for vnum, room := range world.Rooms {
		terrains[room.Terrain]++
		for dir, ex := range room.Exits {
			exits++
			if ex.ExitFlags.Has("door") {
				doors++
			}
			if ex.To != mapdb.ToUndefined && ex.To != mapdb.ToDeath && !world.IsBidirectional(vnum, dir) {
				oneways++
			}
		}
	}
	fmt.Printf("Exits: %d (%d doors, %d one-way)\n", exits, doors, oneways)
	fmt.Println("Terrain distribution:")
	for _, t := range mapdb.ValidTerrains {
		if terrains[t] > 0 {
			fmt.Printf("  %-12s %d\n", t, terrains[t])
		}
	}
}

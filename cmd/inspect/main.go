// Command inspect generates a world offline and reports on it: terrain
// census, an ascii map, a full export, or queries against the sqlite
// index a server left behind.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"verdant.world/internal/persistence/indexdb"
	"verdant.world/internal/sim/config"
	"verdant.world/internal/sim/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "engine config yaml (empty: built-in defaults)")
		seed       = flag.Int64("seed", 0, "world seed override (0: use config)")
		mode       = flag.String("mode", "stats", "stats | map | export | index")
		mapR       = flag.Int("radius", 40, "map mode: half-width of the rendered square")
		dbPath     = flag.String("db", "", "index mode: path to the sqlite index")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[inspect] ", 0)

	if *mode == "index" {
		if err := runIndex(*dbPath); err != nil {
			logger.Fatalf("index: %v", err)
		}
		return
	}

	cfg := config.Defaults()
	if strings.TrimSpace(*configPath) != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
	}
	if *seed != 0 {
		cfg.World.Seed = *seed
	}

	w, err := world.New(cfg, nil, logger)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	if err := w.Initialize(); err != nil {
		logger.Fatalf("generate: %v", err)
	}

	switch *mode {
	case "stats":
		runStats(w)
	case "map":
		runMap(w, *mapR)
	case "export":
		exp := w.Export(time.Now().UTC())
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(exp); err != nil {
			logger.Fatalf("encode export: %v", err)
		}
	default:
		logger.Fatalf("unknown mode %q", *mode)
	}
}

func runStats(w *world.World) {
	s := w.Stats()
	fmt.Printf("seed %d, %d samples at stride %d, digest %s\n",
		w.Seed(), s.Samples, s.Stride, w.Digest())
	kinds := make([]string, 0, len(s.Counts))
	for k := range s.Counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return s.Counts[kinds[i]] > s.Counts[kinds[j]] })
	for _, k := range kinds {
		fmt.Printf("%-12s %6d  %5.1f%%\n", k, s.Counts[k], s.Percents[k])
	}
}

func runMap(w *world.World, r int) {
	b := w.Bounds()
	minX, maxX := clamp(-r, b.MinX, b.MaxX), clamp(r, b.MinX, b.MaxX)
	minY, maxY := clamp(-r, b.MinY, b.MaxY), clamp(r, b.MinY, b.MaxY)
	var sb strings.Builder
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			sb.WriteString(w.RenderAt(x, y).Symbol)
		}
		sb.WriteByte('\n')
	}
	fmt.Print(sb.String())
}

func runIndex(path string) error {
	if path == "" {
		return fmt.Errorf("index mode needs -db")
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer idx.Close()

	n, err := idx.TickCount()
	if err != nil {
		return err
	}
	fmt.Printf("ticks indexed: %d\n", n)

	seeds, err := idx.ExportSeeds()
	if err != nil {
		return err
	}
	fmt.Printf("export seeds: %v\n", seeds)
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

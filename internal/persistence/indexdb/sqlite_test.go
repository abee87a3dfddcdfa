package indexdb

import (
	"path/filepath"
	"testing"
	"time"

	"verdant.world/internal/sim/engine"
	"verdant.world/internal/sim/world"
)

func openTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "index", "world.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestWriteTickAndCount(t *testing.T) {
	s := openTestIndex(t)
	for i := 1; i <= 5; i++ {
		err := s.WriteTick(engine.TickSummary{
			Tick: uint64(i), Time: time.Now().UTC(),
			PlayerX: i, PlayerY: -i, Companion: "following",
			Deer: []engine.DeerRow{{ID: 0, X: 1, Y: 2, State: "wandering"}},
		})
		if err != nil {
			t.Fatalf("write tick %d: %v", i, err)
		}
	}
	s.Flush()
	n, err := s.TickCount()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 5 {
		t.Fatalf("tick count = %d, want 5", n)
	}
}

func TestRecordExportAndCensus(t *testing.T) {
	s := openTestIndex(t)
	stats := world.Statistics{
		Stride:  4,
		Samples: 100,
		Counts:  map[string]int{"plains": 60, "forest": 30, "lake": 10},
		Percents: map[string]float64{
			"plains": 60, "forest": 30, "lake": 10,
		},
	}
	s.RecordExport("abc123", 1337, 400, stats)
	s.Flush()

	seeds, err := s.ExportSeeds()
	if err != nil {
		t.Fatalf("seeds: %v", err)
	}
	if len(seeds) != 1 || seeds[0] != 1337 {
		t.Fatalf("seeds = %v, want [1337]", seeds)
	}

	census, err := s.TerrainCensus("abc123")
	if err != nil {
		t.Fatalf("census: %v", err)
	}
	if census["plains"] != 60 || census["lake"] != 10 {
		t.Fatalf("census = %v", census)
	}
}

func TestWritesAfterCloseAreIgnored(t *testing.T) {
	s := openTestIndex(t)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.WriteTick(engine.TickSummary{Tick: 1}); err != nil {
		t.Fatalf("write after close errored: %v", err)
	}
	s.RecordExport("after", 1, 1, world.Statistics{})
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults_Valid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "engine.yaml")
	doc := []byte("world:\n  seed: 42\n  min_x: -25\n  max_x: 25\n  min_y: -25\n  max_y: 25\n")
	if err := os.WriteFile(p, doc, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.World.Seed != 42 || c.World.MaxX != 25 {
		t.Fatalf("world section not overlaid: %+v", c.World)
	}
	// Untouched sections keep defaults.
	if c.Wildlife.HerdSize != 20 {
		t.Fatalf("wildlife defaults lost: %+v", c.Wildlife)
	}
}

func TestValidate_RejectsContradictions(t *testing.T) {
	c := Defaults()
	c.World.MinX = 10
	c.World.MaxX = -10
	if err := c.Validate(); err == nil {
		t.Fatalf("expected bounds error")
	}

	c = Defaults()
	c.Geology.Formations = append(c.Geology.Formations, FormationTemplate{
		Count: 1, MinRadius: 20, MaxRadius: 10, RockType: "hard",
	})
	if err := c.Validate(); err == nil {
		t.Fatalf("expected radii error")
	}

	c = Defaults()
	c.Geology.Formations[0].RockType = "marble"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected unknown rock type error")
	}
}

func TestGeologicalPreset_OverlaysSectionOnly(t *testing.T) {
	base := Defaults()
	c, err := base.GetGeologicalPreset("granite_heavy")
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	if len(c.Geology.Formations) != 2 || c.Geology.Formations[0].RockType != "hard" {
		t.Fatalf("formations not replaced: %+v", c.Geology.Formations)
	}
	// Fields the preset does not name stay put.
	if c.Geology.WeatheringEffect != base.Geology.WeatheringEffect {
		t.Fatalf("weathering changed: %v", c.Geology.WeatheringEffect)
	}
	if c.World != base.World {
		t.Fatalf("other sections changed")
	}
	if _, err := base.GetGeologicalPreset("nope"); err == nil {
		t.Fatalf("expected unknown preset error")
	}
}

func TestWaterAndElevationPresets(t *testing.T) {
	c, err := Defaults().GetWaterPreset("wet")
	if err != nil {
		t.Fatalf("water preset: %v", err)
	}
	if c.Hydrology.RiverCount != 10 {
		t.Fatalf("river count: %d", c.Hydrology.RiverCount)
	}
	c, err = Defaults().GetElevationPreset("alpine")
	if err != nil {
		t.Fatalf("elevation preset: %v", err)
	}
	if c.Elevation.Method != "alpine" {
		t.Fatalf("method: %q", c.Elevation.Method)
	}
}

func TestUpdateSection(t *testing.T) {
	c, err := Defaults().UpdateSection("wildlife", map[string]any{"herd_size": 5})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if c.Wildlife.HerdSize != 5 {
		t.Fatalf("herd size: %d", c.Wildlife.HerdSize)
	}
	if c.Wildlife.VisionRange != 8 {
		t.Fatalf("untouched key changed: %d", c.Wildlife.VisionRange)
	}
	if _, err := Defaults().UpdateSection("weather", nil); err == nil {
		t.Fatalf("expected unknown section error")
	}
}

func TestUpdateSection_FailedPatchLeavesReceiverIntact(t *testing.T) {
	c := Defaults()
	// The rock_properties patch lands in a map; the bad base_rock_type
	// makes validation refuse the whole update afterwards.
	_, err := c.UpdateSection("geology", map[string]any{
		"base_rock_type": "granite",
		"rock_properties": map[string]any{
			"hard": map[string]any{"soil_quality": 0.99},
		},
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if got := c.Geology.RockProperties["hard"].SoilQuality; got != 0.3 {
		t.Fatalf("failed update reached the receiver's map: soil_quality = %v", got)
	}
	if c.Geology.BaseRockType != "soft" {
		t.Fatalf("failed update changed base rock: %q", c.Geology.BaseRockType)
	}
}

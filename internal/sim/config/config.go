// Package config loads and validates the engine configuration. The rest of
// the engine treats a Config as read-only: commands that change
// configuration build a modified copy and regenerate from it.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	World       WorldConfig       `yaml:"world"`
	Geology     GeologyConfig     `yaml:"geology"`
	Elevation   ElevationConfig   `yaml:"elevation"`
	Hydrology   HydrologyConfig   `yaml:"hydrology"`
	Terrain     TerrainConfig     `yaml:"terrain"`
	Performance PerformanceConfig `yaml:"performance"`
	Wildlife    WildlifeConfig    `yaml:"wildlife"`
	Companion   CompanionConfig   `yaml:"companion"`
}

type WorldConfig struct {
	Seed int64 `yaml:"seed"`
	MinX int   `yaml:"min_x"`
	MaxX int   `yaml:"max_x"`
	MinY int   `yaml:"min_y"`
	MaxY int   `yaml:"max_y"`

	// Fallback player position for ticks that arrive without one.
	DefaultPlayerX int `yaml:"default_player_x"`
	DefaultPlayerY int `yaml:"default_player_y"`
}

type FormationTemplate struct {
	Count           int     `yaml:"count"`
	MinRadius       float64 `yaml:"min_radius"`
	MaxRadius       float64 `yaml:"max_radius"`
	RockType        string  `yaml:"rock_type"`
	ElevationEffect float64 `yaml:"elevation_effect"`
}

type RockProperties struct {
	ErosionResistance float64 `yaml:"erosion_resistance"`
	SoilQuality       float64 `yaml:"soil_quality"`
	WaterRetention    float64 `yaml:"water_retention"`
	ElevationBonus    float64 `yaml:"elevation_bonus"`
}

type GeologyConfig struct {
	BaseRockType     string              `yaml:"base_rock_type"`
	Formations       []FormationTemplate `yaml:"formations"`
	WeatheringEffect float64             `yaml:"weathering_effect"`
	// Margin keeps formation centers away from the world edge.
	InteriorMargin int `yaml:"interior_margin"`

	RockProperties map[string]RockProperties `yaml:"rock_properties"`
}

type ElevationConfig struct {
	// Method names an elevation preset shape: "rolling", "alpine", "plateau".
	Method string `yaml:"method"`
	// GeologyWeight scales how strongly geology's influence bends the field.
	GeologyWeight float64 `yaml:"geology_weight"`
	// Exponent reshapes the base noise (>1 flattens lowlands).
	Exponent float64 `yaml:"exponent"`
}

type HydrologyConfig struct {
	// LakeRetentionMin is the minimum water retention for a basin to hold a lake.
	LakeRetentionMin float64 `yaml:"lake_retention_min"`
	// LakeElevationMax caps how high lakes can sit.
	LakeElevationMax float64 `yaml:"lake_elevation_max"`
	// RiverCount is how many river source saddles to trace.
	RiverCount int `yaml:"river_count"`
	// RiverMaxLength bounds each descent trace.
	RiverMaxLength int `yaml:"river_max_length"`
	// SampleStride for basin scanning.
	SampleStride int `yaml:"sample_stride"`
}

type TerrainTypeConfig struct {
	Symbol      string `yaml:"symbol"`
	DisplayName string `yaml:"display_name"`
	StyleTag    string `yaml:"style_tag"`
	Walkable    *bool  `yaml:"walkable"`
}

type TerrainConfig struct {
	// Types overlays the built-in terrain table; kinds absent here keep
	// their defaults. The vocabulary itself is closed.
	Types map[string]TerrainTypeConfig `yaml:"types"`
	// CanopyChancePermille is the share of forest cells carrying tree canopy.
	CanopyChancePermille int `yaml:"canopy_chance_permille"`
}

type PerformanceConfig struct {
	StatsStride     int `yaml:"stats_stride"`
	DeerTickMs      int `yaml:"deer_tick_ms"`
	CompanionTickMs int `yaml:"companion_tick_ms"`
	SpawnAttempts   int `yaml:"spawn_attempts"`
	SpawnMargin     int `yaml:"spawn_margin"`
}

type WildlifeConfig struct {
	HerdSize    int     `yaml:"herd_size"`
	VisionRange int     `yaml:"vision_range"`
	AlertRange  int     `yaml:"alert_range"`
	MinSpacing  float64 `yaml:"min_spacing"`
	// WanderChancePermille is the per-tick probability of a wander step.
	WanderChancePermille int `yaml:"wander_chance_permille"`
	AlertTicksToFlee     int `yaml:"alert_ticks_to_flee"`
	CalmTicks            int `yaml:"calm_ticks"`
	FleeTicks            int `yaml:"flee_ticks"`
}

type CompanionConfig struct {
	FollowDistance int `yaml:"follow_distance"`
	IdleTimeout    int `yaml:"idle_timeout"`
}

// Load reads a YAML config file and validates it over the defaults.
func Load(path string) (Config, error) {
	c := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate reports configuration contradictions up front so module
// generation never has to guess.
func (c Config) Validate() error {
	if c.World.MinX >= c.World.MaxX || c.World.MinY >= c.World.MaxY {
		return fmt.Errorf("config: world bounds are empty: x[%d,%d] y[%d,%d]",
			c.World.MinX, c.World.MaxX, c.World.MinY, c.World.MaxY)
	}
	if c.Geology.BaseRockType == "" {
		return fmt.Errorf("config: geology.base_rock_type is required")
	}
	if _, ok := c.Geology.RockProperties[c.Geology.BaseRockType]; !ok {
		return fmt.Errorf("config: geology.rock_properties missing base rock %q", c.Geology.BaseRockType)
	}
	for i, f := range c.Geology.Formations {
		if f.Count < 0 {
			return fmt.Errorf("config: geology.formations[%d]: negative count", i)
		}
		if f.MinRadius <= 0 || f.MaxRadius < f.MinRadius {
			return fmt.Errorf("config: geology.formations[%d]: bad radii [%v,%v]", i, f.MinRadius, f.MaxRadius)
		}
		if _, ok := c.Geology.RockProperties[f.RockType]; !ok {
			return fmt.Errorf("config: geology.formations[%d]: unknown rock type %q", i, f.RockType)
		}
		if f.ElevationEffect < -1 || f.ElevationEffect > 1 {
			return fmt.Errorf("config: geology.formations[%d]: elevation_effect out of [-1,1]", i)
		}
	}
	if c.Hydrology.SampleStride <= 0 {
		return fmt.Errorf("config: hydrology.sample_stride must be positive")
	}
	if c.Performance.DeerTickMs <= 0 || c.Performance.CompanionTickMs <= 0 {
		return fmt.Errorf("config: performance tick intervals must be positive")
	}
	return nil
}

// Section getters. Callers receive copies; mutating them does not affect
// the provider.

func (c Config) GetWorldConfig() WorldConfig             { return c.World }
func (c Config) GetGeologyConfig() GeologyConfig         { return c.Geology }
func (c Config) GetElevationConfig() ElevationConfig     { return c.Elevation }
func (c Config) GetHydrologyConfig() HydrologyConfig     { return c.Hydrology }
func (c Config) GetTerrainConfig() TerrainConfig         { return c.Terrain }
func (c Config) GetPerformanceConfig() PerformanceConfig { return c.Performance }
func (c Config) GetWildlifeConfig() WildlifeConfig       { return c.Wildlife }
func (c Config) GetCompanionConfig() CompanionConfig     { return c.Companion }

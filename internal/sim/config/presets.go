package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Defaults is the configuration used when no file is given. It is also the
// base every loaded file overlays.
func Defaults() Config {
	return Config{
		World: WorldConfig{
			Seed: 1337,
			MinX: -100, MaxX: 100,
			MinY: -100, MaxY: 100,
			DefaultPlayerX: 0, DefaultPlayerY: 0,
		},
		Geology: GeologyConfig{
			BaseRockType:     "soft",
			WeatheringEffect: 0.25,
			InteriorMargin:   30,
			Formations: []FormationTemplate{
				{Count: 6, MinRadius: 12, MaxRadius: 28, RockType: "hard", ElevationEffect: 0.6},
				{Count: 4, MinRadius: 10, MaxRadius: 22, RockType: "clay", ElevationEffect: -0.3},
				{Count: 5, MinRadius: 8, MaxRadius: 18, RockType: "soft", ElevationEffect: 0.1},
			},
			RockProperties: map[string]RockProperties{
				"hard": {ErosionResistance: 0.9, SoilQuality: 0.3, WaterRetention: 0.2, ElevationBonus: 0.4},
				"soft": {ErosionResistance: 0.4, SoilQuality: 0.7, WaterRetention: 0.5, ElevationBonus: 0.0},
				"clay": {ErosionResistance: 0.6, SoilQuality: 0.5, WaterRetention: 0.9, ElevationBonus: -0.2},
			},
		},
		Elevation: ElevationConfig{
			Method:        "rolling",
			GeologyWeight: 0.35,
			Exponent:      1.0,
		},
		Hydrology: HydrologyConfig{
			LakeRetentionMin: 0.6,
			LakeElevationMax: 0.45,
			RiverCount:       6,
			RiverMaxLength:   160,
			SampleStride:     4,
		},
		Terrain: TerrainConfig{
			CanopyChancePermille: 350,
		},
		Performance: PerformanceConfig{
			StatsStride:     4,
			DeerTickMs:      750,
			CompanionTickMs: 200,
			SpawnAttempts:   200,
			SpawnMargin:     10,
		},
		Wildlife: WildlifeConfig{
			HerdSize:             20,
			VisionRange:          8,
			AlertRange:           6,
			MinSpacing:           5,
			WanderChancePermille: 600,
			AlertTicksToFlee:     3,
			CalmTicks:            5,
			FleeTicks:            8,
		},
		Companion: CompanionConfig{
			FollowDistance: 2,
			IdleTimeout:    20,
		},
	}
}

// Presets are shallow overlays: only the fields a preset names change, the
// rest of the section is kept from the receiver.

var geologicalPresets = map[string]GeologyConfig{
	"granite_heavy": {
		BaseRockType: "soft",
		Formations: []FormationTemplate{
			{Count: 10, MinRadius: 16, MaxRadius: 34, RockType: "hard", ElevationEffect: 0.8},
			{Count: 3, MinRadius: 8, MaxRadius: 16, RockType: "clay", ElevationEffect: -0.2},
		},
	},
	"sedimentary": {
		BaseRockType: "soft",
		Formations: []FormationTemplate{
			{Count: 8, MinRadius: 12, MaxRadius: 26, RockType: "soft", ElevationEffect: 0.2},
			{Count: 5, MinRadius: 10, MaxRadius: 20, RockType: "clay", ElevationEffect: -0.3},
		},
	},
	"karst": {
		BaseRockType: "clay",
		Formations: []FormationTemplate{
			{Count: 7, MinRadius: 10, MaxRadius: 24, RockType: "hard", ElevationEffect: 0.5},
			{Count: 7, MinRadius: 8, MaxRadius: 18, RockType: "clay", ElevationEffect: -0.4},
		},
	},
}

var elevationPresets = map[string]ElevationConfig{
	"rolling": {Method: "rolling", GeologyWeight: 0.35, Exponent: 1.0},
	"alpine":  {Method: "alpine", GeologyWeight: 0.5, Exponent: 0.8},
	"plateau": {Method: "plateau", GeologyWeight: 0.25, Exponent: 1.6},
}

var waterPresets = map[string]HydrologyConfig{
	"dry":    {LakeRetentionMin: 0.8, LakeElevationMax: 0.3, RiverCount: 2},
	"normal": {LakeRetentionMin: 0.6, LakeElevationMax: 0.45, RiverCount: 6},
	"wet":    {LakeRetentionMin: 0.45, LakeElevationMax: 0.6, RiverCount: 10},
}

// GetGeologicalPreset returns a copy of the config with the named preset
// overlaid on the geology section.
func (c Config) GetGeologicalPreset(name string) (Config, error) {
	p, ok := geologicalPresets[name]
	if !ok {
		return c, fmt.Errorf("config: unknown geological preset %q", name)
	}
	out := c
	if p.BaseRockType != "" {
		out.Geology.BaseRockType = p.BaseRockType
	}
	if p.Formations != nil {
		out.Geology.Formations = p.Formations
	}
	if p.WeatheringEffect != 0 {
		out.Geology.WeatheringEffect = p.WeatheringEffect
	}
	return out, out.Validate()
}

// GetElevationPreset returns a copy with the named elevation preset applied.
func (c Config) GetElevationPreset(name string) (Config, error) {
	p, ok := elevationPresets[name]
	if !ok {
		return c, fmt.Errorf("config: unknown elevation preset %q", name)
	}
	out := c
	out.Elevation = p
	return out, out.Validate()
}

// GetWaterPreset returns a copy with the named water level applied.
func (c Config) GetWaterPreset(level string) (Config, error) {
	p, ok := waterPresets[level]
	if !ok {
		return c, fmt.Errorf("config: unknown water preset %q", level)
	}
	out := c
	out.Hydrology.LakeRetentionMin = p.LakeRetentionMin
	out.Hydrology.LakeElevationMax = p.LakeElevationMax
	out.Hydrology.RiverCount = p.RiverCount
	return out, out.Validate()
}

// UpdateSection overlays arbitrary key/value pairs onto one named section
// and revalidates. The overlay is shallow in the YAML sense: only the keys
// present in values change.
func (c Config) UpdateSection(section string, values map[string]any) (Config, error) {
	raw, err := yaml.Marshal(values)
	if err != nil {
		return c, fmt.Errorf("config: encode update: %w", err)
	}
	// Unmarshal must not reach the receiver's maps and slices through the
	// struct copy, or a patch that fails validation has already mutated
	// the caller's live configuration.
	out := c.clone()
	var target any
	switch section {
	case "world":
		target = &out.World
	case "geology":
		target = &out.Geology
	case "elevation":
		target = &out.Elevation
	case "hydrology":
		target = &out.Hydrology
	case "terrain":
		target = &out.Terrain
	case "performance":
		target = &out.Performance
	case "wildlife":
		target = &out.Wildlife
	case "companion":
		target = &out.Companion
	default:
		return c, fmt.Errorf("config: unknown section %q", section)
	}
	if err := yaml.Unmarshal(raw, target); err != nil {
		return c, fmt.Errorf("config: update %s: %w", section, err)
	}
	return out, out.Validate()
}

// clone deep-copies the mutable fields of the config.
func (c Config) clone() Config {
	out := c
	if c.Geology.Formations != nil {
		out.Geology.Formations = append([]FormationTemplate(nil), c.Geology.Formations...)
	}
	if c.Geology.RockProperties != nil {
		out.Geology.RockProperties = make(map[string]RockProperties, len(c.Geology.RockProperties))
		for k, v := range c.Geology.RockProperties {
			out.Geology.RockProperties[k] = v
		}
	}
	if c.Terrain.Types != nil {
		out.Terrain.Types = make(map[string]TerrainTypeConfig, len(c.Terrain.Types))
		for k, v := range c.Terrain.Types {
			if v.Walkable != nil {
				b := *v.Walkable
				v.Walkable = &b
			}
			out.Terrain.Types[k] = v
		}
	}
	return out
}

package world

import "verdant.world/internal/sim/config"

// TerrainKind is the closed vocabulary of semantic tile categories.
// Adding a kind is a compile-time amendment: KindInfo and the classifier
// switch exhaustively over these values.
type TerrainKind uint8

const (
	Plains TerrainKind = iota
	Forest
	Foothills
	Mountain
	Road
	Trail
	River
	Lake
	Building
	Village
	Unknown
)

func (k TerrainKind) String() string {
	switch k {
	case Plains:
		return "plains"
	case Forest:
		return "forest"
	case Foothills:
		return "foothills"
	case Mountain:
		return "mountain"
	case Road:
		return "road"
	case Trail:
		return "trail"
	case River:
		return "river"
	case Lake:
		return "lake"
	case Building:
		return "building"
	case Village:
		return "village"
	default:
		return "unknown"
	}
}

// KindFromString maps a vocabulary name back to its kind; unrecognized
// names map to Unknown.
func KindFromString(s string) TerrainKind {
	for k := Plains; k <= Unknown; k++ {
		if k.String() == s {
			return k
		}
	}
	return Unknown
}

// KindInfo is the per-kind presentation and movement record.
type KindInfo struct {
	Symbol      string
	DisplayName string
	StyleTag    string
	Walkable    bool
}

// defaultKindInfo is the built-in table. A kind is walkable unless
// explicitly unwalkable (river, lake).
var defaultKindInfo = map[TerrainKind]KindInfo{
	Plains:    {Symbol: ".", DisplayName: "Plains", StyleTag: "plains", Walkable: true},
	Forest:    {Symbol: "♣", DisplayName: "Forest", StyleTag: "forest", Walkable: true},
	Foothills: {Symbol: "∩", DisplayName: "Foothills", StyleTag: "foothills", Walkable: true},
	Mountain:  {Symbol: "▲", DisplayName: "Mountain", StyleTag: "mountain", Walkable: true},
	Road:      {Symbol: "=", DisplayName: "Road", StyleTag: "road", Walkable: true},
	Trail:     {Symbol: "-", DisplayName: "Trail", StyleTag: "trail", Walkable: true},
	River:     {Symbol: "~", DisplayName: "River", StyleTag: "river", Walkable: false},
	Lake:      {Symbol: "≈", DisplayName: "Lake", StyleTag: "lake", Walkable: false},
	Building:  {Symbol: "⌂", DisplayName: "Building", StyleTag: "building", Walkable: true},
	Village:   {Symbol: "⌂", DisplayName: "Village", StyleTag: "village", Walkable: true},
	Unknown:   {Symbol: " ", DisplayName: "Unknown", StyleTag: "unknown", Walkable: true},
}

// KindTable materializes the kind table with any configuration overlays
// applied. The vocabulary itself cannot be extended from configuration.
func KindTable(cfg config.TerrainConfig) map[TerrainKind]KindInfo {
	out := make(map[TerrainKind]KindInfo, len(defaultKindInfo))
	for k, info := range defaultKindInfo {
		if o, ok := cfg.Types[k.String()]; ok {
			if o.Symbol != "" {
				info.Symbol = o.Symbol
			}
			if o.DisplayName != "" {
				info.DisplayName = o.DisplayName
			}
			if o.StyleTag != "" {
				info.StyleTag = o.StyleTag
			}
			if o.Walkable != nil {
				info.Walkable = *o.Walkable
			}
		}
		out[k] = info
	}
	return out
}

package world

// RenderedCell is the record the presentation layer consumes for one
// position: the base terrain plus any agent overlay the managers added.
type RenderedCell struct {
	Symbol      string   `json:"symbol"`
	StyleTag    string   `json:"style_tag"`
	DisplayName string   `json:"display_name"`
	Terrain     string   `json:"terrain"`
	Feature     *Feature `json:"feature,omitempty"`
	Discovered  bool     `json:"discovered"`
	Elevation   float64  `json:"elevation"`

	// Overlay fields. Canopy occlusion is decided by the managers: a cell
	// whose feature is tree canopy never carries an overlay.
	Deer      *AgentOverlay `json:"deer,omitempty"`
	Companion *AgentOverlay `json:"companion,omitempty"`
}

// AgentOverlay is the agent part of a rendered cell.
type AgentOverlay struct {
	Symbol   string `json:"symbol"`
	StyleTag string `json:"style_tag"`
	State    string `json:"state"`
}

// RenderAt composes the base rendered record for a position. Managers
// overlay their agents on top of this.
func (w *World) RenderAt(x, y int) RenderedCell {
	c := w.GetTerrainAt(x, y)
	info := w.kinds[c.Terrain]
	return RenderedCell{
		Symbol:      info.Symbol,
		StyleTag:    info.StyleTag,
		DisplayName: info.DisplayName,
		Terrain:     c.Terrain.String(),
		Feature:     c.Feature,
		Discovered:  c.Discovered,
		Elevation:   c.Elevation,
	}
}

// HasCanopy reports whether the cell at (x, y) is hidden under tree
// canopy.
func (w *World) HasCanopy(x, y int) bool {
	c := w.GetTerrainAt(x, y)
	return c.Feature != nil && c.Feature.Type == FeatureTreeCanopy
}

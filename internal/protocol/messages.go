package protocol

import "verdant.world/internal/sim/world"

// Hello is the observer's first message.
type Hello struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ObserverName    string `json:"observer_name,omitempty"`
}

// Welcome answers a Hello with the world parameters the observer needs
// to draw anything.
type Welcome struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Seed            int64       `json:"seed"`
	Bounds          BoundsParam `json:"bounds"`
	Terrains        []KindParam `json:"terrains"`
}

type BoundsParam struct {
	MinX int `json:"min_x"`
	MaxX int `json:"max_x"`
	MinY int `json:"min_y"`
	MaxY int `json:"max_y"`
}

// KindParam is one terrain kind's render description.
type KindParam struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	StyleTag    string `json:"style_tag"`
	DisplayName string `json:"display_name"`
	Walkable    bool   `json:"walkable"`
}

// Frame is one observer update: the agent positions plus a viewport of
// rendered cells around the player.
type Frame struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`

	Player    AgentParam   `json:"player"`
	Companion AgentParam   `json:"companion"`
	Deer      []AgentParam `json:"deer"`

	// Viewport is row-major, top row first.
	ViewMinX int                  `json:"view_min_x"`
	ViewMinY int                  `json:"view_min_y"`
	ViewW    int                  `json:"view_w"`
	ViewH    int                  `json:"view_h"`
	Cells    []world.RenderedCell `json:"cells"`

	// Blocked carries the latest refused-move message, if any.
	Blocked string `json:"blocked,omitempty"`
}

type AgentParam struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	State string `json:"state,omitempty"`
}

// CommandMsg wraps an engine command submitted over the wire.
type CommandMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	ID              string         `json:"id,omitempty"`
	Kind            string         `json:"kind"`
	DX              int            `json:"dx,omitempty"`
	DY              int            `json:"dy,omitempty"`
	Name            string         `json:"name,omitempty"`
	Section         string         `json:"section,omitempty"`
	Values          map[string]any `json:"values,omitempty"`
	Seed            *int64         `json:"seed,omitempty"`
}

// ResultMsg answers a CommandMsg.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	OK              bool   `json:"ok"`
	Message         string `json:"message,omitempty"`
	Code            string `json:"code,omitempty"`
}

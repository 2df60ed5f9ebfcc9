package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	// Role is "player" (drives the pose, one per world) or "observer"
	// (read-only STATE feed).
	Role string `json:"role,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	Role            string      `json:"role"`
	WorldParams     WorldParams `json:"world_params"`
	Materials       []string    `json:"materials"`
	Player          PlayerState `json:"player"`
}

type WorldParams struct {
	WorldID    string  `json:"world_id"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Depth      int     `json:"depth"`
	TickRateHz int     `json:"tick_rate_hz"`
	StepHeight float64 `json:"step_height"`
	Reach      float64 `json:"reach"`
}

// INPUT (client -> server): the only mutation entry points. Continuous
// movement axes plus discrete edit commands.
type InputMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq,omitempty"`

	// Movement intents for this tick, each in [-1, 1].
	Forward float64 `json:"forward,omitempty"`
	Strafe  float64 `json:"strafe,omitempty"`

	// Additive look deltas in degrees.
	DYaw   float64 `json:"dyaw,omitempty"`
	DPitch float64 `json:"dpitch,omitempty"`

	Jump bool `json:"jump,omitempty"`

	// Edit is "add", "remove", or "pick"; empty for pure movement input.
	Edit     string `json:"edit,omitempty"`
	Material uint8  `json:"material,omitempty"`
}

// STATE (server -> client), sent once per tick to every session.
type StateMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	Player          PlayerState `json:"player"`
	Voxels          *VoxelsMsg  `json:"voxels,omitempty"`
	Events          []Event     `json:"events,omitempty"`
}

type PlayerState struct {
	Eye      [3]float64 `json:"eye"`
	Yaw      float64    `json:"yaw"`
	Pitch    float64    `json:"pitch"`
	VelY     float64    `json:"vel_y"`
	Grounded bool       `json:"grounded"`
	Selected uint8      `json:"selected"`
}

// VoxelsMsg carries the full grid as RLE cell values (0 = empty, material+1
// otherwise), ordered (z, x, y ascending). Present on the first STATE of a
// session and periodically after; block edits arrive as events in between.
type VoxelsMsg struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Depth    int    `json:"depth"`
	Encoding string `json:"encoding"` // "RLE"
	Data     string `json:"data"`
}

type Event map[string]interface{}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

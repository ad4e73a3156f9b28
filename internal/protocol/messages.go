package protocol

// HELLO (viewer -> server)
type Hello struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
	WorldPreference string `json:"world_preference,omitempty"`
}

// WELCOME (server -> viewer)
type Welcome struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	WorldID         string      `json:"world_id"`
	WorldParams     WorldParams `json:"world_params"`
}

type WorldParams struct {
	TickRateHz int     `json:"tick_rate_hz"`
	ChunkSize  float64 `json:"chunk_size"`
	Seed       int64   `json:"seed"`
}

// WATCH (viewer -> server): move the observer and/or change its drift
// speed. Absent fields leave the current value alone.
type Watch struct {
	Type  string   `json:"type"`
	Z     *float64 `json:"z,omitempty"`
	Speed *float64 `json:"speed,omitempty"`
}

// TICK (server -> viewer): per-tick heartbeat with the resident window.
type Tick struct {
	Type      string  `json:"type"`
	Tick      uint64  `json:"tick"`
	ObserverZ float64 `json:"observer_z"`
	Speed     float64 `json:"speed"`
	Active    []int   `json:"active"`
	Loading   []int   `json:"loading,omitempty"`
}

// CHUNK (server -> viewer): a chunk became active.
type Chunk struct {
	Type       string   `json:"type"`
	Tick       uint64   `json:"tick"`
	Index      int      `json:"index"`
	ZMin       float64  `json:"z_min"`
	ZMax       float64  `json:"z_max"`
	Biomes     []string `json:"biomes"`
	Placements int      `json:"placements"`
	Spawned    int      `json:"spawned"`
	Digest     string   `json:"digest"`
}

// EVICT (server -> viewer): a chunk left the window, or failed to build.
type Evict struct {
	Type   string `json:"type"`
	Tick   uint64 `json:"tick"`
	Index  int    `json:"index"`
	Failed bool   `json:"failed,omitempty"`
	Err    string `json:"err,omitempty"`
}

// CORRIDOR (server -> viewer): the collision corridor window moved.
type Corridor struct {
	Type        string  `json:"type"`
	Tick        uint64  `json:"tick"`
	WindowStart float64 `json:"window_start"`
	Segments    int     `json:"segments"`
}

// ERROR (server -> viewer)
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

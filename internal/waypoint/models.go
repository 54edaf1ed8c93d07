package waypoint

// Waypoint is a named point of interest anchored to the track. TrackIndex is
// the index of the nearest track point and is the sort key of the ordered set;
// it is recomputed after every structural mutation, never trusted across
// track reloads.
type Waypoint struct {
	ID          string  `json:"id"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	ElevationM  float64 `json:"elevation_m"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Synthetic   bool    `json:"synthetic"`
	TrackIndex  int     `json:"track_index"`

	// SourceRef points back at the originating wpt entry of the loaded
	// document (-1 when the waypoint was created in this session), so exports
	// can update the original entry in place.
	SourceRef int `json:"-"`
}

// Source is one wpt entry read from the loaded document, in file order.
type Source struct {
	Lat         float64
	Lon         float64
	ElevationM  float64
	Name        string
	Description string
}

// Role of a waypoint derived from its position in the ordered set.
type Role string

const (
	RoleInterior Role = ""
	RoleStart    Role = "start"
	RoleEnd      Role = "end"
)

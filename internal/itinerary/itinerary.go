// Package itinerary turns a track and its ordered waypoints into a timed
// route plan.
package itinerary

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"backend-trailplan/internal/shared/geo"
	"backend-trailplan/internal/track"
	"backend-trailplan/internal/waypoint"
)

// Empirical pacing constants: 4 km/h on the flat, 300 m/h climbing penalty,
// 500 m/h descending penalty, 400 m/h for the whole-route estimate.
const (
	flatSpeedKmh     = 4.0
	ascentRateMh     = 300.0
	descentRateMh    = 500.0
	summaryAscentMh  = 400.0
	defaultStartTime = "08:00"
)

// LegParams are the user-adjustable inputs for the leg arriving at one
// waypoint, keyed by the waypoint's stable ID.
type LegParams struct {
	PenaltyPercent int    `json:"penalty_percent"`
	RestMinutes    int    `json:"rest_minutes"`
	Note           string `json:"note"`
	DecisionPoint  bool   `json:"decision_point"`
}

// Validate checks the documented ranges.
func (p LegParams) Validate() error {
	if p.PenaltyPercent < 0 || p.PenaltyPercent > 100 {
		return fmt.Errorf("penalty_percent must be 0-100, got %d", p.PenaltyPercent)
	}
	if p.RestMinutes < 0 || p.RestMinutes > 240 {
		return fmt.Errorf("rest_minutes must be 0-240, got %d", p.RestMinutes)
	}
	return nil
}

// Leg is the computed cost of one segment between consecutive waypoints.
type Leg struct {
	DistanceKm  float64 `json:"distance_km"`
	AscentM     float64 `json:"ascent_m"`
	DescentM    float64 `json:"descent_m"`
	TimeMinutes float64 `json:"time_minutes"`
}

// ComputeLeg aggregates the track between two anchors and prices it: base
// minutes = (km/4)*60 + ascent/300 + descent/500, scaled by the penalty and
// extended by the rest.
func ComputeLeg(tr *track.Track, fromIdx, toIdx int, p LegParams) Leg {
	s := tr.CumulativeStats(fromIdx, toIdx)
	base := s.DistanceKm/flatSpeedKmh*60 + s.AscentM/ascentRateMh + s.DescentM/descentRateMh
	return Leg{
		DistanceKm:  s.DistanceKm,
		AscentM:     s.AscentM,
		DescentM:    s.DescentM,
		TimeMinutes: base*(1+float64(p.PenaltyPercent)/100) + float64(p.RestMinutes),
	}
}

// Row is one itinerary line, one per waypoint. The first row carries no leg
// values.
type Row struct {
	WaypointID   string        `json:"waypoint_id"`
	Name         string        `json:"name"`
	Role         waypoint.Role `json:"role,omitempty"`
	GridRef      string        `json:"grid_ref"`
	ElevationM   float64       `json:"elevation_m"`
	Leg          Leg           `json:"leg"`
	CumDistKm    float64       `json:"cumulative_distance_km"`
	CumAscentM   float64       `json:"cumulative_ascent_m"`
	CumDescentM  float64       `json:"cumulative_descent_m"`
	CumMinutes   float64       `json:"cumulative_minutes"`
	ProgressPct  float64       `json:"progress_percent"`
	TimeOfDay    string        `json:"time_of_day"`
	Penalty      int           `json:"penalty_percent"`
	RestMinutes  int           `json:"rest_minutes"`
	Note         string        `json:"note"`
	DecisionFlag bool          `json:"decision_point"`
}

// Summary describes the whole route independently of waypoint legs.
type Summary struct {
	DistanceKm      float64 `json:"distance_km"`
	AscentM         float64 `json:"ascent_m"`
	DescentM        float64 `json:"descent_m"`
	DurationMinutes float64 `json:"duration_minutes"`
	Duration        string  `json:"duration"`
}

// Inputs are the validation-gated parameters supplied at generation time.
type Inputs struct {
	GroupSize  int    `json:"group_size"`
	SkillLevel string `json:"skill_level"`
	StartTime  string `json:"start_time"`
}

// ValidationError names each missing or malformed field so the boundary can
// highlight them individually.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

func validate(tr *track.Track, in Inputs) (startH, startM int, err error) {
	var fields []string
	if in.GroupSize <= 0 {
		fields = append(fields, "group_size")
	}
	if strings.TrimSpace(in.SkillLevel) == "" {
		fields = append(fields, "skill_level")
	}
	if tr.Len() == 0 {
		fields = append(fields, "route")
	}
	st := in.StartTime
	if st == "" {
		st = defaultStartTime
	}
	h, m, ok := parseClock(st)
	if !ok {
		fields = append(fields, "start_time")
	}
	if len(fields) > 0 {
		return 0, 0, &ValidationError{Fields: fields}
	}
	return h, m, nil
}

// Compute prices every consecutive waypoint pair in order and accumulates
// distance, elevation and time across the route. Progress is against the
// track-level total distance; time-of-day is minute arithmetic from the
// start time, with hours allowed past 24.
func Compute(tr *track.Track, wps []waypoint.Waypoint, params map[string]LegParams, in Inputs) ([]Row, error) {
	startH, startM, err := validate(tr, in)
	if err != nil {
		return nil, err
	}

	total := tr.TotalStats().DistanceKm
	var cumDist, cumAscent, cumDescent, cumMinutes float64

	rows := make([]Row, 0, len(wps))
	for i, wp := range wps {
		p := params[wp.ID]
		row := Row{
			WaypointID:   wp.ID,
			Name:         wp.Name,
			GridRef:      geo.GridLabel(wp.Lat, wp.Lon),
			ElevationM:   wp.ElevationM,
			Penalty:      p.PenaltyPercent,
			RestMinutes:  p.RestMinutes,
			Note:         p.Note,
			DecisionFlag: p.DecisionPoint,
		}
		switch i {
		case 0:
			row.Role = waypoint.RoleStart
		case len(wps) - 1:
			row.Role = waypoint.RoleEnd
		}

		if i > 0 {
			row.Leg = ComputeLeg(tr, wps[i-1].TrackIndex, wp.TrackIndex, p)
			cumDist += row.Leg.DistanceKm
			cumAscent += row.Leg.AscentM
			cumDescent += row.Leg.DescentM
			cumMinutes += row.Leg.TimeMinutes
		}
		row.CumDistKm = cumDist
		row.CumAscentM = cumAscent
		row.CumDescentM = cumDescent
		row.CumMinutes = cumMinutes

		if total > 0 {
			row.ProgressPct = cumDist / total * 100
		}
		row.TimeOfDay = clockAfter(startH, startM, int(math.Round(cumMinutes)))

		rows = append(rows, row)
	}
	return rows, nil
}

// RouteSummary is the track-level total: distance and elevation over the
// whole polyline, with the duration estimate dist/4 + ascent/400 hours and
// no per-leg penalties or rests.
func RouteSummary(tr *track.Track) Summary {
	s := tr.TotalStats()
	hours := s.DistanceKm/flatSpeedKmh + s.AscentM/summaryAscentMh
	mins := hours * 60
	return Summary{
		DistanceKm:      s.DistanceKm,
		AscentM:         s.AscentM,
		DescentM:        s.DescentM,
		DurationMinutes: mins,
		Duration:        FormatMinutes(mins),
	}
}

// FormatMinutes renders minutes as hh:mm from the rounded total.
func FormatMinutes(mins float64) string {
	m := int(math.Round(mins))
	if m < 0 {
		m = 0
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func parseClock(s string) (h, m int, ok bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// clockAfter adds whole minutes to a start clock. Hours roll over past 60
// minutes but there is no day rollover: a long route can pass 24:00.
func clockAfter(h, m, addMinutes int) string {
	m += addMinutes
	h += m / 60
	m %= 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

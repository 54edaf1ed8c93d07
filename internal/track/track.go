package track

import (
	"math"

	"backend-trailplan/internal/shared/geo"
)

// Point is one recorded position of the route polyline. Points are immutable
// once loaded; a new route replaces the whole track.
type Point struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	ElevationM float64 `json:"elevation_m"`
}

// Stats aggregates distance and elevation deltas over a stretch of track.
type Stats struct {
	DistanceKm float64 `json:"distance_km"`
	AscentM    float64 `json:"ascent_m"`
	DescentM   float64 `json:"descent_m"`
}

// Track is the ordered route polyline. Insertion order is along-route order
// and never changes. Segment boundaries are remembered so whole-route stats
// do not count distance across a recording gap.
type Track struct {
	points    []Point
	segStarts []int
}

func New(segments [][]Point) *Track {
	t := &Track{}
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		t.segStarts = append(t.segStarts, len(t.points))
		t.points = append(t.points, seg...)
	}
	return t
}

func (t *Track) Len() int {
	if t == nil {
		return 0
	}
	return len(t.points)
}

func (t *Track) Points() []Point {
	if t == nil {
		return nil
	}
	return t.points
}

// Point returns the point at i, clamped to the track bounds. The zero Point
// is returned for an empty track.
func (t *Track) Point(i int) Point {
	if t.Len() == 0 {
		return Point{}
	}
	if i < 0 {
		i = 0
	}
	if i >= len(t.points) {
		i = len(t.points) - 1
	}
	return t.points[i]
}

// FindNearest scans the whole track for the point closest to lat/lon by
// great-circle distance. It reports the index, the distance in km and whether
// a point was found within maxKm. Ties keep the first occurrence: a later
// point replaces the best match only on a strictly smaller distance.
func (t *Track) FindNearest(lat, lon, maxKm float64) (int, float64, bool) {
	if t.Len() == 0 {
		return 0, 0, false
	}
	best := -1
	min := math.Inf(1)
	for i, p := range t.points {
		d := geo.HaversineKm(lat, lon, p.Lat, p.Lon)
		if d < min {
			min = d
			best = i
		}
	}
	if min > maxKm {
		return 0, 0, false
	}
	return best, min, true
}

// NearestByDegreeDelta returns the index of the point with the smallest
// absolute coordinate difference to lat/lon, with no distance limit. This is
// the cheap re-ranking metric used to order waypoints along the track; it is
// deliberately not the great-circle metric used for snap tolerance checks.
func (t *Track) NearestByDegreeDelta(lat, lon float64) int {
	best := 0
	min := math.Inf(1)
	for i, p := range t.points {
		d := math.Abs(lat-p.Lat) + math.Abs(lon-p.Lon)
		if d < min {
			min = d
			best = i
		}
	}
	return best
}

// CumulativeStats sums distance and elevation deltas between consecutive
// points in [from, to]. Indices are clamped to the track bounds; from >= to
// yields all-zero stats. Segment boundaries are ignored here: a leg between
// two waypoints spans whatever lies between their anchors.
func (t *Track) CumulativeStats(from, to int) Stats {
	var s Stats
	if t.Len() < 2 {
		return s
	}
	if from < 0 {
		from = 0
	}
	if to > len(t.points)-1 {
		to = len(t.points) - 1
	}
	if from >= to {
		return s
	}
	prev := t.points[from]
	for i := from + 1; i <= to; i++ {
		p := t.points[i]
		s.DistanceKm += geo.HaversineKm(prev.Lat, prev.Lon, p.Lat, p.Lon)
		diff := p.ElevationM - prev.ElevationM
		if diff > 0 {
			s.AscentM += diff
		} else {
			s.DescentM += -diff
		}
		prev = p
	}
	return s
}

// TotalStats aggregates the whole track per recorded segment, resetting the
// previous-point reference at each segment start so no distance or elevation
// is counted across a gap.
func (t *Track) TotalStats() Stats {
	var s Stats
	if t.Len() == 0 {
		return s
	}
	for si, start := range t.segStarts {
		end := len(t.points)
		if si+1 < len(t.segStarts) {
			end = t.segStarts[si+1]
		}
		for i := start + 1; i < end; i++ {
			prev, p := t.points[i-1], t.points[i]
			s.DistanceKm += geo.HaversineKm(prev.Lat, prev.Lon, p.Lat, p.Lon)
			diff := p.ElevationM - prev.ElevationM
			if diff > 0 {
				s.AscentM += diff
			} else {
				s.DescentM += -diff
			}
		}
	}
	return s
}

// AvgSpacingKm is the mean distance per track point, used for the snapping
// accuracy advisory on load. Zero for an empty track.
func (t *Track) AvgSpacingKm() float64 {
	if t.Len() == 0 {
		return 0
	}
	return t.TotalStats().DistanceKm / float64(len(t.points))
}

package waypoint

import (
	"errors"
	"fmt"
	"sort"

	"backend-trailplan/internal/shared/geo"
	"backend-trailplan/internal/track"

	"github.com/google/uuid"
)

var (
	// ErrNotOnTrack means no track point lies within the snap tolerance.
	ErrNotOnTrack = errors.New("no track point within tolerance")
	// ErrPendingExists means an uncommitted waypoint blocks the operation.
	ErrPendingExists = errors.New("pending waypoint must be saved or discarded first")
)

// Store owns the ordered set of committed waypoints plus at most one pending
// (uncommitted) waypoint. The set is kept sorted by TrackIndex with
// consecutive duplicates collapsed after every structural mutation. Store is
// not safe for concurrent use; the owning session serializes access.
type Store struct {
	ordered []Waypoint
	pending *Waypoint
}

func NewStore() *Store { return &Store{} }

func (s *Store) Len() int { return len(s.ordered) }

// All returns a copy of the ordered set.
func (s *Store) All() []Waypoint {
	out := make([]Waypoint, len(s.ordered))
	copy(out, s.ordered)
	return out
}

func (s *Store) Get(id string) (Waypoint, bool) {
	for _, w := range s.ordered {
		if w.ID == id {
			return w, true
		}
	}
	return Waypoint{}, false
}

// Role reports whether id currently sits at the start or end of the ordered
// set. Roles are derived from sequence position, not stored.
func (s *Store) Role(id string) Role {
	if len(s.ordered) == 0 {
		return RoleInterior
	}
	if s.ordered[0].ID == id {
		return RoleStart
	}
	if s.ordered[len(s.ordered)-1].ID == id {
		return RoleEnd
	}
	return RoleInterior
}

func (s *Store) Pending() (Waypoint, bool) {
	if s.pending == nil {
		return Waypoint{}, false
	}
	return *s.pending, true
}

// RebuildFromSource replaces the set from the loaded document's wpt entries.
// Each source waypoint snaps to the nearest track point within snapKm or is
// silently dropped. The first and last surviving entries get start/end
// treatment: when their snap position is farther than gapKm from the literal
// track endpoint, a synthetic endpoint waypoint is added and the source entry
// stays interior; otherwise the entry's name is suffixed. A lone source
// waypoint only receives the start treatment.
func (s *Store) RebuildFromSource(tr *track.Track, source []Source, snapKm, gapKm float64) []Waypoint {
	s.ordered = nil
	s.pending = nil

	for i, src := range source {
		idx, _, ok := tr.FindNearest(src.Lat, src.Lon, snapKm)
		if !ok {
			continue
		}
		pt := tr.Point(idx)
		name := src.Name

		if i == 0 {
			first := tr.Point(0)
			if geo.HaversineKm(pt.Lat, pt.Lon, first.Lat, first.Lon) > gapKm {
				s.ordered = append(s.ordered, Waypoint{
					ID:         uuid.NewString(),
					Lat:        first.Lat,
					Lon:        first.Lon,
					ElevationM: first.ElevationM,
					Name:       "Start",
					Synthetic:  true,
					TrackIndex: 0,
					SourceRef:  -1,
				})
			} else {
				name += " - Start"
			}
		} else if i == len(source)-1 {
			last := tr.Point(tr.Len() - 1)
			if geo.HaversineKm(pt.Lat, pt.Lon, last.Lat, last.Lon) > gapKm {
				s.ordered = append(s.ordered, Waypoint{
					ID:         uuid.NewString(),
					Lat:        last.Lat,
					Lon:        last.Lon,
					ElevationM: last.ElevationM,
					Name:       "End",
					Synthetic:  true,
					TrackIndex: tr.Len() - 1,
					SourceRef:  -1,
				})
			} else {
				name += " - End"
			}
		}

		s.ordered = append(s.ordered, Waypoint{
			ID:          uuid.NewString(),
			Lat:         pt.Lat,
			Lon:         pt.Lon,
			ElevationM:  src.ElevationM,
			Name:        name,
			Description: src.Description,
			TrackIndex:  idx,
			SourceRef:   i,
		})
	}

	return s.ReorderByTrack(tr)
}

// AddInteractive snaps lat/lon to the nearest track point within toleranceKm
// and creates the pending waypoint there. It fails when no point is in range
// or when a pending waypoint already exists.
func (s *Store) AddInteractive(tr *track.Track, lat, lon, toleranceKm float64) (Waypoint, error) {
	if s.pending != nil {
		return Waypoint{}, ErrPendingExists
	}
	idx, _, ok := tr.FindNearest(lat, lon, toleranceKm)
	if !ok {
		return Waypoint{}, ErrNotOnTrack
	}
	pt := tr.Point(idx)
	s.pending = &Waypoint{
		ID:         uuid.NewString(),
		Lat:        pt.Lat,
		Lon:        pt.Lon,
		ElevationM: pt.ElevationM,
		TrackIndex: idx,
		SourceRef:  -1,
	}
	return *s.pending, nil
}

// CommitPending appends the pending waypoint to the ordered set, naming it
// Waypoint_<n> when name is empty, and re-sorts. It is a no-op without a
// pending waypoint. The second return value lists waypoints dropped by the
// duplicate collapse.
func (s *Store) CommitPending(tr *track.Track, name, description string) (Waypoint, []Waypoint, bool) {
	if s.pending == nil {
		return Waypoint{}, nil, false
	}
	if name == "" {
		name = fmt.Sprintf("Waypoint_%d", len(s.ordered)+1)
	}
	wp := *s.pending
	wp.Name = name
	wp.Description = description
	s.ordered = append(s.ordered, wp)
	s.pending = nil
	removed := s.ReorderByTrack(tr)
	if wp2, ok := s.Get(wp.ID); ok {
		wp = wp2
	}
	return wp, removed, true
}

// DiscardPending drops the pending waypoint without committing it.
func (s *Store) DiscardPending() bool {
	if s.pending == nil {
		return false
	}
	s.pending = nil
	return true
}

// Remove deletes a committed waypoint and re-sorts the remainder. It is a
// no-op for unknown ids.
func (s *Store) Remove(tr *track.Track, id string) ([]Waypoint, bool) {
	for i, w := range s.ordered {
		if w.ID == id {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			return s.ReorderByTrack(tr), true
		}
	}
	return nil, false
}

// Update edits name and description in place without touching the anchor or
// the sequence position.
func (s *Store) Update(id, name, description string) (Waypoint, bool) {
	for i := range s.ordered {
		if s.ordered[i].ID == id {
			s.ordered[i].Name = name
			s.ordered[i].Description = description
			return s.ordered[i], true
		}
	}
	return Waypoint{}, false
}

// Replace swaps in a whole new ordered set. Used when restoring a history
// snapshot; the caller must follow up with ReorderByTrack.
func (s *Store) Replace(ws []Waypoint) {
	s.ordered = make([]Waypoint, len(ws))
	copy(s.ordered, ws)
	s.pending = nil
}

// ReorderByTrack recomputes every waypoint's anchor with the approximate
// degree-delta metric, sorts the set by anchor ascending, and drops any
// waypoint whose anchor duplicates its predecessor's (the earlier entry in
// the sorted order wins). It returns the dropped waypoints so the caller can
// release leg parameters and markers.
func (s *Store) ReorderByTrack(tr *track.Track) []Waypoint {
	if tr.Len() == 0 || len(s.ordered) == 0 {
		return nil
	}
	for i := range s.ordered {
		s.ordered[i].TrackIndex = tr.NearestByDegreeDelta(s.ordered[i].Lat, s.ordered[i].Lon)
	}
	sort.SliceStable(s.ordered, func(a, b int) bool {
		return s.ordered[a].TrackIndex < s.ordered[b].TrackIndex
	})
	var removed []Waypoint
	for i := len(s.ordered) - 1; i > 0; i-- {
		if s.ordered[i].TrackIndex == s.ordered[i-1].TrackIndex {
			removed = append(removed, s.ordered[i])
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
		}
	}
	return removed
}

// Package session owns the state of one loaded route: the track polyline,
// the waypoint store, the edit history, the per-waypoint leg parameters and
// the parsed GPX document. All mutations of one session are serialized by a
// single mutex, so a full snap-mutate-reorder-record sequence never
// interleaves with another action.
package session

import (
	"fmt"
	"sync"

	"backend-trailplan/internal/gpxio"
	"backend-trailplan/internal/history"
	"backend-trailplan/internal/itinerary"
	"backend-trailplan/internal/stream"
	"backend-trailplan/internal/track"
	"backend-trailplan/internal/waypoint"
)

// LowDensityError reports that the track's average point spacing exceeds the
// advisory threshold. The load is refused until the client forces it.
type LowDensityError struct {
	KmPerPt float64
}

func (e *LowDensityError) Error() string {
	return fmt.Sprintf("track density %.3f km/pt degrades snapping accuracy", e.KmPerPt)
}

// EndpointRemovalError reports that removing the route start or end waypoint
// needs explicit confirmation.
type EndpointRemovalError struct {
	Role waypoint.Role
}

func (e *EndpointRemovalError) Error() string {
	return fmt.Sprintf("waypoint is the route %s, removal needs confirmation", e.Role)
}

// Options carries the snapping and density thresholds, in kilometers.
type Options struct {
	SnapKm        float64
	InteractiveKm float64
	EndpointGapKm float64
	DensityWarnKm float64
}

type Session struct {
	ID string

	mu     sync.Mutex
	opts   Options
	doc    *gpxio.Document
	track  *track.Track
	store  *waypoint.Store
	log    *history.Log
	legs   map[string]itinerary.LegParams
	notify func(stream.Event)
}

// View is the session state returned to clients.
type View struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Summary   itinerary.Summary   `json:"summary"`
	SpacingKm float64             `json:"avg_spacing_km_per_pt"`
	Waypoints []waypoint.Waypoint `json:"waypoints"`
	Pending   *waypoint.Waypoint  `json:"pending,omitempty"`
	CanUndo   bool                `json:"can_undo"`
	CanRedo   bool                `json:"can_redo"`
}

func (s *Session) State() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

func (s *Session) view() View {
	v := View{
		ID:        s.ID,
		Name:      s.doc.Name(),
		Summary:   itinerary.RouteSummary(s.track),
		SpacingKm: s.track.AvgSpacingKm(),
		Waypoints: s.store.All(),
		CanUndo:   s.log.CanUndo(),
		CanRedo:   s.log.CanRedo(),
	}
	if p, ok := s.store.Pending(); ok {
		v.Pending = &p
	}
	return v
}

func (s *Session) emit(event string, data any) {
	if s.notify != nil {
		s.notify(stream.Event{Type: event, Data: data})
	}
}

// record captures the store after a committed mutation and prunes leg
// parameters of waypoints that fell out of the set.
func (s *Session) record(removed []waypoint.Waypoint) {
	for _, w := range removed {
		delete(s.legs, w.ID)
	}
	s.log.Record(history.Capture(s.store))
}

// AddWaypoint snaps a clicked position to the track and creates the single
// pending waypoint there.
func (s *Session) AddWaypoint(lat, lon float64) (waypoint.Waypoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wp, err := s.store.AddInteractive(s.track, lat, lon, s.opts.InteractiveKm)
	if err != nil {
		return waypoint.Waypoint{}, err
	}
	s.emit("pending_created", wp)
	return wp, nil
}

// CommitWaypoint appends the pending waypoint to the ordered set. Without a
// pending waypoint it reports false and changes nothing.
func (s *Session) CommitWaypoint(name, description string) (waypoint.Waypoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wp, removed, ok := s.store.CommitPending(s.track, name, description)
	if !ok {
		return waypoint.Waypoint{}, false
	}
	s.record(removed)
	s.emit("waypoints_changed", s.store.All())
	return wp, true
}

// DiscardWaypoint drops the pending waypoint.
func (s *Session) DiscardWaypoint() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.DiscardPending() {
		return false
	}
	s.emit("pending_discarded", nil)
	return true
}

// RemoveWaypoint deletes a committed waypoint. While a pending waypoint
// exists the operation is refused; removing the current route start or end
// requires confirm. Unknown ids are a silent no-op.
func (s *Session) RemoveWaypoint(id string, confirm bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, pending := s.store.Pending(); pending {
		return waypoint.ErrPendingExists
	}
	if role := s.store.Role(id); role != waypoint.RoleInterior && !confirm {
		return &EndpointRemovalError{Role: role}
	}
	removed, ok := s.store.Remove(s.track, id)
	if !ok {
		return nil
	}
	delete(s.legs, id)
	s.record(removed)
	s.emit("waypoints_changed", s.store.All())
	return nil
}

// UpdateWaypoint edits name and description in place.
func (s *Session) UpdateWaypoint(id, name, description string) (waypoint.Waypoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wp, ok := s.store.Update(id, name, description)
	if !ok {
		return waypoint.Waypoint{}, false
	}
	s.record(nil)
	s.emit("waypoints_changed", s.store.All())
	return wp, true
}

// Undo steps back one snapshot. At the history boundary, or while a pending
// waypoint exists, nothing changes and false is returned.
func (s *Session) Undo() bool { return s.applyHistory((*history.Log).Undo) }

// Redo steps forward one snapshot.
func (s *Session) Redo() bool { return s.applyHistory((*history.Log).Redo) }

func (s *Session) applyHistory(step func(*history.Log) (history.Snapshot, error)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, pending := s.store.Pending(); pending {
		return false
	}
	snap, err := step(s.log)
	if err != nil {
		return false
	}
	removed := history.Apply(snap, s.store, s.track)
	for _, w := range removed {
		delete(s.legs, w.ID)
	}
	s.emit("waypoints_changed", s.store.All())
	return true
}

// SetLegParams stores the penalty/rest/note set for the leg arriving at the
// given waypoint.
func (s *Session) SetLegParams(id string, p itinerary.LegParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := p.Validate(); err != nil {
		return err
	}
	if _, ok := s.store.Get(id); !ok {
		return fmt.Errorf("unknown waypoint %s", id)
	}
	s.legs[id] = p
	s.emit("legs_changed", map[string]any{"waypoint_id": id})
	return nil
}

// Itinerary re-sorts the waypoints against the track and computes the timed
// plan. Ordering always runs first because stats depend on it.
func (s *Session) Itinerary(in itinerary.Inputs) ([]itinerary.Row, itinerary.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.store.ReorderByTrack(s.track) {
		delete(s.legs, w.ID)
	}
	rows, err := itinerary.Compute(s.track, s.store.All(), s.legs, in)
	if err != nil {
		return nil, itinerary.Summary{}, err
	}
	return rows, itinerary.RouteSummary(s.track), nil
}

// Rename changes the route display name used for exports.
func (s *Session) Rename(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.SetName(name)
	s.emit("renamed", name)
}

// ExportGPX serializes the document with the current name and waypoint set.
func (s *Session) ExportGPX() (filename string, data []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err = s.doc.Export(s.store.All())
	if err != nil {
		return "", nil, err
	}
	return s.doc.Filename(), data, nil
}

// Track returns the immutable route polyline.
func (s *Session) Track() *track.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track
}

// Waypoints returns a copy of the committed waypoint set.
func (s *Session) Waypoints() []waypoint.Waypoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.All()
}

// Name returns the current route display name.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Name()
}

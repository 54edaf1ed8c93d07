package waypoint

import (
	"errors"
	"testing"

	"backend-trailplan/internal/track"
)

// A straight equatorial track with ~111 m point spacing and 2 km extent.
func testTrack() *track.Track {
	var pts []track.Point
	for i := 0; i < 19; i++ {
		pts = append(pts, track.Point{Lat: 0, Lon: float64(i) * 0.001, ElevationM: 100 + float64(i)})
	}
	return track.New([][]track.Point{pts})
}

func TestRebuildFromSourceSnapsAndSorts(t *testing.T) {
	tr := testTrack()
	st := NewStore()

	// Out of file order, with one waypoint too far off the track to snap.
	src := []Source{
		{Lat: 0, Lon: 0.000004, Name: "Trailhead"},
		{Lat: 0.01, Lon: 0.01, Name: "Off track"},
		{Lat: 0, Lon: 0.018001, Name: "Summit"},
	}
	st.RebuildFromSource(tr, src, 0.015, 0.1)

	all := st.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 waypoints, got %d", len(all))
	}
	if all[0].Name != "Trailhead - Start" {
		t.Fatalf("expected start suffix, got %q", all[0].Name)
	}
	if all[1].Name != "Summit - End" {
		t.Fatalf("expected end suffix, got %q", all[1].Name)
	}
	for i := 1; i < len(all); i++ {
		if all[i].TrackIndex <= all[i-1].TrackIndex {
			t.Fatalf("waypoints not sorted by track index: %+v", all)
		}
	}
}

func TestRebuildFromSourceSyntheticStart(t *testing.T) {
	tr := testTrack()
	st := NewStore()

	// Single source waypoint snapping mid-track, >100 m from the first point.
	src := []Source{{Lat: 0, Lon: 0.010001, Name: "Refuge"}}
	st.RebuildFromSource(tr, src, 0.015, 0.1)

	all := st.All()
	if len(all) != 2 {
		t.Fatalf("expected synthetic start plus source waypoint, got %d", len(all))
	}
	if all[0].Name != "Start" || !all[0].Synthetic || all[0].TrackIndex != 0 {
		t.Fatalf("unexpected synthetic start: %+v", all[0])
	}
	if all[1].Name != "Refuge" || all[1].Synthetic {
		t.Fatalf("expected source waypoint to stay interior: %+v", all[1])
	}
}

func TestRebuildDropsDuplicateAnchors(t *testing.T) {
	tr := testTrack()
	st := NewStore()

	src := []Source{
		{Lat: 0, Lon: 0.000001, Name: "A"},
		{Lat: 0, Lon: 0.005, Name: "B"},
		{Lat: 0, Lon: 0.005002, Name: "C"}, // same nearest point as B
	}
	st.RebuildFromSource(tr, src, 0.015, 0.1)

	all := st.All()
	seen := map[int]bool{}
	for _, w := range all {
		if seen[w.TrackIndex] {
			t.Fatalf("duplicate track index survived: %+v", all)
		}
		seen[w.TrackIndex] = true
	}
	if _, ok := findByName(all, "B"); !ok {
		t.Fatalf("expected earlier duplicate to win: %+v", all)
	}
	if _, ok := findByName(all, "C"); ok {
		t.Fatalf("expected later duplicate dropped: %+v", all)
	}
	// C snapped far from the literal last point, so a synthetic End exists.
	if end, ok := findByName(all, "End"); !ok || !end.Synthetic {
		t.Fatalf("expected synthetic end: %+v", all)
	}
}

func TestAddInteractive(t *testing.T) {
	tr := testTrack()
	st := NewStore()

	// Off-track add fails and leaves the store untouched.
	before := st.Len()
	if _, err := st.AddInteractive(tr, 0.01, 0.01, 0.05); !errors.Is(err, ErrNotOnTrack) {
		t.Fatalf("expected ErrNotOnTrack, got %v", err)
	}
	if st.Len() != before {
		t.Fatalf("store changed on failed add")
	}
	if _, ok := st.Pending(); ok {
		t.Fatalf("pending created on failed add")
	}

	wp, err := st.AddInteractive(tr, 0.0001, 0.003, 0.05)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if wp.TrackIndex != 3 || wp.Lat != 0 || wp.Lon != 0.003 {
		t.Fatalf("expected snap to track point 3, got %+v", wp)
	}
	if st.Len() != 0 {
		t.Fatalf("pending waypoint must not join the ordered set")
	}

	// A second pending add is refused.
	if _, err := st.AddInteractive(tr, 0, 0.004, 0.05); !errors.Is(err, ErrPendingExists) {
		t.Fatalf("expected ErrPendingExists, got %v", err)
	}
}

func TestCommitPending(t *testing.T) {
	tr := testTrack()
	st := NewStore()

	if _, _, ok := st.CommitPending(tr, "x", ""); ok {
		t.Fatalf("commit without pending must be a no-op")
	}

	if _, err := st.AddInteractive(tr, 0, 0.003, 0.05); err != nil {
		t.Fatalf("add: %v", err)
	}
	wp, _, ok := st.CommitPending(tr, "", "notes")
	if !ok {
		t.Fatalf("expected commit")
	}
	if wp.Name != "Waypoint_1" {
		t.Fatalf("expected auto name, got %q", wp.Name)
	}
	if wp.Description != "notes" {
		t.Fatalf("expected description kept")
	}
	if st.Len() != 1 {
		t.Fatalf("expected 1 committed waypoint")
	}
	if _, ok := st.Pending(); ok {
		t.Fatalf("pending not cleared after commit")
	}
}

func TestDiscardPending(t *testing.T) {
	tr := testTrack()
	st := NewStore()
	if st.DiscardPending() {
		t.Fatalf("discard without pending must report false")
	}
	if _, err := st.AddInteractive(tr, 0, 0.003, 0.05); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !st.DiscardPending() {
		t.Fatalf("expected discard")
	}
	if st.Len() != 0 {
		t.Fatalf("discarded waypoint joined the set")
	}
}

func TestRemoveAndUpdate(t *testing.T) {
	tr := testTrack()
	st := NewStore()
	st.RebuildFromSource(tr, []Source{
		{Lat: 0, Lon: 0.000001, Name: "A"},
		{Lat: 0, Lon: 0.009, Name: "B"},
		{Lat: 0, Lon: 0.018001, Name: "C"},
	}, 0.015, 0.1)

	all := st.All()
	if len(all) != 3 {
		t.Fatalf("setup: %d waypoints", len(all))
	}

	if _, ok := st.Remove(tr, "missing"); ok {
		t.Fatalf("removing unknown id must be a no-op")
	}
	if _, ok := st.Remove(tr, all[1].ID); !ok {
		t.Fatalf("expected removal")
	}
	if st.Len() != 2 {
		t.Fatalf("expected 2 waypoints after removal")
	}

	upd, ok := st.Update(all[0].ID, "Renamed", "desc")
	if !ok || upd.Name != "Renamed" || upd.Description != "desc" {
		t.Fatalf("unexpected update result: %+v", upd)
	}
	if got, _ := st.Get(all[0].ID); got.TrackIndex != all[0].TrackIndex {
		t.Fatalf("update must not move the anchor")
	}
	if _, ok := st.Update("missing", "x", "y"); ok {
		t.Fatalf("updating unknown id must report false")
	}
}

func TestRoles(t *testing.T) {
	tr := testTrack()
	st := NewStore()
	st.RebuildFromSource(tr, []Source{
		{Lat: 0, Lon: 0.000001, Name: "A"},
		{Lat: 0, Lon: 0.009, Name: "B"},
		{Lat: 0, Lon: 0.018001, Name: "C"},
	}, 0.015, 0.1)

	all := st.All()
	if st.Role(all[0].ID) != RoleStart {
		t.Fatalf("expected start role")
	}
	if st.Role(all[1].ID) != RoleInterior {
		t.Fatalf("expected interior role")
	}
	if st.Role(all[2].ID) != RoleEnd {
		t.Fatalf("expected end role")
	}
}

func TestReorderEmptyTrack(t *testing.T) {
	st := NewStore()
	st.Replace([]Waypoint{{ID: "a"}, {ID: "b"}})
	if removed := st.ReorderByTrack(track.New(nil)); removed != nil {
		t.Fatalf("expected no-op on empty track")
	}
	if st.Len() != 2 {
		t.Fatalf("reorder on empty track must keep the set")
	}
}

func findByName(ws []Waypoint, name string) (Waypoint, bool) {
	for _, w := range ws {
		if w.Name == name {
			return w, true
		}
	}
	return Waypoint{}, false
}

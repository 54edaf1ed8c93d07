package session

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"backend-trailplan/internal/itinerary"
	"backend-trailplan/internal/waypoint"
)

var testOpts = Options{
	SnapKm:        0.015,
	InteractiveKm: 0.05,
	EndpointGapKm: 0.1,
	DensityWarnKm: 0.015,
}

type gpxWpt struct {
	idx  int
	name string
}

// buildGPX lays n track points along the equator at the given longitude
// spacing in degrees, with elevation climbing one meter per point, and places
// named wpt entries on top of the listed point indexes.
func buildGPX(name string, spacingDeg float64, n int, wpts []gpxWpt) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">`)
	for _, w := range wpts {
		fmt.Fprintf(&b, `<wpt lat="0" lon="%f"><ele>%d</ele><name>%s</name></wpt>`,
			float64(w.idx)*spacingDeg, 100+w.idx, w.name)
	}
	fmt.Fprintf(&b, `<trk><name>%s</name><trkseg>`, name)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<trkpt lat="0" lon="%f"><ele>%d</ele></trkpt>`, float64(i)*spacingDeg, 100+i)
	}
	b.WriteString(`</trkseg></trk></gpx>`)
	return []byte(b.String())
}

// denseGPX spaces points roughly 11m apart, well under the density threshold.
// The two wpt entries sit far enough from both track ends that loading also
// creates synthetic Start and End waypoints.
func denseGPX() []byte {
	return buildGPX("Ridge Walk", 0.0001, 30, []gpxWpt{{12, "Col"}, {18, "Summit"}})
}

// sparseGPX spaces points roughly 111m apart, above the density threshold.
func sparseGPX() []byte {
	return buildGPX("Sparse Walk", 0.001, 30, nil)
}

func newTestSession(t *testing.T) (*Manager, *Session) {
	t.Helper()
	m := NewManager(testOpts, nil)
	s, err := m.Load(denseGPX(), "ridge.gpx", false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m, s
}

func TestLoadDensityRefusal(t *testing.T) {
	m := NewManager(testOpts, nil)

	_, err := m.Load(sparseGPX(), "sparse.gpx", false)
	var dense *LowDensityError
	if !errors.As(err, &dense) {
		t.Fatalf("expected LowDensityError, got %v", err)
	}
	if dense.KmPerPt <= testOpts.DensityWarnKm {
		t.Errorf("reported density %f not above threshold", dense.KmPerPt)
	}

	if _, err := m.Load(sparseGPX(), "sparse.gpx", true); err != nil {
		t.Fatalf("forced load: %v", err)
	}
}

func TestLoadBuildsWaypointSet(t *testing.T) {
	_, s := newTestSession(t)

	v := s.State()
	if v.Name != "Ridge Walk" {
		t.Errorf("name = %q, want Ridge Walk", v.Name)
	}
	if len(v.Waypoints) != 4 {
		t.Fatalf("got %d waypoints, want 4 (synthetic start, two named, synthetic end)", len(v.Waypoints))
	}
	if v.Waypoints[0].Name != "Start" || !v.Waypoints[0].Synthetic {
		t.Errorf("first waypoint = %+v, want synthetic Start", v.Waypoints[0])
	}
	if v.Waypoints[1].Name != "Col" || v.Waypoints[2].Name != "Summit" {
		t.Errorf("interior names = %q, %q", v.Waypoints[1].Name, v.Waypoints[2].Name)
	}
	if v.Waypoints[3].Name != "End" || !v.Waypoints[3].Synthetic {
		t.Errorf("last waypoint = %+v, want synthetic End", v.Waypoints[3])
	}
	if v.CanUndo || v.CanRedo {
		t.Errorf("fresh session: CanUndo=%v CanRedo=%v, want false/false", v.CanUndo, v.CanRedo)
	}
}

func TestAddCommitUndoRedo(t *testing.T) {
	_, s := newTestSession(t)

	if _, err := s.AddWaypoint(0, 0.0015); err != nil {
		t.Fatalf("AddWaypoint: %v", err)
	}
	if s.Undo() {
		t.Error("Undo succeeded while a waypoint was pending")
	}

	wp, ok := s.CommitWaypoint("", "")
	if !ok {
		t.Fatal("CommitWaypoint reported no pending waypoint")
	}
	if wp.Name != "Waypoint_5" {
		t.Errorf("auto name = %q, want Waypoint_5", wp.Name)
	}

	v := s.State()
	if len(v.Waypoints) != 5 {
		t.Fatalf("got %d waypoints after commit, want 5", len(v.Waypoints))
	}
	if !v.CanUndo {
		t.Error("CanUndo = false after commit")
	}

	if !s.Undo() {
		t.Fatal("Undo failed")
	}
	if n := len(s.State().Waypoints); n != 4 {
		t.Errorf("got %d waypoints after undo, want 4", n)
	}
	if !s.Redo() {
		t.Fatal("Redo failed")
	}
	if n := len(s.State().Waypoints); n != 5 {
		t.Errorf("got %d waypoints after redo, want 5", n)
	}
	if s.Redo() {
		t.Error("Redo succeeded past the newest snapshot")
	}
}

func TestAddWaypointOffTrack(t *testing.T) {
	_, s := newTestSession(t)

	_, err := s.AddWaypoint(10, 10)
	if !errors.Is(err, waypoint.ErrNotOnTrack) {
		t.Fatalf("err = %v, want ErrNotOnTrack", err)
	}
	if s.State().Pending != nil {
		t.Error("failed add left a pending waypoint")
	}
}

func TestRemoveEndpointNeedsConfirm(t *testing.T) {
	_, s := newTestSession(t)
	start := s.State().Waypoints[0]

	err := s.RemoveWaypoint(start.ID, false)
	var endpoint *EndpointRemovalError
	if !errors.As(err, &endpoint) {
		t.Fatalf("err = %v, want EndpointRemovalError", err)
	}
	if endpoint.Role != waypoint.RoleStart {
		t.Errorf("role = %q, want start", endpoint.Role)
	}

	if err := s.RemoveWaypoint(start.ID, true); err != nil {
		t.Fatalf("confirmed removal: %v", err)
	}
	if n := len(s.State().Waypoints); n != 3 {
		t.Errorf("got %d waypoints after removal, want 3", n)
	}
}

func TestRemoveBlockedWhilePending(t *testing.T) {
	_, s := newTestSession(t)
	col := s.State().Waypoints[1]

	if _, err := s.AddWaypoint(0, 0.0015); err != nil {
		t.Fatalf("AddWaypoint: %v", err)
	}
	if err := s.RemoveWaypoint(col.ID, true); !errors.Is(err, waypoint.ErrPendingExists) {
		t.Fatalf("err = %v, want ErrPendingExists", err)
	}
	if !s.DiscardWaypoint() {
		t.Fatal("DiscardWaypoint reported nothing pending")
	}
	if err := s.RemoveWaypoint(col.ID, false); err != nil {
		t.Fatalf("interior removal: %v", err)
	}
}

func TestLegParamsPrunedOnRemove(t *testing.T) {
	_, s := newTestSession(t)
	col := s.State().Waypoints[1]

	p := itinerary.LegParams{PenaltyPercent: 20, RestMinutes: 10}
	if err := s.SetLegParams(col.ID, p); err != nil {
		t.Fatalf("SetLegParams: %v", err)
	}
	if err := s.RemoveWaypoint(col.ID, false); err != nil {
		t.Fatalf("RemoveWaypoint: %v", err)
	}
	if _, ok := s.legs[col.ID]; ok {
		t.Error("leg params survived waypoint removal")
	}
}

func TestLegParamsSurviveUndo(t *testing.T) {
	_, s := newTestSession(t)
	col := s.State().Waypoints[1]

	if err := s.SetLegParams(col.ID, itinerary.LegParams{RestMinutes: 15}); err != nil {
		t.Fatalf("SetLegParams: %v", err)
	}
	if _, err := s.AddWaypoint(0, 0.0015); err != nil {
		t.Fatalf("AddWaypoint: %v", err)
	}
	if _, ok := s.CommitWaypoint("Brew stop", ""); !ok {
		t.Fatal("commit failed")
	}
	if !s.Undo() {
		t.Fatal("Undo failed")
	}
	if got := s.legs[col.ID].RestMinutes; got != 15 {
		t.Errorf("rest minutes after undo = %d, want 15", got)
	}
}

func TestSetLegParamsRejectsBadValues(t *testing.T) {
	_, s := newTestSession(t)
	col := s.State().Waypoints[1]

	if err := s.SetLegParams(col.ID, itinerary.LegParams{PenaltyPercent: 150}); err == nil {
		t.Error("penalty above 100 accepted")
	}
	if err := s.SetLegParams("nope", itinerary.LegParams{}); err == nil {
		t.Error("unknown waypoint id accepted")
	}
}

func TestItinerary(t *testing.T) {
	_, s := newTestSession(t)

	in := itinerary.Inputs{GroupSize: 4, SkillLevel: "moderate", StartTime: "08:00"}
	rows, summary, err := s.Itinerary(in)
	if err != nil {
		t.Fatalf("Itinerary: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if rows[0].Leg.DistanceKm != 0 {
		t.Errorf("first row leg distance = %f, want 0", rows[0].Leg.DistanceKm)
	}
	if got := rows[len(rows)-1].ProgressPct; math.Abs(got-100) > 0.01 {
		t.Errorf("final progress = %f, want 100", got)
	}
	if summary.DistanceKm <= 0 {
		t.Errorf("summary distance = %f", summary.DistanceKm)
	}
}

func TestItineraryValidation(t *testing.T) {
	_, s := newTestSession(t)

	_, _, err := s.Itinerary(itinerary.Inputs{})
	var verr *itinerary.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	want := []string{"group_size", "skill_level"}
	for _, f := range want {
		found := false
		for _, got := range verr.Fields {
			if got == f {
				found = true
			}
		}
		if !found {
			t.Errorf("field %q missing from %v", f, verr.Fields)
		}
	}
}

func TestRenameAndExport(t *testing.T) {
	_, s := newTestSession(t)
	s.Rename("Ridge Walk Revised")

	if got := s.State().Name; got != "Ridge Walk Revised" {
		t.Errorf("name = %q", got)
	}

	filename, data, err := s.ExportGPX()
	if err != nil {
		t.Fatalf("ExportGPX: %v", err)
	}
	if filename != "Ridge Walk Revised.gpx" {
		t.Errorf("filename = %q", filename)
	}
	if !strings.Contains(string(data), "Ridge Walk Revised") {
		t.Error("exported GPX does not carry the new name")
	}
	if strings.Contains(string(data), "<wpt lat=\"0\" lon=\"0\"") && strings.Contains(string(data), ">Start<") {
		t.Error("synthetic waypoint written to GPX")
	}
}

func TestExportKeepsUnsnappedSource(t *testing.T) {
	m := NewManager(testOpts, nil)

	// One wpt entry sits far off the track: it never enters the model but
	// must survive the round trip.
	data := strings.Replace(string(denseGPX()),
		"<trk>",
		`<wpt lat="5" lon="5"><ele>0</ele><name>OffTrackCache</name></wpt><trk>`, 1)
	s, err := m.Load([]byte(data), "ridge.gpx", false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, wp := range s.State().Waypoints {
		if wp.Name == "OffTrackCache" {
			t.Fatal("off-track waypoint entered the model")
		}
	}

	_, out, err := s.ExportGPX()
	if err != nil {
		t.Fatalf("ExportGPX: %v", err)
	}
	if !strings.Contains(string(out), "OffTrackCache") {
		t.Error("off-track waypoint lost on export")
	}
}

func TestManagerGetDelete(t *testing.T) {
	m, s := newTestSession(t)

	if _, ok := m.Get(s.ID); !ok {
		t.Fatal("loaded session not registered")
	}
	if !m.Delete(s.ID) {
		t.Fatal("Delete reported unknown session")
	}
	if m.Delete(s.ID) {
		t.Error("second Delete reported success")
	}
	if _, ok := m.Get(s.ID); ok {
		t.Error("deleted session still retrievable")
	}
}

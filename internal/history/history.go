// Package history keeps an undoable log of waypoint-store snapshots.
package history

import (
	"errors"

	"backend-trailplan/internal/track"
	"backend-trailplan/internal/waypoint"
)

// ErrNoHistory is returned by Undo/Redo at a history boundary. Callers treat
// it as a silent no-op, never a user-facing failure.
var ErrNoHistory = errors.New("history boundary")

// Entry is one waypoint as captured in a snapshot. The track anchor is
// deliberately absent: it is recomputed on restore, so ordering is
// reproducible only while the track itself is unchanged. The stable ID is
// carried so leg parameters keyed by waypoint survive undo/redo.
type Entry struct {
	ID          string  `json:"id"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	ElevationM  float64 `json:"elevation_m"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Synthetic   bool    `json:"synthetic"`
	SourceRef   int     `json:"-"`
}

// Snapshot is the store's ordered waypoints at a point in time, immutable
// once captured.
type Snapshot []Entry

// Log is a linear snapshot sequence with a cursor. Recording while the
// cursor is not at the end truncates the forward history first.
type Log struct {
	snaps  []Snapshot
	cursor int
}

func NewLog() *Log { return &Log{cursor: -1} }

func (l *Log) Len() int      { return len(l.snaps) }
func (l *Log) CanUndo() bool { return l.cursor > 0 }
func (l *Log) CanRedo() bool { return l.cursor >= 0 && l.cursor < len(l.snaps)-1 }

// Record appends a snapshot and moves the cursor to it, discarding any
// redoable snapshots beyond the cursor.
func (l *Log) Record(snap Snapshot) {
	if l.cursor < len(l.snaps)-1 {
		l.snaps = l.snaps[:l.cursor+1]
	}
	l.snaps = append(l.snaps, snap)
	l.cursor = len(l.snaps) - 1
}

// Undo steps the cursor back and returns the snapshot to apply.
func (l *Log) Undo() (Snapshot, error) {
	if !l.CanUndo() {
		return nil, ErrNoHistory
	}
	l.cursor--
	return l.snaps[l.cursor], nil
}

// Redo steps the cursor forward and returns the snapshot to apply.
func (l *Log) Redo() (Snapshot, error) {
	if !l.CanRedo() {
		return nil, ErrNoHistory
	}
	l.cursor++
	return l.snaps[l.cursor], nil
}

// Current returns the snapshot under the cursor.
func (l *Log) Current() (Snapshot, bool) {
	if l.cursor < 0 {
		return nil, false
	}
	return l.snaps[l.cursor], true
}

// Capture copies the store's ordered waypoints into a snapshot.
func Capture(st *waypoint.Store) Snapshot {
	ws := st.All()
	snap := make(Snapshot, len(ws))
	for i, w := range ws {
		snap[i] = Entry{
			ID:          w.ID,
			Lat:         w.Lat,
			Lon:         w.Lon,
			ElevationM:  w.ElevationM,
			Name:        w.Name,
			Description: w.Description,
			Synthetic:   w.Synthetic,
			SourceRef:   w.SourceRef,
		}
	}
	return snap
}

// Apply replaces the store's waypoints with the snapshot's, restoring
// positions exactly as recorded (no re-snapping), then reorders against the
// current track. Dropped duplicates, if any, are returned.
func Apply(snap Snapshot, st *waypoint.Store, tr *track.Track) []waypoint.Waypoint {
	ws := make([]waypoint.Waypoint, len(snap))
	for i, e := range snap {
		ws[i] = waypoint.Waypoint{
			ID:          e.ID,
			Lat:         e.Lat,
			Lon:         e.Lon,
			ElevationM:  e.ElevationM,
			Name:        e.Name,
			Description: e.Description,
			Synthetic:   e.Synthetic,
			SourceRef:   e.SourceRef,
		}
	}
	st.Replace(ws)
	return st.ReorderByTrack(tr)
}

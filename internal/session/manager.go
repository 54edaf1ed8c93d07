package session

import (
	"sync"

	"backend-trailplan/internal/config"
	"backend-trailplan/internal/gpxio"
	"backend-trailplan/internal/history"
	"backend-trailplan/internal/itinerary"
	"backend-trailplan/internal/stream"
	"backend-trailplan/internal/waypoint"

	"github.com/google/uuid"
)

// OptionsFromConfig converts the meter-based config thresholds to the
// kilometer units the geodesy code works in.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		SnapKm:        cfg.SnapToleranceM / 1000,
		InteractiveKm: cfg.InteractiveToleranceM / 1000,
		EndpointGapKm: cfg.EndpointGapM / 1000,
		DensityWarnKm: cfg.DensityWarnKmPerPt,
	}
}

// Manager holds the live planning sessions, keyed by session ID. Sessions
// exist only in memory; there is nothing to persist beyond the process.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     Options
	hub      *stream.Hub
}

func NewManager(opts Options, hub *stream.Hub) *Manager {
	return &Manager{
		sessions: map[string]*Session{},
		opts:     opts,
		hub:      hub,
	}
}

// Load parses GPX bytes into a new session. The density pre-check runs
// before any session state is built: a refusal leaves every existing session
// untouched. The initial waypoint set is rebuilt from the file's wpt entries
// and becomes the first history snapshot.
func (m *Manager) Load(data []byte, fallbackName string, force bool) (*Session, error) {
	doc, err := gpxio.Parse(data, fallbackName)
	if err != nil {
		return nil, err
	}
	tr := doc.Track()

	if spacing := tr.AvgSpacingKm(); spacing > m.opts.DensityWarnKm && !force {
		return nil, &LowDensityError{KmPerPt: spacing}
	}

	s := &Session{
		ID:    uuid.NewString(),
		opts:  m.opts,
		doc:   doc,
		track: tr,
		store: waypoint.NewStore(),
		log:   history.NewLog(),
		legs:  map[string]itinerary.LegParams{},
	}
	if m.hub != nil {
		id := s.ID
		s.notify = func(e stream.Event) { m.hub.Notify(id, e) }
	}

	s.store.RebuildFromSource(tr, doc.SourceWaypoints(), m.opts.SnapKm, m.opts.EndpointGapKm)
	var refs []int
	for _, w := range s.store.All() {
		if w.SourceRef >= 0 {
			refs = append(refs, w.SourceRef)
		}
	}
	doc.MarkConsumed(refs)
	s.log.Record(history.Capture(s.store))

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	s.emit("route_loaded", s.State())
	return s, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

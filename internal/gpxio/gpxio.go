// Package gpxio wraps the gpxgo codec. The parsed document is kept for the
// whole session and mutated in place on export, so elements the planner does
// not consume round-trip with the file.
package gpxio

import (
	"strings"

	"backend-trailplan/internal/track"
	"backend-trailplan/internal/waypoint"

	"github.com/tkrajina/gpxgo/gpx"
)

// Document is a loaded GPX file plus the editable route name.
type Document struct {
	doc  *gpx.GPX
	name string

	// consumed marks the wpt entries that made it into the waypoint model.
	// Entries that never snapped stay out of the model but must still
	// round-trip; only consumed entries the user later deleted drop out on
	// export.
	consumed map[int]bool
}

// Parse decodes GPX bytes. The route name comes from the first track's name
// element, falling back to the supplied file name without its extension.
func Parse(data []byte, fallbackName string) (*Document, error) {
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, err
	}
	name := ""
	if len(doc.Tracks) > 0 {
		name = strings.TrimSpace(doc.Tracks[0].Name)
	}
	if name == "" {
		name = strings.TrimSuffix(fallbackName, ".gpx")
	}
	return &Document{doc: doc, name: name, consumed: map[int]bool{}}, nil
}

func (d *Document) Name() string        { return d.name }
func (d *Document) SetName(name string) { d.name = name }

// MarkConsumed records which wpt entries, by index into SourceWaypoints,
// were taken into the waypoint model after snapping.
func (d *Document) MarkConsumed(refs []int) {
	for _, ref := range refs {
		d.consumed[ref] = true
	}
}

// Track builds the route polyline, one segment per trkseg across all tracks.
func (d *Document) Track() *track.Track {
	var segments [][]track.Point
	for _, trk := range d.doc.Tracks {
		for _, seg := range trk.Segments {
			pts := make([]track.Point, 0, len(seg.Points))
			for _, p := range seg.Points {
				pts = append(pts, track.Point{
					Lat:        p.Latitude,
					Lon:        p.Longitude,
					ElevationM: p.Elevation.Value(),
				})
			}
			segments = append(segments, pts)
		}
	}
	return track.New(segments)
}

// SourceWaypoints returns the document's wpt entries in file order.
func (d *Document) SourceWaypoints() []waypoint.Source {
	out := make([]waypoint.Source, 0, len(d.doc.Waypoints))
	for _, w := range d.doc.Waypoints {
		out = append(out, waypoint.Source{
			Lat:         w.Latitude,
			Lon:         w.Longitude,
			ElevationM:  w.Elevation.Value(),
			Name:        w.Name,
			Description: w.Description,
		})
	}
	return out
}

// Export writes the current route name and waypoint set back into the parsed
// document and re-serializes it. Waypoints that came from the file keep their
// original entry (position untouched, name and description updated); consumed
// entries the user deleted drop out; entries that never entered the model
// round-trip untouched; session-created waypoints are appended; synthetic
// start/end markers are never written. The document's own wpt slice is left
// as parsed so SourceRef indices stay valid across repeated exports.
func (d *Document) Export(wps []waypoint.Waypoint) ([]byte, error) {
	if len(d.doc.Tracks) > 0 {
		d.doc.Tracks[0].Name = d.name
	} else {
		d.doc.Name = d.name
	}

	byRef := map[int]waypoint.Waypoint{}
	var added []waypoint.Waypoint
	for _, wp := range wps {
		switch {
		case wp.Synthetic:
		case wp.SourceRef >= 0 && wp.SourceRef < len(d.doc.Waypoints):
			byRef[wp.SourceRef] = wp
		default:
			added = append(added, wp)
		}
	}

	out := make([]gpx.GPXPoint, 0, len(d.doc.Waypoints)+len(added))
	for i, orig := range d.doc.Waypoints {
		if wp, ok := byRef[i]; ok {
			orig.Name = wp.Name
			orig.Description = wp.Description
			out = append(out, orig)
			continue
		}
		if !d.consumed[i] {
			out = append(out, orig)
		}
	}
	for _, wp := range added {
		pt := gpx.GPXPoint{
			Name:        wp.Name,
			Description: wp.Description,
		}
		pt.Latitude = wp.Lat
		pt.Longitude = wp.Lon
		pt.Elevation = *gpx.NewNullableFloat64(wp.ElevationM)
		out = append(out, pt)
	}

	parsed := d.doc.Waypoints
	d.doc.Waypoints = out
	data, err := d.doc.ToXml(gpx.ToXmlParams{Indent: true})
	d.doc.Waypoints = parsed
	return data, err
}

// Filename is the suggested download name for the exported route.
func (d *Document) Filename() string {
	return d.name + ".gpx"
}

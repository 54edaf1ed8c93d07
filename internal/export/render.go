package export

import (
	"bytes"
	"errors"
	"image/png"
	"math"

	"backend-trailplan/internal/shared/geo"
	"backend-trailplan/internal/track"
	"backend-trailplan/internal/waypoint"

	"github.com/fogleman/gg"
)

var errEmptyTrack = errors.New("empty track")

// Images holds the PNG-encoded captures embedded in the itinerary document.
type Images struct {
	MapView []byte
	Profile []byte
}

// RenderImages draws both captures. Any failure is reported to the caller,
// which recovers by producing the document without the image page.
func RenderImages(tr *track.Track, wps []waypoint.Waypoint) (*Images, error) {
	mapView, err := RenderMapView(tr, wps, 1000, 700)
	if err != nil {
		return nil, err
	}
	profile, err := RenderProfile(tr, 1000, 350)
	if err != nil {
		return nil, err
	}
	return &Images{MapView: mapView, Profile: profile}, nil
}

// RenderMapView plots the track polyline and its waypoints on a plain
// canvas: red route line, green start marker, red end marker, blue interior
// markers. It stands in for a tile-backed map capture.
func RenderMapView(tr *track.Track, wps []waypoint.Waypoint, w, h int) ([]byte, error) {
	pts := tr.Points()
	if len(pts) == 0 {
		return nil, errEmptyTrack
	}

	minLat, maxLat := pts[0].Lat, pts[0].Lat
	minLon, maxLon := pts[0].Lon, pts[0].Lon
	for _, p := range pts {
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
		minLon = math.Min(minLon, p.Lon)
		maxLon = math.Max(maxLon, p.Lon)
	}
	// Meters per degree of longitude shrink with latitude; scale lon so the
	// plot keeps roughly true proportions.
	lonScale := math.Cos((minLat + maxLat) / 2 * math.Pi / 180)

	const pad = 40.0
	spanX := (maxLon - minLon) * lonScale
	spanY := maxLat - minLat
	scale := math.Min(
		(float64(w)-2*pad)/math.Max(spanX, 1e-9),
		(float64(h)-2*pad)/math.Max(spanY, 1e-9),
	)
	project := func(lat, lon float64) (float64, float64) {
		x := pad + ((lon-minLon)*lonScale)*scale
		y := float64(h) - pad - (lat-minLat)*scale
		return x, y
	}

	dc := gg.NewContext(w, h)
	dc.SetRGB(0.96, 0.96, 0.94)
	dc.Clear()

	dc.SetRGB(0.85, 0.1, 0.1)
	dc.SetLineWidth(3)
	for i, p := range pts {
		x, y := project(p.Lat, p.Lon)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()

	for i, wp := range wps {
		x, y := project(wp.Lat, wp.Lon)
		switch {
		case i == 0:
			dc.SetRGB(0.22, 0.8, 0.42)
		case i == len(wps)-1:
			dc.SetRGB(0.9, 0.24, 0.24)
		default:
			dc.SetRGB(0.2, 0.4, 0.85)
		}
		dc.DrawCircle(x, y, 7)
		dc.Fill()
		dc.SetRGB(1, 1, 1)
		dc.DrawCircle(x, y, 3)
		dc.Fill()
	}

	return encodePNG(dc)
}

// RenderProfile draws the elevation profile: cumulative distance on the x
// axis, elevation on the y axis, filled under the curve.
func RenderProfile(tr *track.Track, w, h int) ([]byte, error) {
	pts := tr.Points()
	if len(pts) < 2 {
		return nil, errEmptyTrack
	}

	dist := make([]float64, len(pts))
	minEle, maxEle := pts[0].ElevationM, pts[0].ElevationM
	for i := 1; i < len(pts); i++ {
		dist[i] = dist[i-1] + geo.HaversineKm(pts[i-1].Lat, pts[i-1].Lon, pts[i].Lat, pts[i].Lon)
		minEle = math.Min(minEle, pts[i].ElevationM)
		maxEle = math.Max(maxEle, pts[i].ElevationM)
	}
	total := dist[len(dist)-1]
	if total == 0 {
		return nil, errEmptyTrack
	}
	eleSpan := math.Max(maxEle-minEle, 1)

	const pad = 30.0
	sx := (float64(w) - 2*pad) / total
	sy := (float64(h) - 2*pad) / eleSpan

	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetRGBA(0.55, 0.85, 0.25, 0.55)
	dc.MoveTo(pad, float64(h)-pad)
	for i, p := range pts {
		dc.LineTo(pad+dist[i]*sx, float64(h)-pad-(p.ElevationM-minEle)*sy)
	}
	dc.LineTo(pad+total*sx, float64(h)-pad)
	dc.ClosePath()
	dc.Fill()

	dc.SetRGB(0.3, 0.55, 0.1)
	dc.SetLineWidth(2)
	for i, p := range pts {
		x := pad + dist[i]*sx
		y := float64(h) - pad - (p.ElevationM-minEle)*sy
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()

	// Baseline.
	dc.SetRGB(0.4, 0.4, 0.4)
	dc.SetLineWidth(1)
	dc.DrawLine(pad, float64(h)-pad, float64(w)-pad, float64(h)-pad)
	dc.Stroke()

	return encodePNG(dc)
}

func encodePNG(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

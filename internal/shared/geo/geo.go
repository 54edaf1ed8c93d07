package geo

import (
	"fmt"
	"math"
	"strconv"
)

const earthRadiusKm = 6371.0

// WGS84 ellipsoid.
const (
	wgs84A = 6378137.0
	wgs84F = 1 / 298.257223563
)

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// HaversineKm returns the great-circle distance in kilometers between two
// lat/lon pairs on a spherical earth.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// ProjectGrid maps lat/lon to planar easting/northing meters with a
// transverse Mercator projection fixed on the -3 degree meridian
// (UTM zone 31T calibration, k0=0.9996, false easting 500000 m).
// It is a labeling convenience, not a general zone resolver.
func ProjectGrid(lat, lon float64) (easting, northing float64) {
	const (
		centralMeridian = -3.0
		k0              = 0.9996
		falseEasting    = 500000.0
	)
	e2 := 2*wgs84F - wgs84F*wgs84F

	falseNorthing := 0.0
	if lat < 0 {
		falseNorthing = 10000000.0
	}

	latRad := toRad(lat)
	lonRad := toRad(lon)

	sinLat := math.Sin(latRad)
	cosLat := math.Cos(latRad)
	tanLat := math.Tan(latRad)

	n := wgs84A / math.Sqrt(1-e2*sinLat*sinLat)
	t := tanLat * tanLat
	c := e2 / (1 - e2) * cosLat * cosLat
	a := (lonRad - toRad(centralMeridian)) * cosLat

	m := wgs84A * ((1-e2/4-3*e2*e2/64-5*e2*e2*e2/256)*latRad -
		(3*e2/8+3*e2*e2/32+45*e2*e2*e2/1024)*math.Sin(2*latRad) +
		(15*e2*e2/256+45*e2*e2*e2/1024)*math.Sin(4*latRad) -
		(35*e2*e2*e2/3072)*math.Sin(6*latRad))

	easting = k0*n*(a+(1-t+c)*a*a*a/6+
		(5-18*t+t*t+72*c-58*e2)*a*a*a*a*a/120) + falseEasting

	northing = k0*(m+n*tanLat*
		(a*a/2+(5-t+9*c+4*c*c)*a*a*a*a/24+
			(61-58*t+t*t+600*c-330*e2)*a*a*a*a*a*a/720)) + falseNorthing
	return easting, northing
}

// GridLabel formats a projected position the way itinerary tables print it:
// whole-meter easting zero-padded to five digits, northing truncated to its
// first six digits.
func GridLabel(lat, lon float64) string {
	e, n := ProjectGrid(lat, lon)
	north := strconv.Itoa(int(math.Round(n)))
	if len(north) > 6 {
		north = north[:6]
	}
	return fmt.Sprintf("%05dE %sN", int(math.Round(e)), north)
}

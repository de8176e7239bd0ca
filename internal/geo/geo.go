// Package geo holds the great-circle math used for proximity signals.
package geo

import "math"

const (
	EarthRadiusKm = 6371.0

	// kmPerDegree is the flat approximation used for bounding boxes.
	kmPerDegree = 111.0
)

type Point struct {
	Lat float64
	Lon float64
}

// DistanceKm returns the haversine distance in kilometres. NaN inputs
// propagate; callers only pass present coordinates.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

func Distance(a, b Point) float64 {
	return DistanceKm(a.Lat, a.Lon, b.Lat, b.Lon)
}

// Box is an inclusive lat/lon rectangle.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoxAround approximates a circle of radiusKm with a rectangle:
// latDelta = r/111, lonDelta = r/(111*cos(lat)).
func BoxAround(center Point, radiusKm float64) Box {
	latDelta := radiusKm / kmPerDegree
	lonDelta := radiusKm / (kmPerDegree * math.Cos(toRadians(center.Lat)))
	return Box{
		MinLat: center.Lat - latDelta,
		MaxLat: center.Lat + latDelta,
		MinLon: center.Lon - lonDelta,
		MaxLon: center.Lon + lonDelta,
	}
}

func (b Box) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// LonScale is cos(lat): the factor that makes a longitude delta comparable
// to a latitude delta near lat.
func LonScale(lat float64) float64 {
	return math.Cos(toRadians(lat))
}

// ApproxDistanceSq is the equirectangular squared distance in degrees. It
// orders points by proximity to a the way the store query does and is
// close to haversine order at city scale.
func ApproxDistanceSq(a, b Point) float64 {
	dLat := b.Lat - a.Lat
	dLon := (b.Lon - a.Lon) * LonScale(a.Lat)
	return dLat*dLat + dLon*dLon
}

// RoundKm rounds a distance to two decimals for display.
func RoundKm(d float64) float64 {
	return math.Round(d*100) / 100
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

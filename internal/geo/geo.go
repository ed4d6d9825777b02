// Package geo holds the pure geometry helpers used by the map editor. All points are
// latitude/longitude pairs in decimal degrees, always ordered [lat, lon].
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/s2"
	"gopkg.in/yaml.v3"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371008.8

var ErrInvalidPoint = errors.New("invalid point")

// Point is a WGS84 coordinate. It serialises as the JSON array [lat, lon].
type Point struct {
	Lat float64
	Lon float64
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lat, p.Lon})
}

func (p *Point) UnmarshalJSON(b []byte) error {
	var raw []float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("%w: expected [lat, lon], got %d values", ErrInvalidPoint, len(raw))
	}
	p.Lat, p.Lon = raw[0], raw[1]
	return nil
}

// UnmarshalYAML accepts the same [lat, lon] form as JSON.
func (p *Point) UnmarshalYAML(value *yaml.Node) error {
	var raw []float64
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("%w: expected [lat, lon], got %d values", ErrInvalidPoint, len(raw))
	}
	p.Lat, p.Lon = raw[0], raw[1]
	return nil
}

func (p Point) String() string {
	return fmt.Sprintf("(%g,%g)", p.Lat, p.Lon)
}

// Validate rejects non-finite values and coordinates outside the lat/lon ranges.
func Validate(p Point) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return fmt.Errorf("%w: %s is not finite", ErrInvalidPoint, p)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %g out of range [-90,90]", ErrInvalidPoint, p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %g out of range [-180,180]", ErrInvalidPoint, p.Lon)
	}
	return nil
}

// ClosePolygon returns a copy of vertices whose last vertex equals the first.
// An already closed ring is copied unchanged. Vertices are compared bit for bit, so a
// ring starting at a NaN coordinate is still closed only once.
func ClosePolygon(vertices []Point) []Point {
	if len(vertices) == 0 {
		return nil
	}
	out := make([]Point, len(vertices), len(vertices)+1)
	copy(out, vertices)
	if !sameBits(out[len(out)-1], out[0]) {
		out = append(out, out[0])
	}
	return out
}

// IsClosed reports whether the ring has at least one vertex and ends where it starts.
func IsClosed(vertices []Point) bool {
	return len(vertices) > 0 && sameBits(vertices[0], vertices[len(vertices)-1])
}

func sameBits(a, b Point) bool {
	return math.Float64bits(a.Lat) == math.Float64bits(b.Lat) && math.Float64bits(a.Lon) == math.Float64bits(b.Lon)
}

// DistinctVertices counts unique vertices in the ring.
func DistinctVertices(vertices []Point) int {
	seen := make(map[Point]struct{}, len(vertices))
	for _, v := range vertices {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// PointInPolygon classifies point against polygon with an even-odd ray cast, using
// longitude as x and latitude as y. The polygon is closed first if needed. Polygons with
// fewer than three distinct vertices contain nothing.
func PointInPolygon(point Point, polygon []Point) bool {
	if DistinctVertices(polygon) < 3 {
		return false
	}
	ring := ClosePolygon(polygon)

	inside := false
	for i := 0; i < len(ring)-1; i++ {
		a, b := ring[i], ring[i+1]
		if (a.Lat > point.Lat) == (b.Lat > point.Lat) {
			continue
		}
		// Longitude where edge a->b crosses the horizontal line through point.
		x := a.Lon + (point.Lat-a.Lat)*(b.Lon-a.Lon)/(b.Lat-a.Lat)
		if point.Lon < x {
			inside = !inside
		}
	}
	return inside
}

// Distance is the great-circle distance between a and b in metres.
func Distance(a, b Point) float64 {
	la := s2.LatLngFromDegrees(a.Lat, a.Lon)
	lb := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return la.Distance(lb).Radians() * EarthRadiusMeters
}

// PathLength sums the great-circle length of consecutive segments.
func PathLength(path []Point) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += Distance(path[i-1], path[i])
	}
	return total
}

// NearestSegment returns the index i of the segment path[i]->path[i+1] closest to p,
// measured in the plane of degrees. It returns -1 when path has fewer than two points.
func NearestSegment(path []Point, p Point) int {
	if len(path) < 2 {
		return -1
	}
	best := -1
	bestDist := math.Inf(1)
	for i := 0; i < len(path)-1; i++ {
		d := segmentDistanceSq(p, path[i], path[i+1])
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func segmentDistanceSq(p, a, b Point) float64 {
	dx := b.Lon - a.Lon
	dy := b.Lat - a.Lat
	lenSq := dx*dx + dy*dy
	t := 0.0
	if lenSq > 0 {
		t = ((p.Lon-a.Lon)*dx + (p.Lat-a.Lat)*dy) / lenSq
		t = math.Max(0, math.Min(1, t))
	}
	cx := a.Lon + t*dx
	cy := a.Lat + t*dy
	return (p.Lon-cx)*(p.Lon-cx) + (p.Lat-cy)*(p.Lat-cy)
}

// Equal reports whether two paths hold the same points in the same order.
func Equal(a, b []Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Clone copies a path. A nil path stays nil.
func Clone(path []Point) []Point {
	if path == nil {
		return nil
	}
	out := make([]Point, len(path))
	copy(out, path)
	return out
}

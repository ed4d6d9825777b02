package geo

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"testing/quick"
)

func square() []Point {
	return []Point{{0, 0}, {0, 10}, {10, 10}, {10, 0}}
}

func TestPointInPolygon(t *testing.T) {
	cases := []struct {
		name string
		p    Point
		poly []Point
		want bool
	}{
		{"inside open ring", Point{5, 5}, square(), true},
		{"inside closed ring", Point{5, 5}, ClosePolygon(square()), true},
		{"outside", Point{50, 50}, square(), false},
		{"left of ring", Point{5, -1}, square(), false},
		{"concave notch", Point{5, 5}, []Point{{0, 0}, {10, 0}, {10, 10}, {5, 3}, {0, 10}}, false},
		{"concave body", Point{2, 5}, []Point{{0, 0}, {10, 0}, {10, 10}, {5, 3}, {0, 10}}, true},
		{"two vertices", Point{0, 5}, []Point{{0, 0}, {0, 10}}, false},
		{"repeated vertices", Point{1, 1}, []Point{{0, 0}, {0, 0}, {2, 2}, {0, 0}}, false},
		{"empty", Point{1, 1}, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PointInPolygon(tc.p, tc.poly); got != tc.want {
				t.Fatalf("PointInPolygon(%s) = %v, want %v", tc.p, got, tc.want)
			}
		})
	}
}

func TestClosePolygon(t *testing.T) {
	in := square()
	out := ClosePolygon(in)
	if len(out) != 5 || out[4] != in[0] {
		t.Fatalf("expected ring closed with first vertex, got %v", out)
	}
	if len(in) != 4 {
		t.Fatalf("input must not be modified, got %v", in)
	}

	again := ClosePolygon(out)
	if !Equal(again, out) {
		t.Fatalf("closing a closed ring must be a no-op, got %v", again)
	}

	if got := ClosePolygon(nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	if got := ClosePolygon([]Point{{1, 2}}); len(got) != 1 {
		t.Fatalf("single vertex is already closed, got %v", got)
	}
}

func TestClosePolygon_NaNVertexClosedOnce(t *testing.T) {
	v := []Point{{Lat: math.NaN(), Lon: 1}, {Lat: 2, Lon: 3}}
	once := ClosePolygon(v)
	twice := ClosePolygon(once)
	if len(once) != 3 || len(twice) != 3 {
		t.Fatalf("expected one closing vertex, got len(once)=%d len(twice)=%d", len(once), len(twice))
	}
	if !IsClosed(once) {
		t.Fatalf("expected ring starting at NaN to report closed")
	}
}

func TestClosePolygon_Idempotent(t *testing.T) {
	f := func(lats, lons []float64) bool {
		n := min(len(lats), len(lons))
		if n == 0 {
			return true
		}
		v := make([]Point, n)
		for i := 0; i < n; i++ {
			v[i] = Point{Lat: lats[i], Lon: lons[i]}
		}
		once := ClosePolygon(v)
		return Equal(ClosePolygon(once), once) && IsClosed(once)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

func TestPointInPolygon_TranslationInvariant(t *testing.T) {
	f := func(dx, dy int8) bool {
		shift := func(p Point) Point { return Point{p.Lat + float64(dy), p.Lon + float64(dx)} }
		poly := square()
		moved := make([]Point, len(poly))
		for i, p := range poly {
			moved[i] = shift(p)
		}
		return PointInPolygon(shift(Point{5, 5}), moved) && !PointInPolygon(shift(Point{50, 50}), moved)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(Point{90, -180}); err != nil {
		t.Fatalf("expected boundary point to be valid, got %v", err)
	}
	for _, p := range []Point{{91, 0}, {0, 181}, {-90.5, 0}, {math.NaN(), 0}, {0, math.Inf(1)}} {
		if err := Validate(p); !errors.Is(err, ErrInvalidPoint) {
			t.Fatalf("expected ErrInvalidPoint for %v, got %v", p, err)
		}
	}
}

func TestDistanceAndPathLength(t *testing.T) {
	// One degree of latitude is roughly 111.2 km.
	d := Distance(Point{0, 0}, Point{1, 0})
	if d < 111000 || d > 111400 {
		t.Fatalf("unexpected distance for one degree: %f", d)
	}
	if Distance(Point{51.5, -0.12}, Point{51.5, -0.12}) != 0 {
		t.Fatalf("expected zero distance for identical points")
	}

	l := PathLength([]Point{{0, 0}, {1, 0}, {2, 0}})
	if math.Abs(l-2*d) > 1 {
		t.Fatalf("expected path length %f, got %f", 2*d, l)
	}
	if PathLength([]Point{{0, 0}}) != 0 {
		t.Fatalf("single point path has no length")
	}
}

func TestNearestSegment(t *testing.T) {
	path := []Point{{0, 0}, {0, 10}, {10, 10}}
	if got := NearestSegment(path, Point{1, 5}); got != 0 {
		t.Fatalf("expected segment 0, got %d", got)
	}
	if got := NearestSegment(path, Point{5, 11}); got != 1 {
		t.Fatalf("expected segment 1, got %d", got)
	}
	if got := NearestSegment(path[:1], Point{0, 0}); got != -1 {
		t.Fatalf("expected -1 for single point, got %d", got)
	}
}

func TestPointJSON(t *testing.T) {
	b, err := json.Marshal(Point{Lat: 51.5, Lon: -0.12})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "[51.5,-0.12]" {
		t.Fatalf("expected [lat, lon] array, got %s", b)
	}

	var p Point
	if err := json.Unmarshal([]byte("[1.5, 2.5]"), &p); err != nil {
		t.Fatal(err)
	}
	if p.Lat != 1.5 || p.Lon != 2.5 {
		t.Fatalf("unexpected point %v", p)
	}
	if err := json.Unmarshal([]byte("[1.5]"), &p); !errors.Is(err, ErrInvalidPoint) {
		t.Fatalf("expected ErrInvalidPoint, got %v", err)
	}
}

func TestPolygonFeature_SwapsToLonLat(t *testing.T) {
	f := PolygonFeature(square(), map[string]any{"kind": "selection"})
	if f.Geometry == nil || !f.Geometry.IsPolygon() {
		t.Fatalf("expected polygon geometry, got %+v", f.Geometry)
	}
	ring := f.Geometry.Polygon[0]
	if len(ring) != 5 {
		t.Fatalf("expected closed ring of 5 positions, got %d", len(ring))
	}
	if ring[1][0] != 10 || ring[1][1] != 0 {
		t.Fatalf("expected [lon, lat] ordering, got %v", ring[1])
	}
	if f.Properties["kind"] != "selection" {
		t.Fatalf("expected property to be set, got %v", f.Properties)
	}

	open := PolygonFeature([]Point{{0, 0}, {0, 10}}, nil)
	if !open.Geometry.IsLineString() {
		t.Fatalf("expected line string for in-progress drawing")
	}
}

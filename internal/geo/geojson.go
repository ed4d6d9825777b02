package geo

import (
	geojson "github.com/paulmach/go.geojson"
)

// GeoJSON orders coordinates [lon, lat]; the swap happens only in this file.

func toPosition(p Point) []float64 {
	return []float64{p.Lon, p.Lat}
}

func toPositions(path []Point) [][]float64 {
	out := make([][]float64, 0, len(path))
	for _, p := range path {
		out = append(out, toPosition(p))
	}
	return out
}

func PointFeature(p Point, props map[string]any) *geojson.Feature {
	f := geojson.NewPointFeature(toPosition(p))
	setProperties(f, props)
	return f
}

func PathFeature(path []Point, props map[string]any) *geojson.Feature {
	f := geojson.NewLineStringFeature(toPositions(path))
	setProperties(f, props)
	return f
}

// PolygonFeature renders a closed ring. Rings with fewer than three distinct vertices
// are rendered as a line string so an in-progress drawing stays visible.
func PolygonFeature(vertices []Point, props map[string]any) *geojson.Feature {
	if DistinctVertices(vertices) < 3 {
		return PathFeature(vertices, props)
	}
	f := geojson.NewPolygonFeature([][][]float64{toPositions(ClosePolygon(vertices))})
	setProperties(f, props)
	return f
}

func setProperties(f *geojson.Feature, props map[string]any) {
	for k, v := range props {
		f.SetProperty(k, v)
	}
}

package query

import (
	"fmt"
	"math"
	"strings"
)

// wktQuery builds the spatial-intersection clause for a WKT geometry.
func wktQuery(field, wkt string) string {
	return field + `:"Intersects(` + wkt + `)"`
}

// buildSpatialQueryString produces the spatial filter clause implied by the
// request's circle or polygon parameters, or "" when there are none.
func (r *Rewriter) buildSpatialQueryString(req *SearchRequest) string {
	switch {
	case req == nil:
		return ""
	case req.Lat != nil && req.Lon != nil && req.Radius != nil:
		wkt := circleWkt(*req.Lon, *req.Lat, *req.Radius, r.circleSegments)
		return wktQuery(r.spatialField, wkt)
	case req.Wkt != "":
		return wktQuery(r.spatialField, req.Wkt)
	}
	return ""
}

// circleWkt approximates a circle of the given radius in km around a point
// as a closed WKT polygon.
func circleWkt(longitude, latitude, radiusKm float64, segments int) string {
	if segments <= 0 {
		segments = 18
	}
	radius := radiusKm * 1000

	belowMinus180 := false
	step := 360 / segments
	points := make([][2]float64, 0, segments)
	for i := 0; i < 360; i += step {
		p := computeOffset(latitude, 0, radius, i)
		if p[0]+longitude < -180 {
			belowMinus180 = true
		}
		points = append(points, p)
	}

	// longitude translation across the antimeridian
	dist := longitude
	if belowMinus180 {
		dist += 360
	}

	var s strings.Builder
	s.WriteString("POLYGON((")
	for _, p := range points {
		fmt.Fprintf(&s, "%g %g,", p[0]+dist, p[1])
	}
	// close the ring on the first point
	fmt.Fprintf(&s, "%g %g", points[0][0]+dist, points[0][1])
	s.WriteString("))")
	return s.String()
}

func computeOffset(lat, lng, radius float64, angle int) [2]float64 {
	b := radius / 6378137.0
	c := float64(angle) * (math.Pi / 180.0)
	e := lat * (math.Pi / 180.0)
	d := math.Cos(b)
	b = math.Sin(b)
	f := math.Sin(e)
	e = math.Cos(e)
	g := d*f + b*e*math.Cos(c)

	x := (lng*(math.Pi/180.0) + math.Atan2(b*e*math.Sin(c), d-f*g)) / (math.Pi / 180.0)
	y := math.Asin(g) / (math.Pi / 180.0)

	return [2]float64{x, y}
}

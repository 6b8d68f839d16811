package planitosm

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	earthRadius = 6370.986884258304
	pi180       = math.Pi / 180.0
	pi180Rev    = 180.0 / math.Pi
)

// degreesToRadians deg = r * pi / 180
func degreesToRadians(d float64) float64 {
	return d * pi180
}

// radiansTodegrees r = deg  * 180 / pi
func radiansTodegrees(d float64) float64 {
	return d * pi180Rev
}

// greatCircleDistance returns distance between two geo-points (kilometers)
func greatCircleDistance(p, q orb.Point) float64 {
	lat1 := degreesToRadians(p.Lat())
	lon1 := degreesToRadians(p.Lon())
	lat2 := degreesToRadians(q.Lat())
	lon2 := degreesToRadians(q.Lon())
	diffLat := lat2 - lat1
	diffLon := lon2 - lon1
	a := math.Pow(math.Sin(diffLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(diffLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return c * earthRadius
}

// getSphericalLength returns length for given line (kilometers)
func getSphericalLength(line orb.LineString) float64 {
	totalLength := 0.0
	if len(line) < 2 {
		return totalLength
	}
	for i := 1; i < len(line); i++ {
		totalLength += greatCircleDistance(line[i-1], line[i])
	}
	return totalLength
}

// findDistance returns distance between two points assuming they are
// Euclidean (Lon == X, Lat == Y)
func findDistance(p, q orb.Point) float64 {
	xdistance := p.Lon() - q.Lon()
	ydistance := p.Lat() - q.Lat()
	return math.Sqrt(xdistance*xdistance + ydistance*ydistance)
}

// splitLineAtPosition splits the line at the coordinate with given index and
// returns both halves. The split coordinate is shared: it is the last
// coordinate of the first half and the first coordinate of the second half.
// The index must be interior, otherwise one of the halves degenerates to a
// single point.
func splitLineAtPosition(line orb.LineString, idx int) (orb.LineString, orb.LineString) {
	first := make(orb.LineString, idx+1)
	copy(first, line[:idx+1])
	second := make(orb.LineString, len(line)-idx)
	copy(second, line[idx:])
	return first, second
}

// findMiddleCoordinatePosition returns the interior coordinate index closest
// to the halfway point of the line (by accumulated planar length). Used to
// pick a joint for self-breaking circular geometries that have no crossing
// of their own.
func findMiddleCoordinatePosition(line orb.LineString) int {
	if len(line) < 3 {
		return coordinatePositionNotFound
	}
	halfLength := 0.0
	for i := 1; i < len(line); i++ {
		halfLength += findDistance(line[i-1], line[i])
	}
	halfLength /= 2.0

	accumulated := 0.0
	for i := 1; i < len(line)-1; i++ {
		accumulated += findDistance(line[i-1], line[i])
		if accumulated >= halfLength {
			return i
		}
	}
	return len(line) / 2
}

// distanceToSegment returns the planar distance from p to the segment [a, b].
func distanceToSegment(p, a, b orb.Point) float64 {
	dx := b.Lon() - a.Lon()
	dy := b.Lat() - a.Lat()
	if dx == 0 && dy == 0 {
		return findDistance(p, a)
	}
	t := ((p.Lon()-a.Lon())*dx + (p.Lat()-a.Lat())*dy) / (dx*dx + dy*dy)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	projection := orb.Point{a.Lon() + t*dx, a.Lat() + t*dy}
	return findDistance(p, projection)
}

// distanceToLineString returns the planar distance from the point to the
// closest segment of the line.
func distanceToLineString(point orb.Point, line orb.LineString) float64 {
	if len(line) == 0 {
		return math.Inf(1)
	}
	if len(line) == 1 {
		return findDistance(point, line[0])
	}
	best := math.Inf(1)
	for i := 1; i < len(line); i++ {
		if d := distanceToSegment(point, line[i-1], line[i]); d < best {
			best = d
		}
	}
	return best
}

// boundAround returns a search envelope centered at the location, expanded
// by radiusMeters in each direction. The degree delta per meter is
// approximated at the location's latitude; envelopes are coarse by contract
// so callers re-check candidates against exact geometry.
func boundAround(location Location, radiusMeters float64) orb.Bound {
	latDelta := radiusMeters / 111132.954
	lonScale := math.Cos(degreesToRadians(location.Lat()))
	if lonScale < 0.01 {
		lonScale = 0.01
	}
	lonDelta := radiusMeters / (111132.954 * lonScale)
	return orb.Bound{
		Min: orb.Point{location.Lon() - lonDelta, location.Lat() - latDelta},
		Max: orb.Point{location.Lon() + lonDelta, location.Lat() + latDelta},
	}
}

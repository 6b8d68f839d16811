package planitosm

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// Location is the canonical lookup key of the engine: a 2D point in
// lon/lat order. Two locations denote the same entity iff their coordinates
// are exactly equal, which makes Location usable as a map key. Locations
// usually originate from an OSM node but may be synthetic (e.g. an inferred
// stop position halfway along a link).
type Location = orb.Point

func locationFromOSMNode(node *osm.Node) Location {
	return orb.Point{node.Lon, node.Lat}
}

func locationString(location Location) string {
	return fmt.Sprintf("(%f, %f)", location.Lon(), location.Lat())
}

// coordinatePositionNotFound is returned by findCoordinatePosition when the
// location does not lie on any coordinate of the inspected geometry.
const coordinatePositionNotFound = -1

// findCoordinatePosition returns the index of the geometry coordinate equal
// to the given location, or coordinatePositionNotFound. Matching is by exact
// coordinate equality since link geometries and locations are built from the
// same OSM node coordinates.
func findCoordinatePosition(geom orb.LineString, location Location) int {
	for idx, pt := range geom {
		if pt == location {
			return idx
		}
	}
	return coordinatePositionNotFound
}

// findClosestCoordinatePosition returns the index of the geometry coordinate
// closest to the given location together with its squared planar distance.
// Used when reconciling a location against post-break replacement geometries
// where an exact hit is expected but float round trips are not trusted.
func findClosestCoordinatePosition(geom orb.LineString, location Location) (int, float64) {
	closestIdx := coordinatePositionNotFound
	closestDistance := -1.0
	for idx, pt := range geom {
		dx := pt[0] - location[0]
		dy := pt[1] - location[1]
		d := dx*dx + dy*dy
		if closestIdx == coordinatePositionNotFound || d < closestDistance {
			closestIdx = idx
			closestDistance = d
		}
	}
	return closestIdx, closestDistance
}

// isExtremePosition reports whether the coordinate index is the first or the
// last coordinate of the geometry.
func isExtremePosition(geom orb.LineString, idx int) bool {
	return idx == 0 || idx == len(geom)-1
}

// isInteriorCoordinate reports whether the location lies strictly between
// the first and last coordinate of the geometry.
func isInteriorCoordinate(geom orb.LineString, location Location) bool {
	idx := findCoordinatePosition(geom, location)
	if idx == coordinatePositionNotFound {
		return false
	}
	return !isExtremePosition(geom, idx)
}

package planitosm

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestGreatCircleDistance(t *testing.T) {
	p1 := orb.Point{37.6417350769043, 55.751849391735284}
	p2 := orb.Point{37.668514251708984, 55.73261980350401}
	res := 2.71693096539 // kilometers
	gcd := greatCircleDistance(p1, p2)
	if Round(gcd, 0.0005) != Round(res, 0.0005) {
		t.Errorf("Great circle dist must be %f, but got %f", res, gcd)
	}
}

func Round(x, unit float64) float64 {
	if x > 0 {
		return float64(int64(x/unit+0.5)) * unit
	}
	return float64(int64(x/unit-0.5)) * unit
}

func TestSphericalLength(t *testing.T) {
	line := orb.LineString{
		{37.6417350769043, 55.751849391735284},
		{37.668514251708984, 55.73261980350401},
	}
	segment := greatCircleDistance(line[0], line[1])
	length := getSphericalLength(line)
	if Round(length, 0.0005) != Round(segment, 0.0005) {
		t.Errorf("Two-point line length must equal the segment distance %f, but got %f", segment, length)
	}
	if getSphericalLength(orb.LineString{line[0]}) != 0.0 {
		t.Errorf("Degenerate line must have zero length")
	}
}

func TestSplitLineAtPosition(t *testing.T) {
	line := orb.LineString{{0.0, 0.0}, {1.0, 0.0}, {2.0, 0.0}, {3.0, 0.0}}
	first, second := splitLineAtPosition(line, 2)
	if len(first) != 3 {
		t.Errorf("First half must have 3 coordinates, but got %d", len(first))
	}
	if len(second) != 2 {
		t.Errorf("Second half must have 2 coordinates, but got %d", len(second))
	}
	if first[len(first)-1] != second[0] {
		t.Errorf("Halves must share the split coordinate, but got %v and %v", first[len(first)-1], second[0])
	}
	if first[len(first)-1] != (orb.Point{2.0, 0.0}) {
		t.Errorf("Split coordinate must be (2, 0), but got %v", first[len(first)-1])
	}
}

func TestFindMiddleCoordinatePosition(t *testing.T) {
	line := orb.LineString{{0.0, 0.0}, {1.0, 0.0}, {2.0, 0.0}, {3.0, 0.0}, {4.0, 0.0}}
	idx := findMiddleCoordinatePosition(line)
	if idx != 2 {
		t.Errorf("Middle coordinate index must be 2, but got %d", idx)
	}
	if findMiddleCoordinatePosition(orb.LineString{{0.0, 0.0}, {1.0, 0.0}}) != coordinatePositionNotFound {
		t.Errorf("Two-coordinate line has no interior middle coordinate")
	}
}

func TestDistanceToLineString(t *testing.T) {
	line := orb.LineString{{0.0, 0.0}, {2.0, 0.0}}
	d := distanceToLineString(orb.Point{1.0, 1.0}, line)
	if Round(d, 0.000001) != 1.0 {
		t.Errorf("Distance to segment interior must be 1.0, but got %f", d)
	}
	d = distanceToLineString(orb.Point{3.0, 0.0}, line)
	if Round(d, 0.000001) != 1.0 {
		t.Errorf("Distance beyond segment end must be 1.0, but got %f", d)
	}
}

func TestBoundAroundContainsCenter(t *testing.T) {
	location := Location{13.4, 52.52}
	bound := boundAround(location, 40.0)
	if !bound.Contains(location) {
		t.Errorf("Envelope must contain its center")
	}
	if bound.Min[0] >= location[0] || bound.Max[0] <= location[0] {
		t.Errorf("Envelope must extend on both sides of the center longitude")
	}
	width := bound.Max[0] - bound.Min[0]
	if width <= 0.0 || width > 0.01 {
		t.Errorf("Envelope width for 40 meters looks wrong: %f degrees", width)
	}
}

package planitosm

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

/* Links stuff */

type NetworkLinkID int

// NetworkLink is a directed edge with an immutable geometry, tagged with the
// OSM way id it was derived from. The OSM way id is deliberately not unique:
// every piece produced by breaking a way keeps the original id, and the
// brokenWays bookkeeping of the per-layer state resolves an id to the
// current set of pieces.
type NetworkLink struct {
	name         string
	geom         orb.LineString
	lengthMeters float64
	ID           NetworkLinkID
	osmWayID     osm.WayID
	linkType     LinkType
	linkClass    LinkClass
	layerID      NetworkLayerID
	sourceNodeID NetworkNodeID
	targetNodeID NetworkNodeID
}

func networkLinkFromOSMWay(id NetworkLinkID, sourceNodeID, targetNodeID NetworkNodeID, wayOSM *WayData, geom orb.LineString) *NetworkLink {
	link := NetworkLink{
		name:         wayOSM.name,
		geom:         geom,
		lengthMeters: getSphericalLength(geom) * 1000.0,
		ID:           id,
		osmWayID:     wayOSM.ID,
		linkType:     wayOSM.linkType,
		linkClass:    wayOSM.linkClass,
		sourceNodeID: sourceNodeID,
		targetNodeID: targetNodeID,
	}
	return &link
}

// isCircular reports whether first and last geometry coordinates coincide
// (roundabout or closed loop drawn as a single way).
func (link *NetworkLink) isCircular() bool {
	if len(link.geom) < 3 {
		return false
	}
	return link.geom[0] == link.geom[len(link.geom)-1]
}

// hasExtremity reports whether the location coincides with the link's first
// or last geometry coordinate.
func (link *NetworkLink) hasExtremity(location Location) bool {
	return link.geom[0] == location || link.geom[len(link.geom)-1] == location
}

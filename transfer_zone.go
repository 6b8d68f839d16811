package planitosm

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// EntityType is the kind of OSM entity a transfer zone originates from.
// Together with the OSM id it forms the zone's identity: node and way id
// spaces overlap in OSM, so the id alone is ambiguous.
type EntityType uint16

const (
	ENTITY_NODE = EntityType(iota + 1)
	ENTITY_WAY
)

func (iotaIdx EntityType) String() string {
	return [...]string{"node", "way"}[iotaIdx-1]
}

type zoneKey struct {
	osmID      int64
	entityType EntityType
}

// TransferZone is the spatial footprint of a public-transport platform or
// station. A zone starts out incomplete and becomes complete exactly once,
// when the first connectoid ties it to the network.
type TransferZone struct {
	name        string
	kind        PtEntityKind
	key         zoneKey
	geom        orb.Geometry
	complete    bool
	connectoids []*DirectedConnectoid
}

func transferZoneFromOSMNode(node *osm.Node, kind PtEntityKind) *TransferZone {
	return &TransferZone{
		name: node.Tags.Find("name"),
		kind: kind,
		key:  zoneKey{osmID: int64(node.ID), entityType: ENTITY_NODE},
		geom: locationFromOSMNode(node),
	}
}

func transferZoneFromOSMWay(way *WayData, geom orb.LineString, kind PtEntityKind) *TransferZone {
	return &TransferZone{
		name: way.name,
		kind: kind,
		key:  zoneKey{osmID: int64(way.ID), entityType: ENTITY_WAY},
		geom: geom,
	}
}

func (zone *TransferZone) bound() orb.Bound {
	return zone.geom.Bound()
}

// centroid is the representative point used for distance ranking when
// matching stop positions against candidate zones.
func (zone *TransferZone) centroid() orb.Point {
	switch geom := zone.geom.(type) {
	case orb.Point:
		return geom
	case orb.LineString:
		bound := geom.Bound()
		return bound.Center()
	default:
		return zone.geom.Bound().Center()
	}
}

func (zone *TransferZone) addConnectoid(connectoid *DirectedConnectoid) {
	for _, present := range zone.connectoids {
		if present == connectoid {
			return
		}
	}
	zone.connectoids = append(zone.connectoids, connectoid)
}

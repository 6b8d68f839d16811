package planitosm

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ZoningReaderState mirrors the per-layer reader state from the
// public-transport perspective: incomplete vs. complete transfer zones,
// connectoids by location and layer, and a live spatial index of current
// links that tracks network-side breaking through the link change listener
// contract.
type ZoningReaderState struct {
	log *zap.Logger

	incompleteZones map[zoneKey]*TransferZone
	incompleteIndex *spatialIndex[*TransferZone]
	completeZones   map[zoneKey]*TransferZone
	completeIndex   *spatialIndex[*TransferZone]

	connectoids      map[Location]map[NetworkLayerID]*DirectedConnectoid
	lastConnectoidID ConnectoidID

	liveLinks *spatialIndex[*NetworkLink]
}

func newZoningReaderState(log *zap.Logger) *ZoningReaderState {
	return &ZoningReaderState{
		log:             log,
		incompleteZones: make(map[zoneKey]*TransferZone),
		incompleteIndex: newSpatialIndex[*TransferZone](),
		completeZones:   make(map[zoneKey]*TransferZone),
		completeIndex:   newSpatialIndex[*TransferZone](),
		connectoids:     make(map[Location]map[NetworkLayerID]*DirectedConnectoid),
		liveLinks:       newSpatialIndex[*NetworkLink](),
	}
}

// RegisterIncompleteZone adds a freshly created zone to the incomplete
// collection and its spatial index. A zone key is never allowed in both
// collections: re-registering a completed zone is rejected.
func (state *ZoningReaderState) RegisterIncompleteZone(zone *TransferZone) error {
	if _, ok := state.completeZones[zone.key]; ok {
		return errors.Errorf("transfer zone %s %d already completed", zone.key.entityType, zone.key.osmID)
	}
	if existing, ok := state.incompleteZones[zone.key]; ok && existing != zone {
		state.log.Warn("replacing incomplete transfer zone",
			zap.String("entityType", zone.key.entityType.String()),
			zap.Int64("osmId", zone.key.osmID))
		state.incompleteIndex.remove(existing)
	}
	state.incompleteZones[zone.key] = zone
	state.incompleteIndex.insert(zone.bound(), zone)
	return nil
}

// PromoteToComplete moves a zone from the incomplete collection to the
// complete one. The transition happens exactly once; promoting an already
// complete zone is a logic error, not a silent no-op.
func (state *ZoningReaderState) PromoteToComplete(zone *TransferZone) error {
	if zone.complete {
		return errors.Errorf("transfer zone %s %d promoted twice", zone.key.entityType, zone.key.osmID)
	}
	if _, ok := state.incompleteZones[zone.key]; !ok {
		return errors.Errorf("transfer zone %s %d not registered as incomplete", zone.key.entityType, zone.key.osmID)
	}
	delete(state.incompleteZones, zone.key)
	state.incompleteIndex.remove(zone)
	zone.complete = true
	state.completeZones[zone.key] = zone
	state.completeIndex.insert(zone.bound(), zone)
	return nil
}

// FindIncompleteZonesNear returns the incomplete zones whose envelope
// intersects the search envelope, closest centroid first.
func (state *ZoningReaderState) FindIncompleteZonesNear(bound orb.Bound) []*TransferZone {
	zones := state.incompleteIndex.query(bound)
	center := bound.Center()
	sort.Slice(zones, func(i, j int) bool {
		return findDistance(zones[i].centroid(), center) < findDistance(zones[j].centroid(), center)
	})
	return zones
}

// FindCompleteZonesNear returns the completed zones whose envelope
// intersects the search envelope, closest centroid first. Used when a second
// stop position resolves near a zone its sibling already completed.
func (state *ZoningReaderState) FindCompleteZonesNear(bound orb.Bound) []*TransferZone {
	zones := state.completeIndex.query(bound)
	center := bound.Center()
	sort.Slice(zones, func(i, j int) bool {
		return findDistance(zones[i].centroid(), center) < findDistance(zones[j].centroid(), center)
	})
	return zones
}

func (state *ZoningReaderState) incompleteZone(entityType EntityType, osmID int64) *TransferZone {
	return state.incompleteZones[zoneKey{osmID: osmID, entityType: entityType}]
}

func (state *ZoningReaderState) completeZone(entityType EntityType, osmID int64) *TransferZone {
	return state.completeZones[zoneKey{osmID: osmID, entityType: entityType}]
}

// ConnectoidAt returns the connectoid registered for the location on the
// given layer, nil if none exists yet.
func (state *ZoningReaderState) ConnectoidAt(location Location, layerID NetworkLayerID) *DirectedConnectoid {
	if byLayer, ok := state.connectoids[location]; ok {
		return byLayer[layerID]
	}
	return nil
}

// CreateConnectoid ties the access node to the zone, registering the result
// under the node's location and layer. Duplicate creation for the same
// (location, layer) pair attaches the zone to the existing connectoid
// instead: an access point may serve several zones but exists only once.
func (state *ZoningReaderState) CreateConnectoid(layerID NetworkLayerID, accessNode *NetworkNode, zone *TransferZone) *DirectedConnectoid {
	location := accessNode.geom
	if existing := state.ConnectoidAt(location, layerID); existing != nil {
		zone.addConnectoid(existing)
		return existing
	}
	connectoid := &DirectedConnectoid{
		ID:         state.lastConnectoidID,
		layerID:    layerID,
		accessNode: accessNode,
		zone:       zone,
	}
	state.lastConnectoidID++
	byLayer, ok := state.connectoids[location]
	if !ok {
		byLayer = make(map[NetworkLayerID]*DirectedConnectoid)
		state.connectoids[location] = byLayer
	}
	byLayer[layerID] = connectoid
	zone.addConnectoid(connectoid)
	return connectoid
}

// FindLinksNear returns current links whose envelope intersects the search
// envelope. The live index reflects every break that happened since the
// links were first indexed.
func (state *ZoningReaderState) FindLinksNear(bound orb.Bound) []*NetworkLink {
	return state.liveLinks.query(bound)
}

// addLinksToIndex and removeLinksFromIndex keep the live link index in sync
// with the network layers; they also implement the layer's link change
// listener so breaking during either phase propagates automatically.
func (state *ZoningReaderState) addLinksToIndex(links []*NetworkLink) {
	for _, link := range links {
		state.liveLinks.insert(link.geom.Bound(), link)
	}
}

func (state *ZoningReaderState) removeLinksFromIndex(links []*NetworkLink) {
	for _, link := range links {
		state.liveLinks.remove(link)
	}
}

func (state *ZoningReaderState) onLinksAdded(links []*NetworkLink) {
	state.addLinksToIndex(links)
}

func (state *ZoningReaderState) onLinksRemoved(links []*NetworkLink) {
	state.removeLinksFromIndex(links)
}

// CompleteZones returns the completed transfer zones in deterministic order.
func (state *ZoningReaderState) CompleteZones() []*TransferZone {
	return sortedZones(state.completeZones)
}

// IncompleteZones returns the zones still awaiting a connectoid in
// deterministic order.
func (state *ZoningReaderState) IncompleteZones() []*TransferZone {
	return sortedZones(state.incompleteZones)
}

func sortedZones(zones map[zoneKey]*TransferZone) []*TransferZone {
	out := make([]*TransferZone, 0, len(zones))
	for _, zone := range zones {
		out = append(out, zone)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].key.entityType != out[j].key.entityType {
			return out[i].key.entityType < out[j].key.entityType
		}
		return out[i].key.osmID < out[j].key.osmID
	})
	return out
}

// Connectoids returns all connectoids ordered by id.
func (state *ZoningReaderState) Connectoids() []*DirectedConnectoid {
	out := make([]*DirectedConnectoid, 0)
	for _, byLayer := range state.connectoids {
		for _, connectoid := range byLayer {
			out = append(out, connectoid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reset clears all collections and indices for reuse between parses.
func (state *ZoningReaderState) Reset() {
	state.incompleteZones = make(map[zoneKey]*TransferZone)
	state.incompleteIndex.reset()
	state.completeZones = make(map[zoneKey]*TransferZone)
	state.completeIndex.reset()
	state.connectoids = make(map[Location]map[NetworkLayerID]*DirectedConnectoid)
	state.lastConnectoidID = 0
	state.liveLinks.reset()
}

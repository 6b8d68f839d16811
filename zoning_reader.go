package planitosm

import (
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ZoningReader runs the zoning phase of the conversion on top of the bridge
// produced by the network phase: it classifies public-transport entities,
// builds transfer zones, resolves stop positions against the current link
// set (triggering further breaking where a stop sits on a link interior) and
// ties zones to the network through connectoids.
type ZoningReader struct {
	filename           string
	ptFilter           *PtFilter
	searchRadiusMeters float64
	log                *zap.Logger

	bridge        *NetworkToZoningReaderData
	state         *ZoningReaderState
	stopAreaZones map[osm.NodeID][]zoneKey
	listening     bool
}

func NewZoningReader(filename string, bridge *NetworkToZoningReaderData, options ...ZoningReaderOption) (*ZoningReader, error) {
	if filename == "" {
		return nil, errors.New("no input file provided")
	}
	if bridge == nil {
		return nil, errors.New("no network phase data to build zoning on")
	}
	reader := &ZoningReader{
		filename:           filename,
		ptFilter:           DefaultPtFilter(),
		searchRadiusMeters: defaultSearchRadiusMeters,
		log:                zap.NewNop(),
		bridge:             bridge,
	}
	for _, option := range options {
		option(reader)
	}
	reader.state = newZoningReaderState(reader.log)
	reader.stopAreaZones = make(map[osm.NodeID][]zoneKey)
	return reader, nil
}

// Read runs the full zoning phase and returns the populated zoning state.
func (reader *ZoningReader) Read() (*ZoningReaderState, error) {
	data, err := readOSM(reader.filename, reader.log)
	if err != nil {
		return nil, errors.Wrap(err, "can't read OSM data for zoning phase")
	}
	return reader.process(data)
}

// process is the file-independent part of Read; tests feed it hand-built raw
// data.
func (reader *ZoningReader) process(data *OSMDataRaw) (*ZoningReaderState, error) {
	st := time.Now()
	reader.attachToNetwork()
	reader.indexStopAreas(data)

	pendingStops := reader.registerZones(data)
	for _, stop := range pendingStops {
		if err := reader.resolveStopPosition(stop); err != nil {
			return nil, err
		}
	}
	if err := reader.matchStandaloneZones(); err != nil {
		return nil, err
	}

	reader.log.Info("zoning phase done",
		zap.Int("completeZones", len(reader.state.completeZones)),
		zap.Int("incompleteZones", len(reader.state.incompleteZones)),
		zap.Duration("took", time.Since(st)))
	return reader.state, nil
}

// attachToNetwork registers the zoning state as link change listener on every
// layer and seeds the live link index with the current link set, so breaking
// triggered during this phase is reflected immediately.
func (reader *ZoningReader) attachToNetwork() {
	for _, layer := range reader.bridge.PopulatedNetwork().Layers() {
		if !reader.listening {
			layer.registerLinkChangeListener(reader.state)
		}
		reader.state.addLinksToIndex(layer.linksToSlice())
	}
	reader.listening = true
	reader.log.Info("live link index seeded", zap.Int("links", reader.state.liveLinks.size()))
}

func (reader *ZoningReader) indexStopAreas(data *OSMDataRaw) {
	for _, stopArea := range data.stopAreas {
		for _, stopNodeID := range stopArea.stopNodes {
			reader.stopAreaZones[stopNodeID] = append(reader.stopAreaZones[stopNodeID], stopArea.platformIDs...)
		}
	}
}

// registerZones walks all tagged nodes and ways, registering platform and
// station zones as incomplete and collecting stop positions for resolution
// once every candidate zone is known.
func (reader *ZoningReader) registerZones(data *OSMDataRaw) []*osm.Node {
	taggedNodes := make([]*Node, 0)
	for _, node := range data.nodes {
		if len(node.node.Tags) > 0 {
			taggedNodes = append(taggedNodes, node)
		}
	}
	sort.Slice(taggedNodes, func(i, j int) bool { return taggedNodes[i].ID < taggedNodes[j].ID })

	pendingStops := make([]*osm.Node, 0)
	for _, node := range taggedNodes {
		kind := reader.ptFilter.Classify(node.node.Tags)
		switch kind {
		case PT_STOP_POSITION:
			pendingStops = append(pendingStops, &node.node)
		case PT_PLATFORM, PT_STATION:
			if err := reader.state.RegisterIncompleteZone(transferZoneFromOSMNode(&node.node, kind)); err != nil {
				reader.log.Warn("can't register transfer zone from node",
					zap.Int64("osmNodeId", int64(node.ID)),
					zap.Error(err))
			}
		}
	}

	for _, way := range data.waysRaw {
		kind := reader.ptFilter.Classify(way.TagMap)
		if kind != PT_PLATFORM && kind != PT_STATION {
			continue
		}
		geom := reader.wayZoneGeometry(way, data)
		if len(geom) < 2 {
			reader.log.Warn("platform way degenerated to fewer than 2 coordinates, skipping",
				zap.Int64("osmWayId", int64(way.ID)))
			continue
		}
		if err := reader.state.RegisterIncompleteZone(transferZoneFromOSMWay(way, geom, kind)); err != nil {
			reader.log.Warn("can't register transfer zone from way",
				zap.Int64("osmWayId", int64(way.ID)),
				zap.Error(err))
		}
	}
	return pendingStops
}

func (reader *ZoningReader) wayZoneGeometry(way *WayData, data *OSMDataRaw) orb.LineString {
	geom := make(orb.LineString, 0, len(way.Nodes))
	for _, nodeID := range way.Nodes {
		node, ok := data.nodes[nodeID]
		if !ok {
			continue
		}
		geom = append(geom, node.location())
	}
	return geom
}

// resolveStopPosition turns one stop position node into a connectoid: pick
// the layer the stop serves, ensure a network node exists at its location
// (breaking the link it is internal to when needed), and tie the node to a
// transfer zone, promoting the zone on its first connectoid.
func (reader *ZoningReader) resolveStopPosition(stop *osm.Node) error {
	location := locationFromOSMNode(stop)
	layer := reader.layerForStop(stop, location)
	if layer == nil {
		reader.log.Warn("no layer can serve stop position, skipping",
			zap.Int64("osmNodeId", int64(stop.ID)))
		return nil
	}
	layerState := reader.bridge.LayerState(layer)
	if !layerState.IsLocationPresent(location) {
		// Expected for truncated extracts: the stop's way was never parsed.
		reader.log.Warn("stop position not on any parsed link, skipping",
			zap.Int64("osmNodeId", int64(stop.ID)),
			zap.String("location", locationString(location)),
			zap.String("layer", layer.name))
		return nil
	}

	if _, err := reader.bridge.reconcilerFor(layer).BreakLinksAtLocation(location); err != nil {
		return errors.Wrapf(err, "can't break links for stop position %d", int64(stop.ID))
	}
	accessNode := layerState.NodeAt(location)
	if accessNode == nil {
		reader.log.Warn("stop position could not be promoted to a network node, skipping",
			zap.Int64("osmNodeId", int64(stop.ID)),
			zap.String("location", locationString(location)))
		return nil
	}

	if existing := reader.state.ConnectoidAt(location, layer.ID); existing != nil {
		return nil
	}

	zone := reader.zoneForStop(stop, location)
	if zone == nil {
		// No platform mapped anywhere near: the stop node stands in for its
		// own waiting area.
		zone = transferZoneFromOSMNode(stop, PT_PLATFORM)
		if err := reader.state.RegisterIncompleteZone(zone); err != nil {
			return errors.Wrapf(err, "can't register inferred transfer zone for stop position %d", int64(stop.ID))
		}
		reader.log.Info("no transfer zone near stop position, inferred one from the stop itself",
			zap.Int64("osmNodeId", int64(stop.ID)))
	}

	reader.state.CreateConnectoid(layer.ID, accessNode, zone)
	if !zone.complete {
		if err := reader.state.PromoteToComplete(zone); err != nil {
			return errors.Wrapf(err, "can't complete transfer zone for stop position %d", int64(stop.ID))
		}
	}
	return nil
}

// layerForStop picks the layer a stop position should attach to: rail-tagged
// stops prefer the railway layer, everything else the road layer, falling
// back to whichever layer actually knows the location.
func (reader *ZoningReader) layerForStop(stop *osm.Node, location Location) *NetworkLayer {
	network := reader.bridge.PopulatedNetwork()
	var preferred *NetworkLayer
	if stop.Tags.Find("railway") != "" {
		preferred = network.LayerFor(NETWORK_RAIL)
	} else {
		preferred = network.LayerFor(NETWORK_ROAD)
	}
	if preferred != nil && reader.bridge.LayerState(preferred).IsLocationPresent(location) {
		return preferred
	}
	for _, layer := range network.Layers() {
		if reader.bridge.LayerState(layer).IsLocationPresent(location) {
			return layer
		}
	}
	return preferred
}

// zoneForStop finds the transfer zone a stop position belongs to: stop_area
// membership wins, then the closest incomplete zone within the search radius.
func (reader *ZoningReader) zoneForStop(stop *osm.Node, location Location) *TransferZone {
	for _, key := range reader.stopAreaZones[stop.ID] {
		if zone, ok := reader.state.incompleteZones[key]; ok {
			return zone
		}
		if zone, ok := reader.state.completeZones[key]; ok {
			return zone
		}
	}
	searchBound := boundAround(location, reader.searchRadiusMeters)
	if nearby := reader.state.FindIncompleteZonesNear(searchBound); len(nearby) > 0 {
		return nearby[0]
	}
	// A sibling stop may have completed the shared zone already.
	if nearby := reader.state.FindCompleteZonesNear(searchBound); len(nearby) > 0 {
		return nearby[0]
	}
	return nil
}

// matchStandaloneZones ties zones that never saw a stop position (stand-alone
// stations, platforms without mapped stops) to the nearest link, breaking the
// link when the nearest coordinate is interior. Zones with no link in reach
// stay incomplete; that is a data gap, not an error.
func (reader *ZoningReader) matchStandaloneZones() error {
	zones := make([]*TransferZone, 0, len(reader.state.incompleteZones))
	for _, zone := range reader.state.incompleteZones {
		zones = append(zones, zone)
	}
	sort.Slice(zones, func(i, j int) bool {
		if zones[i].key.entityType != zones[j].key.entityType {
			return zones[i].key.entityType < zones[j].key.entityType
		}
		return zones[i].key.osmID < zones[j].key.osmID
	})

	for _, zone := range zones {
		if zone.complete {
			continue
		}
		center := zone.centroid()
		candidates := reader.state.FindLinksNear(boundAround(center, reader.searchRadiusMeters))
		if len(candidates) == 0 {
			reader.log.Warn("stand-alone transfer zone has no link in reach, left incomplete",
				zap.String("entityType", zone.key.entityType.String()),
				zap.Int64("osmId", zone.key.osmID))
			continue
		}
		closest := candidates[0]
		closestDistance := distanceToLineString(center, closest.geom)
		for _, candidate := range candidates[1:] {
			if d := distanceToLineString(center, candidate.geom); d < closestDistance {
				closest = candidate
				closestDistance = d
			}
		}

		accessNode, err := reader.accessNodeOnLink(closest, center)
		if err != nil {
			return errors.Wrapf(err, "can't attach stand-alone transfer zone %s %d",
				zone.key.entityType, zone.key.osmID)
		}
		if accessNode == nil {
			reader.log.Warn("no access node derivable for stand-alone transfer zone, left incomplete",
				zap.String("entityType", zone.key.entityType.String()),
				zap.Int64("osmId", zone.key.osmID))
			continue
		}
		reader.state.CreateConnectoid(closest.layerID, accessNode, zone)
		if err := reader.state.PromoteToComplete(zone); err != nil {
			return errors.Wrapf(err, "can't complete stand-alone transfer zone %s %d",
				zone.key.entityType, zone.key.osmID)
		}
	}
	return nil
}

// accessNodeOnLink derives the network node closest to the reference point on
// the given link, breaking the link when that point is an interior
// coordinate.
func (reader *ZoningReader) accessNodeOnLink(link *NetworkLink, reference Location) (*NetworkNode, error) {
	layer := reader.bridge.PopulatedNetwork().layers[link.layerID]
	if layer == nil {
		return nil, errors.Errorf("link %d references unknown layer %d", link.ID, link.layerID)
	}
	layerState := reader.bridge.LayerState(layer)

	idx, _ := findClosestCoordinatePosition(link.geom, reference)
	if idx == coordinatePositionNotFound {
		return nil, nil
	}
	joint := link.geom[idx]

	if !isExtremePosition(link.geom, idx) && layerState.IsLocationPresent(joint) {
		if _, err := reader.bridge.reconcilerFor(layer).BreakLinksAtLocation(joint); err != nil {
			return nil, errors.Wrap(err, "can't break link at access point")
		}
	}
	if node := layerState.NodeAt(joint); node != nil {
		return node, nil
	}

	// Fall back to the nearer of the link's end nodes.
	sourceNode := layer.nodes[link.sourceNodeID]
	targetNode := layer.nodes[link.targetNodeID]
	switch {
	case sourceNode == nil:
		return targetNode, nil
	case targetNode == nil:
		return sourceNode, nil
	case findDistance(reference, sourceNode.geom) <= findDistance(reference, targetNode.geom):
		return sourceNode, nil
	default:
		return targetNode, nil
	}
}

// Reset clears the zoning state so the reader can run an independent parse.
func (reader *ZoningReader) Reset() {
	reader.state.Reset()
	reader.stopAreaZones = make(map[osm.NodeID][]zoneKey)
}

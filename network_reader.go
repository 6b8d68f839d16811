package planitosm

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// NetworkReader runs the network phase of the conversion: it streams the OSM
// file, classifies ways into links on mode-compatible layers, registers every
// interior coordinate with the per-layer state, and then runs the breaking
// pass that turns shared locations into intersections. Its product is the
// bridge handed to the zoning phase.
type NetworkReader struct {
	filename       string
	requestedTypes []string
	wayFilter      *WayFilter
	boundingBox    *orb.Bound
	log            *zap.Logger

	network       *Network
	layerStates   map[NetworkLayerID]*PerLayerState
	reconcilers   map[NetworkLayerID]*linkBreakReconciler
	circularLinks map[NetworkLayerID][]*NetworkLink
}

func NewNetworkReader(filename string, options ...NetworkReaderOption) (*NetworkReader, error) {
	if filename == "" {
		return nil, errors.New("no input file provided")
	}
	reader := &NetworkReader{
		filename:       filename,
		requestedTypes: []string{"auto"},
		wayFilter:      DefaultWayFilter(),
		log:            zap.NewNop(),
	}
	for _, option := range options {
		option(reader)
	}
	if len(reader.requestedTypes) == 0 {
		return nil, errors.New("no network types requested")
	}
	for _, requested := range reader.requestedTypes {
		if _, ok := networkTypes[requested]; !ok {
			return nil, errors.Errorf("network type '%s' is not supported", requested)
		}
	}
	reader.prepareContainers()
	return reader, nil
}

func (reader *NetworkReader) prepareContainers() {
	reader.network = NewNetwork()
	reader.layerStates = make(map[NetworkLayerID]*PerLayerState)
	reader.reconcilers = make(map[NetworkLayerID]*linkBreakReconciler)
	reader.circularLinks = make(map[NetworkLayerID][]*NetworkLink)
}

// Read runs the full network phase and returns the bridge for the zoning
// phase.
func (reader *NetworkReader) Read() (*NetworkToZoningReaderData, error) {
	data, err := readOSM(reader.filename, reader.log)
	if err != nil {
		return nil, errors.Wrap(err, "can't read OSM data for network phase")
	}
	return reader.process(data)
}

// process is the file-independent part of Read; tests feed it hand-built raw
// data.
func (reader *NetworkReader) process(data *OSMDataRaw) (*NetworkToZoningReaderData, error) {
	st := time.Now()
	reader.createLayers()
	reader.createLinks(data)
	if err := reader.runBreakingPass(); err != nil {
		return nil, err
	}
	for _, layer := range reader.network.Layers() {
		reader.log.Info("network layer populated",
			zap.String("layer", layer.name),
			zap.Int("nodes", len(layer.nodes)),
			zap.Int("links", len(layer.links)))
	}
	reader.log.Info("network phase done", zap.Duration("took", time.Since(st)))
	return newNetworkToZoningReaderData(reader.network, reader.layerStates, reader.reconcilers, data.nodes)
}

// createLayers groups the requested network types into layers: one for all
// road-bound types, one for rail-bound ones.
func (reader *NetworkReader) createLayers() {
	requested := make(map[NetworkType]struct{})
	for _, requestedType := range reader.requestedTypes {
		requested[networkTypes[requestedType]] = struct{}{}
	}
	if _, ok := requested[NETWORK_ROAD]; ok {
		reader.registerLayer(reader.network.CreateLayer("roads", NETWORK_ROAD))
	}
	if _, ok := requested[NETWORK_RAIL]; ok {
		reader.registerLayer(reader.network.CreateLayer("railways", NETWORK_RAIL))
	}
}

func (reader *NetworkReader) registerLayer(layer *NetworkLayer) {
	state := newPerLayerState(layer, reader.log)
	reader.layerStates[layer.ID] = state
	reader.reconcilers[layer.ID] = newLinkBreakReconciler(layer, state, reader.log)
}

// createLinks turns every classifiable way into exactly one link spanning the
// full way geometry, with network nodes at the extremities only. Interior
// coordinates are registered with the per-layer state; the breaking pass
// promotes the shared ones afterwards.
func (reader *NetworkReader) createLinks(data *OSMDataRaw) {
	skippedWays := 0
	for _, way := range data.waysRaw {
		if !reader.wayFilter.IsHighwayOrRailwayWay(way) || way.isPOI() || way.isArea() {
			continue
		}
		if !reader.wayFilter.classify(way) {
			skippedWays++
			continue
		}
		layer := reader.network.LayerFor(reader.wayFilter.networkTypeFor(way))
		if layer == nil {
			// Classified, but its network type was not requested.
			continue
		}
		reader.createLinkForWay(layer, way, data)
	}
	if skippedWays > 0 {
		reader.log.Info("ways outside classification vocabulary skipped", zap.Int("ways", skippedWays))
	}
}

func (reader *NetworkReader) createLinkForWay(layer *NetworkLayer, way *WayData, data *OSMDataRaw) {
	state := reader.layerStates[layer.ID]

	geom, geomNodes := reader.buildWayGeometry(way, data)
	if len(geom) < 2 {
		reader.log.Warn("way degenerated to fewer than 2 usable coordinates, skipping",
			zap.Int64("osmWayId", int64(way.ID)))
		return
	}
	way.isCircular = len(geom) >= 3 && geom[0] == geom[len(geom)-1]

	sourceNode := reader.extremityNode(layer, state, geom[0], geomNodes[0])
	var targetNode *NetworkNode
	if way.isCircular {
		targetNode = sourceNode
	} else {
		targetNode = reader.extremityNode(layer, state, geom[len(geom)-1], geomNodes[len(geomNodes)-1])
	}

	link := layer.createLink(way, sourceNode, targetNode, geom)
	for i := 1; i < len(geom)-1; i++ {
		state.RegisterLocationAsInternalToLink(geom[i], link, &geomNodes[i].node)
	}
	if way.isCircular {
		reader.circularLinks[layer.ID] = append(reader.circularLinks[layer.ID], link)
	}
}

// buildWayGeometry assembles the way's line from the node table. References
// the table cannot resolve (truncated extracts) and nodes outside the
// bounding box are dropped with a warning; the way is salvaged from whatever
// coordinates remain.
func (reader *NetworkReader) buildWayGeometry(way *WayData, data *OSMDataRaw) (orb.LineString, []*Node) {
	geom := make(orb.LineString, 0, len(way.Nodes))
	geomNodes := make([]*Node, 0, len(way.Nodes))
	dropped := 0
	for _, nodeID := range way.Nodes {
		node, ok := data.nodes[nodeID]
		if !ok {
			dropped++
			continue
		}
		location := node.location()
		if reader.boundingBox != nil && !reader.boundingBox.Contains(location) {
			dropped++
			continue
		}
		geom = append(geom, location)
		geomNodes = append(geomNodes, node)
	}
	if dropped > 0 {
		reader.log.Warn("way references unavailable nodes, geometry salvaged",
			zap.Int64("osmWayId", int64(way.ID)),
			zap.Int("droppedNodes", dropped),
			zap.Int("keptNodes", len(geom)))
	}
	return geom, geomNodes
}

func (reader *NetworkReader) extremityNode(layer *NetworkLayer, state *PerLayerState, location Location, osmNode *Node) *NetworkNode {
	if node := state.NodeAt(location); node != nil {
		return node
	}
	node := layer.CreateNode(location, osmNode.ID, osmNode.name)
	state.RegisterNetworkNode(location, node)
	return node
}

// runBreakingPass finishes each layer: circular links are self-broken first
// so their ways are openable, then every location that is internal to two or
// more links, or internal to one link while also carrying a network node (a
// way ending on another way's interior), is broken into an intersection.
func (reader *NetworkReader) runBreakingPass() error {
	for _, layer := range reader.network.Layers() {
		state := reader.layerStates[layer.ID]
		reconciler := reader.reconcilers[layer.ID]

		for _, link := range reader.circularLinks[layer.ID] {
			if _, err := reconciler.BreakCircularLink(link); err != nil {
				return errors.Wrapf(err, "can't self-break circular link of OSM way %d", int64(link.osmWayID))
			}
		}

		broken := 0
		for _, location := range state.LocationsInternalToAtLeast(1) {
			entry, ok := state.internalLocations[location]
			if !ok {
				// Promoted by an earlier break in this pass.
				continue
			}
			if len(entry.links) < 2 && state.NodeAt(location) == nil {
				continue
			}
			if _, err := reconciler.BreakLinksAtLocation(location); err != nil {
				return errors.Wrapf(err, "can't break links at %s", locationString(location))
			}
			broken++
		}
		reader.log.Info("breaking pass done",
			zap.String("layer", layer.name),
			zap.Int("brokenLocations", broken))
	}
	return nil
}

// Reset drops every intermediate and final container so the reader can be
// reused for an independent parse.
func (reader *NetworkReader) Reset() {
	reader.prepareContainers()
}

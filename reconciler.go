package planitosm

import (
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// linkBreakReconciler translates "location L must become an intersection"
// into correct calls of the layer's breaking primitive, keeping the
// broken-ways bookkeeping of the per-layer state consistent across any
// number of successive breaks.
type linkBreakReconciler struct {
	layer *NetworkLayer
	state *PerLayerState
	log   *zap.Logger
}

func newLinkBreakReconciler(layer *NetworkLayer, state *PerLayerState, log *zap.Logger) *linkBreakReconciler {
	return &linkBreakReconciler{
		layer: layer,
		state: state,
		log:   log,
	}
}

// BreakLinksAtLocation breaks all currently valid links passing through the
// location and promotes the location to a network node. Links for which the
// location is already an extreme coordinate are left alone; when nothing
// remains to break the call is a no-op. Locations whose recorded links all
// turned out malformed yield an empty result, not an error.
func (reconciler *linkBreakReconciler) BreakLinksAtLocation(location Location) ([]*NetworkLink, error) {
	entry, ok := reconciler.state.internalLocations[location]
	if !ok {
		if reconciler.state.NodeAt(location) != nil {
			// Already promoted by an earlier break at this location.
			return nil, nil
		}
		reconciler.log.Warn("break requested at unregistered location",
			zap.String("location", locationString(location)),
			zap.String("layer", reconciler.layer.name))
		return nil, nil
	}

	reconciled := reconciler.state.reconcileAt(location, entry.links)
	toBreak := make([]*NetworkLink, 0, len(reconciled))
	for _, candidate := range reconciled {
		if candidate.atExtremity {
			continue
		}
		toBreak = append(toBreak, candidate.link)
	}

	if len(toBreak) == 0 {
		node := reconciler.state.NodeAt(location)
		if node == nil && len(reconciled) > 0 {
			// All remaining links terminate here; adopt the extremity node.
			node = reconciler.nodeAtExtremity(location, reconciled)
		}
		if node != nil {
			reconciler.state.RegisterNetworkNode(location, node)
		}
		reconciler.state.clearInternal(location)
		return nil, nil
	}

	node := reconciler.state.NodeAt(location)
	if node == nil {
		node = reconciler.createNodeAt(location, entry.osmNode)
	}

	pieces, err := reconciler.layer.BreakLinksAtLocation(toBreak, location, node)
	if err != nil {
		return nil, errors.Wrap(err, "can't break links at location")
	}
	reconciler.state.RegisterNetworkNode(location, node)
	reconciler.state.clearInternal(location)

	for wayID, wayPieces := range groupByWay(pieces) {
		reconciler.state.registerBrokenWay(wayID, wayPieces)
	}
	return pieces, nil
}

// BreakCircularLink opens up a circular link (roundabout/loop) by breaking
// it at a joint point before any cross-way breaking touches its way. The
// joint is the first registered crossing internal to the link; a circle
// without crossings is split at the coordinate halfway along its geometry.
func (reconciler *linkBreakReconciler) BreakCircularLink(link *NetworkLink) ([]*NetworkLink, error) {
	if !link.isCircular() {
		return nil, nil
	}
	if _, ok := reconciler.layer.links[link.ID]; !ok {
		// Already broken, e.g. as the crossing of an earlier circular link.
		return nil, nil
	}
	if joint, ok := reconciler.findCircularJoint(link); ok {
		return reconciler.BreakLinksAtLocation(joint)
	}

	// Pure circle: no crossing anywhere on its interior.
	idx := findMiddleCoordinatePosition(link.geom)
	if idx == coordinatePositionNotFound {
		reconciler.log.Warn("circular link too short to self-break",
			zap.Int64("osmWayId", int64(link.osmWayID)),
			zap.Int("linkId", int(link.ID)))
		return nil, nil
	}
	joint := link.geom[idx]

	node := reconciler.state.NodeAt(joint)
	if node == nil {
		node = reconciler.createNodeAt(joint, reconciler.state.osmNodeAt(joint))
	}
	pieces, err := reconciler.layer.BreakLinksAtLocation([]*NetworkLink{link}, joint, node)
	if err != nil {
		return nil, errors.Wrap(err, "can't self-break circular link")
	}
	reconciler.state.RegisterNetworkNode(joint, node)
	reconciler.state.clearInternal(joint)
	reconciler.state.registerBrokenWay(link.osmWayID, pieces)
	return pieces, nil
}

// findCircularJoint returns the first location internal to two or more
// links that lies on the given circular link.
func (reconciler *linkBreakReconciler) findCircularJoint(link *NetworkLink) (Location, bool) {
	for _, location := range reconciler.state.LocationsInternalToAtLeast(2) {
		entry := reconciler.state.internalLocations[location]
		for _, recorded := range entry.links {
			if recorded.ID == link.ID {
				return location, true
			}
		}
	}
	return Location{}, false
}

func (reconciler *linkBreakReconciler) createNodeAt(location Location, osmNode *osm.Node) *NetworkNode {
	osmNodeID := osm.NodeID(-1)
	name := ""
	if osmNode != nil {
		osmNodeID = osmNode.ID
		name = osmNode.Tags.Find("name")
	}
	return reconciler.layer.CreateNode(location, osmNodeID, name)
}

// nodeAtExtremity finds the network node sitting at the location via the
// end nodes of the reconciled links.
func (reconciler *linkBreakReconciler) nodeAtExtremity(location Location, reconciled []reconciledLink) *NetworkNode {
	for _, candidate := range reconciled {
		link := candidate.link
		if sourceNode, ok := reconciler.layer.nodes[link.sourceNodeID]; ok && sourceNode.geom == location {
			return sourceNode
		}
		if targetNode, ok := reconciler.layer.nodes[link.targetNodeID]; ok && targetNode.geom == location {
			return targetNode
		}
	}
	return nil
}

func groupByWay(links []*NetworkLink) map[osm.WayID][]*NetworkLink {
	grouped := make(map[osm.WayID][]*NetworkLink)
	for _, link := range links {
		grouped[link.osmWayID] = append(grouped[link.osmWayID], link)
	}
	return grouped
}

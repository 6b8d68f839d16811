package planitosm

import (
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

// NetworkToZoningReaderData is the read-only projection the network phase
// hands to the zoning phase once network parsing has completed: the
// finalized per-layer states, the raw OSM node table snapshot, and the
// populated network. The only mutation path that remains open is breaking
// triggered by stop-position resolution, which runs through the per-layer
// reconcilers so all bookkeeping (including the zoning-side live link
// index) stays in sync.
type NetworkToZoningReaderData struct {
	network     *Network
	layerStates map[NetworkLayerID]*PerLayerState
	reconcilers map[NetworkLayerID]*linkBreakReconciler
	osmNodes    map[osm.NodeID]*Node
}

func newNetworkToZoningReaderData(network *Network, layerStates map[NetworkLayerID]*PerLayerState, reconcilers map[NetworkLayerID]*linkBreakReconciler, osmNodes map[osm.NodeID]*Node) (*NetworkToZoningReaderData, error) {
	if network == nil {
		return nil, errors.New("no populated network to bridge to zoning phase")
	}
	if len(layerStates) == 0 {
		return nil, errors.New("no per-layer states to bridge to zoning phase")
	}
	return &NetworkToZoningReaderData{
		network:     network,
		layerStates: layerStates,
		reconcilers: reconcilers,
		osmNodes:    osmNodes,
	}, nil
}

// LayerState returns the per-layer reader state of the given layer.
func (bridge *NetworkToZoningReaderData) LayerState(layer *NetworkLayer) *PerLayerState {
	return bridge.layerStates[layer.ID]
}

// OsmNodeTable returns the full OSM node table gathered during network
// parsing. Treated as an immutable snapshot by the zoning phase.
func (bridge *NetworkToZoningReaderData) OsmNodeTable() map[osm.NodeID]*Node {
	return bridge.osmNodes
}

// PopulatedNetwork returns the network produced by the network phase.
func (bridge *NetworkToZoningReaderData) PopulatedNetwork() *Network {
	return bridge.network
}

func (bridge *NetworkToZoningReaderData) reconcilerFor(layer *NetworkLayer) *linkBreakReconciler {
	return bridge.reconcilers[layer.ID]
}

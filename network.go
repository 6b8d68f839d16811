package planitosm

import (
	"sort"

	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

type NetworkLayerID int

// linkChangeListener is notified whenever a layer replaces or removes links,
// so that detached bookkeeping (e.g. the zoning-side live link index) never
// holds a stale link reference. Registration happens before the zoning phase
// starts reading.
type linkChangeListener interface {
	onLinksRemoved(links []*NetworkLink)
	onLinksAdded(links []*NetworkLink)
}

// NetworkLayer is a mode-compatible sub-network owning its nodes and links.
// It offers the generic graph mutation primitives; which links to mutate and
// when is the job of the per-layer reader state and its reconciler.
type NetworkLayer struct {
	name       string
	ID         NetworkLayerID
	nodes      map[NetworkNodeID]*NetworkNode
	links      map[NetworkLinkID]*NetworkLink
	lastNodeID NetworkNodeID
	lastLinkID NetworkLinkID
	listeners  []linkChangeListener
}

func newNetworkLayer(id NetworkLayerID, name string) *NetworkLayer {
	return &NetworkLayer{
		name:  name,
		ID:    id,
		nodes: make(map[NetworkNodeID]*NetworkNode),
		links: make(map[NetworkLinkID]*NetworkLink),
	}
}

func (layer *NetworkLayer) registerLinkChangeListener(listener linkChangeListener) {
	layer.listeners = append(layer.listeners, listener)
}

// CreateNode creates a network node at the given location. Pass a negative
// osmNodeID for synthetic locations without a backing OSM node.
func (layer *NetworkLayer) CreateNode(location Location, osmNodeID osm.NodeID, name string) *NetworkNode {
	node := &NetworkNode{
		name:      name,
		links:     make([]NetworkLinkID, 0, 2),
		ID:        layer.lastNodeID,
		osmNodeID: osmNodeID,
		geom:      location,
	}
	layer.lastNodeID++
	layer.nodes[node.ID] = node
	return node
}

func (layer *NetworkLayer) createLink(way *WayData, sourceNode, targetNode *NetworkNode, geom []Location) *NetworkLink {
	link := networkLinkFromOSMWay(layer.lastLinkID, sourceNode.ID, targetNode.ID, way, geom)
	link.layerID = layer.ID
	layer.lastLinkID++
	layer.links[link.ID] = link
	sourceNode.addLink(link.ID)
	targetNode.addLink(link.ID)
	return link
}

// BreakLinksAtLocation breaks every given link at the location, which must
// be one of the link's geometry coordinates, attaching the produced pieces
// to the given node. A link for which the location is already an extreme
// coordinate is returned unchanged (breaking there is a no-op). Returns the
// replacement set covering all input links.
func (layer *NetworkLayer) BreakLinksAtLocation(links []*NetworkLink, location Location, node *NetworkNode) ([]*NetworkLink, error) {
	if node == nil {
		return nil, errors.Errorf("no node to attach broken links to at %s", locationString(location))
	}
	replacements := make([]*NetworkLink, 0, len(links)*2)
	for _, link := range links {
		if _, ok := layer.links[link.ID]; !ok {
			return nil, errors.Errorf("link %d (OSM way %d) no longer exists on layer '%s'", link.ID, link.osmWayID, layer.name)
		}
		idx := findCoordinatePosition(link.geom, location)
		if idx == coordinatePositionNotFound {
			return nil, errors.Errorf("location %s is not a coordinate of link %d (OSM way %d)", locationString(location), link.ID, link.osmWayID)
		}
		if isExtremePosition(link.geom, idx) && !link.isCircular() {
			replacements = append(replacements, link)
			continue
		}
		if link.isCircular() && isExtremePosition(link.geom, idx) {
			// A circular geometry visits its joint coordinate twice; break
			// at the interior occurrence instead.
			interior := findCoordinatePosition(link.geom[1:len(link.geom)-1], location)
			if interior == coordinatePositionNotFound {
				replacements = append(replacements, link)
				continue
			}
			idx = interior + 1
		}
		replacements = append(replacements, layer.breakLink(link, idx, node)...)
	}
	return replacements, nil
}

// breakLink splits one link at an interior coordinate index into two new
// links attached to the given node. The original link is removed from the
// layer; both pieces inherit the original OSM way id and attributes.
func (layer *NetworkLayer) breakLink(link *NetworkLink, idx int, node *NetworkNode) []*NetworkLink {
	firstGeom, secondGeom := splitLineAtPosition(link.geom, idx)

	first := &NetworkLink{
		name:         link.name,
		geom:         firstGeom,
		lengthMeters: getSphericalLength(firstGeom) * 1000.0,
		ID:           layer.lastLinkID,
		osmWayID:     link.osmWayID,
		linkType:     link.linkType,
		linkClass:    link.linkClass,
		layerID:      link.layerID,
		sourceNodeID: link.sourceNodeID,
		targetNodeID: node.ID,
	}
	layer.lastLinkID++
	second := &NetworkLink{
		name:         link.name,
		geom:         secondGeom,
		lengthMeters: getSphericalLength(secondGeom) * 1000.0,
		ID:           layer.lastLinkID,
		osmWayID:     link.osmWayID,
		linkType:     link.linkType,
		linkClass:    link.linkClass,
		layerID:      link.layerID,
		sourceNodeID: node.ID,
		targetNodeID: link.targetNodeID,
	}
	layer.lastLinkID++

	delete(layer.links, link.ID)
	layer.links[first.ID] = first
	layer.links[second.ID] = second

	if sourceNode, ok := layer.nodes[link.sourceNodeID]; ok {
		sourceNode.replaceLink(link.ID, first.ID)
	}
	if targetNode, ok := layer.nodes[link.targetNodeID]; ok {
		targetNode.replaceLink(link.ID, second.ID)
	}
	node.addLink(first.ID)
	node.addLink(second.ID)

	for _, listener := range layer.listeners {
		listener.onLinksRemoved([]*NetworkLink{link})
		listener.onLinksAdded([]*NetworkLink{first, second})
	}
	return []*NetworkLink{first, second}
}

// RemoveLinks removes the links from the layer and from their end nodes'
// reference lists, notifying registered listeners.
func (layer *NetworkLayer) RemoveLinks(links []*NetworkLink) {
	for _, link := range links {
		if _, ok := layer.links[link.ID]; !ok {
			continue
		}
		delete(layer.links, link.ID)
		if sourceNode, ok := layer.nodes[link.sourceNodeID]; ok {
			sourceNode.removeLink(link.ID)
		}
		if targetNode, ok := layer.nodes[link.targetNodeID]; ok {
			targetNode.removeLink(link.ID)
		}
	}
	for _, listener := range layer.listeners {
		listener.onLinksRemoved(links)
	}
}

func (layer *NetworkLayer) linksToSlice() []*NetworkLink {
	links := make([]*NetworkLink, 0, len(layer.links))
	for _, link := range layer.links {
		links = append(links, link)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })
	return links
}

// Network is the multimodal transport network being populated: one layer
// per group of mode-compatible network types.
type Network struct {
	layers      map[NetworkLayerID]*NetworkLayer
	layerByType map[NetworkType]*NetworkLayer
	lastLayerID NetworkLayerID
}

func NewNetwork() *Network {
	return &Network{
		layers:      make(map[NetworkLayerID]*NetworkLayer),
		layerByType: make(map[NetworkType]*NetworkLayer),
	}
}

func (net *Network) CreateLayer(name string, supportedTypes ...NetworkType) *NetworkLayer {
	layer := newNetworkLayer(net.lastLayerID, name)
	net.lastLayerID++
	net.layers[layer.ID] = layer
	for _, networkType := range supportedTypes {
		net.layerByType[networkType] = layer
	}
	return layer
}

// LayerFor returns the layer registered for the network type, nil if the
// type was not requested for this parse.
func (net *Network) LayerFor(networkType NetworkType) *NetworkLayer {
	return net.layerByType[networkType]
}

func (net *Network) Layers() []*NetworkLayer {
	layers := make([]*NetworkLayer, 0, len(net.layers))
	for _, layer := range net.layers {
		layers = append(layers, layer)
	}
	sort.Slice(layers, func(i, j int) bool { return layers[i].ID < layers[j].ID })
	return layers
}

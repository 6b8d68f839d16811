package planitosm

import (
	"github.com/paulmach/osm"
)

/* Nodes stuff */

type NetworkNodeID int

// NetworkNode lives at exactly one location of its layer. It is created once
// a location is determined to require a node: an extremity of at least one
// link, an interior point shared by two or more links, or a stop position
// that needs a connectoid.
type NetworkNode struct {
	name      string
	links     []NetworkLinkID
	ID        NetworkNodeID
	osmNodeID osm.NodeID // negative for synthetic nodes without a backing OSM node
	geom      Location
}

func (node *NetworkNode) addLink(linkID NetworkLinkID) {
	for _, present := range node.links {
		if present == linkID {
			return
		}
	}
	node.links = append(node.links, linkID)
}

func (node *NetworkNode) removeLink(linkID NetworkLinkID) {
	for i, present := range node.links {
		if present == linkID {
			node.links = append(node.links[:i], node.links[i+1:]...)
			return
		}
	}
}

// replaceLink swaps a stale link reference for its replacement keeping the
// reference list free of duplicates.
func (node *NetworkNode) replaceLink(oldID, newID NetworkLinkID) {
	node.removeLink(oldID)
	node.addLink(newID)
}

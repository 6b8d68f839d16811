package planitosm

import (
	"github.com/paulmach/osm"
)

// Node wraps a raw OSM node kept after the ways pass: either referenced by a
// classified way or tagged in its own right.
type Node struct {
	node osm.Node
	name string

	ID osm.NodeID
}

func (node *Node) location() Location {
	return locationFromOSMNode(&node.node)
}

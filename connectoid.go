package planitosm

/* Connectoids stuff */

type ConnectoidID int

// DirectedConnectoid is a network access point tying a stop position (a
// node on some network layer) to a transfer zone. Indexed by location and
// layer so that two modes sharing one physical stop do not produce
// duplicate access points.
type DirectedConnectoid struct {
	ID         ConnectoidID
	layerID    NetworkLayerID
	accessNode *NetworkNode
	zone       *TransferZone
}

func (connectoid *DirectedConnectoid) location() Location {
	return connectoid.accessNode.geom
}

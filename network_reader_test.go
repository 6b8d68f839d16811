package planitosm

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/require"
)

func makeTestNode(id osm.NodeID, lon, lat float64, tags ...osm.Tag) *Node {
	node := osm.Node{ID: id, Lon: lon, Lat: lat, Tags: osm.Tags(tags)}
	return &Node{
		node: node,
		name: node.Tags.Find("name"),
		ID:   id,
	}
}

func makeTestWay(id osm.WayID, tags osm.Tags, nodeIDs ...osm.NodeID) *WayData {
	way := osm.Way{ID: id, Tags: tags}
	for _, nodeID := range nodeIDs {
		way.Nodes = append(way.Nodes, osm.WayNode{ID: nodeID})
	}
	return wayDataFromOSM(&way)
}

func residentialTags() osm.Tags {
	return osm.Tags{{Key: "highway", Value: "residential"}}
}

func makeTestData(nodes []*Node, ways []*WayData) *OSMDataRaw {
	nodeTable := make(map[osm.NodeID]*Node)
	for _, node := range nodes {
		nodeTable[node.ID] = node
	}
	return &OSMDataRaw{
		nodes:   nodeTable,
		waysRaw: ways,
	}
}

func newTestNetworkReader(t *testing.T, options ...NetworkReaderOption) *NetworkReader {
	reader, err := NewNetworkReader("test.osm", options...)
	require.NoError(t, err)
	return reader
}

func TestNetworkReaderRejectsUnknownNetworkType(t *testing.T) {
	_, err := NewNetworkReader("test.osm", WithNetworkTypes("hovercraft"))
	require.Error(t, err)
}

func TestCrossingWaysBreakIntoFourLinks(t *testing.T) {
	data := makeTestData(
		[]*Node{
			makeTestNode(1, 0.0, 0.0),
			makeTestNode(2, 0.001, 0.0),
			makeTestNode(3, 0.002, 0.0),
			makeTestNode(4, 0.001, 0.001),
			makeTestNode(5, 0.001, -0.001),
		},
		[]*WayData{
			makeTestWay(100, residentialTags(), 1, 2, 3),
			makeTestWay(200, residentialTags(), 4, 2, 5),
		},
	)

	reader := newTestNetworkReader(t)
	bridge, err := reader.process(data)
	require.NoError(t, err)

	layer := bridge.PopulatedNetwork().LayerFor(NETWORK_ROAD)
	require.NotNil(t, layer)
	require.Len(t, layer.links, 4)
	require.Len(t, layer.nodes, 5)

	crossing := Location{0.001, 0.0}
	state := bridge.LayerState(layer)
	node := state.NodeAt(crossing)
	require.NotNil(t, node)
	require.Len(t, node.links, 4)

	// Every piece keeps the OSM way id of its original way.
	for _, pieces := range [][]*NetworkLink{state.brokenWays[100], state.brokenWays[200]} {
		require.Len(t, pieces, 2)
	}
	require.Len(t, state.FindCurrentLinksAtLocation(crossing), 4)
}

func TestWayEndingOnInteriorOfAnotherWay(t *testing.T) {
	data := makeTestData(
		[]*Node{
			makeTestNode(1, 0.0, 0.0),
			makeTestNode(2, 0.001, 0.0),
			makeTestNode(3, 0.002, 0.0),
			makeTestNode(4, 0.001, 0.001),
		},
		[]*WayData{
			makeTestWay(100, residentialTags(), 1, 2, 3),
			makeTestWay(200, residentialTags(), 4, 2),
		},
	)

	reader := newTestNetworkReader(t)
	bridge, err := reader.process(data)
	require.NoError(t, err)

	layer := bridge.PopulatedNetwork().LayerFor(NETWORK_ROAD)
	require.Len(t, layer.links, 3)
	require.Len(t, layer.nodes, 4)

	junction := Location{0.001, 0.0}
	state := bridge.LayerState(layer)
	node := state.NodeAt(junction)
	require.NotNil(t, node)
	require.Len(t, node.links, 3)
	// The internal entry was consumed by the break.
	_, pending := state.internalLocations[junction]
	require.False(t, pending)
}

func TestPureCircularWaySelfBreaks(t *testing.T) {
	data := makeTestData(
		[]*Node{
			makeTestNode(1, 0.0, 0.0),
			makeTestNode(2, 0.001, 0.0),
			makeTestNode(3, 0.001, 0.001),
			makeTestNode(4, 0.0, 0.001),
		},
		[]*WayData{
			makeTestWay(100, osm.Tags{
				{Key: "highway", Value: "residential"},
				{Key: "junction", Value: "roundabout"},
			}, 1, 2, 3, 4, 1),
		},
	)

	reader := newTestNetworkReader(t)
	bridge, err := reader.process(data)
	require.NoError(t, err)

	layer := bridge.PopulatedNetwork().LayerFor(NETWORK_ROAD)
	require.Len(t, layer.links, 2)
	require.Len(t, layer.nodes, 2)
	for _, link := range layer.links {
		require.False(t, link.isCircular())
		require.Equal(t, osm.WayID(100), link.osmWayID)
	}
}

func TestCircularWayBreaksAtCrossingFirst(t *testing.T) {
	data := makeTestData(
		[]*Node{
			makeTestNode(1, 0.0, 0.0),
			makeTestNode(2, 0.001, 0.0),
			makeTestNode(3, 0.001, 0.001),
			makeTestNode(4, 0.0, 0.001),
			makeTestNode(5, 0.001, -0.001),
			makeTestNode(6, 0.001, 0.0005),
		},
		[]*WayData{
			makeTestWay(100, residentialTags(), 1, 2, 3, 4, 1),
			makeTestWay(200, residentialTags(), 5, 2, 6),
		},
	)

	reader := newTestNetworkReader(t)
	bridge, err := reader.process(data)
	require.NoError(t, err)

	layer := bridge.PopulatedNetwork().LayerFor(NETWORK_ROAD)
	require.Len(t, layer.links, 4)
	require.Len(t, layer.nodes, 4)

	crossing := Location{0.001, 0.0}
	state := bridge.LayerState(layer)
	node := state.NodeAt(crossing)
	require.NotNil(t, node)
	require.Len(t, node.links, 4)
}

func TestWayWithUnresolvableNodesIsSalvaged(t *testing.T) {
	data := makeTestData(
		[]*Node{
			makeTestNode(1, 0.0, 0.0),
			makeTestNode(2, 0.001, 0.0),
			makeTestNode(3, 0.002, 0.0),
		},
		[]*WayData{
			// Node 99 is absent from the table (truncated extract).
			makeTestWay(100, residentialTags(), 1, 2, 99, 3),
		},
	)

	reader := newTestNetworkReader(t)
	bridge, err := reader.process(data)
	require.NoError(t, err)

	layer := bridge.PopulatedNetwork().LayerFor(NETWORK_ROAD)
	require.Len(t, layer.links, 1)
	for _, link := range layer.links {
		require.Len(t, link.geom, 3)
		require.Greater(t, link.lengthMeters, 0.0)
	}
}

func TestWayDegeneratingBelowTwoCoordinatesIsSkipped(t *testing.T) {
	data := makeTestData(
		[]*Node{
			makeTestNode(1, 0.0, 0.0),
		},
		[]*WayData{
			makeTestWay(100, residentialTags(), 1, 99, 98),
		},
	)

	reader := newTestNetworkReader(t)
	bridge, err := reader.process(data)
	require.NoError(t, err)

	layer := bridge.PopulatedNetwork().LayerFor(NETWORK_ROAD)
	require.Len(t, layer.links, 0)
}

func TestBoundingBoxClipsWayGeometry(t *testing.T) {
	data := makeTestData(
		[]*Node{
			makeTestNode(1, 0.0, 0.0),
			makeTestNode(2, 0.001, 0.0),
			makeTestNode(3, 10.0, 0.0),
		},
		[]*WayData{
			makeTestWay(100, residentialTags(), 1, 2, 3),
		},
	)

	reader := newTestNetworkReader(t, WithBoundingBox(orb.Bound{
		Min: orb.Point{-1.0, -1.0},
		Max: orb.Point{1.0, 1.0},
	}))
	bridge, err := reader.process(data)
	require.NoError(t, err)

	layer := bridge.PopulatedNetwork().LayerFor(NETWORK_ROAD)
	require.Len(t, layer.links, 1)
	for _, link := range layer.links {
		require.Len(t, link.geom, 2)
	}
}

func TestRailwayWaysLandOnRailLayer(t *testing.T) {
	data := makeTestData(
		[]*Node{
			makeTestNode(1, 0.0, 0.0),
			makeTestNode(2, 0.001, 0.0),
			makeTestNode(3, 0.0, 0.001),
			makeTestNode(4, 0.001, 0.001),
		},
		[]*WayData{
			makeTestWay(100, residentialTags(), 1, 2),
			makeTestWay(200, osm.Tags{{Key: "railway", Value: "tram"}}, 3, 4),
		},
	)

	reader := newTestNetworkReader(t, WithNetworkTypes("auto", "railway"))
	bridge, err := reader.process(data)
	require.NoError(t, err)

	network := bridge.PopulatedNetwork()
	require.Len(t, network.Layers(), 2)
	require.Len(t, network.LayerFor(NETWORK_ROAD).links, 1)
	require.Len(t, network.LayerFor(NETWORK_RAIL).links, 1)
}

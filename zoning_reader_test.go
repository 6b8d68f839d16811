package planitosm

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/require"
)

func platformTags() osm.Tags {
	return osm.Tags{{Key: "public_transport", Value: "platform"}}
}

func runZoning(t *testing.T, data *OSMDataRaw, options ...ZoningReaderOption) (*NetworkToZoningReaderData, *ZoningReaderState) {
	networkReader := newTestNetworkReader(t)
	bridge, err := networkReader.process(data)
	require.NoError(t, err)

	zoningReader, err := NewZoningReader("test.osm", bridge, options...)
	require.NoError(t, err)
	zoning, err := zoningReader.process(data)
	require.NoError(t, err)
	return bridge, zoning
}

func TestStopPositionOnLinkInteriorCreatesConnectoid(t *testing.T) {
	data := makeTestData(
		[]*Node{
			makeTestNode(1, 0.0, 0.0),
			makeTestNode(2, 0.001, 0.0, osm.Tag{Key: "public_transport", Value: "stop_position"}),
			makeTestNode(3, 0.002, 0.0),
			makeTestNode(10, 0.001, 0.00005, osm.Tag{Key: "public_transport", Value: "platform"}),
		},
		[]*WayData{
			makeTestWay(100, residentialTags(), 1, 2, 3),
		},
	)

	bridge, zoning := runZoning(t, data)

	layer := bridge.PopulatedNetwork().LayerFor(NETWORK_ROAD)
	// The stop sat on the link interior: resolving it must have split the link.
	require.Len(t, layer.links, 2)

	stopLocation := Location{0.001, 0.0}
	connectoid := zoning.ConnectoidAt(stopLocation, layer.ID)
	require.NotNil(t, connectoid)
	require.Equal(t, stopLocation, connectoid.accessNode.geom)

	require.Len(t, zoning.CompleteZones(), 1)
	require.Empty(t, zoning.IncompleteZones())
	require.Equal(t, int64(10), zoning.CompleteZones()[0].key.osmID)
}

func TestStopPositionAtWayExtremityNeedsNoBreak(t *testing.T) {
	data := makeTestData(
		[]*Node{
			makeTestNode(1, 0.0, 0.0, osm.Tag{Key: "public_transport", Value: "stop_position"}),
			makeTestNode(2, 0.001, 0.0),
			makeTestNode(10, 0.0, 0.00005, osm.Tag{Key: "public_transport", Value: "platform"}),
		},
		[]*WayData{
			makeTestWay(100, residentialTags(), 1, 2),
		},
	)

	bridge, zoning := runZoning(t, data)

	layer := bridge.PopulatedNetwork().LayerFor(NETWORK_ROAD)
	require.Len(t, layer.links, 1)
	require.NotNil(t, zoning.ConnectoidAt(Location{0.0, 0.0}, layer.ID))
	require.Len(t, zoning.CompleteZones(), 1)
}

func TestStopPositionOffNetworkIsSkipped(t *testing.T) {
	data := makeTestData(
		[]*Node{
			makeTestNode(1, 0.0, 0.0),
			makeTestNode(2, 0.001, 0.0),
			makeTestNode(50, 5.0, 5.0, osm.Tag{Key: "public_transport", Value: "stop_position"}),
		},
		[]*WayData{
			makeTestWay(100, residentialTags(), 1, 2),
		},
	)

	_, zoning := runZoning(t, data)

	require.Empty(t, zoning.Connectoids())
	require.Empty(t, zoning.CompleteZones())
}

func TestStopPositionWithoutPlatformInfersZone(t *testing.T) {
	data := makeTestData(
		[]*Node{
			makeTestNode(1, 0.0, 0.0),
			makeTestNode(2, 0.001, 0.0, osm.Tag{Key: "public_transport", Value: "stop_position"}),
			makeTestNode(3, 0.002, 0.0),
		},
		[]*WayData{
			makeTestWay(100, residentialTags(), 1, 2, 3),
		},
	)

	_, zoning := runZoning(t, data)

	require.Len(t, zoning.CompleteZones(), 1)
	inferred := zoning.CompleteZones()[0]
	require.Equal(t, int64(2), inferred.key.osmID)
	require.Equal(t, PT_PLATFORM, inferred.kind)
	require.Len(t, zoning.Connectoids(), 1)
}

func TestSiblingStopsShareOneZone(t *testing.T) {
	data := makeTestData(
		[]*Node{
			makeTestNode(1, 0.0, 0.0),
			makeTestNode(2, 0.001, 0.0, osm.Tag{Key: "public_transport", Value: "stop_position"}),
			makeTestNode(3, 0.0011, 0.0, osm.Tag{Key: "public_transport", Value: "stop_position"}),
			makeTestNode(4, 0.002, 0.0),
			makeTestNode(10, 0.00105, 0.00005, osm.Tag{Key: "public_transport", Value: "platform"}),
		},
		[]*WayData{
			makeTestWay(100, residentialTags(), 1, 2, 3, 4),
		},
	)

	_, zoning := runZoning(t, data)

	// The first stop completes the platform zone; the second must reuse it
	// instead of inferring a fresh one.
	require.Len(t, zoning.CompleteZones(), 1)
	require.Empty(t, zoning.IncompleteZones())
	require.Len(t, zoning.Connectoids(), 2)
	zone := zoning.CompleteZones()[0]
	require.Equal(t, int64(10), zone.key.osmID)
	require.Len(t, zone.connectoids, 2)
}

func TestStopAreaMembershipBeatsProximity(t *testing.T) {
	data := makeTestData(
		[]*Node{
			makeTestNode(1, 0.0, 0.0),
			makeTestNode(2, 0.001, 0.0, osm.Tag{Key: "public_transport", Value: "stop_position"}),
			makeTestNode(3, 0.002, 0.0),
			makeTestNode(10, 0.001, 0.00005, osm.Tag{Key: "public_transport", Value: "platform"}),
			makeTestNode(11, 0.001, 0.0002, osm.Tag{Key: "public_transport", Value: "platform"}),
		},
		[]*WayData{
			makeTestWay(100, residentialTags(), 1, 2, 3),
		},
	)
	// The mapper grouped the stop with the farther platform.
	data.stopAreas = []*StopAreaData{{
		ID:          500,
		stopNodes:   []osm.NodeID{2},
		platformIDs: []zoneKey{{osmID: 11, entityType: ENTITY_NODE}},
	}}

	bridge, zoning := runZoning(t, data)

	layer := bridge.PopulatedNetwork().LayerFor(NETWORK_ROAD)
	connectoid := zoning.ConnectoidAt(Location{0.001, 0.0}, layer.ID)
	require.NotNil(t, connectoid)
	require.Equal(t, int64(11), connectoid.zone.key.osmID)
}

func TestStandaloneStationAttachesToNearestLink(t *testing.T) {
	data := makeTestData(
		[]*Node{
			makeTestNode(1, 0.0, 0.0),
			makeTestNode(2, 0.001, 0.0),
			makeTestNode(3, 0.002, 0.0),
			makeTestNode(20, 0.0011, 0.00005, osm.Tag{Key: "amenity", Value: "bus_station"}),
		},
		[]*WayData{
			makeTestWay(100, residentialTags(), 1, 2, 3),
		},
	)

	bridge, zoning := runZoning(t, data)

	layer := bridge.PopulatedNetwork().LayerFor(NETWORK_ROAD)
	// The nearest link coordinate was interior, so attaching the station
	// split the link.
	require.Len(t, layer.links, 2)
	require.Len(t, zoning.CompleteZones(), 1)
	require.Equal(t, PT_STATION, zoning.CompleteZones()[0].kind)
	require.Len(t, zoning.Connectoids(), 1)
	require.Equal(t, Location{0.001, 0.0}, zoning.Connectoids()[0].location())
}

func TestStandaloneZoneOutOfReachStaysIncomplete(t *testing.T) {
	data := makeTestData(
		[]*Node{
			makeTestNode(1, 0.0, 0.0),
			makeTestNode(2, 0.001, 0.0),
			makeTestNode(30, 3.0, 3.0, osm.Tag{Key: "public_transport", Value: "platform"}),
		},
		[]*WayData{
			makeTestWay(100, residentialTags(), 1, 2),
		},
	)

	_, zoning := runZoning(t, data)

	require.Empty(t, zoning.CompleteZones())
	require.Len(t, zoning.IncompleteZones(), 1)
	require.Empty(t, zoning.Connectoids())
}

func TestPlatformWayBecomesZone(t *testing.T) {
	data := makeTestData(
		[]*Node{
			makeTestNode(1, 0.0, 0.0),
			makeTestNode(2, 0.001, 0.0, osm.Tag{Key: "public_transport", Value: "stop_position"}),
			makeTestNode(3, 0.002, 0.0),
			makeTestNode(40, 0.0008, 0.0001),
			makeTestNode(41, 0.0012, 0.0001),
		},
		[]*WayData{
			makeTestWay(100, residentialTags(), 1, 2, 3),
			makeTestWay(300, platformTags(), 40, 41),
		},
	)

	bridge, zoning := runZoning(t, data)

	layer := bridge.PopulatedNetwork().LayerFor(NETWORK_ROAD)
	connectoid := zoning.ConnectoidAt(Location{0.001, 0.0}, layer.ID)
	require.NotNil(t, connectoid)
	require.Equal(t, ENTITY_WAY, connectoid.zone.key.entityType)
	require.Equal(t, int64(300), connectoid.zone.key.osmID)
}

func TestZoningReaderRequiresBridge(t *testing.T) {
	_, err := NewZoningReader("test.osm", nil)
	require.Error(t, err)
}

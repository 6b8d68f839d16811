package planitosm

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func makePlatformZone(id osm.NodeID, lon, lat float64) *TransferZone {
	node := osm.Node{ID: id, Lon: lon, Lat: lat, Tags: osm.Tags{
		{Key: "public_transport", Value: "platform"},
	}}
	return transferZoneFromOSMNode(&node, PT_PLATFORM)
}

func TestZoneCompletesExactlyOnce(t *testing.T) {
	state := newZoningReaderState(zap.NewNop())
	zone := makePlatformZone(10, 0.001, 0.0)

	require.NoError(t, state.RegisterIncompleteZone(zone))
	require.NotNil(t, state.incompleteZone(ENTITY_NODE, 10))
	require.Nil(t, state.completeZone(ENTITY_NODE, 10))

	require.NoError(t, state.PromoteToComplete(zone))
	require.Nil(t, state.incompleteZone(ENTITY_NODE, 10))
	require.NotNil(t, state.completeZone(ENTITY_NODE, 10))

	require.Error(t, state.PromoteToComplete(zone))
	require.Error(t, state.RegisterIncompleteZone(zone))
}

func TestPromoteUnregisteredZoneFails(t *testing.T) {
	state := newZoningReaderState(zap.NewNop())
	zone := makePlatformZone(10, 0.001, 0.0)

	require.Error(t, state.PromoteToComplete(zone))
}

func TestPromotedZoneLeavesSpatialIndex(t *testing.T) {
	state := newZoningReaderState(zap.NewNop())
	zone := makePlatformZone(10, 0.001, 0.0)
	require.NoError(t, state.RegisterIncompleteZone(zone))

	bound := boundAround(Location{0.001, 0.0}, 50.0)
	require.Len(t, state.FindIncompleteZonesNear(bound), 1)

	require.NoError(t, state.PromoteToComplete(zone))
	require.Empty(t, state.FindIncompleteZonesNear(bound))
	require.Len(t, state.FindCompleteZonesNear(bound), 1)
}

func TestFindIncompleteZonesNearOrdersByDistance(t *testing.T) {
	state := newZoningReaderState(zap.NewNop())
	far := makePlatformZone(10, 0.0002, 0.0)
	near := makePlatformZone(11, 0.0001, 0.0)
	require.NoError(t, state.RegisterIncompleteZone(far))
	require.NoError(t, state.RegisterIncompleteZone(near))

	zones := state.FindIncompleteZonesNear(boundAround(Location{0.0, 0.0}, 50.0))
	require.Len(t, zones, 2)
	require.Equal(t, near, zones[0])
	require.Equal(t, far, zones[1])
}

func TestConnectoidDeduplicationPerLocationAndLayer(t *testing.T) {
	state := newZoningReaderState(zap.NewNop())
	zone := makePlatformZone(10, 0.001, 0.0)
	require.NoError(t, state.RegisterIncompleteZone(zone))

	node := &NetworkNode{ID: 7, geom: Location{0.001, 0.0}}
	first := state.CreateConnectoid(0, node, zone)
	again := state.CreateConnectoid(0, node, zone)
	require.Equal(t, first, again)
	require.Len(t, zone.connectoids, 1)

	otherLayer := state.CreateConnectoid(1, node, zone)
	require.NotEqual(t, first.ID, otherLayer.ID)
	require.NotNil(t, state.ConnectoidAt(Location{0.001, 0.0}, 1))
	require.Len(t, state.Connectoids(), 2)
}

func TestLiveLinkIndexTracksBreaking(t *testing.T) {
	layer, _, reconciler, link := fiveNodeWayFixture(t)

	zoning := newZoningReaderState(zap.NewNop())
	layer.registerLinkChangeListener(zoning)
	zoning.addLinksToIndex(layer.linksToSlice())

	middle := Location{0.002, 0.0}
	bound := boundAround(middle, 50.0)
	require.Len(t, zoning.FindLinksNear(bound), 1)

	pieces, err := reconciler.BreakLinksAtLocation(middle)
	require.NoError(t, err)
	require.Len(t, pieces, 2)

	found := zoning.FindLinksNear(bound)
	require.Len(t, found, 2)
	for _, candidate := range found {
		require.NotEqual(t, link.ID, candidate.ID)
	}
}

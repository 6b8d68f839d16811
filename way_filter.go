package planitosm

// WayFilter classifies raw OSM ways into network links by their highway or
// railway tag. It is handed to the readers explicitly so the engine can be
// tested with a reduced vocabulary; DefaultWayFilter carries the tables the
// converter ships with.
type WayFilter struct {
	linkTypeByHighway map[string]LinkType
	linkTypeByRailway map[string]LinkType
	negligibleHighway map[string]struct{}
	networkTypeByLink map[LinkClass]NetworkType
}

func DefaultWayFilter() *WayFilter {
	return &WayFilter{
		linkTypeByHighway: map[string]LinkType{
			"motorway":         LINK_MOTORWAY,
			"motorway_link":    LINK_MOTORWAY,
			"trunk":            LINK_TRUNK,
			"trunk_link":       LINK_TRUNK,
			"primary":          LINK_PRIMARY,
			"primary_link":     LINK_PRIMARY,
			"secondary":        LINK_SECONDARY,
			"secondary_link":   LINK_SECONDARY,
			"tertiary":         LINK_TERTIARY,
			"tertiary_link":    LINK_TERTIARY,
			"residential":      LINK_RESIDENTIAL,
			"residential_link": LINK_RESIDENTIAL,
			"living_street":    LINK_LIVING_STREET,
			"service":          LINK_SERVICE,
			"services":         LINK_SERVICE,
			"cycleway":         LINK_CYCLEWAY,
			"footway":          LINK_FOOTWAY,
			"pedestrian":       LINK_FOOTWAY,
			"steps":            LINK_FOOTWAY,
			"track":            LINK_TRACK,
			"unclassified":     LINK_UNCLASSIFIED,
		},
		linkTypeByRailway: map[string]LinkType{
			"rail":         LINK_RAIL,
			"light_rail":   LINK_LIGHT_RAIL,
			"tram":         LINK_TRAM,
			"subway":       LINK_SUBWAY,
			"narrow_gauge": LINK_RAIL,
			"funicular":    LINK_RAIL,
			"monorail":     LINK_LIGHT_RAIL,
		},
		negligibleHighway: map[string]struct{}{
			"path":         {},
			"construction": {},
			"proposed":     {},
			"raceway":      {},
			"bridleway":    {},
			"rest_area":    {},
			"road":         {},
			"abandoned":    {},
			"planned":      {},
			"trailhead":    {},
			"dismantled":   {},
			"disused":      {},
			"razed":        {},
			"corridor":     {},
		},
		networkTypeByLink: map[LinkClass]NetworkType{
			LINK_CLASS_HIGHWAY: NETWORK_ROAD,
			LINK_CLASS_RAILWAY: NETWORK_RAIL,
		},
	}
}

// IsHighwayOrRailwayWay reports whether the way carries a classifiable
// highway or railway tag at all.
func (filter *WayFilter) IsHighwayOrRailwayWay(way *WayData) bool {
	return way.highway != "" || way.railway != ""
}

// classify resolves link class and type for the way. Returns false for ways
// outside the filter's vocabulary (negligible, POI-like, unknown tags).
func (filter *WayFilter) classify(way *WayData) bool {
	if way.isHighway() {
		if way.isHighwayNegligible(filter) {
			return false
		}
		linkType, ok := filter.linkTypeByHighway[way.highway]
		if !ok {
			return false
		}
		way.linkType = linkType
		way.linkClass = LINK_CLASS_HIGHWAY
		return true
	}
	if way.isRailway() {
		linkType, ok := filter.linkTypeByRailway[way.railway]
		if !ok {
			return false
		}
		way.linkType = linkType
		way.linkClass = LINK_CLASS_RAILWAY
		return true
	}
	return false
}

// networkTypeFor maps a classified way onto the network type whose layer
// should carry it.
func (filter *WayFilter) networkTypeFor(way *WayData) NetworkType {
	return filter.networkTypeByLink[way.linkClass]
}

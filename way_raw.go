package planitosm

import (
	"github.com/paulmach/osm"
)

// WayData is an OSM way flattened for conversion: relevant tags pulled out,
// node references copied, classification filled in by the way filter.
type WayData struct {
	name     string
	highway  string
	railway  string
	area     string
	building string
	amenity  string
	leisure  string

	TagMap osm.Tags
	Nodes  []osm.NodeID

	ID         osm.WayID
	linkType   LinkType
	linkClass  LinkClass
	isCircular bool
}

func wayDataFromOSM(way *osm.Way) *WayData {
	prepared := &WayData{
		ID:     way.ID,
		Nodes:  make([]osm.NodeID, 0, len(way.Nodes)),
		TagMap: make(osm.Tags, len(way.Tags)),
	}
	copy(prepared.TagMap, way.Tags)
	for _, node := range way.Nodes {
		prepared.Nodes = append(prepared.Nodes, node.ID)
	}
	prepared.flattenTags()
	return prepared
}

func (way *WayData) flattenTags() {
	way.name = way.TagMap.Find("name")
	way.highway = way.TagMap.Find("highway")
	way.railway = way.TagMap.Find("railway")
	way.area = way.TagMap.Find("area")
	way.building = way.TagMap.Find("building")
	way.amenity = way.TagMap.Find("amenity")
	way.leisure = way.TagMap.Find("leisure")
}

func (way *WayData) isPOI() bool {
	return way.building != "" || way.amenity != "" || way.leisure != ""
}

func (way *WayData) isArea() bool {
	return way.area != "" && way.area != "no"
}

func (way *WayData) isHighway() bool {
	return way.highway != ""
}

func (way *WayData) isRailway() bool {
	return way.railway != ""
}

func (way *WayData) isHighwayNegligible(filter *WayFilter) bool {
	_, ok := filter.negligibleHighway[way.highway]
	return ok
}

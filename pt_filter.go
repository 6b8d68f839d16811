package planitosm

import (
	"github.com/paulmach/osm"
)

// PtEntityKind is the public-transport role of an OSM entity relevant for
// the zoning phase.
type PtEntityKind uint16

const (
	PT_NONE = PtEntityKind(iota)
	PT_STOP_POSITION
	PT_PLATFORM
	PT_STATION
)

func (iotaIdx PtEntityKind) String() string {
	return [...]string{"none", "stop_position", "platform", "station"}[iotaIdx]
}

// PtFilter classifies OSM entities from the public-transport perspective.
// Injected into the zoning reader so tests can run with a fixed vocabulary.
type PtFilter struct {
	stopPositionTags map[string]map[string]struct{}
	platformTags     map[string]map[string]struct{}
	stationTags      map[string]map[string]struct{}
}

func DefaultPtFilter() *PtFilter {
	return &PtFilter{
		stopPositionTags: map[string]map[string]struct{}{
			"public_transport": {"stop_position": {}},
			"highway":          {"bus_stop": {}},
			"railway":          {"tram_stop": {}, "halt": {}},
		},
		platformTags: map[string]map[string]struct{}{
			"public_transport": {"platform": {}},
			"railway":          {"platform": {}},
		},
		stationTags: map[string]map[string]struct{}{
			"railway": {"station": {}},
			"amenity": {"bus_station": {}},
		},
	}
}

func tagsMatch(tags osm.Tags, table map[string]map[string]struct{}) bool {
	for key, values := range table {
		value := tags.Find(key)
		if value == "" {
			continue
		}
		if _, ok := values[value]; ok {
			return true
		}
	}
	return false
}

// Classify returns the public-transport role of an entity with the given
// tags. Stop positions win over platforms when an entity carries both
// (a common mapping style for combined stop/platform nodes).
func (filter *PtFilter) Classify(tags osm.Tags) PtEntityKind {
	if tagsMatch(tags, filter.stopPositionTags) {
		return PT_STOP_POSITION
	}
	if tagsMatch(tags, filter.platformTags) {
		return PT_PLATFORM
	}
	if tagsMatch(tags, filter.stationTags) {
		return PT_STATION
	}
	return PT_NONE
}

package planitosm

import (
	"sort"

	"github.com/paulmach/osm"
	"go.uber.org/zap"
)

// replacementMatchToleranceSquared bounds the squared planar distance under
// which a closest-coordinate hit on a replacement geometry still counts as
// containing the location. Locations and geometries are built from the same
// OSM coordinates, so anything beyond float noise means no match.
const replacementMatchToleranceSquared = 1e-14

// internalLocationData records the links a location was internal to at the
// time of registration, plus the originating OSM node when there is one.
// The recorded links may go stale as breaking progresses; they are resolved
// through the broken-ways bookkeeping on every read.
type internalLocationData struct {
	links   []*NetworkLink
	osmNode *osm.Node
}

// reconciledLink is the outcome of resolving one recorded link against the
// current link set: the currently valid link covering the location, plus
// whether the location is by now an extreme coordinate of it (in which case
// breaking there again is a no-op).
type reconciledLink struct {
	link        *NetworkLink
	atExtremity bool
}

// PerLayerState is the single source of truth, per network layer, for what
// is known about every location encountered so far: which locations carry a
// network node, which are internal to links, and how OSM way ids map onto
// the current (post-breaking) link set.
type PerLayerState struct {
	layer *NetworkLayer
	log   *zap.Logger

	nodesByLocation   map[Location]*NetworkNode
	internalLocations map[Location]*internalLocationData
	brokenWays        map[osm.WayID][]*NetworkLink
}

func newPerLayerState(layer *NetworkLayer, log *zap.Logger) *PerLayerState {
	return &PerLayerState{
		layer:             layer,
		log:               log,
		nodesByLocation:   make(map[Location]*NetworkNode),
		internalLocations: make(map[Location]*internalLocationData),
		brokenWays:        make(map[osm.WayID][]*NetworkLink),
	}
}

// RegisterNetworkNode records that a node now exists at the location. An
// internal-link entry for the location is left in place: a way extremity can
// sit on the interior of another way, and the entry is what marks that spot
// as still needing a break. The reconciler clears the entry once the break
// (or the proof that none is needed) has happened.
func (state *PerLayerState) RegisterNetworkNode(location Location, node *NetworkNode) {
	if existing, ok := state.nodesByLocation[location]; ok && existing != node {
		state.log.Warn("replacing network node registered at location",
			zap.String("location", locationString(location)),
			zap.Int("existingNodeId", int(existing.ID)),
			zap.Int("newNodeId", int(node.ID)))
	}
	state.nodesByLocation[location] = node
}

// clearInternal removes the internal-link entry for the location. Called by
// the reconciler once the location has been fully promoted.
func (state *PerLayerState) clearInternal(location Location) {
	delete(state.internalLocations, location)
}

// RegisterLocationAsInternalToLink appends the link to the internal-to list
// of the location. The originating OSM node, when known, is stored alongside
// because some consumers need the OSM id even though the primary key is
// geometric.
func (state *PerLayerState) RegisterLocationAsInternalToLink(location Location, link *NetworkLink, osmNode *osm.Node) {
	entry, ok := state.internalLocations[location]
	if !ok {
		entry = &internalLocationData{links: make([]*NetworkLink, 0, 2)}
		state.internalLocations[location] = entry
	}
	entry.links = append(entry.links, link)
	if osmNode != nil {
		entry.osmNode = osmNode
	}
}

// IsLocationPresent reports whether the location is known at all: either a
// registered network node or internal to at least one link.
func (state *PerLayerState) IsLocationPresent(location Location) bool {
	if _, ok := state.nodesByLocation[location]; ok {
		return true
	}
	_, ok := state.internalLocations[location]
	return ok
}

// NodeAt returns the network node registered at the location, nil if none.
func (state *PerLayerState) NodeAt(location Location) *NetworkNode {
	return state.nodesByLocation[location]
}

func (state *PerLayerState) osmNodeAt(location Location) *osm.Node {
	if entry, ok := state.internalLocations[location]; ok {
		return entry.osmNode
	}
	return nil
}

// FindCurrentLinksAtLocation returns the links presently valid for the
// location, resolved through the broken-ways bookkeeping. An unregistered
// location yields an empty result with a log entry: that is an expected
// condition (e.g. a stop position outside the parsed bounding box), not an
// error.
func (state *PerLayerState) FindCurrentLinksAtLocation(location Location) []*NetworkLink {
	if node, ok := state.nodesByLocation[location]; ok {
		links := make([]*NetworkLink, 0, len(node.links))
		for _, linkID := range node.links {
			if link, ok := state.layer.links[linkID]; ok {
				links = append(links, link)
			}
		}
		return links
	}
	entry, ok := state.internalLocations[location]
	if !ok {
		state.log.Info("location never registered on layer, no links to find",
			zap.String("location", locationString(location)),
			zap.String("layer", state.layer.name))
		return nil
	}
	reconciled := state.reconcileAt(location, entry.links)
	links := make([]*NetworkLink, 0, len(reconciled))
	for _, candidate := range reconciled {
		links = append(links, candidate.link)
	}
	return links
}

// LocationsInternalToAtLeast scans the internal mapping and returns every
// location whose internal-link count is at least n, ordered deterministically
// (lon, then lat). These are the points that must be broken before the layer
// is considered closed.
func (state *PerLayerState) LocationsInternalToAtLeast(n int) []Location {
	locations := make([]Location, 0, len(state.internalLocations))
	for location, entry := range state.internalLocations {
		if len(entry.links) >= n {
			locations = append(locations, location)
		}
	}
	sort.Slice(locations, func(i, j int) bool {
		if locations[i][0] != locations[j][0] {
			return locations[i][0] < locations[j][0]
		}
		return locations[i][1] < locations[j][1]
	})
	return locations
}

// reconcileAt resolves the recorded links for a location against the current
// link set: links of ways broken since registration are replaced by the
// replacement piece whose geometry contains the location. Links no longer on
// the layer (removed by the caller) are skipped; recorded links with no
// current replacement containing the location are dropped with a warning.
// The result is de-duplicated; interior matches win over extremity matches
// for the same way.
func (state *PerLayerState) reconcileAt(location Location, recorded []*NetworkLink) []reconciledLink {
	reconciled := make([]reconciledLink, 0, len(recorded))
	seen := make(map[NetworkLinkID]struct{}, len(recorded))

	appendCandidate := func(link *NetworkLink, atExtremity bool) {
		if _, ok := seen[link.ID]; ok {
			return
		}
		seen[link.ID] = struct{}{}
		reconciled = append(reconciled, reconciledLink{link: link, atExtremity: atExtremity})
	}

	for _, recordedLink := range recorded {
		replacements, wasBroken := state.brokenWays[recordedLink.osmWayID]
		if !wasBroken {
			if _, ok := state.layer.links[recordedLink.ID]; !ok {
				continue
			}
			appendCandidate(recordedLink, recordedLink.hasExtremity(location))
			continue
		}

		// The way was broken since this link was recorded: search the
		// latest replacement set for the piece that actually contains the
		// location, by coordinate position rather than link identity.
		matched := false
		for _, replacement := range replacements {
			if _, ok := state.layer.links[replacement.ID]; !ok {
				continue
			}
			idx := findCoordinatePosition(replacement.geom, location)
			if idx == coordinatePositionNotFound {
				closestIdx, distance := findClosestCoordinatePosition(replacement.geom, location)
				if closestIdx == coordinatePositionNotFound || distance > replacementMatchToleranceSquared {
					continue
				}
				idx = closestIdx
			}
			matched = true
			appendCandidate(replacement, isExtremePosition(replacement.geom, idx))
		}
		if !matched {
			state.log.Warn("no current replacement link contains location, dropping stale link",
				zap.Int64("osmWayId", int64(recordedLink.osmWayID)),
				zap.String("location", locationString(location)),
				zap.String("layer", state.layer.name))
		}
	}

	// Prefer interior matches: when a piece boundary coincides with the
	// location, the extremity entries describe an already-broken state and
	// must not shadow a link that still needs breaking.
	sort.SliceStable(reconciled, func(i, j int) bool {
		return !reconciled[i].atExtremity && reconciled[j].atExtremity
	})
	return reconciled
}

// registerBrokenWay merges the replacement links of a freshly broken way
// into the broken-ways bookkeeping. Entries removed from the layer by the
// break are evicted; the remaining pieces plus the replacements jointly
// reproduce the original way geometry.
func (state *PerLayerState) registerBrokenWay(wayID osm.WayID, replacements []*NetworkLink) {
	merged := make([]*NetworkLink, 0, len(state.brokenWays[wayID])+len(replacements))
	seen := make(map[NetworkLinkID]struct{})
	for _, link := range state.brokenWays[wayID] {
		if _, ok := state.layer.links[link.ID]; !ok {
			continue
		}
		if _, ok := seen[link.ID]; ok {
			continue
		}
		seen[link.ID] = struct{}{}
		merged = append(merged, link)
	}
	for _, link := range replacements {
		if _, ok := state.layer.links[link.ID]; !ok {
			continue
		}
		if _, ok := seen[link.ID]; ok {
			continue
		}
		seen[link.ID] = struct{}{}
		merged = append(merged, link)
	}
	if len(merged) < 2 {
		state.log.Warn("broken way resolved to fewer than two pieces",
			zap.Int64("osmWayId", int64(wayID)),
			zap.Int("pieces", len(merged)))
	}
	state.brokenWays[wayID] = merged
}

// Reset clears all maps so the state can be reused for an independent parse.
func (state *PerLayerState) Reset() {
	state.nodesByLocation = make(map[Location]*NetworkNode)
	state.internalLocations = make(map[Location]*internalLocationData)
	state.brokenWays = make(map[osm.WayID][]*NetworkLink)
}

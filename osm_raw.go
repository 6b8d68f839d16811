package planitosm

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type OSMScanner interface {
	Scan() bool
	Close() error
	Err() error
	Object() osm.Object
}

// StopAreaData is a flattened public_transport=stop_area relation: which
// stop positions belong to which platforms/stations. Used by the zoning
// phase to prefer zones grouped with a stop position by the mapper.
type StopAreaData struct {
	name        string
	ID          osm.RelationID
	stopNodes   []osm.NodeID
	platformIDs []zoneKey
}

// OSMDataRaw carries everything gathered from one streaming read of the
// input file: the node table, flattened ways and stop areas.
type OSMDataRaw struct {
	nodes     map[osm.NodeID]*Node
	waysRaw   []*WayData
	stopAreas []*StopAreaData
}

func newScanner(filename string, file *os.File) (OSMScanner, error) {
	ext := filepath.Ext(filename)
	switch ext {
	case ".osm", ".xml":
		return osmxml.New(context.Background(), file), nil
	case ".pbf", ".osm.pbf":
		return osmpbf.New(context.Background(), file, 4), nil
	default:
		return nil, errors.Errorf("file extension '%s' for file '%s' is not handled", ext, filename)
	}
}

// readOSM streams the input file in three passes (ways, nodes, relations),
// the pass order the underlying scanners dictate nothing about but the
// bookkeeping does: the ways pass decides which nodes are worth keeping.
// Tagged nodes are always kept since stand-alone stops/platforms are not
// referenced by any way.
func readOSM(filename string, log *zap.Logger) (*OSMDataRaw, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "can't open input file")
	}
	defer file.Close()

	log.Info("reading OSM file", zap.String("file", filename))

	/* Process ways */
	st := time.Now()
	ways := []*WayData{}
	nodesSeen := make(map[osm.NodeID]struct{})
	{
		scannerWays, err := newScanner(filename, file)
		if err != nil {
			return nil, err
		}
		defer scannerWays.Close()

		for scannerWays.Scan() {
			obj := scannerWays.Object()
			if obj.ObjectID().Type() != "way" {
				continue
			}
			way := obj.(*osm.Way)
			if len(way.Nodes) < 2 {
				log.Warn("way with fewer than 2 nodes met",
					zap.Int64("osmWayId", int64(way.ID)),
					zap.Int("nodes", len(way.Nodes)))
				continue
			}
			preparedWay := wayDataFromOSM(way)
			for _, nodeID := range preparedWay.Nodes {
				nodesSeen[nodeID] = struct{}{}
			}
			ways = append(ways, preparedWay)
		}
		if err := scannerWays.Err(); err != nil {
			return nil, errors.Wrap(err, "scanner error on ways")
		}
	}
	log.Info("ways pass done", zap.Int("ways", len(ways)), zap.Duration("took", time.Since(st)))

	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "can't repeat seeking after ways scanning")
	}

	/* Process nodes */
	st = time.Now()
	nodes := make(map[osm.NodeID]*Node)
	{
		scannerNodes, err := newScanner(filename, file)
		if err != nil {
			return nil, err
		}
		defer scannerNodes.Close()

		for scannerNodes.Scan() {
			obj := scannerNodes.Object()
			if obj.ObjectID().Type() != "node" {
				continue
			}
			node := obj.(*osm.Node)
			_, seen := nodesSeen[node.ID]
			if !seen && len(node.Tags) == 0 {
				continue
			}
			nodes[node.ID] = &Node{
				node: *node,
				name: node.Tags.Find("name"),
				ID:   node.ID,
			}
		}
		if err := scannerNodes.Err(); err != nil {
			return nil, errors.Wrap(err, "scanner error on nodes")
		}
	}
	log.Info("nodes pass done", zap.Int("nodes", len(nodes)), zap.Duration("took", time.Since(st)))

	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "can't repeat seeking after nodes scanning")
	}

	/* Process relations (stop areas only) */
	st = time.Now()
	stopAreas := []*StopAreaData{}
	{
		scannerRelations, err := newScanner(filename, file)
		if err != nil {
			return nil, err
		}
		defer scannerRelations.Close()

		for scannerRelations.Scan() {
			obj := scannerRelations.Object()
			if obj.ObjectID().Type() != "relation" {
				continue
			}
			relation := obj.(*osm.Relation)
			if relation.Tags.Find("public_transport") != "stop_area" {
				continue
			}
			stopArea := &StopAreaData{
				name: relation.Tags.Find("name"),
				ID:   relation.ID,
			}
			for _, member := range relation.Members {
				switch member.Type {
				case osm.TypeNode:
					if member.Role == "stop" {
						stopArea.stopNodes = append(stopArea.stopNodes, osm.NodeID(member.Ref))
					} else {
						stopArea.platformIDs = append(stopArea.platformIDs, zoneKey{osmID: member.Ref, entityType: ENTITY_NODE})
					}
				case osm.TypeWay:
					stopArea.platformIDs = append(stopArea.platformIDs, zoneKey{osmID: member.Ref, entityType: ENTITY_WAY})
				default:
					log.Warn("unsupported stop_area member type",
						zap.Int64("relationId", int64(relation.ID)),
						zap.String("memberType", string(member.Type)))
				}
			}
			stopAreas = append(stopAreas, stopArea)
		}
		if err := scannerRelations.Err(); err != nil {
			return nil, errors.Wrap(err, "scanner error on relations")
		}
	}
	log.Info("relations pass done", zap.Int("stopAreas", len(stopAreas)), zap.Duration("took", time.Since(st)))

	return &OSMDataRaw{
		nodes:     nodes,
		waysRaw:   ways,
		stopAreas: stopAreas,
	}, nil
}

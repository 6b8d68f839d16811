package planitosm

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
)

// ExportToCSV writes the populated network to CSV files, one nodes and one
// links file per layer, derived from the given base filename.
func (net *Network) ExportToCSV(fname string) error {
	fnameParts := strings.Split(fname, ".csv")
	for _, layer := range net.Layers() {
		fnameNodes := fmt.Sprintf("%s_%s_nodes.csv", fnameParts[0], layer.name)
		fnameLinks := fmt.Sprintf("%s_%s_links.csv", fnameParts[0], layer.name)

		err := layer.exportNodesToCSV(fnameNodes)
		if err != nil {
			return errors.Wrapf(err, "Can't export nodes of layer '%s'", layer.name)
		}
		err = layer.exportLinksToCSV(fnameLinks)
		if err != nil {
			return errors.Wrapf(err, "Can't export links of layer '%s'", layer.name)
		}
	}
	return nil
}

func (layer *NetworkLayer) exportLinksToCSV(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"id", "source_node", "target_node", "osm_way_id", "link_class", "link_type", "length_meters", "name", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, link := range layer.linksToSlice() {
		err = writer.Write([]string{
			fmt.Sprintf("%d", link.ID),
			fmt.Sprintf("%d", link.sourceNodeID),
			fmt.Sprintf("%d", link.targetNodeID),
			fmt.Sprintf("%d", link.osmWayID),
			fmt.Sprintf("%s", link.linkClass),
			fmt.Sprintf("%s", link.linkType),
			fmt.Sprintf("%f", link.lengthMeters),
			link.name,
			wkt.MarshalString(link.geom),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write link")
		}
	}
	return nil
}

func (layer *NetworkLayer) exportNodesToCSV(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"id", "osm_node_id", "name", "longitude", "latitude"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, node := range layer.nodesToSlice() {
		err = writer.Write([]string{
			fmt.Sprintf("%d", node.ID),
			fmt.Sprintf("%d", node.osmNodeID),
			node.name,
			fmt.Sprintf("%f", node.geom[0]),
			fmt.Sprintf("%f", node.geom[1]),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write node")
		}
	}
	return nil
}

func (layer *NetworkLayer) nodesToSlice() []*NetworkNode {
	nodes := make([]*NetworkNode, 0, len(layer.nodes))
	for _, node := range layer.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// ExportToCSV writes the transfer zones and connectoids to CSV files derived
// from the given base filename. Incomplete zones are included and flagged;
// they represent data gaps worth inspecting downstream.
func (state *ZoningReaderState) ExportToCSV(fname string) error {
	fnameParts := strings.Split(fname, ".csv")
	fnameZones := fmt.Sprintf(fnameParts[0] + "_zones.csv")
	fnameConnectoids := fmt.Sprintf(fnameParts[0] + "_connectoids.csv")

	err := state.exportZonesToCSV(fnameZones)
	if err != nil {
		return errors.Wrap(err, "Can't export transfer zones")
	}
	err = state.exportConnectoidsToCSV(fnameConnectoids)
	if err != nil {
		return errors.Wrap(err, "Can't export connectoids")
	}
	return nil
}

func (state *ZoningReaderState) exportZonesToCSV(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"osm_id", "entity_type", "kind", "complete", "connectoids", "name", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	zones := append(state.CompleteZones(), state.IncompleteZones()...)
	for _, zone := range zones {
		err = writer.Write([]string{
			fmt.Sprintf("%d", zone.key.osmID),
			fmt.Sprintf("%s", zone.key.entityType),
			fmt.Sprintf("%s", zone.kind),
			fmt.Sprintf("%t", zone.complete),
			fmt.Sprintf("%d", len(zone.connectoids)),
			zone.name,
			wkt.MarshalString(zone.geom),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write transfer zone")
		}
	}
	return nil
}

func (state *ZoningReaderState) exportConnectoidsToCSV(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"id", "layer_id", "access_node", "zone_osm_id", "zone_entity_type", "longitude", "latitude"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, connectoid := range state.Connectoids() {
		location := connectoid.location()
		err = writer.Write([]string{
			fmt.Sprintf("%d", connectoid.ID),
			fmt.Sprintf("%d", connectoid.layerID),
			fmt.Sprintf("%d", connectoid.accessNode.ID),
			fmt.Sprintf("%d", connectoid.zone.key.osmID),
			fmt.Sprintf("%s", connectoid.zone.key.entityType),
			fmt.Sprintf("%f", location[0]),
			fmt.Sprintf("%f", location[1]),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write connectoid")
		}
	}
	return nil
}

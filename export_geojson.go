package planitosm

import (
	"os"

	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

// ExportToGeoJSON writes the network and zoning output as a single GeoJSON
// feature collection, convenient for eyeballing the result in any viewer.
// Pass a nil zoning state to dump the network alone.
func ExportToGeoJSON(fname string, net *Network, zoning *ZoningReaderState) error {
	collection := geojson.NewFeatureCollection()

	for _, layer := range net.Layers() {
		for _, link := range layer.linksToSlice() {
			coordinates := make([][]float64, 0, len(link.geom))
			for _, pt := range link.geom {
				coordinates = append(coordinates, []float64{pt[0], pt[1]})
			}
			feature := geojson.NewLineStringFeature(coordinates)
			feature.SetProperty("feature", "link")
			feature.SetProperty("id", int(link.ID))
			feature.SetProperty("osm_way_id", int64(link.osmWayID))
			feature.SetProperty("layer", layer.name)
			feature.SetProperty("link_type", link.linkType.String())
			feature.SetProperty("length_meters", link.lengthMeters)
			collection.AddFeature(feature)
		}
		for _, node := range layer.nodesToSlice() {
			feature := geojson.NewPointFeature([]float64{node.geom[0], node.geom[1]})
			feature.SetProperty("feature", "node")
			feature.SetProperty("id", int(node.ID))
			feature.SetProperty("osm_node_id", int64(node.osmNodeID))
			feature.SetProperty("layer", layer.name)
			collection.AddFeature(feature)
		}
	}

	if zoning != nil {
		for _, zone := range append(zoning.CompleteZones(), zoning.IncompleteZones()...) {
			centroid := zone.centroid()
			feature := geojson.NewPointFeature([]float64{centroid[0], centroid[1]})
			feature.SetProperty("feature", "transfer_zone")
			feature.SetProperty("osm_id", zone.key.osmID)
			feature.SetProperty("entity_type", zone.key.entityType.String())
			feature.SetProperty("kind", zone.kind.String())
			feature.SetProperty("complete", zone.complete)
			feature.SetProperty("name", zone.name)
			collection.AddFeature(feature)
		}
		for _, connectoid := range zoning.Connectoids() {
			location := connectoid.location()
			feature := geojson.NewPointFeature([]float64{location[0], location[1]})
			feature.SetProperty("feature", "connectoid")
			feature.SetProperty("id", int(connectoid.ID))
			feature.SetProperty("access_node", int(connectoid.accessNode.ID))
			feature.SetProperty("zone_osm_id", connectoid.zone.key.osmID)
			collection.AddFeature(feature)
		}
	}

	data, err := collection.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "Can't marshal feature collection")
	}
	if err := os.WriteFile(fname, data, 0644); err != nil {
		return errors.Wrap(err, "Can't write GeoJSON file")
	}
	return nil
}

package main

import (
	"flag"
	"fmt"
	"strings"

	planitosm "github.com/TrafficPLANit/PLANitOSM-sub007"
	"go.uber.org/zap"
)

var (
	osmFileName  = flag.String("file", "my_map.osm.pbf", "Filename of *.osm.pbf or *.osm file")
	typesStr     = flag.String("types", "auto", "Requested network types (separated by commas). Supported: auto, bike, walk, railway")
	out          = flag.String("out", "my_network.csv", "Base filename for CSV output. E.g.: 'map.csv' produces 'map_roads_nodes.csv', 'map_roads_links.csv', 'map_zones.csv' and so on")
	geojsonOut   = flag.String("geojson", "", "Optional filename for a GeoJSON dump of the produced network and zoning")
	parseZoning  = flag.Bool("zoning", true, "Parse public transport entities into transfer zones and connectoids?")
	searchRadius = flag.Float64("radius", 40.0, "Search radius (meters) for matching stops to transfer zones and links")
	verbose      = flag.Bool("verbose", true, "Log progress to stderr?")
)

func main() {
	flag.Parse()

	log := zap.NewNop()
	if *verbose {
		var err error
		log, err = zap.NewDevelopment()
		if err != nil {
			fmt.Println(err)
			return
		}
		defer log.Sync()
	}

	networkTypes := strings.Split(*typesStr, ",")
	networkReader, err := planitosm.NewNetworkReader(
		*osmFileName,
		planitosm.WithNetworkTypes(networkTypes...),
		planitosm.WithNetworkLogger(log),
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	bridge, err := networkReader.Read()
	if err != nil {
		fmt.Println(err)
		return
	}

	var zoning *planitosm.ZoningReaderState
	if *parseZoning {
		zoningReader, err := planitosm.NewZoningReader(
			*osmFileName,
			bridge,
			planitosm.WithSearchRadius(*searchRadius),
			planitosm.WithZoningLogger(log),
		)
		if err != nil {
			fmt.Println(err)
			return
		}
		zoning, err = zoningReader.Read()
		if err != nil {
			fmt.Println(err)
			return
		}
	}

	network := bridge.PopulatedNetwork()
	if err := network.ExportToCSV(*out); err != nil {
		fmt.Println(err)
		return
	}
	if zoning != nil {
		if err := zoning.ExportToCSV(*out); err != nil {
			fmt.Println(err)
			return
		}
	}
	if *geojsonOut != "" {
		if err := planitosm.ExportToGeoJSON(*geojsonOut, network, zoning); err != nil {
			fmt.Println(err)
			return
		}
	}
}

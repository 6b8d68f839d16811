package planitosm

import (
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

const defaultSearchRadiusMeters = 40.0

type NetworkReaderOption func(*NetworkReader)

// WithNetworkTypes restricts the parse to the given network types ("auto",
// "bike", "walk", "railway"). Unknown types fail reader construction.
func WithNetworkTypes(networkTypes ...string) NetworkReaderOption {
	return func(reader *NetworkReader) {
		reader.requestedTypes = networkTypes
	}
}

// WithWayFilter replaces the default way classification tables.
func WithWayFilter(filter *WayFilter) NetworkReaderOption {
	return func(reader *NetworkReader) {
		reader.wayFilter = filter
	}
}

// WithBoundingBox clips the parse to the given envelope. Way coordinates
// outside the envelope are dropped from link geometries with a warning.
func WithBoundingBox(bound orb.Bound) NetworkReaderOption {
	return func(reader *NetworkReader) {
		reader.boundingBox = &bound
	}
}

// WithNetworkLogger injects a logger into the network reader. Defaults to a
// no-op logger.
func WithNetworkLogger(log *zap.Logger) NetworkReaderOption {
	return func(reader *NetworkReader) {
		reader.log = log
	}
}

type ZoningReaderOption func(*ZoningReader)

// WithPtFilter replaces the default public-transport classification tables.
func WithPtFilter(filter *PtFilter) ZoningReaderOption {
	return func(reader *ZoningReader) {
		reader.ptFilter = filter
	}
}

// WithSearchRadius sets the radius (meters) used when matching stop
// positions to transfer zones and stand-alone zones to links.
func WithSearchRadius(radiusMeters float64) ZoningReaderOption {
	return func(reader *ZoningReader) {
		reader.searchRadiusMeters = radiusMeters
	}
}

// WithZoningLogger injects a logger into the zoning reader. Defaults to a
// no-op logger.
func WithZoningLogger(log *zap.Logger) ZoningReaderOption {
	return func(reader *ZoningReader) {
		reader.log = log
	}
}

package planitosm

type LinkType uint16

const (
	LINK_MOTORWAY = LinkType(iota + 1)
	LINK_TRUNK
	LINK_PRIMARY
	LINK_SECONDARY
	LINK_TERTIARY
	LINK_RESIDENTIAL
	LINK_LIVING_STREET
	LINK_SERVICE
	LINK_CYCLEWAY
	LINK_FOOTWAY
	LINK_TRACK
	LINK_UNCLASSIFIED
	LINK_RAIL
	LINK_LIGHT_RAIL
	LINK_TRAM
	LINK_SUBWAY
)

func (iotaIdx LinkType) String() string {
	return [...]string{"motorway", "trunk", "primary", "secondary", "tertiary", "residential", "living_street", "service", "cycleway", "footway", "track", "unclassified", "rail", "light_rail", "tram", "subway"}[iotaIdx-1]
}

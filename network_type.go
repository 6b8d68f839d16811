package planitosm

type NetworkType uint16

const (
	NETWORK_ROAD = NetworkType(iota + 1)
	NETWORK_RAIL
)

func (iotaIdx NetworkType) String() string {
	return [...]string{"road", "rail"}[iotaIdx-1]
}

var (
	networkTypes = map[string]NetworkType{
		"auto":    NETWORK_ROAD,
		"bike":    NETWORK_ROAD,
		"walk":    NETWORK_ROAD,
		"railway": NETWORK_RAIL,
	}
)

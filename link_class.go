package planitosm

type LinkClass uint16

const (
	LINK_CLASS_HIGHWAY = LinkClass(iota + 1)
	LINK_CLASS_RAILWAY
)

func (iotaIdx LinkClass) String() string {
	return [...]string{"highway", "railway"}[iotaIdx-1]
}

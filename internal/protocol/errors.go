package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Session routing.
	ErrWorldBusy = "E_WORLD_BUSY"

	// Edit rejections. All are silent no-ops at the sim layer; the code only
	// tells the client why nothing happened.
	ErrNoTarget   = "E_NO_TARGET"
	ErrOutOfRange = "E_OUT_OF_RANGE"
	ErrOccupied   = "E_OCCUPIED"
	ErrTooClose   = "E_TOO_CLOSE"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrWorldBusy:       {},
	ErrNoTarget:        {},
	ErrOutOfRange:      {},
	ErrOccupied:        {},
	ErrTooClose:        {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

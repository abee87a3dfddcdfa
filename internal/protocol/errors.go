package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Command layer.
	ErrBadRequest   = "E_BAD_REQUEST"
	ErrOutOfBounds  = "E_OUT_OF_BOUNDS"
	ErrBlocked      = "E_BLOCKED"
	ErrBadConfig    = "E_BAD_CONFIG"
	ErrUnknownName  = "E_UNKNOWN_NAME"
	ErrModuleFailed = "E_MODULE_FAILED"
	ErrInternal     = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrOutOfBounds:     {},
	ErrBlocked:         {},
	ErrBadConfig:       {},
	ErrUnknownName:     {},
	ErrModuleFailed:    {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

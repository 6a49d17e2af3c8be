package rtc

// Role describes which side of the connection this peer takes. It decides
// the DTLS handshake direction, the ICE controlling role and the parity of
// locally allocated stream ids.
type Role int

const (
	// RoleActPass indicates the peer can take either side; it behaves as
	// the passive side until the exchange resolves it.
	RoleActPass Role = iota

	// RoleActive indicates the peer initiates the DTLS handshake and uses
	// even stream ids.
	RoleActive

	// RolePassive indicates the peer awaits the DTLS handshake and uses
	// odd stream ids.
	RolePassive
)

const (
	roleActPassStr = "actpass"
	roleActiveStr  = "active"
	rolePassiveStr = "passive"
)

func newRole(raw string) Role {
	switch raw {
	case roleActiveStr:
		return RoleActive
	case rolePassiveStr:
		return RolePassive
	default:
		return RoleActPass
	}
}

func (r Role) String() string {
	switch r {
	case RoleActive:
		return roleActiveStr
	case RolePassive:
		return rolePassiveStr
	case RoleActPass:
		return roleActPassStr
	default:
		return unknownStr
	}
}

// The active side must use streams with even identifiers, whereas the
// passive side must use streams with odd identifiers.
// See https://tools.ietf.org/html/rfc8832#section-6
func (r Role) localParity() uint16 {
	if r == RoleActive {
		return 0
	}

	return 1
}

func (r Role) remoteParity() uint16 {
	if r == RoleActive {
		return 1
	}

	return 0
}

// isClient reports whether this side acts as the DTLS client. An
// unresolved ActPass role answers a remote offer and therefore acts as
// the server.
func (r Role) isClient() bool {
	return r == RoleActive
}

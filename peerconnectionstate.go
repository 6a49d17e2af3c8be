package rtc

// PeerConnectionState tracks how far the transport chain has advanced.
// It only ever moves forward; Failed is terminal.
type PeerConnectionState int

const (
	// PeerConnectionStateIdle indicates no transport has been created yet.
	PeerConnectionStateIdle PeerConnectionState = iota

	// PeerConnectionStateIceStarted indicates the ICE session exists and
	// is gathering or checking connectivity.
	PeerConnectionStateIceStarted

	// PeerConnectionStateDtlsStarted indicates ICE connectivity succeeded
	// and the DTLS handshake is running or done.
	PeerConnectionStateDtlsStarted

	// PeerConnectionStateSctpReady indicates the SCTP association is
	// established and data channels can open.
	PeerConnectionStateSctpReady

	// PeerConnectionStateFailed indicates a transport could not be
	// constructed or the handshake was rejected. Terminal.
	PeerConnectionStateFailed
)

const (
	peerConnectionStateIdleStr        = "idle"
	peerConnectionStateIceStartedStr  = "ice-started"
	peerConnectionStateDtlsStartedStr = "dtls-started"
	peerConnectionStateSctpReadyStr   = "sctp-ready"
	peerConnectionStateFailedStr      = "failed"
)

func newPeerConnectionState(raw string) PeerConnectionState {
	switch raw {
	case peerConnectionStateIceStartedStr:
		return PeerConnectionStateIceStarted
	case peerConnectionStateDtlsStartedStr:
		return PeerConnectionStateDtlsStarted
	case peerConnectionStateSctpReadyStr:
		return PeerConnectionStateSctpReady
	case peerConnectionStateFailedStr:
		return PeerConnectionStateFailed
	default:
		return PeerConnectionStateIdle
	}
}

func (s PeerConnectionState) String() string {
	switch s {
	case PeerConnectionStateIdle:
		return peerConnectionStateIdleStr
	case PeerConnectionStateIceStarted:
		return peerConnectionStateIceStartedStr
	case PeerConnectionStateDtlsStarted:
		return peerConnectionStateDtlsStartedStr
	case PeerConnectionStateSctpReady:
		return peerConnectionStateSctpReadyStr
	case PeerConnectionStateFailed:
		return peerConnectionStateFailedStr
	default:
		return unknownStr
	}
}

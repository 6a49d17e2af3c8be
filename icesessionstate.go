package rtc

import "github.com/pion/ice/v4"

// IceSessionState represents the connectivity state of the ICE session.
type IceSessionState int

const (
	// IceSessionStateNew indicates the session waits for remote
	// candidates.
	IceSessionStateNew IceSessionState = iota

	// IceSessionStateGathering indicates local candidate discovery is
	// running.
	IceSessionStateGathering

	// IceSessionStateConnecting indicates connectivity checks are running.
	IceSessionStateConnecting

	// IceSessionStateConnected indicates a candidate pair succeeded and
	// the session is ready for data.
	IceSessionStateConnected

	// IceSessionStateCompleted indicates all candidate pairs have been
	// tested and a working pair was nominated.
	IceSessionStateCompleted

	// IceSessionStateDisconnected indicates connectivity was lost; checks
	// may still recover it.
	IceSessionStateDisconnected

	// IceSessionStateFailed indicates connectivity could not be
	// established or recovered.
	IceSessionStateFailed

	// IceSessionStateClosed indicates the session has shut down.
	IceSessionStateClosed
)

const (
	iceSessionStateNewStr          = "new"
	iceSessionStateGatheringStr    = "gathering"
	iceSessionStateConnectingStr   = "connecting"
	iceSessionStateConnectedStr    = "connected"
	iceSessionStateCompletedStr    = "completed"
	iceSessionStateDisconnectedStr = "disconnected"
	iceSessionStateFailedStr       = "failed"
	iceSessionStateClosedStr       = "closed"
)

func newIceSessionState(state ice.ConnectionState) IceSessionState {
	switch state {
	case ice.ConnectionStateNew:
		return IceSessionStateNew
	case ice.ConnectionStateChecking:
		return IceSessionStateConnecting
	case ice.ConnectionStateConnected:
		return IceSessionStateConnected
	case ice.ConnectionStateCompleted:
		return IceSessionStateCompleted
	case ice.ConnectionStateDisconnected:
		return IceSessionStateDisconnected
	case ice.ConnectionStateFailed:
		return IceSessionStateFailed
	case ice.ConnectionStateClosed:
		return IceSessionStateClosed
	default:
		return IceSessionStateNew
	}
}

func (s IceSessionState) String() string {
	switch s {
	case IceSessionStateNew:
		return iceSessionStateNewStr
	case IceSessionStateGathering:
		return iceSessionStateGatheringStr
	case IceSessionStateConnecting:
		return iceSessionStateConnectingStr
	case IceSessionStateConnected:
		return iceSessionStateConnectedStr
	case IceSessionStateCompleted:
		return iceSessionStateCompletedStr
	case IceSessionStateDisconnected:
		return iceSessionStateDisconnectedStr
	case IceSessionStateFailed:
		return iceSessionStateFailedStr
	case IceSessionStateClosed:
		return iceSessionStateClosedStr
	default:
		return unknownStr
	}
}

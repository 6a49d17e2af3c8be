package rtc

// DataChannelState represents the lifecycle state of a DataChannel.
type DataChannelState int

const (
	// DataChannelStateConnecting indicates the channel is registered but
	// the underlying stream has not opened yet.
	DataChannelStateConnecting DataChannelState = iota

	// DataChannelStateOpen indicates the channel is usable.
	DataChannelStateOpen

	// DataChannelStateClosed indicates the channel or its transport has
	// been closed.
	DataChannelStateClosed
)

const (
	dataChannelStateConnectingStr = "connecting"
	dataChannelStateOpenStr       = "open"
	dataChannelStateClosedStr     = "closed"
)

func newDataChannelState(raw string) DataChannelState {
	switch raw {
	case dataChannelStateOpenStr:
		return DataChannelStateOpen
	case dataChannelStateClosedStr:
		return DataChannelStateClosed
	default:
		return DataChannelStateConnecting
	}
}

func (s DataChannelState) String() string {
	switch s {
	case DataChannelStateConnecting:
		return dataChannelStateConnectingStr
	case DataChannelStateOpen:
		return dataChannelStateOpenStr
	case DataChannelStateClosed:
		return dataChannelStateClosedStr
	default:
		return unknownStr
	}
}

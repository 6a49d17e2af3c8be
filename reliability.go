package rtc

import "github.com/pion/datachannel"

// Reliability selects the delivery guarantees of a data channel. The zero
// value is ordered and fully reliable. MaxRetransmits and
// MaxPacketLifeTime are mutually exclusive; retransmits win if both are
// set.
type Reliability struct {
	// Unordered allows out-of-order delivery.
	Unordered bool

	// MaxRetransmits bounds the number of retransmission attempts.
	MaxRetransmits *uint16

	// MaxPacketLifeTime bounds the retransmission window in milliseconds.
	MaxPacketLifeTime *uint16
}

// channelType maps the reliability policy onto the DCEP channel type and
// its reliability parameter.
func (r Reliability) channelType() (datachannel.ChannelType, uint32) {
	switch {
	case r.MaxRetransmits != nil:
		if r.Unordered {
			return datachannel.ChannelTypePartialReliableRexmitUnordered, uint32(*r.MaxRetransmits)
		}

		return datachannel.ChannelTypePartialReliableRexmit, uint32(*r.MaxRetransmits)
	case r.MaxPacketLifeTime != nil:
		if r.Unordered {
			return datachannel.ChannelTypePartialReliableTimedUnordered, uint32(*r.MaxPacketLifeTime)
		}

		return datachannel.ChannelTypePartialReliableTimed, uint32(*r.MaxPacketLifeTime)
	default:
		if r.Unordered {
			return datachannel.ChannelTypeReliableUnordered, 0
		}

		return datachannel.ChannelTypeReliable, 0
	}
}

// newReliability recovers the policy from a received DCEP channel type.
func newReliability(channelType datachannel.ChannelType, parameter uint32) Reliability {
	val := uint16(parameter)

	switch channelType {
	case datachannel.ChannelTypeReliableUnordered:
		return Reliability{Unordered: true}
	case datachannel.ChannelTypePartialReliableRexmit:
		return Reliability{MaxRetransmits: &val}
	case datachannel.ChannelTypePartialReliableRexmitUnordered:
		return Reliability{Unordered: true, MaxRetransmits: &val}
	case datachannel.ChannelTypePartialReliableTimed:
		return Reliability{MaxPacketLifeTime: &val}
	case datachannel.ChannelTypePartialReliableTimedUnordered:
		return Reliability{Unordered: true, MaxPacketLifeTime: &val}
	default:
		return Reliability{}
	}
}

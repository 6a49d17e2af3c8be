// Package rtc implements the connection orchestration for WebRTC data
// channels: it sequences ICE connectivity establishment, the DTLS
// handshake and the SCTP association, and demultiplexes the association
// into independent data channels.
package rtc

const (
	unknownStr = "unknown"

	// Equal to UDP MTU
	receiveMTU = 1460

	// Stream ids are allocated in [0, sctpMaxStreams).
	sctpMaxStreams = uint16(65535)

	// defaultSCTPPort is advertised in the local description unless the
	// remote description overrides it.
	defaultSCTPPort = uint16(5000)

	// defaultMid tags the single application media section.
	defaultMid = "0"

	// streamName is the logical name of the single ICE stream; local
	// candidates are tagged with it.
	streamName = "application"

	// defaultSTUNPort is used for ICE servers configured without a port.
	defaultSTUNPort = 3478
)

package rtc

import "github.com/pion/logging"

// ICEServer is one STUN server candidate for server-reflexive address
// discovery.
type ICEServer struct {
	// Host is a hostname or IP address.
	Host string

	// Port is the STUN UDP port. Zero selects the default port 3478.
	Port uint16
}

// Configuration collects the immutable settings a PeerConnection is
// constructed with. It is read-only after construction.
type Configuration struct {
	// ICEServers are tried in randomized order; the first whose hostname
	// resolves to an IPv4 address is used.
	ICEServers []ICEServer

	// PortMin and PortMax restrict the local UDP port range used for
	// candidates. Zero values leave the range unrestricted.
	PortMin uint16
	PortMax uint16

	// IncludeLoopback gathers host candidates on loopback interfaces as
	// well. Useful for single-host setups and tests.
	IncludeLoopback bool

	// LoggerFactory provides the structured logging sink for this
	// connection and its transports. Defaults to the pion default
	// factory.
	LoggerFactory logging.LoggerFactory
}

// loggerFactory returns the configured factory or the default one.
func (c Configuration) loggerFactory() logging.LoggerFactory {
	if c.LoggerFactory != nil {
		return c.LoggerFactory
	}

	return logging.NewDefaultLoggerFactory()
}

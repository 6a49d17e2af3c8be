package rtc

import (
	"crypto"
	"crypto/x509"
	"errors"
	"strings"
	"sync"

	"github.com/pion/datachannel"
	"github.com/pion/dtls/v3/pkg/crypto/fingerprint"
	"github.com/pion/logging"
	"github.com/pion/sctp"
)

// PeerConnection orchestrates the lazy bring-up of the transport chain
// (ICE, then DTLS, then SCTP) and multiplexes data channels onto it.
// Signaling stays outside: descriptions and candidates pass through as
// text, carried by whatever channel the application provides.
type PeerConnection struct {
	mu sync.Mutex

	config        Configuration
	certificate   *Certificate
	loggerFactory logging.LoggerFactory
	log           logging.LeveledLogger

	// ops serializes transport chain advancement so each layer starts
	// exactly once, in order.
	ops *operations

	state PeerConnectionState

	mid      string
	sctpPort uint16

	remoteFingerprint string

	ice  *IceSession
	dtls *DTLSTransport
	sctp *SCTPTransport

	channels map[uint16]*DataChannel

	localDescriptionSent bool

	onLocalDescription func(string)
	onLocalCandidate   func(*Candidate)
	onDataChannel      func(*DataChannel)

	isClosed bool
}

// NewPeerConnection creates a PeerConnection with a freshly generated
// certificate. It performs no network IO; transports come up lazily when
// a description is exchanged or a channel is created.
func NewPeerConnection(config Configuration) (*PeerConnection, error) {
	certificate, err := GenerateCertificate()
	if err != nil {
		return nil, err
	}

	loggerFactory := config.loggerFactory()

	pc := &PeerConnection{
		config:        config,
		certificate:   certificate,
		loggerFactory: loggerFactory,
		log:           loggerFactory.NewLogger("pc"),
		ops:           newOperations(),
		state:         PeerConnectionStateIdle,
		mid:           defaultMid,
		sctpPort:      defaultSCTPPort,
		channels:      map[uint16]*DataChannel{},
	}

	return pc, nil
}

// OnLocalDescription sets a handler invoked once with the marshaled local
// description, ready to be forwarded to the peer.
func (pc *PeerConnection) OnLocalDescription(f func(string)) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.onLocalDescription = f
}

// OnLocalCandidate sets a handler invoked for every gathered local
// candidate. A nil candidate signals the end of gathering.
func (pc *PeerConnection) OnLocalCandidate(f func(*Candidate)) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.onLocalCandidate = f
}

// OnDataChannel sets a handler invoked for every channel the peer opens.
func (pc *PeerConnection) OnDataChannel(f func(*DataChannel)) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.onDataChannel = f
}

// State returns the connection state.
func (pc *PeerConnection) State() PeerConnectionState {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	return pc.state
}

// SetRemoteDescription applies the peer's description. The first call
// creates the ICE session, emits the local description and starts
// gathering; repeated calls only refresh the stored remote parameters and
// embedded candidates.
func (pc *PeerConnection) SetRemoteDescription(text string) error {
	desc, err := UnmarshalSessionDescription(text)
	if err != nil {
		return err
	}

	pc.mu.Lock()
	if pc.isClosed {
		pc.mu.Unlock()

		return ErrConnectionClosed
	}

	if desc.Fingerprint != "" {
		pc.remoteFingerprint = desc.Fingerprint
	}
	if desc.SCTPPort != nil {
		pc.sctpPort = *desc.SCTPPort
	}

	created := false
	if pc.ice == nil {
		if err = pc.initIceSession(answerRole(desc.Role)); err != nil {
			pc.mu.Unlock()

			return err
		}
		created = true
	}
	session := pc.ice
	pc.mu.Unlock()

	if err = session.SetRemoteDescription(&desc); err != nil {
		return err
	}

	if created {
		pc.transition(PeerConnectionStateIceStarted)
		if err = pc.emitLocalDescription(); err != nil {
			return err
		}

		return session.GatherLocalCandidates()
	}

	return nil
}

// answerRole derives our role from the role the peer announced.
func answerRole(remote Role) Role {
	if remote == RolePassive {
		return RoleActive
	}

	return RolePassive
}

// SetRemoteCandidate applies a trickled remote candidate. Candidates
// arriving before any description are dropped.
func (pc *PeerConnection) SetRemoteCandidate(text string) error {
	pc.mu.Lock()
	if pc.isClosed {
		pc.mu.Unlock()

		return ErrConnectionClosed
	}
	session := pc.ice
	mid := pc.mid
	pc.mu.Unlock()

	if session == nil {
		pc.log.Debugf("dropping remote candidate, no session yet: %s", text)

		return nil
	}

	session.AddRemoteCandidate(Candidate{Candidate: text, Mid: mid})

	return nil
}

// CreateDataChannel creates a channel with the lowest free stream id of our
// parity. The first call on a connection with no session yet makes this
// side the offerer: it creates the ICE session with the active role, emits
// the local description and starts gathering.
func (pc *PeerConnection) CreateDataChannel(label, protocol string, reliability Reliability) (*DataChannel, error) {
	// The open message carries label and protocol with 16 bit lengths.
	if len(label) > 65535 || len(protocol) > 65535 {
		return nil, ErrStringSizeLimit
	}

	pc.mu.Lock()
	if pc.isClosed {
		pc.mu.Unlock()

		return nil, ErrConnectionClosed
	}

	role := RoleActive
	if pc.ice != nil {
		role = pc.ice.Role()
	}

	streamID, err := pc.allocateStreamID(role)
	if err != nil {
		pc.mu.Unlock()

		return nil, err
	}

	dc := newDataChannel(streamID, label, protocol, reliability, pc.loggerFactory.NewLogger("datachannel"))
	pc.channels[streamID] = dc

	created := false
	if pc.ice == nil {
		if err = pc.initIceSession(RoleActive); err != nil {
			delete(pc.channels, streamID)
			pc.mu.Unlock()

			return nil, err
		}
		created = true
	}
	session := pc.ice
	transport := pc.sctp
	pc.mu.Unlock()

	if created {
		pc.transition(PeerConnectionStateIceStarted)
		if err = pc.emitLocalDescription(); err != nil {
			return nil, err
		}
		if err = session.GatherLocalCandidates(); err != nil {
			return nil, err
		}
	}

	if transport != nil && transport.Ready() {
		pc.ops.Enqueue(func() { pc.openChannel(dc) })
	}

	return dc, nil
}

// allocateStreamID returns the lowest stream id of our parity that is not
// registered yet. The caller must hold pc.mu.
func (pc *PeerConnection) allocateStreamID(role Role) (uint16, error) {
	for id := int(role.localParity()); id < int(sctpMaxStreams); id += 2 {
		if _, taken := pc.channels[uint16(id)]; !taken {
			return uint16(id), nil
		}
	}

	return 0, ErrTooManyDataChannels
}

// initIceSession creates the session and wires its callbacks. The caller
// must hold pc.mu.
func (pc *PeerConnection) initIceSession(role Role) error {
	session, err := newIceSession(role, &pc.config, pc.loggerFactory)
	if err != nil {
		return err
	}

	session.OnCandidate(func(candidate *Candidate) {
		pc.mu.Lock()
		handler := pc.onLocalCandidate
		pc.mu.Unlock()

		if handler != nil {
			handler(candidate)
		}
	})
	session.OnStateChange(func(state IceSessionState) {
		if state == IceSessionStateFailed {
			pc.fail(ErrICENotEstablished)
		}
	})
	session.OnReady(func() {
		pc.ops.Enqueue(pc.startDTLS)
	})

	pc.ice = session

	return nil
}

// startDTLS runs on the operations queue once ICE connectivity is up.
func (pc *PeerConnection) startDTLS() {
	pc.mu.Lock()
	if pc.isClosed || pc.dtls != nil || pc.ice == nil {
		pc.mu.Unlock()

		return
	}
	session := pc.ice
	transport := newDTLSTransport(session.Role(), pc.certificate, pc.verifyRemoteCertificate, pc.loggerFactory)
	pc.dtls = transport
	pc.mu.Unlock()

	transport.OnReady(func() {
		pc.ops.Enqueue(pc.startSCTP)
	})
	transport.OnError(pc.fail)

	pc.transition(PeerConnectionStateDtlsStarted)

	endpoint := session.DTLSEndpoint()
	if endpoint == nil {
		pc.fail(ErrICENotEstablished)

		return
	}
	transport.Start(endpoint)
}

// startSCTP runs on the operations queue once the DTLS handshake is done.
func (pc *PeerConnection) startSCTP() {
	pc.mu.Lock()
	if pc.isClosed || pc.sctp != nil || pc.dtls == nil {
		pc.mu.Unlock()

		return
	}
	secured := pc.dtls.Conn()
	transport := newSCTPTransport(pc.sctpPort, pc.loggerFactory)
	pc.sctp = transport
	pc.mu.Unlock()

	transport.OnReady(func() {
		pc.ops.Enqueue(pc.handleSCTPReady)
	})
	transport.OnIncoming(pc.handleIncomingStream)
	transport.OnError(pc.fail)

	if secured == nil {
		pc.fail(ErrDTLSNotEstablished)

		return
	}
	transport.Start(secured)
}

// handleSCTPReady runs on the operations queue once the association is up.
// It opens every channel created while the chain was still coming up.
func (pc *PeerConnection) handleSCTPReady() {
	pc.transition(PeerConnectionStateSctpReady)

	pc.mu.Lock()
	localParity := uint16(0)
	if pc.ice != nil {
		localParity = pc.ice.Role().localParity()
	}
	pending := make([]*DataChannel, 0, len(pc.channels))
	for _, dc := range pc.channels {
		// Only channels we allocated are dialed; peer opened streams
		// complete their handshake in handleIncomingStream.
		if dc.StreamID()%2 == localParity && dc.ReadyState() == DataChannelStateConnecting {
			pending = append(pending, dc)
		}
	}
	pc.mu.Unlock()

	for _, dc := range pending {
		pc.openChannel(dc)
	}
}

// openChannel performs the outbound DCEP handshake for a locally created
// channel.
func (pc *PeerConnection) openChannel(dc *DataChannel) {
	// A channel can be queued for opening twice when the association
	// becomes ready between CreateDataChannel and the ready callback.
	if dc.ReadyState() != DataChannelStateConnecting {
		return
	}

	pc.mu.Lock()
	transport := pc.sctp
	pc.mu.Unlock()

	if transport == nil {
		return
	}

	raw, err := transport.OpenChannel(dc.StreamID(), dc.channelConfig(pc.loggerFactory))
	if err != nil {
		pc.log.Errorf("failed to open channel %d: %s", dc.StreamID(), err)
		dc.setClosed()

		return
	}
	dc.handleOpen(raw)
}

// handleIncomingStream routes a peer opened stream: accepted streams become
// channels announced through OnDataChannel, everything else is reset.
func (pc *PeerConnection) handleIncomingStream(stream *sctp.Stream) {
	streamID := stream.StreamIdentifier()

	pc.mu.Lock()
	transport := pc.sctp
	pc.mu.Unlock()
	if transport == nil {
		pc.log.Errorf("stream %d arrived without a transport chain", streamID)
		pc.fail(ErrSCTPNotEstablished)

		return
	}

	if !pc.acceptsRemoteStream(streamID) {
		pc.log.Warnf("resetting unexpected stream %d", streamID)
		transport.RejectStream(stream)

		return
	}

	raw, err := transport.AcceptChannel(stream, &datachannel.Config{
		LoggerFactory: pc.loggerFactory,
	})
	if err != nil {
		pc.log.Warnf("resetting stream %d, channel open failed: %s", streamID, err)
		transport.RejectStream(stream)

		return
	}

	dc := newDataChannel(
		streamID,
		raw.Config.Label,
		raw.Config.Protocol,
		newReliability(raw.Config.ChannelType, raw.Config.ReliabilityParameter),
		pc.loggerFactory.NewLogger("datachannel"),
	)

	pc.mu.Lock()
	pc.channels[streamID] = dc
	handler := pc.onDataChannel
	pc.mu.Unlock()

	if handler != nil {
		handler(dc)
	}
	dc.handleOpen(raw)
}

// acceptsRemoteStream reports whether a peer opened stream id may become a
// channel: the id must be free and carry the peer's parity.
func (pc *PeerConnection) acceptsRemoteStream(streamID uint16) bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if _, taken := pc.channels[streamID]; taken {
		return false
	}
	if pc.ice == nil {
		return false
	}

	return streamID%2 == pc.ice.Role().remoteParity()
}

// checkFingerprint reports whether the presented certificate digest matches
// the one announced in the remote description. It is false when no
// fingerprint was announced.
func (pc *PeerConnection) checkFingerprint(remote string) bool {
	pc.mu.Lock()
	expected := pc.remoteFingerprint
	pc.mu.Unlock()

	if expected == "" {
		return false
	}

	return strings.EqualFold(expected, remote)
}

func (pc *PeerConnection) verifyRemoteCertificate(cert *x509.Certificate) error {
	digest, err := fingerprint.Fingerprint(cert, crypto.SHA256)
	if err != nil {
		return err
	}

	if !pc.checkFingerprint(digest) {
		pc.log.Errorf("remote certificate fingerprint does not match the announced one")

		return ErrFingerprintMismatch
	}

	return nil
}

// LocalDescription returns the current local description: role and ICE
// credentials, the candidates gathered so far, certificate fingerprint and
// application port.
func (pc *PeerConnection) LocalDescription() (SessionDescription, error) {
	pc.mu.Lock()
	session := pc.ice
	port := pc.sctpPort
	pc.mu.Unlock()

	if session == nil {
		return SessionDescription{}, ErrNoICESession
	}

	desc, err := session.LocalDescription()
	if err != nil {
		return SessionDescription{}, err
	}

	digest, err := pc.certificate.Fingerprint()
	if err != nil {
		return SessionDescription{}, err
	}
	desc.Fingerprint = digest
	desc.SCTPPort = &port

	return desc, nil
}

// emitLocalDescription marshals the local description and hands it to the
// OnLocalDescription handler. It fires at most once per connection.
func (pc *PeerConnection) emitLocalDescription() error {
	pc.mu.Lock()
	if pc.localDescriptionSent {
		pc.mu.Unlock()

		return nil
	}
	pc.localDescriptionSent = true
	handler := pc.onLocalDescription
	pc.mu.Unlock()

	desc, err := pc.LocalDescription()
	if err != nil {
		return err
	}
	text, err := desc.Marshal()
	if err != nil {
		return err
	}

	if handler != nil {
		handler(text)
	}

	return nil
}

// transition moves the connection state forward. Transitions never go
// backwards and never leave Failed.
func (pc *PeerConnection) transition(next PeerConnectionState) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.state == PeerConnectionStateFailed || next <= pc.state {
		return
	}
	pc.log.Infof("state changed: %s -> %s", pc.state, next)
	pc.state = next
}

func (pc *PeerConnection) fail(err error) {
	pc.mu.Lock()
	if pc.isClosed || pc.state == PeerConnectionStateFailed {
		pc.mu.Unlock()

		return
	}
	pc.state = PeerConnectionStateFailed
	pc.mu.Unlock()

	pc.log.Errorf("connection failed: %s", err)
}

// Close tears the transport chain down in reverse bring-up order. It is
// safe to call more than once.
func (pc *PeerConnection) Close() error {
	pc.mu.Lock()
	if pc.isClosed {
		pc.mu.Unlock()

		return nil
	}
	pc.isClosed = true
	channels := make([]*DataChannel, 0, len(pc.channels))
	for _, dc := range pc.channels {
		channels = append(channels, dc)
	}
	sctpTransport := pc.sctp
	dtlsTransport := pc.dtls
	session := pc.ice
	pc.mu.Unlock()

	pc.ops.GracefulClose()

	var errs []error
	for _, dc := range channels {
		if err := dc.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if sctpTransport != nil {
		if err := sctpTransport.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if dtlsTransport != nil {
		if err := dtlsTransport.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if session != nil {
		if err := session.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

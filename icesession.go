package rtc

import (
	"context"
	"net"
	"strings"
	"sync"

	"github.com/pion/ice/v4"
	"github.com/pion/logging"
	"github.com/pion/randutil"
	"github.com/pion/stun/v3"

	"github.com/delude88/libdatachannel/internal/mux"
)

// IceSession wraps a single ice.Agent with one "application" stream and
// exposes the session level surface the PeerConnection drives: local
// credentials and candidates out, remote credentials and candidates in, and
// a packet oriented endpoint for DTLS once the pair is nominated.
type IceSession struct {
	mu sync.Mutex

	role  Role
	agent *ice.Agent

	conn         *ice.Conn
	mux          *mux.Mux
	dtlsEndpoint *mux.Endpoint

	state      IceSessionState
	connecting bool
	readyOnce  sync.Once

	remoteUfrag string
	remotePwd   string

	// remoteCandidates records every candidate already handed to the
	// agent, keyed by its trimmed textual form. Descriptions embed their
	// candidates, so a refreshed description would re-inject them.
	remoteCandidates map[string]struct{}

	onCandidate   func(*Candidate)
	onReady       func()
	onStateChange func(IceSessionState)

	loggerFactory logging.LoggerFactory
	log           logging.LeveledLogger
}

// sessionRandom shuffles the configured STUN servers so load spreads across
// them between sessions.
var sessionRandom = randutil.NewMathRandomGenerator() //nolint:gochecknoglobals

// newIceSession creates an agent bound to the configured STUN server and
// port range. The role decides which side dials once remote credentials
// arrive.
func newIceSession(role Role, config *Configuration, loggerFactory logging.LoggerFactory) (*IceSession, error) {
	session := &IceSession{
		role:             role,
		state:            IceSessionStateNew,
		remoteCandidates: make(map[string]struct{}),
		loggerFactory:    loggerFactory,
		log:              loggerFactory.NewLogger("ice"),
	}

	agentConfig := &ice.AgentConfig{
		NetworkTypes:    []ice.NetworkType{ice.NetworkTypeUDP4},
		IncludeLoopback: config.IncludeLoopback,
		LoggerFactory:   loggerFactory,
	}
	if config.PortMin != 0 || config.PortMax != 0 {
		agentConfig.PortMin = config.PortMin
		agentConfig.PortMax = config.PortMax
	}

	if uri := chooseStunURI(config.ICEServers); uri != nil {
		agentConfig.Urls = []*stun.URI{uri}
	}

	agent, err := ice.NewAgent(agentConfig)
	if err != nil {
		return nil, err
	}

	if err = agent.OnConnectionStateChange(func(state ice.ConnectionState) {
		session.setState(newIceSessionState(state))
	}); err != nil {
		_ = agent.Close()

		return nil, err
	}

	if err = agent.OnCandidate(func(candidate ice.Candidate) {
		if candidate == nil {
			session.emitCandidate(nil)

			return
		}
		session.emitCandidate(&Candidate{
			Candidate: candidate.Marshal(),
			Mid:       streamName,
		})
	}); err != nil {
		_ = agent.Close()

		return nil, err
	}

	session.agent = agent

	return session, nil
}

// chooseStunURI walks the configured servers in random order and picks the
// first one whose hostname resolves to an IPv4 address.
func chooseStunURI(servers []ICEServer) *stun.URI {
	shuffled := make([]ICEServer, len(servers))
	copy(shuffled, servers)
	for i := range shuffled {
		j := sessionRandom.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	for _, server := range shuffled {
		if server.Host == "" {
			continue
		}
		ips, err := net.LookupIP(server.Host)
		if err != nil {
			continue
		}
		for _, ip := range ips {
			if ip.To4() == nil {
				continue
			}
			port := int(server.Port)
			if port == 0 {
				port = defaultSTUNPort
			}

			return &stun.URI{
				Scheme: stun.SchemeTypeSTUN,
				Host:   ip.String(),
				Port:   port,
			}
		}
	}

	return nil
}

// OnCandidate sets a handler invoked for every locally gathered candidate.
// A nil candidate signals the end of gathering.
func (s *IceSession) OnCandidate(f func(*Candidate)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCandidate = f
}

// OnReady sets a handler invoked once, when the session has a nominated
// candidate pair and the DTLS endpoint is usable.
func (s *IceSession) OnReady(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReady = f
}

// OnStateChange sets a handler invoked on every session state transition.
func (s *IceSession) OnStateChange(f func(IceSessionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStateChange = f
}

func (s *IceSession) emitCandidate(c *Candidate) {
	s.mu.Lock()
	handler := s.onCandidate
	s.mu.Unlock()

	if handler != nil {
		handler(c)
	}
}

func (s *IceSession) setState(state IceSessionState) {
	s.mu.Lock()
	if s.state == state {
		s.mu.Unlock()

		return
	}
	s.state = state
	handler := s.onStateChange
	s.mu.Unlock()

	if handler != nil {
		handler(state)
	}
}

// State returns the current session state.
func (s *IceSession) State() IceSessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Role returns the role the session was created with.
func (s *IceSession) Role() Role {
	return s.role
}

// LocalDescription returns the session level half of a description: our
// ufrag, pwd and the candidates gathered so far.
func (s *IceSession) LocalDescription() (SessionDescription, error) {
	ufrag, pwd, err := s.agent.GetLocalUserCredentials()
	if err != nil {
		return SessionDescription{}, err
	}

	desc := SessionDescription{
		Role:     s.role,
		ICEUfrag: ufrag,
		ICEPwd:   pwd,
	}

	candidates, err := s.agent.GetLocalCandidates()
	if err != nil {
		return SessionDescription{}, err
	}
	for _, candidate := range candidates {
		desc.Candidates = append(desc.Candidates, candidate.Marshal())
	}

	return desc, nil
}

// GatherLocalCandidates starts candidate gathering. OnCandidate fires for
// each result.
func (s *IceSession) GatherLocalCandidates() error {
	s.setState(IceSessionStateGathering)

	return s.agent.GatherCandidates()
}

// SetRemoteDescription stores the remote credentials and, on the first
// call, starts connectivity establishment. Subsequent calls only refresh
// candidates.
func (s *IceSession) SetRemoteDescription(desc *SessionDescription) error {
	if desc.ICEUfrag == "" || desc.ICEPwd == "" {
		return ErrInvalidRemoteDescription
	}

	s.mu.Lock()
	s.remoteUfrag = desc.ICEUfrag
	s.remotePwd = desc.ICEPwd
	alreadyConnecting := s.connecting
	s.connecting = true
	s.mu.Unlock()

	for _, candidate := range desc.Candidates {
		s.AddRemoteCandidate(Candidate{Candidate: candidate, Mid: streamName})
	}

	if !alreadyConnecting {
		go s.connect(desc.ICEUfrag, desc.ICEPwd)
	}

	return nil
}

func (s *IceSession) connect(ufrag, pwd string) {
	var (
		conn *ice.Conn
		err  error
	)
	if s.role.isClient() {
		conn, err = s.agent.Dial(context.Background(), ufrag, pwd)
	} else {
		conn, err = s.agent.Accept(context.Background(), ufrag, pwd)
	}
	if err != nil {
		s.log.Errorf("failed to establish connectivity: %s", err)
		s.setState(IceSessionStateFailed)

		return
	}

	connMux := mux.NewMux(mux.Config{
		Conn:          conn,
		BufferSize:    receiveMTU,
		LoggerFactory: s.loggerFactory,
	})

	s.mu.Lock()
	s.conn = conn
	s.mux = connMux
	s.dtlsEndpoint = connMux.NewEndpoint(mux.MatchDTLS)
	onReady := s.onReady
	s.mu.Unlock()

	if onReady != nil {
		s.readyOnce.Do(onReady)
	}
}

// AddRemoteCandidate hands a remote candidate to the agent. It reports
// whether the candidate was understood and accepted; duplicates and
// malformed candidates are rejected without error.
func (s *IceSession) AddRemoteCandidate(candidate Candidate) bool {
	raw := strings.TrimPrefix(candidate.Candidate, "candidate:")

	s.mu.Lock()
	if _, seen := s.remoteCandidates[raw]; seen {
		s.mu.Unlock()
		s.log.Debugf("ignoring duplicate remote candidate %q", candidate.Candidate)

		return false
	}
	s.mu.Unlock()

	parsed, err := ice.UnmarshalCandidate(raw)
	if err != nil {
		s.log.Warnf("discarding remote candidate %q: %s", candidate.Candidate, err)

		return false
	}
	if err = s.agent.AddRemoteCandidate(parsed); err != nil {
		s.log.Warnf("failed to add remote candidate %q: %s", candidate.Candidate, err)

		return false
	}

	s.mu.Lock()
	s.remoteCandidates[raw] = struct{}{}
	s.mu.Unlock()

	return true
}

// DTLSEndpoint returns the net.Conn carrying DTLS records, or nil while
// connectivity is not established.
func (s *IceSession) DTLSEndpoint() net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dtlsEndpoint == nil {
		return nil
	}

	return s.dtlsEndpoint
}

// Send writes a raw datagram on the nominated pair.
func (s *IceSession) Send(data []byte) (int, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return 0, ErrICENotEstablished
	}

	return conn.Write(data)
}

// Close shuts the session down. It is safe to call more than once.
func (s *IceSession) Close() error {
	s.mu.Lock()
	connMux := s.mux
	s.mux = nil
	s.mu.Unlock()

	if connMux != nil {
		if err := connMux.Close(); err != nil {
			s.log.Warnf("failed to close mux: %s", err)
		}
	}
	s.setState(IceSessionStateClosed)

	return s.agent.Close()
}

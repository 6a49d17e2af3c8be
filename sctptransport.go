package rtc

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/pion/datachannel"
	"github.com/pion/logging"
	"github.com/pion/sctp"
)

// SCTPTransport runs the SCTP association over the secured DTLS conn and
// surfaces peer opened streams.
type SCTPTransport struct {
	mu sync.Mutex

	association *sctp.Association
	ready       bool
	port        uint16

	onReady    func()
	onIncoming func(*sctp.Stream)
	onError    func(error)

	loggerFactory logging.LoggerFactory
	log           logging.LeveledLogger
}

// newSCTPTransport creates an unstarted transport. port is the negotiated
// application port, carried in signaling.
func newSCTPTransport(port uint16, loggerFactory logging.LoggerFactory) *SCTPTransport {
	return &SCTPTransport{
		port:          port,
		loggerFactory: loggerFactory,
		log:           loggerFactory.NewLogger("sctp"),
	}
}

// OnReady sets a handler invoked once the association is established.
func (t *SCTPTransport) OnReady(f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReady = f
}

// OnIncoming sets a handler invoked for every peer opened stream.
func (t *SCTPTransport) OnIncoming(f func(*sctp.Stream)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onIncoming = f
}

// OnError sets a handler invoked when association setup fails.
func (t *SCTPTransport) OnError(f func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onError = f
}

// Start establishes the association over conn on a new goroutine. Both
// sides act as SCTP client, per RFC 8841 both may initiate simultaneously.
func (t *SCTPTransport) Start(conn net.Conn) {
	go t.establish(conn)
}

func (t *SCTPTransport) establish(conn net.Conn) {
	association, err := sctp.Client(sctp.Config{
		NetConn:       conn,
		LoggerFactory: t.loggerFactory,
	})
	if err != nil {
		t.mu.Lock()
		onError := t.onError
		t.mu.Unlock()

		t.log.Errorf("failed to establish association: %s", err)
		if onError != nil {
			onError(err)
		}

		return
	}

	t.mu.Lock()
	t.association = association
	t.ready = true
	onReady := t.onReady
	t.mu.Unlock()

	if onReady != nil {
		onReady()
	}

	t.acceptLoop(association)
}

func (t *SCTPTransport) acceptLoop(association *sctp.Association) {
	for {
		stream, err := association.AcceptStream()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.log.Errorf("failed to accept stream: %s", err)
			}

			return
		}

		t.mu.Lock()
		onIncoming := t.onIncoming
		t.mu.Unlock()

		if onIncoming != nil {
			onIncoming(stream)
		} else {
			t.log.Warnf("no receiver for stream %d, resetting", stream.StreamIdentifier())
			_ = stream.Close()
		}
	}
}

// Ready reports whether the association is established.
func (t *SCTPTransport) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.ready
}

// Port returns the negotiated application port.
func (t *SCTPTransport) Port() uint16 {
	return t.port
}

// OpenChannel opens stream id with the DCEP handshake and returns the
// established channel.
func (t *SCTPTransport) OpenChannel(id uint16, config *datachannel.Config) (*datachannel.DataChannel, error) {
	t.mu.Lock()
	association := t.association
	t.mu.Unlock()

	if association == nil {
		return nil, ErrSCTPNotEstablished
	}

	return datachannel.Dial(association, id, config)
}

// AcceptChannel completes the DCEP handshake on a peer opened stream,
// validating the inbound open message and filling config from it.
func (t *SCTPTransport) AcceptChannel(stream *sctp.Stream, config *datachannel.Config) (*datachannel.DataChannel, error) {
	return datachannel.Server(stream, config)
}

// RejectStream resets a peer opened stream we will not accept.
func (t *SCTPTransport) RejectStream(stream *sctp.Stream) {
	if err := stream.Close(); err != nil {
		t.log.Warnf("failed to reset stream %d: %s", stream.StreamIdentifier(), err)
	}
}

// Stop aborts the association.
func (t *SCTPTransport) Stop() error {
	t.mu.Lock()
	association := t.association
	t.association = nil
	t.ready = false
	t.mu.Unlock()

	if association != nil {
		return association.Close()
	}

	return nil
}

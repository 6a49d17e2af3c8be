package rtc

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"sync"

	"github.com/pion/dtls/v3"
	dtlsnet "github.com/pion/dtls/v3/pkg/net"
	"github.com/pion/logging"
)

// DTLSTransport runs the DTLS handshake over the nominated ICE pair and
// hands the secured conn to SCTP.
type DTLSTransport struct {
	mu sync.Mutex

	role        Role
	certificate *Certificate

	conn net.Conn

	onReady func()
	onError func(error)

	verifyRemote func(*x509.Certificate) error

	loggerFactory logging.LoggerFactory
	log           logging.LeveledLogger
}

// newDTLSTransport creates a transport that will handshake with the given
// local certificate. verifyRemote is called with the peer leaf certificate
// once during the handshake; a non nil return aborts it.
func newDTLSTransport(
	role Role,
	certificate *Certificate,
	verifyRemote func(*x509.Certificate) error,
	loggerFactory logging.LoggerFactory,
) *DTLSTransport {
	return &DTLSTransport{
		role:          role,
		certificate:   certificate,
		verifyRemote:  verifyRemote,
		loggerFactory: loggerFactory,
		log:           loggerFactory.NewLogger("dtls"),
	}
}

// OnReady sets a handler invoked once the handshake completed.
func (t *DTLSTransport) OnReady(f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReady = f
}

// OnError sets a handler invoked when the handshake fails.
func (t *DTLSTransport) OnError(f func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onError = f
}

// Start launches the handshake over the given endpoint. The active role
// acts as DTLS client, the passive role as server.
func (t *DTLSTransport) Start(endpoint net.Conn) {
	go t.handshake(endpoint)
}

func (t *DTLSTransport) handshake(endpoint net.Conn) {
	config := &dtls.Config{
		Certificates: []tls.Certificate{t.certificate.tlsCertificate()},
		// Peer identity is pinned by fingerprint, not by chain.
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: t.verifyPeerCertificate,
		LoggerFactory:         t.loggerFactory,
	}

	packetConn := dtlsnet.PacketConnFromConn(endpoint)

	var (
		conn *dtls.Conn
		err  error
	)
	if t.role.isClient() {
		conn, err = dtls.Client(packetConn, endpoint.RemoteAddr(), config)
	} else {
		config.ClientAuth = dtls.RequireAnyClientCert
		conn, err = dtls.Server(packetConn, endpoint.RemoteAddr(), config)
	}
	if err != nil {
		t.fail(err)

		return
	}

	if err = conn.HandshakeContext(context.Background()); err != nil {
		_ = conn.Close()
		t.fail(err)

		return
	}

	t.mu.Lock()
	t.conn = conn
	onReady := t.onReady
	t.mu.Unlock()

	if onReady != nil {
		onReady()
	}
}

func (t *DTLSTransport) verifyPeerCertificate(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		return ErrNoRemoteCertificate
	}

	cert, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return err
	}

	return t.verifyRemote(cert)
}

func (t *DTLSTransport) fail(err error) {
	t.log.Errorf("handshake failed: %s", err)

	t.mu.Lock()
	onError := t.onError
	t.mu.Unlock()

	if onError != nil {
		onError(err)
	}
}

// Conn returns the secured conn, or nil before the handshake completed.
func (t *DTLSTransport) Conn() net.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}

	return t.conn
}

// Stop closes the secured conn if the handshake completed.
func (t *DTLSTransport) Stop() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}

	return nil
}

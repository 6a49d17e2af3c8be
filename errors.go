package rtc

import "errors"

var (
	// ErrConnectionClosed indicates an operation executed after connection
	// has already been closed.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrTooManyDataChannels indicates that no stream id below 65535 is
	// free for the local role's parity.
	ErrTooManyDataChannels = errors.New("maximum number of data channels reached")

	// ErrStringSizeLimit indicates that the data channel label or protocol
	// exceeds the maximum length the open message can carry.
	ErrStringSizeLimit = errors.New("data channel label or protocol exceeds size limit")

	// ErrInvalidRemoteDescription indicates that a remote description could
	// not be parsed or misses the ICE credentials.
	ErrInvalidRemoteDescription = errors.New("invalid remote description")

	// ErrNoICESession indicates that an operation requires an ICE session
	// which has not been created yet.
	ErrNoICESession = errors.New("ICE session not started")

	// ErrICENotEstablished indicates a send on an ICE session whose
	// connectivity checks have not selected a pair yet.
	ErrICENotEstablished = errors.New("ICE connection not established")

	// ErrDTLSNotEstablished indicates that the SCTP association was
	// requested before the DTLS handshake completed.
	ErrDTLSNotEstablished = errors.New("DTLS transport not established")

	// ErrSCTPNotEstablished indicates a data channel open attempt before
	// the SCTP association is up.
	ErrSCTPNotEstablished = errors.New("SCTP transport not established")

	// ErrFingerprintMismatch indicates that the certificate presented
	// during the DTLS handshake does not match the fingerprint from the
	// remote description.
	ErrFingerprintMismatch = errors.New("remote certificate fingerprint mismatch")

	// ErrNoRemoteCertificate indicates the peer completed the handshake
	// without presenting a certificate.
	ErrNoRemoteCertificate = errors.New("peer did not provide a certificate")

	// ErrDataChannelNotOpen indicates a send on a data channel that is not
	// in the open state.
	ErrDataChannelNotOpen = errors.New("data channel not open")
)

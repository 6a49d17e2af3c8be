package mux

import (
	"net"
	"testing"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v3/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPipeBufferSize = 8192

func TestDispatchToMatchingEndpoint(t *testing.T) {
	lim := test.TimeOut(time.Second * 10)
	defer lim.Stop()

	ca, cb := net.Pipe()

	m := NewMux(Config{
		Conn:          ca,
		BufferSize:    testPipeBufferSize,
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	})
	dtlsEndpoint := m.NewEndpoint(MatchDTLS)

	packet := append([]byte{22}, []byte("handshake")...)
	go func() {
		_, wErr := cb.Write(packet)
		assert.NoError(t, wErr)
	}()

	buf := make([]byte, testPipeBufferSize)
	n, err := dtlsEndpoint.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, packet, buf[:n])

	assert.NoError(t, m.Close())
	assert.NoError(t, cb.Close())
}

func TestPendingPacketsReplayedIntoNewEndpoint(t *testing.T) {
	lim := test.TimeOut(time.Second * 10)
	defer lim.Stop()

	ca, cb := net.Pipe()

	m := NewMux(Config{
		Conn:          ca,
		BufferSize:    testPipeBufferSize,
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	})

	// No endpoint matches yet, the packet must be cached.
	packet := []byte{20, 1, 2, 3}
	go func() {
		_, wErr := cb.Write(packet)
		assert.NoError(t, wErr)
	}()

	// Wait until the read loop consumed it.
	time.Sleep(50 * time.Millisecond)

	dtlsEndpoint := m.NewEndpoint(MatchDTLS)

	buf := make([]byte, testPipeBufferSize)
	n, err := dtlsEndpoint.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, packet, buf[:n])

	assert.NoError(t, m.Close())
	assert.NoError(t, cb.Close())
}

func TestEndpointWriteReachesConn(t *testing.T) {
	lim := test.TimeOut(time.Second * 10)
	defer lim.Stop()

	ca, cb := net.Pipe()

	m := NewMux(Config{
		Conn:          ca,
		BufferSize:    testPipeBufferSize,
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	})
	endpoint := m.NewEndpoint(MatchDTLS)

	packet := []byte{23, 42}
	go func() {
		_, wErr := endpoint.Write(packet)
		assert.NoError(t, wErr)
	}()

	buf := make([]byte, testPipeBufferSize)
	n, err := cb.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, packet, buf[:n])

	assert.NoError(t, m.Close())
	assert.NoError(t, cb.Close())
}

func TestNoEndpointAfterRemove(t *testing.T) {
	lim := test.TimeOut(time.Second * 10)
	defer lim.Stop()

	ca, cb := net.Pipe()

	m := NewMux(Config{
		Conn:          ca,
		BufferSize:    testPipeBufferSize,
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	})

	endpoint := m.NewEndpoint(MatchDTLS)
	assert.NoError(t, endpoint.Close())

	// The endpoint is gone; a DTLS packet lands in the pending cache
	// instead of the closed buffer.
	go func() {
		_, wErr := cb.Write([]byte{25, 0})
		assert.NoError(t, wErr)
	}()
	time.Sleep(50 * time.Millisecond)

	replacement := m.NewEndpoint(MatchDTLS)
	buf := make([]byte, testPipeBufferSize)
	n, err := replacement.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{25, 0}, buf[:n])

	assert.NoError(t, m.Close())
	assert.NoError(t, cb.Close())
}

func TestMatchFuncs(t *testing.T) {
	assert.False(t, MatchSTUN(nil))
	assert.True(t, MatchSTUN([]byte{0}))
	assert.True(t, MatchSTUN([]byte{3}))
	assert.False(t, MatchSTUN([]byte{4}))

	assert.False(t, MatchDTLS([]byte{19}))
	assert.True(t, MatchDTLS([]byte{20}))
	assert.True(t, MatchDTLS([]byte{63}))
	assert.False(t, MatchDTLS([]byte{64}))
}

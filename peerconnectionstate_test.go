package rtc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPeerConnectionState(t *testing.T) {
	testCases := []struct {
		raw      string
		expected PeerConnectionState
	}{
		{unknownStr, PeerConnectionStateIdle},
		{"idle", PeerConnectionStateIdle},
		{"ice-started", PeerConnectionStateIceStarted},
		{"dtls-started", PeerConnectionStateDtlsStarted},
		{"sctp-ready", PeerConnectionStateSctpReady},
		{"failed", PeerConnectionStateFailed},
	}

	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, newPeerConnectionState(testCase.raw))
	}
}

func TestPeerConnectionStateString(t *testing.T) {
	testCases := []struct {
		state    PeerConnectionState
		expected string
	}{
		{PeerConnectionState(42), unknownStr},
		{PeerConnectionStateIdle, "idle"},
		{PeerConnectionStateIceStarted, "ice-started"},
		{PeerConnectionStateDtlsStarted, "dtls-started"},
		{PeerConnectionStateSctpReady, "sctp-ready"},
		{PeerConnectionStateFailed, "failed"},
	}

	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, testCase.state.String())
	}
}

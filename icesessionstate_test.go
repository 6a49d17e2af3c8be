package rtc

import (
	"testing"

	"github.com/pion/ice/v4"
	"github.com/stretchr/testify/assert"
)

func TestNewIceSessionState(t *testing.T) {
	testCases := []struct {
		agentState ice.ConnectionState
		expected   IceSessionState
	}{
		{ice.ConnectionStateNew, IceSessionStateNew},
		{ice.ConnectionStateChecking, IceSessionStateConnecting},
		{ice.ConnectionStateConnected, IceSessionStateConnected},
		{ice.ConnectionStateCompleted, IceSessionStateCompleted},
		{ice.ConnectionStateDisconnected, IceSessionStateDisconnected},
		{ice.ConnectionStateFailed, IceSessionStateFailed},
		{ice.ConnectionStateClosed, IceSessionStateClosed},
	}

	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, newIceSessionState(testCase.agentState))
	}
}

func TestIceSessionStateString(t *testing.T) {
	testCases := []struct {
		state    IceSessionState
		expected string
	}{
		{IceSessionState(42), unknownStr},
		{IceSessionStateNew, "new"},
		{IceSessionStateGathering, "gathering"},
		{IceSessionStateConnecting, "connecting"},
		{IceSessionStateConnected, "connected"},
		{IceSessionStateCompleted, "completed"},
		{IceSessionStateDisconnected, "disconnected"},
		{IceSessionStateFailed, "failed"},
		{IceSessionStateClosed, "closed"},
	}

	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, testCase.state.String())
	}
}

package rtc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionDescriptionRoundTrip(t *testing.T) {
	port := uint16(5000)
	original := SessionDescription{
		Role:     RoleActive,
		ICEUfrag: "someufrag",
		ICEPwd:   "somepwdsomepwdsomepwdmin",
		Candidates: []string{
			"1 1 udp 2130706431 192.168.1.2 49152 typ host",
			"2 1 udp 1694498815 203.0.113.5 49153 typ srflx raddr 0.0.0.0 rport 0",
		},
		Fingerprint: "AB:CD:EF:01:23:45",
		SCTPPort:    &port,
	}

	text, err := original.Marshal()
	require.NoError(t, err)

	assert.True(t, strings.Contains(text, "m=application"))
	assert.True(t, strings.Contains(text, "webrtc-datachannel"))
	assert.True(t, strings.Contains(text, "a=mid:0"))
	assert.True(t, strings.Contains(text, "a=setup:active"))
	assert.True(t, strings.Contains(text, "a=fingerprint:sha-256 AB:CD:EF:01:23:45"))
	assert.True(t, strings.Contains(text, "a=sctp-port:5000"))

	parsed, err := UnmarshalSessionDescription(text)
	require.NoError(t, err)

	assert.Equal(t, original.Role, parsed.Role)
	assert.Equal(t, original.ICEUfrag, parsed.ICEUfrag)
	assert.Equal(t, original.ICEPwd, parsed.ICEPwd)
	assert.Equal(t, original.Candidates, parsed.Candidates)
	assert.Equal(t, original.Fingerprint, parsed.Fingerprint)
	require.NotNil(t, parsed.SCTPPort)
	assert.Equal(t, port, *parsed.SCTPPort)
}

func TestUnmarshalSessionDescriptionGarbage(t *testing.T) {
	_, err := UnmarshalSessionDescription("definitely not a session description")
	assert.ErrorIs(t, err, ErrInvalidRemoteDescription)
}

func TestUnmarshalSessionDescriptionDefaults(t *testing.T) {
	text, err := SessionDescription{}.Marshal()
	require.NoError(t, err)

	parsed, err := UnmarshalSessionDescription(text)
	require.NoError(t, err)

	assert.Equal(t, RoleActPass, parsed.Role)
	assert.Empty(t, parsed.ICEUfrag)
	assert.Empty(t, parsed.ICEPwd)
	assert.Empty(t, parsed.Fingerprint)
	assert.Nil(t, parsed.SCTPPort)
}

func TestUnmarshalSessionDescriptionCandidatePrefix(t *testing.T) {
	desc := SessionDescription{
		Role:       RolePassive,
		ICEUfrag:   "ufrag",
		ICEPwd:     "pwdpwdpwdpwdpwdpwdpwdpwd",
		Candidates: []string{"candidate:1 1 udp 2130706431 10.0.0.1 5000 typ host"},
	}

	text, err := desc.Marshal()
	require.NoError(t, err)

	parsed, err := UnmarshalSessionDescription(text)
	require.NoError(t, err)

	// The stored form never carries the prefix.
	require.Len(t, parsed.Candidates, 1)
	assert.Equal(t, "1 1 udp 2130706431 10.0.0.1 5000 typ host", parsed.Candidates[0])
}

package rtc

import (
	"testing"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v3/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIceSession(t *testing.T) {
	lim := test.TimeOut(time.Second * 20)
	defer lim.Stop()

	session, err := newIceSession(RoleActive, &Configuration{}, logging.NewDefaultLoggerFactory())
	require.NoError(t, err)

	assert.Equal(t, RoleActive, session.Role())
	assert.Equal(t, IceSessionStateNew, session.State())
	assert.Nil(t, session.DTLSEndpoint())

	assert.NoError(t, session.Close())
}

func TestIceSessionLocalDescription(t *testing.T) {
	lim := test.TimeOut(time.Second * 20)
	defer lim.Stop()

	session, err := newIceSession(RolePassive, &Configuration{}, logging.NewDefaultLoggerFactory())
	require.NoError(t, err)
	defer func() { assert.NoError(t, session.Close()) }()

	desc, err := session.LocalDescription()
	require.NoError(t, err)

	assert.Equal(t, RolePassive, desc.Role)
	assert.NotEmpty(t, desc.ICEUfrag)
	assert.NotEmpty(t, desc.ICEPwd)
	assert.Empty(t, desc.Candidates)
}

func TestIceSessionAddRemoteCandidate(t *testing.T) {
	lim := test.TimeOut(time.Second * 20)
	defer lim.Stop()

	session, err := newIceSession(RoleActive, &Configuration{}, logging.NewDefaultLoggerFactory())
	require.NoError(t, err)
	defer func() { assert.NoError(t, session.Close()) }()

	assert.True(t, session.AddRemoteCandidate(Candidate{
		Candidate: "candidate:1 1 udp 2130706431 127.0.0.1 53375 typ host",
		Mid:       streamName,
	}))
	assert.True(t, session.AddRemoteCandidate(Candidate{
		Candidate: "2 1 udp 2130706431 127.0.0.1 53376 typ host",
		Mid:       streamName,
	}))
	assert.False(t, session.AddRemoteCandidate(Candidate{
		Candidate: "not a candidate",
		Mid:       streamName,
	}))
}

func TestIceSessionDuplicateRemoteCandidate(t *testing.T) {
	lim := test.TimeOut(time.Second * 20)
	defer lim.Stop()

	session, err := newIceSession(RoleActive, &Configuration{}, logging.NewDefaultLoggerFactory())
	require.NoError(t, err)
	defer func() { assert.NoError(t, session.Close()) }()

	candidate := Candidate{
		Candidate: "candidate:1 1 udp 2130706431 127.0.0.1 53375 typ host",
		Mid:       streamName,
	}

	assert.True(t, session.AddRemoteCandidate(candidate))
	assert.False(t, session.AddRemoteCandidate(candidate))

	// The trimmed form is the same candidate.
	assert.False(t, session.AddRemoteCandidate(Candidate{
		Candidate: "1 1 udp 2130706431 127.0.0.1 53375 typ host",
		Mid:       streamName,
	}))
}

func TestIceSessionDescriptionCandidatesInjectedOnce(t *testing.T) {
	lim := test.TimeOut(time.Second * 20)
	defer lim.Stop()

	session, err := newIceSession(RolePassive, &Configuration{}, logging.NewDefaultLoggerFactory())
	require.NoError(t, err)
	defer func() { assert.NoError(t, session.Close()) }()

	desc := &SessionDescription{
		Role:       RoleActive,
		ICEUfrag:   "remoteufrag",
		ICEPwd:     "remotepwdremotepwdremote",
		Candidates: []string{"1 1 udp 2130706431 127.0.0.1 53375 typ host"},
	}

	require.NoError(t, session.SetRemoteDescription(desc))
	require.NoError(t, session.SetRemoteDescription(desc))

	session.mu.Lock()
	assert.Len(t, session.remoteCandidates, 1)
	session.mu.Unlock()
}

func TestIceSessionSendBeforeEstablished(t *testing.T) {
	lim := test.TimeOut(time.Second * 20)
	defer lim.Stop()

	session, err := newIceSession(RoleActive, &Configuration{}, logging.NewDefaultLoggerFactory())
	require.NoError(t, err)
	defer func() { assert.NoError(t, session.Close()) }()

	_, err = session.Send([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrICENotEstablished)
}

func TestIceSessionRejectsDescriptionWithoutCredentials(t *testing.T) {
	lim := test.TimeOut(time.Second * 20)
	defer lim.Stop()

	session, err := newIceSession(RolePassive, &Configuration{}, logging.NewDefaultLoggerFactory())
	require.NoError(t, err)
	defer func() { assert.NoError(t, session.Close()) }()

	err = session.SetRemoteDescription(&SessionDescription{Role: RoleActive})
	assert.ErrorIs(t, err, ErrInvalidRemoteDescription)
}

func TestIceSessionGathersCandidates(t *testing.T) {
	lim := test.TimeOut(time.Second * 20)
	defer lim.Stop()

	session, err := newIceSession(RoleActive, &Configuration{}, logging.NewDefaultLoggerFactory())
	require.NoError(t, err)
	defer func() { assert.NoError(t, session.Close()) }()

	done := make(chan struct{})
	var candidates []Candidate
	session.OnCandidate(func(candidate *Candidate) {
		if candidate == nil {
			close(done)

			return
		}
		candidates = append(candidates, *candidate)
	})

	require.NoError(t, session.GatherLocalCandidates())

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		assert.Fail(t, "gathering did not finish")
	}

	assert.NotEmpty(t, candidates)
	for _, candidate := range candidates {
		assert.Equal(t, streamName, candidate.Mid)
		assert.NotEmpty(t, candidate.Candidate)
	}
}

func TestChooseStunURI(t *testing.T) {
	assert.Nil(t, chooseStunURI(nil))
	assert.Nil(t, chooseStunURI([]ICEServer{{}}))
	assert.Nil(t, chooseStunURI([]ICEServer{{Host: "host.invalid"}}))

	uri := chooseStunURI([]ICEServer{{Host: "127.0.0.1"}})
	require.NotNil(t, uri)
	assert.Equal(t, "127.0.0.1", uri.Host)
	assert.Equal(t, defaultSTUNPort, uri.Port)

	uri = chooseStunURI([]ICEServer{{Host: "127.0.0.1", Port: 19302}})
	require.NotNil(t, uri)
	assert.Equal(t, 19302, uri.Port)
}

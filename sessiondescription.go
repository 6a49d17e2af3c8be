package rtc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pion/randutil"
	"github.com/pion/sdp/v3"
)

// SessionDescription carries the fields of the session description blob
// the orchestrator reads and writes: the role, the ICE credentials and
// candidates gathered so far, an optional certificate fingerprint and an
// optional SCTP port. It is produced locally from the ICE session state
// and remotely by parsing the peer's offer or answer; it is never
// persisted.
type SessionDescription struct {
	Role Role

	ICEUfrag string
	ICEPwd   string

	// Candidates are the candidate attribute values embedded in the
	// description, without the "candidate:" prefix.
	Candidates []string

	// Fingerprint is the SHA-256 certificate fingerprint, empty when the
	// description carries none.
	Fingerprint string

	// SCTPPort is the advertised SCTP port, nil when absent.
	SCTPPort *uint16
}

var descriptionRandom = randutil.NewMathRandomGenerator()

// Marshal renders the description as SDP text with a single application
// media section.
func (d SessionDescription) Marshal() (string, error) {
	media := &sdp.MediaDescription{
		MediaName: sdp.MediaName{
			Media:   "application",
			Port:    sdp.RangedPort{Value: 9},
			Protos:  []string{"UDP", "DTLS", "SCTP"},
			Formats: []string{"webrtc-datachannel"},
		},
		ConnectionInformation: &sdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &sdp.Address{Address: "0.0.0.0"},
		},
		Attributes: []sdp.Attribute{
			{Key: "mid", Value: defaultMid},
			{Key: "setup", Value: d.Role.String()},
		},
	}

	if d.ICEUfrag != "" {
		media.Attributes = append(media.Attributes,
			sdp.Attribute{Key: "ice-ufrag", Value: d.ICEUfrag},
			sdp.Attribute{Key: "ice-pwd", Value: d.ICEPwd},
		)
	}

	for _, candidate := range d.Candidates {
		media.Attributes = append(media.Attributes, sdp.Attribute{Key: "candidate", Value: candidate})
	}

	if d.Fingerprint != "" {
		media.Attributes = append(media.Attributes, sdp.Attribute{Key: "fingerprint", Value: "sha-256 " + d.Fingerprint})
	}

	if d.SCTPPort != nil {
		media.Attributes = append(media.Attributes, sdp.Attribute{Key: "sctp-port", Value: strconv.Itoa(int(*d.SCTPPort))})
	}

	session := &sdp.SessionDescription{
		Version: 0,
		Origin: sdp.Origin{
			Username:       "-",
			SessionID:      descriptionRandom.Uint64(),
			SessionVersion: descriptionRandom.Uint64(),
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: "0.0.0.0",
		},
		SessionName:       "-",
		TimeDescriptions:  []sdp.TimeDescription{{}},
		MediaDescriptions: []*sdp.MediaDescription{media},
	}

	raw, err := session.Marshal()
	if err != nil {
		return "", fmt.Errorf("marshal description: %w", err)
	}

	return string(raw), nil
}

// UnmarshalSessionDescription parses the peer's description text and
// extracts the recognized fields. It fails if the text is not valid SDP.
func UnmarshalSessionDescription(text string) (SessionDescription, error) {
	parsed := &sdp.SessionDescription{}
	if err := parsed.Unmarshal([]byte(text)); err != nil {
		return SessionDescription{}, fmt.Errorf("%w: %v", ErrInvalidRemoteDescription, err)
	}

	desc := SessionDescription{Role: RoleActPass}

	readAttribute := func(attr sdp.Attribute) {
		switch attr.Key {
		case "setup":
			desc.Role = newRole(attr.Value)
		case "ice-ufrag":
			desc.ICEUfrag = attr.Value
		case "ice-pwd":
			desc.ICEPwd = attr.Value
		case "candidate":
			desc.Candidates = append(desc.Candidates, strings.TrimPrefix(attr.Value, "candidate:"))
		case "fingerprint":
			// Value is "<hash algorithm> <digest>".
			if fields := strings.Fields(attr.Value); len(fields) == 2 {
				desc.Fingerprint = fields[1]
			}
		case "sctp-port":
			if port, err := strconv.ParseUint(attr.Value, 10, 16); err == nil {
				value := uint16(port)
				desc.SCTPPort = &value
			}
		}
	}

	for _, attr := range parsed.Attributes {
		readAttribute(attr)
	}
	for _, media := range parsed.MediaDescriptions {
		for _, attr := range media.Attributes {
			readAttribute(attr)
		}
	}

	return desc, nil
}

package mux

// MatchFunc allows custom logic for mapping packets to an Endpoint.
type MatchFunc func([]byte) bool

// MatchRange returns a MatchFunc that accepts packets whose first byte
// falls in [lower..upper].
func MatchRange(lower, upper byte) MatchFunc {
	return func(buf []byte) bool {
		if len(buf) < 1 {
			return false
		}
		b := buf[0]

		return b >= lower && b <= upper
	}
}

// MatchFuncs as described in RFC 7983
// https://tools.ietf.org/html/rfc7983
//              +----------------+
//              |        [0..3] -+--> forward to STUN
//              |                |
//              |      [16..19] -+--> forward to ZRTP
//              |                |
//  packet -->  |      [20..63] -+--> forward to DTLS
//              |                |
//              |      [64..79] -+--> forward to TURN Channel
//              |                |
//              |    [128..191] -+--> forward to RTP/RTCP
//              +----------------+

// MatchSTUN is a MatchFunc that accepts packets with the first byte in [0..3]
// as defined in RFC 7983.
var MatchSTUN = MatchRange(0, 3) //nolint:gochecknoglobals

// MatchDTLS is a MatchFunc that accepts packets with the first byte in [20..63]
// as defined in RFC 7983.
var MatchDTLS = MatchRange(20, 63) //nolint:gochecknoglobals

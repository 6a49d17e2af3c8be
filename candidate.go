package rtc

// Candidate is one ICE connectivity candidate in its textual form, tagged
// with the media stream identifier it belongs to. A nil *Candidate in the
// local candidate callback marks the end of gathering.
type Candidate struct {
	// Candidate is the candidate attribute value, with or without the
	// leading "candidate:" prefix.
	Candidate string

	// Mid identifies the media section the candidate belongs to.
	Mid string
}

func (c Candidate) String() string {
	return c.Candidate
}

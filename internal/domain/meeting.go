package domain

// MeetingReason says how a meeting was called.
type MeetingReason string

const (
	ReasonReport    MeetingReason = "Report"
	ReasonEmergency MeetingReason = "Emergency"
)

// VoteSkip is the vote target for abstaining. Skip votes count toward
// the tally but can never cause an ejection.
const VoteSkip = "skip"

// Meeting holds the state of the active meeting. It exists only between
// a report/emergency intent and the meeting's resolution.
type Meeting struct {
	Active   bool
	Reporter string
	Reason   MeetingReason

	// votes maps voter id to target id or VoteSkip.
	votes map[string]string

	// candidates are the players that were alive when the meeting
	// started; only they are valid vote targets.
	candidates map[string]struct{}
}

// MeetingResult is the outcome of a resolved meeting. Ejected is empty
// when nobody was voted out; WasImpostor is only meaningful alongside a
// non-empty Ejected.
type MeetingResult struct {
	Ejected     string
	WasImpostor bool
}

// VoteCount returns the number of votes cast so far.
func (m *Meeting) VoteCount() int {
	return len(m.votes)
}

// HasVoted reports whether the voter already has a recorded vote.
func (m *Meeting) HasVoted(voterID string) bool {
	_, ok := m.votes[voterID]
	return ok
}

// tally resolves the vote map to an ejection candidate. A strictly
// highest count wins; any tie for the highest count, or the highest
// count belonging to skip, means no ejection.
func (m *Meeting) tally() (ejected string, tie bool) {
	counts := make(map[string]int)
	for _, target := range m.votes {
		counts[target]++
	}

	max := 0
	for target, count := range counts {
		if count > max {
			max = count
			ejected = target
			tie = false
		} else if count == max {
			tie = true
		}
	}

	if tie || ejected == VoteSkip {
		return "", tie
	}
	return ejected, false
}

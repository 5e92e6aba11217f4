package model

// Outcome represents the lifecycle state of a challenge Session.
type Outcome string

const (
	OutcomePending  Outcome = "PENDING"
	OutcomeVerified Outcome = "VERIFIED"
	OutcomeRejected Outcome = "REJECTED"
	OutcomeExpired  Outcome = "EXPIRED"
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// IsTerminal returns true if the session can no longer change.
func (o Outcome) IsTerminal() bool {
	switch o {
	case OutcomeVerified, OutcomeRejected, OutcomeExpired:
		return true
	}
	return false
}

// ValidOutcomeTransitions defines the allowed outcome transitions for Sessions.
var ValidOutcomeTransitions = map[Outcome][]Outcome{
	OutcomePending: {OutcomeVerified, OutcomeRejected, OutcomeExpired},
}

// CanTransitionTo returns true if moving from the current outcome to next is valid.
func (o Outcome) CanTransitionTo(next Outcome) bool {
	for _, allowed := range ValidOutcomeTransitions[o] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseOutcome converts a stored string back into an Outcome.
// Unknown values yield false.
func ParseOutcome(s string) (Outcome, bool) {
	switch o := Outcome(s); o {
	case OutcomePending, OutcomeVerified, OutcomeRejected, OutcomeExpired:
		return o, true
	}
	return "", false
}

// MemberStatus is a chat member status as reported by the platform.
type MemberStatus string

const (
	MemberStatusCreator       MemberStatus = "creator"
	MemberStatusAdministrator MemberStatus = "administrator"
	MemberStatusMember        MemberStatus = "member"
	MemberStatusRestricted    MemberStatus = "restricted"
	MemberStatusLeft          MemberStatus = "left"
	MemberStatusKicked        MemberStatus = "kicked"
)

// IsAbsent reports whether the status means the user is not in the group.
func (s MemberStatus) IsAbsent() bool {
	return s == MemberStatusLeft || s == MemberStatusKicked
}

// IsPresent reports whether the status means the user is in the group as a
// regular (possibly restricted) member.
func (s MemberStatus) IsPresent() bool {
	return s == MemberStatusMember || s == MemberStatusRestricted
}

package model

// MembershipChanged is delivered when a user's membership status in a group changes.
type MembershipChanged struct {
	GroupID        int64
	UserID         int64
	UserName       string
	PreviousStatus MemberStatus
	NewStatus      MemberStatus
}

// IsJoin reports whether the change is a user entering the group as a plain
// member from outside it.
func (e MembershipChanged) IsJoin() bool {
	return e.PreviousStatus.IsAbsent() && e.NewStatus == MemberStatusMember
}

// IsLeave reports whether the change is a member (restricted or not) leaving
// or being removed from the group.
func (e MembershipChanged) IsLeave() bool {
	return e.PreviousStatus.IsPresent() && e.NewStatus.IsAbsent()
}

// Key returns the session key this event refers to.
func (e MembershipChanged) Key() SessionKey {
	return SessionKey{GroupID: e.GroupID, UserID: e.UserID}
}

// ChallengeAnswered is delivered when someone presses a challenge button.
type ChallengeAnswered struct {
	GroupID          int64
	UserID           int64 // user the challenge was issued to
	ChallengeID      string
	RespondingUserID int64
	SelectedToken    string

	// CallbackID identifies the button press so it can be acknowledged.
	CallbackID string
	// MessageID is the message carrying the pressed button.
	MessageID int64
}

// Key returns the session key this answer targets.
func (e ChallengeAnswered) Key() SessionKey {
	return SessionKey{GroupID: e.GroupID, UserID: e.UserID}
}

// FromTarget reports whether the answer came from the challenged user.
func (e ChallengeAnswered) FromTarget() bool {
	return e.RespondingUserID == e.UserID
}

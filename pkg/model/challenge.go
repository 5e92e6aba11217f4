package model

// Challenge is a presentation set of candidate tokens with exactly one correct.
type Challenge struct {
	ID      string   `json:"id"`
	Options []string `json:"options"`
	Correct string   `json:"-"`
}

// Contains reports whether token is one of the presented options.
func (c Challenge) Contains(token string) bool {
	for _, o := range c.Options {
		if o == token {
			return true
		}
	}
	return false
}

// Prompt is what the gateway renders as the challenge message keyboard.
type Prompt struct {
	UserID      int64    `json:"user_id"`
	ChallengeID string   `json:"challenge_id"`
	Options     []string `json:"options"`
}

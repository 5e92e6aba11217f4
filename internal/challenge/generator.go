// Package challenge builds the multiple-choice challenges shown to joining users.
package challenge

import (
	"encoding/hex"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/me/joinguard/pkg/model"
)

// MinAlphabet is the smallest candidate alphabet a Generator accepts.
const MinAlphabet = 4

// Config describes the candidate tokens of a challenge.
type Config struct {
	Alphabet []string // Candidate tokens, at least MinAlphabet, no duplicates
	Correct  string   // Token that constitutes a correct answer; must be in Alphabet
	Size     int      // Options shown per challenge; 0 shows the whole alphabet
}

// Generator produces freshly shuffled challenges. It is safe for concurrent use.
type Generator struct {
	correct     string
	distractors []string
	size        int
	newID       func() string
}

// NewGenerator validates cfg and returns a Generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if len(cfg.Alphabet) < MinAlphabet {
		return nil, fmt.Errorf("challenge: alphabet has %d tokens, need at least %d", len(cfg.Alphabet), MinAlphabet)
	}

	seen := make(map[string]bool, len(cfg.Alphabet))
	var distractors []string
	for _, tok := range cfg.Alphabet {
		if tok == "" {
			return nil, fmt.Errorf("challenge: empty token in alphabet")
		}
		if seen[tok] {
			return nil, fmt.Errorf("challenge: duplicate token %q in alphabet", tok)
		}
		seen[tok] = true
		if tok != cfg.Correct {
			distractors = append(distractors, tok)
		}
	}
	if !seen[cfg.Correct] {
		return nil, fmt.Errorf("challenge: correct token %q is not in the alphabet", cfg.Correct)
	}

	size := cfg.Size
	switch {
	case size == 0:
		size = len(cfg.Alphabet)
	case size < 2 || size > len(cfg.Alphabet):
		return nil, fmt.Errorf("challenge: size %d out of range [2, %d]", size, len(cfg.Alphabet))
	}

	return &Generator{
		correct:     cfg.Correct,
		distractors: distractors,
		size:        size,
		newID:       newChallengeID,
	}, nil
}

// Generate returns a new challenge containing the correct token and size-1
// distractors in random order.
func (g *Generator) Generate() model.Challenge {
	pool := make([]string, len(g.distractors))
	copy(pool, g.distractors)
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	options := make([]string, 0, g.size)
	options = append(options, g.correct)
	options = append(options, pool[:g.size-1]...)
	rand.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	return model.Challenge{
		ID:      g.newID(),
		Options: options,
		Correct: g.correct,
	}
}

// Correct returns the token that answers every challenge of this generator.
func (g *Generator) Correct() string {
	return g.correct
}

// newChallengeID returns a random 128-bit id as 32 hex characters, short
// enough to fit in a Telegram callback payload together with the user id.
func newChallengeID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

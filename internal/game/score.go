// internal/game/score.go
package game

import (
	"github.com/google/uuid"
)

// Point awards per outcome. The Raja's award is unconditional; the 800 swings
// between Mantri and Chor depending on whether the accusation was correct.
const (
	rajaAward   = 1000
	swingAward  = 800
	sipahiAward = 200
)

// RoundRoles identifies which seat holds each role for one round.
type RoundRoles struct {
	RajaID   uuid.UUID `json:"rajaId"`
	MantriID uuid.UUID `json:"mantriId"`
	ChorID   uuid.UUID `json:"chorId"`
	SipahiID uuid.UUID `json:"sipahiId"`
}

// RoundResult is the outcome of scoring one round. Awards holds the per-seat
// point award; applying it to running totals is the caller's job and must
// happen atomically with the transition to the results phase.
type RoundResult struct {
	Correct bool
	Awards  map[uuid.UUID]int
}

// ScoreRound resolves the Mantri's accusation against the actual role
// assignment. Guess preconditions: the two guesses are distinct, reference
// players holding roles this round, and neither names the Mantri. A violated
// precondition returns ErrInvalidGuess and nothing is scored.
func ScoreRound(roles RoundRoles, chorGuess, sipahiGuess uuid.UUID) (RoundResult, error) {
	if chorGuess == sipahiGuess {
		return RoundResult{}, ErrInvalidGuess
	}
	if chorGuess == roles.MantriID || sipahiGuess == roles.MantriID {
		return RoundResult{}, ErrInvalidGuess
	}
	if !roles.holds(chorGuess) || !roles.holds(sipahiGuess) {
		return RoundResult{}, ErrInvalidGuess
	}

	correct := chorGuess == roles.ChorID && sipahiGuess == roles.SipahiID

	awards := map[uuid.UUID]int{
		roles.RajaID:   rajaAward,
		roles.SipahiID: sipahiAward,
	}
	if correct {
		awards[roles.MantriID] = swingAward
		awards[roles.ChorID] = 0
	} else {
		awards[roles.MantriID] = 0
		awards[roles.ChorID] = swingAward
	}

	return RoundResult{Correct: correct, Awards: awards}, nil
}

func (r RoundRoles) holds(id uuid.UUID) bool {
	return id == r.RajaID || id == r.MantriID || id == r.ChorID || id == r.SipahiID
}

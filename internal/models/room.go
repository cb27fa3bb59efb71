// internal/models/room.go
package models

import "github.com/google/uuid"

// GamePhase is the authoritative phase of a room's session state machine.
type GamePhase string

const (
	PhaseLobby        GamePhase = "lobby"
	PhaseShuffling    GamePhase = "shuffling"
	PhaseRevealing    GamePhase = "revealing"
	PhaseMantriChoice GamePhase = "mantriChoice"
	PhaseResults      GamePhase = "results"
	PhaseFinished     GamePhase = "finished"
)

// MantriSelection records the Mantri's accusation for the current round.
// It exists only while the room is in the results phase and is cleared when
// the next round's shuffle begins.
type MantriSelection struct {
	ChorGuess   uuid.UUID `json:"chorGuess"`
	SipahiGuess uuid.UUID `json:"sipahiGuess"`
	Correct     bool      `json:"correct"`
}

// Standing is one row of the final ranking. Placement starts at 1. Equal
// point totals rank by earlier join order.
type Standing struct {
	PlayerID  uuid.UUID `json:"playerId"`
	Name      string    `json:"name"`
	Points    int       `json:"points"`
	Placement int       `json:"placement"`
}

// internal/game/errors.go
package game

import "errors"

// Sentinel errors for every precondition failure the room core can surface.
// All of them are client-input or guard failures: the state machine checks
// them before writing anything, so a returned error implies no mutation.
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room already has 4 seated players")
	ErrWrongPlayerCount   = errors.New("need exactly 4 seated players to start")
	ErrNotCreator         = errors.New("only the room creator can do that")
	ErrNotMantri          = errors.New("only the Mantri can submit a guess")
	ErrInvalidGuess       = errors.New("invalid guess")
	ErrInvalidPlayerCount = errors.New("role assignment requires exactly 4 players")
	ErrWrongPhase         = errors.New("action not allowed in the current phase")
	ErrNotSeated          = errors.New("player is not seated in this room")
	ErrInvalidName        = errors.New("player name must be 1-20 characters")
)

// ErrorCode maps a core error to the stable code clients switch on.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "RoomNotFound"
	case errors.Is(err, ErrRoomFull):
		return "RoomFull"
	case errors.Is(err, ErrWrongPlayerCount):
		return "WrongPlayerCount"
	case errors.Is(err, ErrNotCreator):
		return "NotCreator"
	case errors.Is(err, ErrNotMantri):
		return "NotMantri"
	case errors.Is(err, ErrInvalidGuess):
		return "InvalidGuess"
	case errors.Is(err, ErrInvalidPlayerCount):
		return "InvalidPlayerCount"
	case errors.Is(err, ErrWrongPhase):
		return "WrongPhase"
	case errors.Is(err, ErrNotSeated):
		return "NotSeated"
	case errors.Is(err, ErrInvalidName):
		return "InvalidName"
	default:
		return "Internal"
	}
}

package models

import (
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Player is one seat in a room. Seats are created when a player creates or
// joins a room and survive disconnects while a round is active; a seat is
// only fully removed while the room is still in the lobby.
type Player struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Role        RoleName  `json:"role,omitempty"`
	TotalPoints int       `json:"totalPoints"`
	IsConnected bool      `json:"isConnected"`

	// JoinOrder is the seat's position in join sequence, starting at 0.
	// It is the documented tie-break for final standings.
	JoinOrder int `json:"joinOrder"`

	// RoleHistory records the role held in each completed shuffle, in round order.
	RoleHistory []RoleName `json:"roleHistory,omitempty"`

	Conn *websocket.Conn `json:"-"`
}

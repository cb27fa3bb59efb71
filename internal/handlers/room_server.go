// internal/handlers/room_server.go
package handlers

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/google/uuid"
	"github.com/rajamantri/server/internal/database"
	"github.com/rajamantri/server/internal/game"
	"github.com/rajamantri/server/internal/models"
)

// RoomServer is a high-level struct that holds the RoomStore and wires new
// rooms with their persistence hooks.
type RoomServer struct {
	Mutex     sync.Mutex
	RoomStore *game.RoomStore
}

func NewRoomServer() *RoomServer {
	return &RoomServer{
		RoomStore: game.NewRoomStore(),
		Mutex:     sync.Mutex{},
	}
}

// NewRoom creates and stores a room. The room persists its final standings
// when it finishes and expires itself once empty past the grace period.
func (rs *RoomServer) NewRoom(totalRounds int) (*game.GameRoom, error) {
	room, err := rs.RoomStore.CreateRoom(totalRounds)
	if err != nil {
		return nil, err
	}
	room.OnFinish = persistMatchResults
	// Nobody is connected yet; if the creator never opens the socket the
	// room still expires.
	room.ScheduleExpiry()
	return room, nil
}

// persistMatchResults records the final standings of a finished room.
func persistMatchResults(roomCode string, totalRounds int, standings []models.Standing) {
	if database.DB == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	matchID := uuid.New()
	if err := database.RecordMatchResults(ctx, matchID, roomCode, totalRounds, standings); err != nil {
		log.Printf("error persisting match results for room %v: %v\n", roomCode, err)
	}
}

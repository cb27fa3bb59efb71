// internal/game/room_store.go
package game

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
)

// Room codes are 6 uppercase alphanumerics, shareable over voice chat.
const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength   = 6
)

// RoomStore manages the in-memory rooms, keyed by room code. Typically you
// also set OnEmpty on each room so it can remove itself after expiring.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[string]*GameRoom
}

// NewRoomStore returns an in-memory store for GameRooms.
func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*GameRoom),
	}
}

// CreateRoom builds a room under a freshly generated, unused code and stores
// it. The room expires itself out of the store once it has been empty past
// its grace period.
func (s *RoomStore) CreateRoom(totalRounds int) (*GameRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var code string
	for {
		c, err := NewRoomCode()
		if err != nil {
			return nil, err
		}
		if _, taken := s.rooms[c]; !taken {
			code = c
			break
		}
	}

	room := NewGameRoom(code, totalRounds)
	room.OnEmpty = func(code string) {
		s.DeleteRoom(code)
	}
	s.rooms[code] = room
	return room, nil
}

// GetRoom retrieves a room if it exists. Codes are case-insensitive on the
// way in; the stored code is always uppercase.
func (s *RoomStore) GetRoom(code string) (*GameRoom, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[strings.ToUpper(code)]
	return room, ok
}

// DeleteRoom drops a room and stops its timers.
func (s *RoomStore) DeleteRoom(code string) {
	s.mu.Lock()
	room, ok := s.rooms[strings.ToUpper(code)]
	if ok {
		delete(s.rooms, strings.ToUpper(code))
	}
	s.mu.Unlock()

	if ok {
		room.Close()
	}
}

// Len reports how many rooms are live, for diagnostics.
func (s *RoomStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// NewRoomCode draws a random 6-character code from the uppercase
// alphanumeric alphabet using crypto/rand.
func NewRoomCode() (string, error) {
	var b strings.Builder
	for i := 0; i < roomCodeLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomCodeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("draw room code char: %w", err)
		}
		b.WriteByte(roomCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rajamantri/server/internal/auth"
	"github.com/rajamantri/server/internal/game"
)

type createRoomRequest struct {
	PlayerName  string `json:"playerName"`
	TotalRounds int    `json:"totalRounds"`
}

type joinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type roomResponse struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

// CreateRoomHandler creates a room, seats the caller as its creator and
// hands back the shareable code plus a session cookie tied to the new seat.
func CreateRoomHandler(rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad create request payload", http.StatusBadRequest)
			return
		}

		name := strings.TrimSpace(req.PlayerName)
		if name == "" || utf8.RuneCountInString(name) > 20 {
			http.Error(w, game.ErrInvalidName.Error(), http.StatusBadRequest)
			return
		}
		// NewGameRoom clamps totalRounds: anything outside [5,15] becomes
		// the default of 5, including the zero value of an omitted field.
		room, err := rs.NewRoom(req.TotalRounds)
		if err != nil {
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}
		player, err := room.AddPlayer(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := issueSeatCookie(w, player.ID.String()); err != nil {
			http.Error(w, "failed to create session", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(roomResponse{RoomCode: room.Code, PlayerID: player.ID.String()})
	}
}

// JoinRoomHandler seats the caller in an existing room. Fails with 404 when
// the code references no room and 409 when all four seats are taken or the
// game has already started.
func JoinRoomHandler(rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req joinRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad join request payload", http.StatusBadRequest)
			return
		}

		name := strings.TrimSpace(req.PlayerName)
		if name == "" || utf8.RuneCountInString(name) > 20 {
			http.Error(w, game.ErrInvalidName.Error(), http.StatusBadRequest)
			return
		}

		room, ok := rs.RoomStore.GetRoom(req.RoomCode)
		if !ok {
			http.Error(w, game.ErrRoomNotFound.Error(), http.StatusNotFound)
			return
		}
		player, err := room.AddPlayer(name)
		if err != nil {
			switch {
			case errors.Is(err, game.ErrRoomFull), errors.Is(err, game.ErrWrongPhase):
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, err.Error(), http.StatusBadRequest)
			}
			return
		}

		if err := issueSeatCookie(w, player.ID.String()); err != nil {
			http.Error(w, "failed to create session", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(roomResponse{RoomCode: room.Code, PlayerID: player.ID.String()})
	}
}

// issueSeatCookie signs a session token for the seat and sets it as the
// auth_token cookie the WS handler authenticates against.
func issueSeatCookie(w http.ResponseWriter, playerID string) error {
	token, err := auth.CreateJWT(playerID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	return nil
}

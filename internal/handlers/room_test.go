package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rajamantri/server/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	auth.Init()
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestCreateRoomHandler(t *testing.T) {
	rs := NewRoomServer()

	w := postJSON(t, CreateRoomHandler(rs), `{"playerName":"Aarav"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp roomResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.RoomCode, 6)
	_, err := uuid.Parse(resp.PlayerID)
	assert.NoError(t, err)

	room, ok := rs.RoomStore.GetRoom(resp.RoomCode)
	require.True(t, ok)
	assert.Equal(t, 5, room.TotalRounds, "omitted totalRounds falls back to the default")
	require.Len(t, room.Players, 1)
	assert.Equal(t, room.Players[0].ID, room.CreatedBy)

	// The seat cookie carries a verifiable session for the new player.
	var authCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "auth_token" {
			authCookie = c
		}
	}
	require.NotNil(t, authCookie)
	assert.True(t, authCookie.HttpOnly)
	sub, err := auth.AuthenticateJWT(authCookie.Value)
	require.NoError(t, err)
	assert.Equal(t, resp.PlayerID, sub)
}

func TestCreateRoomHandlerValidation(t *testing.T) {
	rs := NewRoomServer()
	handler := CreateRoomHandler(rs)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"empty name", `{"playerName":"  "}`, http.StatusBadRequest},
		{"name too long", `{"playerName":"abcdefghijklmnopqrstu"}`, http.StatusBadRequest},
		{"malformed json", `{"playerName":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(t, handler, tc.body)
			assert.Equal(t, tc.code, w.Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	assert.Equal(t, 0, rs.RoomStore.Len(), "rejected requests must not leak rooms")
}

func TestCreateRoomClampsTotalRounds(t *testing.T) {
	rs := NewRoomServer()
	handler := CreateRoomHandler(rs)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"too low falls back", `{"playerName":"Aarav","totalRounds":3}`, 5},
		{"too high falls back", `{"playerName":"Aarav","totalRounds":16}`, 5},
		{"in range kept", `{"playerName":"Aarav","totalRounds":12}`, 12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(t, handler, tc.body)
			require.Equal(t, http.StatusOK, w.Code)

			var resp roomResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			room, ok := rs.RoomStore.GetRoom(resp.RoomCode)
			require.True(t, ok)
			assert.Equal(t, tc.want, room.TotalRounds)
		})
	}
}

func TestJoinRoomHandler(t *testing.T) {
	rs := NewRoomServer()

	w := postJSON(t, CreateRoomHandler(rs), `{"playerName":"Aarav","totalRounds":7}`)
	require.Equal(t, http.StatusOK, w.Code)
	var created roomResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

	join := JoinRoomHandler(rs)

	// Unknown code.
	w = postJSON(t, join, `{"roomCode":"ZZZZZ9","playerName":"Bela"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Codes are accepted case-insensitively: join the first seat lowercased.
	joins := []struct{ code, name string }{
		{strings.ToLower(created.RoomCode), "Bela"},
		{created.RoomCode, "Chitra"},
		{created.RoomCode, "Dev"},
	}
	for i, j := range joins {
		w := postJSON(t, join, fmt.Sprintf(`{"roomCode":%q,"playerName":%q}`, j.code, j.name))
		require.Equal(t, http.StatusOK, w.Code, "join %d failed", i)
	}

	room, ok := rs.RoomStore.GetRoom(created.RoomCode)
	require.True(t, ok)
	assert.Len(t, room.Players, 4)

	// Fifth seat: the room is full.
	w = postJSON(t, join, fmt.Sprintf(`{"roomCode":%q,"playerName":"Esha"}`, created.RoomCode))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestJoinAfterStartConflicts(t *testing.T) {
	rs := NewRoomServer()

	w := postJSON(t, CreateRoomHandler(rs), `{"playerName":"Aarav"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var created roomResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

	join := JoinRoomHandler(rs)
	for _, name := range []string{"Bela", "Chitra", "Dev"} {
		w := postJSON(t, join, fmt.Sprintf(`{"roomCode":%q,"playerName":%q}`, created.RoomCode, name))
		require.Equal(t, http.StatusOK, w.Code)
	}

	room, _ := rs.RoomStore.GetRoom(created.RoomCode)
	require.NoError(t, room.StartGame(room.CreatedBy))

	w = postJSON(t, join, fmt.Sprintf(`{"roomCode":%q,"playerName":"Esha"}`, created.RoomCode))
	assert.Equal(t, http.StatusConflict, w.Code)
}

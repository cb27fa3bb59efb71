// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rajamantri/server/internal/auth"
	"github.com/rajamantri/server/internal/game"
	"github.com/rajamantri/server/internal/middleware"
	"github.com/rajamantri/server/internal/models"
	"github.com/sirupsen/logrus"
)

// RoomWSHandler upgrades the HTTP connection to WebSocket for one room. It
// authenticates the seat from the session cookie, attaches the connection,
// and runs the read loop until the client disconnects. All intents are
// validated by the room core; the handler only parses and routes.
func RoomWSHandler(logger *logrus.Logger, rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Extract room code from URL path: /room/ws/{code}
		pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/room/ws/"), "/")
		if len(pathParts) < 1 || pathParts[0] == "" {
			http.Error(w, "Missing room code in path (/room/ws/{code})", http.StatusBadRequest)
			return
		}
		roomCode := pathParts[0]

		room, ok := rs.RoomStore.GetRoom(roomCode)
		if !ok {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for room %s: %v", roomCode, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "game" {
			logger.Warnf("Client for room %s connected with invalid subprotocol: %s", roomCode, c.Subprotocol())
			c.Close(BadSubprotocolError, "Client must use the 'game' subprotocol.")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		playerID, err := authenticateSeat(r)
		if err != nil {
			logger.Warnf("Seat authentication failed for room %s: %v", roomCode, err)
			c.Close(InvalidAuthTokenError, "Authentication failed.")
			return
		}

		// Register broadcast functions if they haven't been set up for this
		// room yet. They are invoked with the room lock held and must not
		// re-acquire it.
		room.Mu.Lock()
		if room.BroadcastFn == nil {
			room.BroadcastFn = createBroadcastFunc(room, logger)
		}
		if room.BroadcastToPlayerFn == nil {
			room.BroadcastToPlayerFn = createBroadcastToPlayerFunc(room, logger)
		}
		room.Mu.Unlock()

		// Attach the connection to the seat; this also pushes the current
		// authoritative state so a reconnecting client resynchronizes
		// instead of re-running any phase delay.
		if err := room.HandleReconnect(playerID, c); err != nil {
			logger.Warnf("Player %s is not seated in room %s. Closing connection.", playerID, roomCode)
			c.Close(websocket.StatusPolicyViolation, "You are not seated in this room.")
			return
		}
		logger.Infof("Player %s connected to room %s", playerID, roomCode)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		readRoomMessages(ctx, c, room, playerID, logger)

		logger.Infof("Player %s WebSocket read loop exited for room %s.", playerID, roomCode)
		room.HandleDisconnect(playerID, c)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, nil)
	}
}

// authenticateSeat resolves the seat id from the auth_token cookie.
func authenticateSeat(r *http.Request) (uuid.UUID, error) {
	token := extractCookieToken(r.Header.Get("Cookie"), "auth_token")
	if token == "" {
		return uuid.Nil, fmt.Errorf("missing auth_token cookie")
	}
	playerIDStr, err := auth.AuthenticateJWT(token)
	if err != nil {
		return uuid.Nil, err
	}
	playerID, err := uuid.Parse(playerIDStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid player id in token: %w", err)
	}
	return playerID, nil
}

// createBroadcastFunc returns a function suitable for GameRoom.BroadcastFn.
// The caller holds the room lock, so the connection snapshot is taken inline
// and the writes happen asynchronously.
func createBroadcastFunc(room *game.GameRoom, logger *logrus.Logger) func(ev game.RoomEvent) {
	return func(ev game.RoomEvent) {
		conns := make(map[uuid.UUID]*websocket.Conn, len(room.Players))
		for _, p := range room.Players {
			if p.IsConnected && p.Conn != nil {
				conns[p.ID] = p.Conn
			}
		}

		msgBytes, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("Failed to marshal broadcast event (%s) for room %s: %v", ev.Type, room.Code, err)
			return
		}

		go func(conns map[uuid.UUID]*websocket.Conn, data []byte, code string) {
			for pid, conn := range conns {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					logger.Warnf("Failed to write broadcast message to player %s in room %s: %v", pid, code, err)
				}
			}
		}(conns, msgBytes, room.Code)
	}
}

// createBroadcastToPlayerFunc returns a function suitable for
// GameRoom.BroadcastToPlayerFn. Same locking contract as the broadcast
// function: invoked with the room lock held, writes asynchronously.
func createBroadcastToPlayerFunc(room *game.GameRoom, logger *logrus.Logger) func(playerID uuid.UUID, ev game.RoomEvent) {
	return func(targetPlayerID uuid.UUID, ev game.RoomEvent) {
		var targetConn *websocket.Conn
		for _, p := range room.Players {
			if p.ID == targetPlayerID {
				if p.IsConnected && p.Conn != nil {
					targetConn = p.Conn
				}
				break
			}
		}
		if targetConn == nil {
			return
		}

		msgBytes, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("Failed to marshal private event (%s) for player %s in room %s: %v", ev.Type, targetPlayerID, room.Code, err)
			return
		}

		go func(conn *websocket.Conn, data []byte, playerID uuid.UUID, code string) {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				logger.Warnf("Failed to write private message to player %s in room %s: %v", playerID, code, err)
			}
		}(targetConn, msgBytes, targetPlayerID, room.Code)
	}
}

// readRoomMessages continuously reads intents from a client's connection,
// routes them to the room core, and reports guard failures back as error
// messages with stable codes. Exits on error, closure, or cancellation.
func readRoomMessages(ctx context.Context, c *websocket.Conn, room *game.GameRoom, playerID uuid.UUID, logger *logrus.Logger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for player %s in room %s.", playerID, room.Code)
			} else if strings.Contains(err.Error(), "context canceled") {
				logger.Infof("WebSocket context canceled for player %s in room %s.", playerID, room.Code)
			} else {
				logger.Warnf("Error reading from WebSocket for player %s in room %s: %v (Status: %d)", playerID, room.Code, err, status)
			}
			return
		}

		if msgType != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from player %s in room %s. Ignoring.", msgType, playerID, room.Code)
			continue
		}

		var intent models.Intent
		if err := json.Unmarshal(data, &intent); err != nil {
			logger.Warnf("Invalid JSON received from player %s in room %s: %v. Data: %s", playerID, room.Code, err, string(data))
			sendWsError(ctx, c, "BadPayload", "Invalid JSON format.")
			continue
		}

		logger.Debugf("Received intent '%s' from player %s in room %s.", intent.Type, playerID, room.Code)

		switch intent.Type {
		case "start_game":
			if err := room.StartGame(playerID); err != nil {
				sendWsError(ctx, c, game.ErrorCode(err), err.Error())
			}

		case "submit_guess":
			chorGuess, err1 := uuid.Parse(intent.ChorGuess)
			sipahiGuess, err2 := uuid.Parse(intent.SipahiGuess)
			if err1 != nil || err2 != nil {
				sendWsError(ctx, c, game.ErrorCode(game.ErrInvalidGuess), "Guesses must be player ids.")
				continue
			}
			if err := room.SubmitGuess(playerID, chorGuess, sipahiGuess); err != nil {
				sendWsError(ctx, c, game.ErrorCode(err), err.Error())
			}

		case "advance_round":
			if err := room.AdvanceRound(playerID); err != nil {
				sendWsError(ctx, c, game.ErrorCode(err), err.Error())
			}

		case "leave_room":
			if err := room.Leave(playerID); err != nil {
				sendWsError(ctx, c, game.ErrorCode(err), err.Error())
				continue
			}
			c.Close(websocket.StatusNormalClosure, "left room")
			return

		case "chat":
			if intent.Msg == "" {
				continue
			}
			if err := room.Chat(playerID, intent.Msg); err != nil {
				sendWsError(ctx, c, game.ErrorCode(err), err.Error())
			}

		case "sync":
			room.RequestSync(playerID)

		case "ping":
			logger.Tracef("Received ping from player %s, sending pong.", playerID)
			sendWsMessage(ctx, c, map[string]string{"type": "pong"})

		default:
			logger.Warnf("Unknown intent type '%s' from player %s in room %s.", intent.Type, playerID, room.Code)
			sendWsError(ctx, c, "UnknownIntent", fmt.Sprintf("Unknown intent type: %s", intent.Type))
		}

		select {
		case <-ctx.Done():
			logger.Infof("Context canceled after processing intent for player %s in room %s.", playerID, room.Code)
			return
		default:
		}
	}
}

// sendWsMessage marshals a message and sends it to the WebSocket client.
// Includes logging for errors and uses a write timeout.
func sendWsMessage(ctx context.Context, c *websocket.Conn, message interface{}) {
	if c == nil {
		log.Println("Error: Attempted to send WebSocket message on nil connection.")
		return
	}
	msgBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling WebSocket message: %v", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Write(writeCtx, websocket.MessageText, msgBytes); err != nil {
		status := websocket.CloseStatus(err)
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			log.Printf("Error writing WebSocket message: %v (Status: %d)", err, status)
		}
	}
}

// sendWsError sends a structured error with a stable code to the client.
func sendWsError(ctx context.Context, c *websocket.Conn, code, errorMsg string) {
	sendWsMessage(ctx, c, map[string]interface{}{
		"type":    "error",
		"code":    code,
		"message": errorMsg,
	})
}

// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the room handlers. These give clients
// a more specific reason for closure than the standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Provided session token was invalid or expired.
	InvalidPlayerIDError  = 3002 // Player ID derived from the token was malformed.
	InvalidRoomCodeError  = 3003 // Target room code in the WS URL does not exist.
)

package models

// Intent captures a client's in-room request as read off the websocket.
// Fields beyond Type are only meaningful for specific intent types.
type Intent struct {
	Type string `json:"type"`

	// ChorGuess and SipahiGuess are player-id strings for submit_guess.
	ChorGuess   string `json:"chorGuess,omitempty"`
	SipahiGuess string `json:"sipahiGuess,omitempty"`

	// Msg is the chat text for chat intents.
	Msg string `json:"msg,omitempty"`
}

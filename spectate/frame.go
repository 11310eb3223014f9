// Package spectate streams self-play turns to watchers over WebSocket.
package spectate

import "encoding/json"

// Event types carried on the wire.
const (
	EventFrame    = "frame"
	EventMatchEnd = "match_end"
)

// Event is the envelope of every message.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Frame is the board after one turn of a match.
type Frame struct {
	MatchID string `json:"match_id"`
	Turn    int    `json:"turn"`
	// Board is one string per row, top row first, in the ASCII board legend.
	Board []string `json:"board"`
	// Actions holds each side's joint action for the turn just played.
	Actions [2][2]string `json:"actions"`
	Bases   [2]bool      `json:"bases"`
	Outcome string       `json:"outcome"`
	Sides   []SideStats  `json:"sides,omitempty"`
}

// SideStats summarises a side's search for the turn.
type SideStats struct {
	Side       int     `json:"side"`
	Iterations int     `json:"iterations"`
	Visits     int     `json:"visits"`
	Value      float64 `json:"value"`
}

func encode(eventType string, f Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: eventType, Data: data})
}

package models

import "time"

// Room describes a watch party as listed to clients.
type Room struct {
	Code             string    `json:"room_code"`
	Host             string    `json:"host"`
	MediaType        string    `json:"media_type"`
	MediaID          int64     `json:"media_id"`
	MediaTitle       string    `json:"media_title"`
	ParticipantCount int       `json:"participant_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// PartyMessage is a websocket frame exchanged within a room.
type PartyMessage struct {
	Type     string    `json:"type"`
	From     string    `json:"from,omitempty"`
	Position float64   `json:"position,omitempty"`
	Text     string    `json:"text,omitempty"`
	SentAt   time.Time `json:"sent_at"`
}

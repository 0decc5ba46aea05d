package matchmaker

import "time"

// JoinRequest queues the authenticated caller for a table in Pool.
type JoinRequest struct {
	Pool      string `json:"pool" binding:"required"`      // e.g. "cash-10-20"
	TableSize int    `json:"tableSize" binding:"required"` // players needed to open a table
}

type JoinResponse struct {
	Queued    bool     `json:"queued"`
	RoomID    string   `json:"roomId,omitempty"`
	Players   []string `json:"players,omitempty"`
	Pool      string   `json:"pool"`
	TableSize int      `json:"tableSize"`
}

// Room is a filled pool; its ID becomes the table's game id.
type Room struct {
	ID        string    `json:"id"`
	Pool      string    `json:"pool"`
	TableSize int       `json:"tableSize"`
	Players   []string  `json:"players"`
	CreatedAt time.Time `json:"createdAt"`
}

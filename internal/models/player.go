package models

import "strings"

const (
	PlayerNameMinLen = 1
	PlayerNameMaxLen = 20
)

// Player is a client identity stored at players/{id}. A player exists
// independently of any room; rooms reference players by id only.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Avatar    string `json:"avatar,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// ValidPlayerName reports whether a display name is within bounds after
// trimming surrounding whitespace.
func ValidPlayerName(name string) bool {
	n := len([]rune(strings.TrimSpace(name)))
	return n >= PlayerNameMinLen && n <= PlayerNameMaxLen
}

package models

// RoomStatus is the lifecycle state of a room. Transitions are one-way:
// waiting -> playing -> finished.
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusPlaying  RoomStatus = "playing"
	StatusFinished RoomStatus = "finished"
)

// GameSettings is the room's snapshot of a game's default settings, taken at
// creation time. The host may tune it while the room is still waiting.
type GameSettings struct {
	MinPlayers      int    `json:"minPlayers"`
	MaxPlayers      int    `json:"maxPlayers"`
	QuestionsCount  int    `json:"questionsCount"`
	TimePerQuestion int    `json:"timePerQuestion"` // seconds
	Difficulty      string `json:"difficulty"`      // easy | medium | hard | mixed
}

// Member is a player's seat in a room. JoinedAt (unix millis) records join
// order and is the host-succession tie-break; array position is never used
// because it is not stable under concurrent edits.
type Member struct {
	JoinedAt int64 `json:"joinedAt"`
	Ready    bool  `json:"ready"`
	// Ghost marks a member who left after the game started. The seat is kept
	// so membership stays frozen during play.
	Ghost bool `json:"ghost,omitempty"`
}

// Room is the canonical room document stored at rooms/{id}. Status, Players
// and HostPlayerID are written only by the lifecycle service.
type Room struct {
	ID           string            `json:"id"`
	HostPlayerID string            `json:"hostPlayerId"`
	Players      map[string]Member `json:"players"`
	Status       RoomStatus        `json:"status"`
	GameID       string            `json:"gameId"`
	GameSettings GameSettings      `json:"gameSettings"`
	CreatedAt    int64             `json:"createdAt"`
	StartedAt    int64             `json:"startedAt,omitempty"`
	FinishedAt   int64             `json:"finishedAt,omitempty"`
}

// HasPlayer reports whether the player holds a seat in the room.
func (r *Room) HasPlayer(playerID string) bool {
	_, ok := r.Players[playerID]
	return ok
}

// ActivePlayers counts seats that have not been abandoned mid-game.
func (r *Room) ActivePlayers() int {
	n := 0
	for _, m := range r.Players {
		if !m.Ghost {
			n++
		}
	}
	return n
}

// SuccessorHost picks the earliest-joined remaining member, breaking
// JoinedAt ties by player id so every client resolves the same successor.
// Returns "" when the room is empty.
func (r *Room) SuccessorHost() string {
	best := ""
	var bestJoined int64
	for id, m := range r.Players {
		if id == r.HostPlayerID {
			continue
		}
		if best == "" || m.JoinedAt < bestJoined || (m.JoinedAt == bestJoined && id < best) {
			best = id
			bestJoined = m.JoinedAt
		}
	}
	return best
}

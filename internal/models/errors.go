package models

import "errors"

// Domain error taxonomy. Handlers map these onto HTTP statuses; nothing in
// this list is fatal to the process.
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrGameNotFound       = errors.New("game not found")
	ErrRoomNotJoinable    = errors.New("room is not accepting players")
	ErrRoomFull           = errors.New("room is full")
	ErrNotHost            = errors.New("only the host may do that")
	ErrNotMember          = errors.New("player is not in the room")
	ErrCannotKickHost     = errors.New("the host cannot be kicked")
	ErrNotEnoughPlayers   = errors.New("not enough players to start")
	ErrInvalidTransition  = errors.New("invalid room status transition")
	ErrInvalidSettings    = errors.New("invalid game settings")
	ErrCodeSpaceExhausted = errors.New("could not allocate a free room code")
)

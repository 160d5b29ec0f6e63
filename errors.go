package main

import "errors"

// Error taxonomy for protocol-order and state-machine violations.
// All of these are recovered at the WebSocket handler boundary and turned
// into a private error event; none of them are fatal to the process.
var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrSessionNotFound     = errors.New("game not found")
	ErrIllegalTransition   = errors.New("illegal phase transition")
	ErrInsufficientPlayers = errors.New("not enough players")
	ErrNoWordsAvailable    = errors.New("no words available")
	ErrDuplicateVote       = errors.New("vote already recorded")
	ErrRoleNotAssigned     = errors.New("player role not found")
	ErrNotImposter         = errors.New("only imposters can guess")
)

// clientMessage maps a protocol error to the human-readable message sent
// back over the wire.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, ErrPlayerNotFound):
		return "Player not found"
	case errors.Is(err, ErrSessionNotFound):
		return "Game not found"
	case errors.Is(err, ErrIllegalTransition):
		return "Invalid game state"
	case errors.Is(err, ErrInsufficientPlayers):
		return "At least 2 players are required to start"
	case errors.Is(err, ErrNoWordsAvailable):
		return "No words are available to start a game"
	case errors.Is(err, ErrDuplicateVote):
		return "You have already voted"
	case errors.Is(err, ErrRoleNotAssigned):
		return "Player role not found"
	case errors.Is(err, ErrNotImposter):
		return "Only imposters can guess"
	default:
		return "Something went wrong"
	}
}

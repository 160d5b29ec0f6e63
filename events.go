package main

import (
	"encoding/json"
	"log"
)

// Event is the outbound wire envelope. Event names and payload field names
// below mirror the frontend contract exactly.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// RoomData is the room snapshot sent on room_created / room_joined.
type RoomData struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	HostID  string        `json:"hostId"`
	Players []PlayerState `json:"players"`
}

type RoomEventData struct {
	RoomID string   `json:"roomId"`
	Room   RoomData `json:"room"`
}

type PlayerListData struct {
	RoomID  string        `json:"roomId"`
	Players []PlayerState `json:"players"`
}

// RoleAssignedData is private: the word field is only populated for
// PLAYER-role recipients. Imposters never receive the word here.
type RoleAssignedData struct {
	Role string `json:"role"`
	Word string `json:"word,omitempty"`
}

type PhaseChangedData struct {
	RoomID string `json:"roomId"`
	Phase  string `json:"phase"`
}

type ClueSubmittedData struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
	Clue       string `json:"clue"`
}

type VoteResultsData struct {
	RoomID     string `json:"roomId"`
	Eliminated string `json:"eliminated"`
	Reason     string `json:"reason"`
}

// ScoreData carries one player's points for the round just played.
type ScoreData struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Points     int    `json:"points"`
}

type RoundResultsData struct {
	RoomID string      `json:"roomId"`
	Scores []ScoreData `json:"scores"`
}

type RoundCompleteData struct {
	RoomID    string `json:"roomId"`
	Round     int    `json:"round"`
	NextRound int    `json:"nextRound"`
}

type GameOverData struct {
	RoomID string       `json:"roomId"`
	Winner string       `json:"winner"`
	Scores []TotalScore `json:"scores"`
}

type GameAbortedData struct {
	RoomID string `json:"roomId"`
	Reason string `json:"reason"`
}

type HostChangedData struct {
	RoomID    string `json:"roomId"`
	NewHostID string `json:"newHostId"`
}

type ErrorData struct {
	Message string `json:"message"`
}

func marshalEvent(event string, data any) []byte {
	payload, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", event, err)
		return nil
	}
	return payload
}

// broadcastEvent sends an event to every member of a room.
func broadcastEvent(roomID, event string, data any) {
	if payload := marshalEvent(event, data); payload != nil {
		hub.broadcastToRoom(roomID, payload)
	}
}

// emitToPlayer sends a private event to one player (e.g. role reveal).
func emitToPlayer(playerID, event string, data any) {
	if payload := marshalEvent(event, data); payload != nil {
		hub.sendToPlayer(playerID, payload)
	}
}

// sendProtocolError reports a classified protocol error to the
// originating connection.
func sendProtocolError(c *Client, err error) {
	sendError(c, clientMessage(err))
}

// sendError sends a private error event to the originating connection.
func sendError(c *Client, message string) {
	payload := marshalEvent("error", ErrorData{Message: message})
	if payload == nil {
		return
	}
	if err := c.write(payload); err != nil {
		log.Printf("WebSocket error-event write failed: %v", err)
	}
}

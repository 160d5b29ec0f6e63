package main

import (
	"fmt"
	"log"
)

// minPlayersRequired is the floor below which an active game cannot
// continue.
const minPlayersRequired = 2

// reconnectPlayer restores a player who re-joined with their existing
// player id: the connected flag comes back, the socket id is replaced,
// and mid-game their role is re-sent privately. Caller holds room.mu.
func reconnectPlayer(room *Room, player *PlayerState, client *Client) {
	player.Connected = true
	player.SocketID = client.id
	if err := updatePlayerSocket(player.ID, client.id); err != nil {
		logError("reconnectPlayer: updatePlayerSocket", err)
	}
	hub.bind(client, player.ID, room.ID)

	log.Printf("Player %s (%s) reconnected to room %s", player.ID, player.Name, room.ID)
	DebugLog("reconnectPlayer", "Player '%s' reconnected to room %s", player.Name, room.ID)

	broadcastEvent(room.ID, "player_list_updated", PlayerListData{RoomID: room.ID, Players: room.playersSnapshot()})
	broadcastEvent(room.ID, "room_joined", RoomEventData{RoomID: room.ID, Room: room.snapshot()})

	if game := room.Game; game != nil {
		role, err := getPlayerRole(game.SessionID, player.ID)
		if err == nil {
			data := RoleAssignedData{Role: role}
			if role == RolePlayer {
				data.Word = game.Word
			}
			emitToPlayer(player.ID, "role_assigned", data)
		}
	}
}

// handleTransportDisconnect is the hub's disconnect policy. Before a game
// the player is purged outright; mid-game they are only flagged so a
// reconnect can restore them.
func handleTransportDisconnect(roomID, playerID string) {
	room := registry.getRoom(roomID)
	if room == nil {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	player := room.getPlayer(playerID)
	if player == nil {
		return
	}

	if room.Game == nil {
		purgePlayerLocked(room, player)
		return
	}

	player.Connected = false
	log.Printf("Player %s (%s) disconnected from room %s mid-game", playerID, player.Name, roomID)

	if room.HostID == playerID {
		newHostID, changed := reassignHostLocked(room)
		if !changed && newHostID == "" {
			broadcastEvent(room.ID, "game_aborted", GameAbortedData{RoomID: room.ID, Reason: "Not enough players connected"})
		}
	}

	if !hasSufficientPlayers(room) {
		abortGame(room, fmt.Sprintf("Not enough players. %d connected, %d required.", room.connectedCount(), minPlayersRequired))
		return
	}
	broadcastEvent(room.ID, "player_list_updated", PlayerListData{RoomID: room.ID, Players: room.playersSnapshot()})
}

// purgePlayerLocked removes a lobby player who disconnected before any
// game started. Caller holds room.mu.
func purgePlayerLocked(room *Room, player *PlayerState) {
	delete(room.Players, player.ID)
	if err := deletePlayerRecord(player.ID); err != nil {
		logError("purgePlayerLocked: deletePlayerRecord", err)
	}
	log.Printf("Player %s (%s) left lobby of room %s", player.ID, player.Name, room.ID)

	if len(room.Players) == 0 {
		registry.removeRoom(room.ID)
		if err := deleteRoomRecord(room.ID); err != nil {
			logError("purgePlayerLocked: deleteRoomRecord", err)
		}
		log.Printf("Room %s is empty, destroyed", room.ID)
		return
	}

	if room.HostID == player.ID {
		reassignHostLocked(room)
	}
	broadcastEvent(room.ID, "player_list_updated", PlayerListData{RoomID: room.ID, Players: room.playersSnapshot()})
}

// reassignHostLocked hands the room to the connected player with the
// lexicographically smallest id, falling back to the smallest id overall
// so the host always refers to a current member. Returns the new host id
// and whether it changed. Caller holds room.mu.
func reassignHostLocked(room *Room) (string, bool) {
	newHostID := ""
	fallbackID := ""
	for _, p := range room.listPlayers() {
		if p.ID == room.HostID {
			continue
		}
		if fallbackID == "" {
			fallbackID = p.ID
		}
		if p.Connected {
			newHostID = p.ID
			break
		}
	}
	if newHostID == "" {
		if fallbackID == "" {
			return "", false
		}
		newHostID = fallbackID
	}

	room.HostID = newHostID
	if err := updateRoomHost(room.ID, newHostID); err != nil {
		logError("reassignHostLocked: updateRoomHost", err)
	}
	log.Printf("Room %s: host reassigned to %s", room.ID, newHostID)
	broadcastEvent(room.ID, "host_changed", HostChangedData{RoomID: room.ID, NewHostID: newHostID})
	return newHostID, true
}

func hasSufficientPlayers(room *Room) bool {
	return room.connectedCount() >= minPlayersRequired
}

// ensureSufficientPlayersLocked aborts the active game when the room has
// dropped below the minimum. Caller holds room.mu.
func ensureSufficientPlayersLocked(room *Room) {
	if room.Game == nil || hasSufficientPlayers(room) {
		return
	}
	abortGame(room, fmt.Sprintf("Not enough players. %d connected, %d required.", room.connectedCount(), minPlayersRequired))
}

// abortGame tears down the active game without a winner. The room
// survives; players can start a fresh game from the lobby. Caller holds
// room.mu.
func abortGame(room *Room, reason string) {
	cancelRoomTimers(room)
	room.Game = nil
	if err := updateRoomStatus(room.ID, RoomFinished); err != nil {
		logError("abortGame: updateRoomStatus", err)
	}
	for _, p := range room.Players {
		p.Role = ""
	}

	log.Printf("Game aborted in room %s: %s", room.ID, reason)
	broadcastEvent(room.ID, "game_aborted", GameAbortedData{RoomID: room.ID, Reason: reason})
}

package main

import (
	"crypto/rand"
	"log"
	"math/big"
)

// imposterCount is ceil(n/3): 2-3 players get one imposter, 4-6 get two,
// and so on.
func imposterCount(n int) int {
	return (n + 2) / 3
}

// shuffleStrings does a Fisher-Yates shuffle backed by crypto/rand so
// role assignment is not predictable from a seed.
func shuffleStrings(values []string) error {
	for i := len(values) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return err
		}
		j := n.Int64()
		values[i], values[j] = values[j], values[i]
	}
	return nil
}

// assignRoles shuffles roles across the room's players, persists one
// PlayerRole row per player for the session, and tells each player their
// role privately. The secret word only ever travels to PLAYER roles.
// Caller holds room.mu.
func assignRoles(room *Room, game *GameState) error {
	players := room.listPlayers()
	roles := make([]string, len(players))
	for i := range roles {
		if i < imposterCount(len(players)) {
			roles[i] = RoleImposter
		} else {
			roles[i] = RolePlayer
		}
	}
	if err := shuffleStrings(roles); err != nil {
		return err
	}

	for i, player := range players {
		if err := insertPlayerRole(PlayerRoleRecord{
			GameSessionID: game.SessionID,
			PlayerID:      player.ID,
			Role:          roles[i],
		}); err != nil {
			return err
		}
		player.Role = roles[i]

		data := RoleAssignedData{Role: roles[i]}
		if roles[i] == RolePlayer {
			data.Word = game.Word
		}
		emitToPlayer(player.ID, "role_assigned", data)
	}

	log.Printf("Room %s: assigned %d imposter(s) among %d players (session %s)",
		room.ID, imposterCount(len(players)), len(players), game.SessionID)
	LogDBState("after role assignment: session " + game.SessionID)
	return nil
}

// verifyAllRolesAssigned compares the persisted role count against the
// live player count. Guards the ASSIGN_ROLES -> CLUE_PHASE advance
// against partially written assignments. Caller holds room.mu.
func verifyAllRolesAssigned(room *Room) (bool, error) {
	game := room.Game
	if game == nil {
		return false, ErrSessionNotFound
	}
	count, err := countSessionRoles(game.SessionID)
	if err != nil {
		return false, err
	}
	return count > 0 && count == len(room.Players), nil
}

func handleWSStartGame(client *Client, msg WSMessage) {
	room := registry.getRoom(msg.RoomID)
	if room == nil {
		sendProtocolError(client, ErrRoomNotFound)
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.Game != nil {
		sendError(client, "Game already in progress")
		return
	}

	game, err := startGame(room)
	if err != nil {
		logError("handleWSStartGame: startGame", err)
		sendProtocolError(client, err)
		return
	}

	if err := transitionPhase(room, PhaseAssignRoles); err != nil {
		logError("handleWSStartGame: transitionPhase", err)
		room.Game = nil
		sendError(client, "Failed to start game")
		return
	}
	broadcastEvent(room.ID, "phase_changed", PhaseChangedData{RoomID: room.ID, Phase: PhaseAssignRoles})

	if err := assignRoles(room, game); err != nil {
		logError("handleWSStartGame: assignRoles", err)
		sendError(client, "Failed to assign roles")
		return
	}

	scheduleRoleReveal(room)
}

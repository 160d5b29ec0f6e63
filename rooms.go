package main

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PlayerState is the live, in-memory view of a room member. The socket id
// changes across reconnects; the player id is stable for the room's
// lifetime.
type PlayerState struct {
	ID        string `json:"id"`
	SocketID  string `json:"socketId"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	Connected bool   `json:"isConnected"`
}

// Room groups players before and during one game. All event handling for a
// room happens under its mutex: vote tallies and phase transitions are
// read-modify-write sequences that must not interleave.
type Room struct {
	ID        string
	Name      string
	HostID    string
	Players   map[string]*PlayerState
	Game      *GameState
	CreatedAt time.Time

	mu sync.Mutex
}

// Registry is the process-wide table of active rooms. It exclusively owns
// room and player liveness state; the database rows are the historical
// record.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func newRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

var registry = newRegistry()

func (reg *Registry) createRoom(name, hostID string) *Room {
	room := &Room{
		ID:        uuid.NewString(),
		Name:      name,
		HostID:    hostID,
		Players:   make(map[string]*PlayerState),
		CreatedAt: time.Now(),
	}
	reg.mu.Lock()
	reg.rooms[room.ID] = room
	reg.mu.Unlock()
	return room
}

func (reg *Registry) getRoom(roomID string) *Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.rooms[roomID]
}

func (reg *Registry) listRooms() []*Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// removeRoom drops the room from the table. Called only when the player
// mapping has become empty.
func (reg *Registry) removeRoom(roomID string) {
	reg.mu.Lock()
	delete(reg.rooms, roomID)
	reg.mu.Unlock()
}

// joinRoom inserts or overwrites the player entry. Caller holds room.mu.
func (room *Room) joinRoom(playerID, socketID, name string) *PlayerState {
	player := &PlayerState{
		ID:        playerID,
		SocketID:  socketID,
		Name:      name,
		Connected: true,
	}
	room.Players[playerID] = player
	return player
}

// getPlayer never fails; it returns nil for an unknown player.
func (room *Room) getPlayer(playerID string) *PlayerState {
	return room.Players[playerID]
}

// listPlayers returns the members ordered by player id so broadcasts are
// deterministic.
func (room *Room) listPlayers() []*PlayerState {
	players := make([]*PlayerState, 0, len(room.Players))
	for _, p := range room.Players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players
}

// connectedCount returns how many members currently hold a live connection.
func (room *Room) connectedCount() int {
	count := 0
	for _, p := range room.Players {
		if p.Connected {
			count++
		}
	}
	return count
}

// snapshot builds the public view of the room. Roles are stripped: a
// player's role travels only over the private role_assigned event.
func (room *Room) snapshot() RoomData {
	return RoomData{
		ID:      room.ID,
		Name:    room.Name,
		HostID:  room.HostID,
		Players: room.playersSnapshot(),
	}
}

func (room *Room) playersSnapshot() []PlayerState {
	players := room.listPlayers()
	out := make([]PlayerState, 0, len(players))
	for _, p := range players {
		snap := *p
		snap.Role = ""
		out = append(out, snap)
	}
	return out
}

// ==================== handlers ====================

func handleWSCreateRoom(client *Client, msg WSMessage) {
	if msg.Name == "" || msg.PlayerName == "" {
		sendError(client, "Room name and player name are required")
		return
	}

	hostID := uuid.NewString()
	room := registry.createRoom(msg.Name, hostID)

	room.mu.Lock()
	defer room.mu.Unlock()

	if err := insertRoomRecord(RoomRecord{ID: room.ID, Name: room.Name, HostID: hostID, Status: RoomWaiting}); err != nil {
		logError("handleWSCreateRoom: insertRoomRecord", err)
		registry.removeRoom(room.ID)
		sendError(client, "Failed to create room")
		return
	}
	if err := insertPlayerRecord(PlayerRecord{ID: hostID, RoomID: room.ID, SocketID: client.id, Name: msg.PlayerName}); err != nil {
		logError("handleWSCreateRoom: insertPlayerRecord", err)
		registry.removeRoom(room.ID)
		sendError(client, "Failed to create room")
		return
	}

	room.joinRoom(hostID, client.id, msg.PlayerName)
	hub.bind(client, hostID, room.ID)

	log.Printf("Room '%s' created by %s (room %s, host %s)", room.Name, msg.PlayerName, room.ID, hostID)
	DebugLog("handleWSCreateRoom", "Room %s created, host %s", room.ID, hostID)
	LogDBState("after room created: " + room.Name)

	broadcastEvent(room.ID, "room_created", RoomEventData{RoomID: room.ID, Room: room.snapshot()})
}

func handleWSJoinRoom(client *Client, msg WSMessage) {
	room := registry.getRoom(msg.RoomID)
	if room == nil {
		sendProtocolError(client, ErrRoomNotFound)
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	// Reconnection: same player id, new transport connection.
	if msg.PlayerID != "" {
		if player := room.getPlayer(msg.PlayerID); player != nil {
			reconnectPlayer(room, player, client)
			return
		}
	}

	if msg.PlayerName == "" {
		sendError(client, "Player name is required")
		return
	}

	playerID := uuid.NewString()
	if err := insertPlayerRecord(PlayerRecord{ID: playerID, RoomID: room.ID, SocketID: client.id, Name: msg.PlayerName}); err != nil {
		logError("handleWSJoinRoom: insertPlayerRecord", err)
		sendError(client, "Failed to join room")
		return
	}

	room.joinRoom(playerID, client.id, msg.PlayerName)
	hub.bind(client, playerID, room.ID)

	log.Printf("Player %s (%s) joined room %s", playerID, msg.PlayerName, room.ID)
	DebugLog("handleWSJoinRoom", "Player '%s' joined room %s", msg.PlayerName, room.ID)
	LogDBState("after player join: " + msg.PlayerName)

	broadcastEvent(room.ID, "player_list_updated", PlayerListData{RoomID: room.ID, Players: room.playersSnapshot()})
	broadcastEvent(room.ID, "room_joined", RoomEventData{RoomID: room.ID, Room: room.snapshot()})
}

func handleWSLeaveRoom(client *Client, msg WSMessage) {
	room := registry.getRoom(msg.RoomID)
	if room == nil {
		sendProtocolError(client, ErrRoomNotFound)
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	playerID := client.playerID
	player := room.getPlayer(playerID)
	if player == nil {
		sendProtocolError(client, ErrPlayerNotFound)
		return
	}

	delete(room.Players, playerID)
	if err := deletePlayerRecord(playerID); err != nil {
		logError("handleWSLeaveRoom: deletePlayerRecord", err)
	}
	hub.unbind(client)

	log.Printf("Player %s (%s) left room %s", playerID, player.Name, room.ID)
	DebugLog("handleWSLeaveRoom", "Player '%s' left room %s", player.Name, room.ID)

	// Leaving the room empty destroys it. This is the only path that does.
	if len(room.Players) == 0 {
		cancelRoomTimers(room)
		registry.removeRoom(room.ID)
		if err := deleteRoomRecord(room.ID); err != nil {
			logError("handleWSLeaveRoom: deleteRoomRecord", err)
		}
		log.Printf("Room %s is empty, destroyed", room.ID)
		return
	}

	if room.HostID == playerID {
		reassignHostLocked(room)
	}

	broadcastEvent(room.ID, "player_list_updated", PlayerListData{RoomID: room.ID, Players: room.playersSnapshot()})

	if room.Game != nil {
		ensureSufficientPlayersLocked(room)
	}
}

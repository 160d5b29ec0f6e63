package main

import (
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSMessage represents a message from the client. Field names are part of
// the wire contract and must not change.
type WSMessage struct {
	Action           string `json:"action"`
	Name             string `json:"name,omitempty"`
	PlayerName       string `json:"playerName,omitempty"`
	PlayerID         string `json:"playerId,omitempty"`
	RoomID           string `json:"roomId,omitempty"`
	Clue             string `json:"clue,omitempty"`
	VotedForPlayerID string `json:"votedForPlayerId,omitempty"`
	Word             string `json:"word,omitempty"`
}

// Client represents a websocket connection with player info. playerID and
// roomID are empty until the client creates or joins a room; they are
// guarded by the hub mutex because the hub goroutine and handlers both
// read them.
type Client struct {
	conn     *websocket.Conn
	id       string // per-connection id, stored as the player's socket id
	playerID string
	roomID   string
	writeMu  sync.Mutex // Serialize writes to WebSocket (required by gorilla/websocket)
}

func (c *Client) write(message []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// WebSocket hub for routing events to room members
type Hub struct {
	clients    map[*websocket.Conn]*Client
	register   chan *Client
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	done       chan struct{}
	wg         sync.WaitGroup
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]*Client),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn, 64),
		done:       make(chan struct{}),
	}
}

// stop signals the hub goroutine to exit and waits for it to finish
func (h *Hub) stop() {
	close(h.done)
	h.wg.Wait()
}

var hub = newHub()

// bind associates a client with a player and room once the join succeeds.
func (h *Hub) bind(c *Client, playerID, roomID string) {
	h.mu.Lock()
	c.playerID = playerID
	c.roomID = roomID
	h.mu.Unlock()
}

// unbind detaches a client from its room (explicit leave).
func (h *Hub) unbind(c *Client) {
	h.mu.Lock()
	c.playerID = ""
	c.roomID = ""
	h.mu.Unlock()
}

func (h *Hub) sendToPlayer(playerID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.playerID == playerID {
			LogWSMessage("OUT", playerID, string(message))
			if err := client.write(message); err != nil {
				log.Printf("WebSocket write error to player %s: %v", playerID, err)
			}
		}
	}
}

func (h *Hub) broadcastToRoom(roomID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.roomID == roomID {
			if err := client.write(message); err != nil {
				log.Printf("WebSocket write error in room %s: %v", roomID, err)
			}
		}
	}
	LogWSMessage("OUT", "room:"+roomID, string(message))
}

// connectionCount returns the number of live connections, for tests.
func (h *Hub) connectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) run() {
	h.wg.Add(1)
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client connected. Total: %d", total)

		case conn := <-h.unregister:
			var playerID, roomID string
			h.mu.Lock()
			client, ok := h.clients[conn]
			if ok {
				playerID = client.playerID
				roomID = client.roomID
				delete(h.clients, conn)
				conn.Close()

				// A reconnected player has a fresh connection; only treat
				// this as a disconnect if no other connection carries the
				// same player id.
				for _, c := range h.clients {
					if playerID != "" && c.playerID == playerID {
						playerID = ""
						break
					}
				}
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client disconnected. Total: %d", total)
			// Run the disconnect policy after releasing the mutex; it
			// broadcasts, which needs the read lock.
			if playerID != "" && roomID != "" {
				handleTransportDisconnect(roomID, playerID)
			}
		}
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Capture globals at entry to avoid race conditions in parallel tests
	currentHub := hub

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == cfg.Origin
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{conn: conn, id: uuid.NewString()}
	currentHub.register <- client

	// Handle messages and disconnection
	go func() {
		defer func() {
			currentHub.unregister <- conn
		}()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				break
			}
			handleWSMessage(client, message)
		}
	}()
}

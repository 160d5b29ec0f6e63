package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
)

// getFreePort asks the kernel for a free open port
func getFreePort() (int, error) {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// TestContext holds test infrastructure including logger and isolated resources
type TestContext struct {
	t        *testing.T
	logger   *TestLogger
	baseURL  string
	wsURL    string
	cleanup  func()
	db       *sqlx.DB
	hub      *Hub
	registry *Registry
	dbPath   string
}

// newTestContext creates a test context with server and logger. Game
// timers are shrunk so timer-driven phase advances happen within test
// timeouts.
func newTestContext(t *testing.T) *TestContext {
	logger := NewTestLogger(t)

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("Failed to get free port: %v", err)
	}

	// Create unique database file for this test to enable parallel execution
	// Use port number in path to guarantee uniqueness even if tests start simultaneously
	dbPath := fmt.Sprintf("/tmp/imposter_test_%s_%d_%d.db",
		strings.ReplaceAll(t.Name(), "/", "_"),
		port,
		time.Now().UnixNano())

	testDB, dbErr := sqlx.Connect("sqlite3",
		fmt.Sprintf("file:%s?_busy_timeout=5000&_synchronous=NORMAL&_txlock=deferred", dbPath))
	if dbErr != nil {
		t.Fatalf("Failed to connect to test database: %v", dbErr)
	}

	db = testDB
	if err := initDB(); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	if err := seedWords(); err != nil {
		t.Fatalf("Failed to seed word catalog: %v", err)
	}

	logger.LogDB("after initDB")

	testCfg := defaultConfig()
	testCfg.RoleRevealDelayMs = 50
	testCfg.ClueDurationMs = 300
	testCfg.NextRoundDelayMs = 50
	testCfg.Origin = ""
	cfg = testCfg

	testHub := newHub()
	go testHub.run()
	hub = testHub

	testRegistry := newRegistry()
	registry = testRegistry

	mux := http.NewServeMux()
	wrapHandler := func(pattern string, handler http.HandlerFunc) {
		wrappedHandler := func(w http.ResponseWriter, r *http.Request) {
			db = testDB
			hub = testHub
			registry = testRegistry
			cfg = testCfg
			handler(w, r)
		}
		if logger.logRequests {
			mux.Handle(pattern, &LoggingHandler{Handler: http.HandlerFunc(wrappedHandler), Logger: logger.AppLogger})
		} else {
			mux.HandleFunc(pattern, wrappedHandler)
		}
	}

	wrapHandler("/health", handleHealth)
	wrapHandler("/ws", handleWebSocket)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go server.ListenAndServe()

	// Wait until the listener accepts connections before handing the
	// context to the test.
	for i := 0; i < 100; i++ {
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", port), 50*time.Millisecond)
		if err == nil {
			conn.Close()
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(func() {
			logger.LogDB("before cleanup")
			server.Close() // closes WebSocket connections; buffered unregister channel accepts them
			testHub.stop() // hub goroutine processes remaining unregisters then exits
			testDB.Close()
			logger.Close()

			if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
				t.Logf("Warning: failed to remove test database %s: %v", dbPath, err)
			}
		})
	}

	ctx := &TestContext{
		t:        t,
		logger:   logger,
		baseURL:  fmt.Sprintf("http://localhost:%d", port),
		wsURL:    fmt.Sprintf("ws://localhost:%d/ws", port),
		cleanup:  cleanup,
		db:       testDB,
		hub:      testHub,
		registry: testRegistry,
		dbPath:   dbPath,
	}

	t.Cleanup(cleanup)
	return ctx
}

// eventTimeout bounds how long a test waits for a single expected event.
const eventTimeout = 5 * time.Second

// testEvent is the outbound envelope as seen by a test client.
type testEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// TestPlayer is a websocket client acting as one player.
type TestPlayer struct {
	t        *testing.T
	conn     *websocket.Conn
	name     string
	playerID string
	roomID   string
}

// connectPlayer dials the test server's websocket endpoint.
func (tc *TestContext) connectPlayer(name string) *TestPlayer {
	conn, _, err := websocket.DefaultDialer.Dial(tc.wsURL, nil)
	if err != nil {
		tc.t.Fatalf("Failed to dial websocket for %s: %v", name, err)
	}
	tp := &TestPlayer{t: tc.t, conn: conn, name: name}
	tc.t.Cleanup(tp.disconnect)
	return tp
}

func (tp *TestPlayer) send(msg WSMessage) {
	tp.t.Helper()
	if err := tp.conn.WriteJSON(msg); err != nil {
		tp.t.Fatalf("%s: websocket write failed: %v", tp.name, err)
	}
}

// waitForEvent reads until the named event arrives, discarding others.
func (tp *TestPlayer) waitForEvent(event string) json.RawMessage {
	tp.t.Helper()
	deadline := time.Now().Add(eventTimeout)
	for {
		tp.conn.SetReadDeadline(deadline)
		_, raw, err := tp.conn.ReadMessage()
		if err != nil {
			tp.t.Fatalf("%s: waiting for %s: %v", tp.name, event, err)
		}
		var ev testEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			tp.t.Fatalf("%s: bad event frame %q: %v", tp.name, raw, err)
		}
		if ev.Event == event {
			return ev.Data
		}
	}
}

// expectNoEvent asserts the named event does not arrive within the window.
func (tp *TestPlayer) expectNoEvent(event string, window time.Duration) {
	tp.t.Helper()
	deadline := time.Now().Add(window)
	for {
		tp.conn.SetReadDeadline(deadline)
		_, raw, err := tp.conn.ReadMessage()
		if err != nil {
			return // timeout: the event never came
		}
		var ev testEvent
		if json.Unmarshal(raw, &ev) == nil && ev.Event == event {
			tp.t.Fatalf("%s: unexpected %s event: %s", tp.name, event, raw)
		}
	}
}

func (tp *TestPlayer) decodeEvent(event string, dst any) {
	tp.t.Helper()
	data := tp.waitForEvent(event)
	if err := json.Unmarshal(data, dst); err != nil {
		tp.t.Fatalf("%s: failed to decode %s payload %s: %v", tp.name, event, data, err)
	}
}

func (tp *TestPlayer) disconnect() {
	if tp.conn != nil {
		tp.conn.Close()
		tp.conn = nil
	}
}

// createRoom creates a room and records the host's ids from the response.
func (tp *TestPlayer) createRoom(roomName string) string {
	tp.t.Helper()
	tp.send(WSMessage{Action: "create_room", Name: roomName, PlayerName: tp.name})
	var data RoomEventData
	tp.decodeEvent("room_created", &data)
	tp.roomID = data.RoomID
	tp.playerID = data.Room.HostID
	return tp.roomID
}

// joinRoom joins an existing room and records this player's id from the
// returned player list.
func (tp *TestPlayer) joinRoom(roomID string) {
	tp.t.Helper()
	tp.send(WSMessage{Action: "join_room", RoomID: roomID, PlayerName: tp.name})
	var data RoomEventData
	tp.decodeEvent("room_joined", &data)
	tp.roomID = roomID
	for _, p := range data.Room.Players {
		if p.Name == tp.name {
			tp.playerID = p.ID
		}
	}
	if tp.playerID == "" {
		tp.t.Fatalf("%s: not present in room_joined player list", tp.name)
	}
}

// waitForRole consumes this player's private role_assigned event.
func (tp *TestPlayer) waitForRole() RoleAssignedData {
	tp.t.Helper()
	var data RoleAssignedData
	tp.decodeEvent("role_assigned", &data)
	return data
}

// setupRoom creates a room with the given player names, first name
// hosting, and returns the players in order.
func setupRoom(tc *TestContext, roomName string, names ...string) []*TestPlayer {
	tc.t.Helper()
	players := make([]*TestPlayer, len(names))
	players[0] = tc.connectPlayer(names[0])
	roomID := players[0].createRoom(roomName)
	for i, name := range names[1:] {
		players[i+1] = tc.connectPlayer(name)
		players[i+1].joinRoom(roomID)
	}
	return players
}

// startGameAndCollectRoles starts the game and returns each player's
// role_assigned payload, indexed like players.
func startGameAndCollectRoles(players []*TestPlayer) []RoleAssignedData {
	host := players[0]
	host.t.Helper()
	host.send(WSMessage{Action: "start_game", RoomID: host.roomID})
	roles := make([]RoleAssignedData, len(players))
	for i, p := range players {
		roles[i] = p.waitForRole()
	}
	return roles
}

package main

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

// makeTestRoom builds a registered room with n connected players and
// persisted records.
func makeTestRoom(t *testing.T, n int) *Room {
	t.Helper()
	hostID := ""
	names := []string{"Alice", "Bob", "Carol", "Dave", "Eve", "Frank", "Grace", "Heidi"}
	ids := make([]string, n)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	hostID = ids[0]

	room := registry.createRoom("test room", hostID)
	if err := insertRoomRecord(RoomRecord{ID: room.ID, Name: room.Name, HostID: hostID, Status: RoomWaiting}); err != nil {
		t.Fatalf("insertRoomRecord: %v", err)
	}
	for i := 0; i < n; i++ {
		socketID := uuid.NewString()
		if err := insertPlayerRecord(PlayerRecord{ID: ids[i], RoomID: room.ID, SocketID: socketID, Name: names[i%len(names)]}); err != nil {
			t.Fatalf("insertPlayerRecord: %v", err)
		}
		room.joinRoom(ids[i], socketID, names[i%len(names)])
	}
	return room
}

func TestStartGameRequiresTwoPlayers(t *testing.T) {
	newTestContext(t)
	room := makeTestRoom(t, 1)

	room.mu.Lock()
	defer room.mu.Unlock()
	if _, err := startGame(room); !errors.Is(err, ErrInsufficientPlayers) {
		t.Fatalf("expected ErrInsufficientPlayers, got %v", err)
	}
	if room.Game != nil {
		t.Fatal("failed start must not attach a game")
	}
}

func TestStartGameWithEmptyCatalog(t *testing.T) {
	tc := newTestContext(t)
	room := makeTestRoom(t, 3)
	if _, err := tc.db.Exec("DELETE FROM word"); err != nil {
		t.Fatalf("failed to empty catalog: %v", err)
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if _, err := startGame(room); !errors.Is(err, ErrNoWordsAvailable) {
		t.Fatalf("expected ErrNoWordsAvailable, got %v", err)
	}
}

func TestStartGameOpensFirstSession(t *testing.T) {
	newTestContext(t)
	room := makeTestRoom(t, 3)

	room.mu.Lock()
	defer room.mu.Unlock()
	game, err := startGame(room)
	if err != nil {
		t.Fatalf("startGame: %v", err)
	}
	if game.Phase != PhaseLobby {
		t.Errorf("new session phase = %s, want %s", game.Phase, PhaseLobby)
	}
	if game.Round != 1 || game.MaxRounds != defaultMaxRounds {
		t.Errorf("round = %d/%d, want 1/%d", game.Round, game.MaxRounds, defaultMaxRounds)
	}
	if game.Word == "" || game.GameID == "" || game.SessionID == "" {
		t.Errorf("incomplete game state: %+v", game)
	}
	if room.Game != game {
		t.Error("room does not point at the new session")
	}
}

// Every (current, target) pair outside the legal edge set must fail with
// ErrIllegalTransition and leave the phase unchanged.
func TestTransitionTableIsExhaustive(t *testing.T) {
	newTestContext(t)
	room := makeTestRoom(t, 3)

	room.mu.Lock()
	game, err := startGame(room)
	room.mu.Unlock()
	if err != nil {
		t.Fatalf("startGame: %v", err)
	}

	phases := []string{PhaseLobby, PhaseAssignRoles, PhaseClue, PhaseVoting, PhaseReveal, PhaseScore}
	legal := map[string]map[string]bool{}
	for from, targets := range validTransitions {
		legal[from] = map[string]bool{}
		for _, to := range targets {
			legal[from][to] = true
		}
	}

	for _, from := range phases {
		for _, to := range phases {
			room.mu.Lock()
			game.Phase = from
			err := transitionPhase(room, to)
			if legal[from][to] {
				if err != nil {
					t.Errorf("%s -> %s: expected success, got %v", from, to, err)
				} else if game.Phase != to {
					t.Errorf("%s -> %s: phase not updated", from, to)
				}
			} else {
				if !errors.Is(err, ErrIllegalTransition) {
					t.Errorf("%s -> %s: expected ErrIllegalTransition, got %v", from, to, err)
				}
				if game.Phase != from {
					t.Errorf("%s -> %s: failed transition mutated phase to %s", from, to, game.Phase)
				}
			}
			room.mu.Unlock()
		}
	}
}

func TestTransitionWithoutSession(t *testing.T) {
	newTestContext(t)
	room := makeTestRoom(t, 2)

	room.mu.Lock()
	defer room.mu.Unlock()
	if err := transitionPhase(room, PhaseAssignRoles); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestPrepareNextRoundAdvances(t *testing.T) {
	newTestContext(t)
	room := makeTestRoom(t, 3)

	room.mu.Lock()
	defer room.mu.Unlock()
	first, err := startGame(room)
	if err != nil {
		t.Fatalf("startGame: %v", err)
	}

	next, ok, err := prepareNextRound(room)
	if err != nil || !ok {
		t.Fatalf("prepareNextRound: ok=%v err=%v", ok, err)
	}
	if next.SessionID == first.SessionID {
		t.Error("next round must open a fresh session")
	}
	if next.GameID != first.GameID {
		t.Error("next round must stay in the same game")
	}
	if next.Round != first.Round+1 {
		t.Errorf("round = %d, want %d", next.Round, first.Round+1)
	}
	if next.Phase != PhaseAssignRoles {
		t.Errorf("phase = %s, want %s", next.Phase, PhaseAssignRoles)
	}
	if room.Game != next {
		t.Error("room still points at the old session")
	}

	// Historic session row is untouched.
	var phase string
	if err := db.Get(&phase, "SELECT phase FROM game_session WHERE id = ?", first.SessionID); err != nil {
		t.Fatalf("prior session row missing: %v", err)
	}
}

func TestPrepareNextRoundStopsAtMaxRounds(t *testing.T) {
	newTestContext(t)
	room := makeTestRoom(t, 3)

	room.mu.Lock()
	defer room.mu.Unlock()
	game, err := startGame(room)
	if err != nil {
		t.Fatalf("startGame: %v", err)
	}
	game.Round = game.MaxRounds

	next, ok, err := prepareNextRound(room)
	if err != nil {
		t.Fatalf("prepareNextRound: %v", err)
	}
	if ok || next != nil {
		t.Fatal("rounds exhausted: expected no new session")
	}
	if room.Game != game {
		t.Error("exhausted game must keep its last session attached")
	}
}

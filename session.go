package main

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Phase string literals are part of the wire contract.
const (
	PhaseLobby       = "LOBBY"
	PhaseAssignRoles = "ASSIGN_ROLES"
	PhaseClue        = "CLUE_PHASE"
	PhaseVoting      = "VOTING_PHASE"
	PhaseReveal      = "REVEAL_PHASE"
	PhaseScore       = "SCORE_PHASE"
)

const defaultMaxRounds = 3

// validTransitions is the full set of legal phase edges. Anything not
// listed fails with ErrIllegalTransition.
var validTransitions = map[string][]string{
	PhaseLobby:       {PhaseAssignRoles},
	PhaseAssignRoles: {PhaseClue},
	PhaseClue:        {PhaseVoting},
	PhaseVoting:      {PhaseReveal},
	PhaseReveal:      {PhaseScore},
	PhaseScore:       {PhaseClue, PhaseLobby},
}

// GameState is the room's active session. A new round opens a new session
// (fresh SessionID) while GameID ties all of a game's sessions together
// for total-score queries. The prior sessions' roles, votes and scores
// stay in the database as the historical record.
type GameState struct {
	SessionID  string
	GameID     string
	RoomID     string
	Phase      string
	Round      int
	MaxRounds  int
	Word       string
	WordID     string
	Eliminated map[string]bool

	roleRevealTimer *time.Timer
	clueTimer       *time.Timer
	nextRoundTimer  *time.Timer
}

// startGame opens the first session for a room. Caller holds room.mu.
func startGame(room *Room) (*GameState, error) {
	if len(room.Players) < 2 {
		return nil, fmt.Errorf("%w: room %s has %d players, need at least 2", ErrInsufficientPlayers, room.ID, len(room.Players))
	}

	word, err := randomWord()
	if err != nil {
		return nil, err
	}

	game := &GameState{
		SessionID:  uuid.NewString(),
		GameID:     uuid.NewString(),
		RoomID:     room.ID,
		Phase:      PhaseLobby,
		Round:      1,
		MaxRounds:  defaultMaxRounds,
		Word:       word.Text,
		WordID:     word.ID,
		Eliminated: make(map[string]bool),
	}

	if err := insertSessionRecord(SessionRecord{
		ID:        game.SessionID,
		RoomID:    room.ID,
		GameID:    game.GameID,
		WordID:    game.WordID,
		Phase:     game.Phase,
		Round:     game.Round,
		MaxRounds: game.MaxRounds,
	}); err != nil {
		return nil, err
	}
	if err := updateRoomStatus(room.ID, RoomInProgress); err != nil {
		logError("startGame: updateRoomStatus", err)
	}

	room.Game = game
	log.Printf("Game started in room %s (session %s, word '%s')", room.ID, game.SessionID, game.Word)
	return game, nil
}

// transitionPhase moves the session along a legal edge and persists the
// new phase. Caller holds room.mu.
func transitionPhase(room *Room, target string) error {
	game := room.Game
	if game == nil {
		return ErrSessionNotFound
	}
	allowed := false
	for _, next := range validTransitions[game.Phase] {
		if next == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, game.Phase, target)
	}
	if err := updateSessionPhase(game.SessionID, target); err != nil {
		return err
	}
	game.Phase = target
	DebugLog("transitionPhase", "Room %s: session %s now in %s", room.ID, game.SessionID, target)
	return nil
}

// prepareNextRound opens the session for the next round, or reports the
// game finished when the rounds are exhausted. Caller holds room.mu.
func prepareNextRound(room *Room) (*GameState, bool, error) {
	prev := room.Game
	if prev == nil {
		return nil, false, ErrSessionNotFound
	}
	if prev.Round >= prev.MaxRounds {
		return nil, false, nil
	}

	word, err := randomWord()
	if err != nil {
		return nil, false, err
	}

	game := &GameState{
		SessionID:  uuid.NewString(),
		GameID:     prev.GameID,
		RoomID:     room.ID,
		Phase:      PhaseAssignRoles,
		Round:      prev.Round + 1,
		MaxRounds:  prev.MaxRounds,
		Word:       word.Text,
		WordID:     word.ID,
		Eliminated: make(map[string]bool),
	}

	if err := insertSessionRecord(SessionRecord{
		ID:        game.SessionID,
		RoomID:    room.ID,
		GameID:    game.GameID,
		WordID:    game.WordID,
		Phase:     game.Phase,
		Round:     game.Round,
		MaxRounds: game.MaxRounds,
	}); err != nil {
		return nil, false, err
	}

	room.Game = game
	log.Printf("Room %s advancing to round %d (session %s)", room.ID, game.Round, game.SessionID)
	return game, true, nil
}

// cancelRoomTimers stops any pending delayed tasks for the room's active
// session. Timers also re-check state when they fire, so this is a
// cleanup courtesy, not the correctness mechanism. Caller holds room.mu.
func cancelRoomTimers(room *Room) {
	game := room.Game
	if game == nil {
		return
	}
	for _, t := range []*time.Timer{game.roleRevealTimer, game.clueTimer, game.nextRoundTimer} {
		if t != nil {
			t.Stop()
		}
	}
}

// withSessionCheck runs fn under room.mu only if the room still exists,
// the session id is unchanged and the phase is still the expected one.
// Every timed advance goes through this gate so a stale timer acts on
// nothing.
func withSessionCheck(roomID, sessionID, expectedPhase string, fn func(room *Room)) {
	room := registry.getRoom(roomID)
	if room == nil {
		return
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	game := room.Game
	if game == nil || game.SessionID != sessionID || game.Phase != expectedPhase {
		DebugLog("withSessionCheck", "Stale timer for room %s (session %s, expected %s) ignored", roomID, sessionID, expectedPhase)
		return
	}
	fn(room)
}

// scheduleRoleReveal moves ASSIGN_ROLES to CLUE_PHASE once players have
// had a moment to see their roles. Caller holds room.mu.
func scheduleRoleReveal(room *Room) {
	game := room.Game
	roomID, sessionID := room.ID, game.SessionID
	game.roleRevealTimer = time.AfterFunc(cfg.roleRevealDelay(), func() {
		withSessionCheck(roomID, sessionID, PhaseAssignRoles, func(room *Room) {
			ok, err := verifyAllRolesAssigned(room)
			if err != nil {
				logError("scheduleRoleReveal: verifyAllRolesAssigned", err)
				return
			}
			if !ok {
				log.Printf("Room %s: role assignment incomplete, holding in %s", room.ID, PhaseAssignRoles)
				return
			}
			if err := transitionPhase(room, PhaseClue); err != nil {
				logError("scheduleRoleReveal: transitionPhase", err)
				return
			}
			broadcastEvent(room.ID, "phase_changed", PhaseChangedData{RoomID: room.ID, Phase: PhaseClue})
			scheduleClueTimer(room)
		})
	})
}

// scheduleClueTimer closes the clue window and opens voting. Caller holds
// room.mu.
func scheduleClueTimer(room *Room) {
	game := room.Game
	roomID, sessionID := room.ID, game.SessionID
	game.clueTimer = time.AfterFunc(cfg.clueDuration(), func() {
		withSessionCheck(roomID, sessionID, PhaseClue, func(room *Room) {
			if err := transitionPhase(room, PhaseVoting); err != nil {
				logError("scheduleClueTimer: transitionPhase", err)
				return
			}
			broadcastEvent(room.ID, "phase_changed", PhaseChangedData{RoomID: room.ID, Phase: PhaseVoting})
			broadcastEvent(room.ID, "voting_started", PlayerListData{RoomID: room.ID, Players: room.playersSnapshot()})
		})
	})
}

// scheduleNextRound opens the next round after the score screen. The new
// session starts at ASSIGN_ROLES with freshly shuffled roles. Caller
// holds room.mu.
func scheduleNextRound(room *Room) {
	game := room.Game
	roomID, sessionID := room.ID, game.SessionID
	game.nextRoundTimer = time.AfterFunc(cfg.nextRoundDelay(), func() {
		withSessionCheck(roomID, sessionID, PhaseScore, func(room *Room) {
			next, ok, err := prepareNextRound(room)
			if err != nil {
				logError("scheduleNextRound: prepareNextRound", err)
				return
			}
			if !ok {
				// Rounds exhausted. The guess handler finishes the game
				// before this timer is scheduled, so this is unreachable
				// in practice.
				return
			}
			broadcastEvent(room.ID, "phase_changed", PhaseChangedData{RoomID: room.ID, Phase: PhaseAssignRoles})
			if err := assignRoles(room, next); err != nil {
				logError("scheduleNextRound: assignRoles", err)
				return
			}
			scheduleRoleReveal(room)
		})
	})
}

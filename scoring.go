package main

import (
	"log"
	"strings"
)

// Points awarded per round. The rules are mutually exclusive; each round
// resolves to exactly one of them.
const (
	pointsImposterGuess    = 10 // imposter guessed the word
	pointsImposterSurvived = 5  // vote eliminated no one
	pointsImposterCaught   = 3  // each player, when an imposter was voted out
)

// computeRoundScores maps each role-holder to their delta for the round.
// Rule priority: a correct guess trumps the vote outcome, then
// no-elimination, then imposter-caught. A regular player voted out scores
// nothing for anyone.
func computeRoundScores(roles []PlayerRoleRecord, eliminatedID string, imposterGuessed bool) map[string]int {
	deltas := make(map[string]int, len(roles))
	eliminatedRole := ""
	for _, r := range roles {
		deltas[r.PlayerID] = 0
		if r.PlayerID == eliminatedID {
			eliminatedRole = r.Role
		}
	}

	switch {
	case imposterGuessed:
		for _, r := range roles {
			if r.Role == RoleImposter {
				deltas[r.PlayerID] = pointsImposterGuess
			}
		}
	case eliminatedID == "":
		for _, r := range roles {
			if r.Role == RoleImposter {
				deltas[r.PlayerID] = pointsImposterSurvived
			}
		}
	case eliminatedRole == RoleImposter:
		for _, r := range roles {
			if r.Role == RolePlayer {
				deltas[r.PlayerID] = pointsImposterCaught
			}
		}
	}
	return deltas
}

// scoreRound computes and persists every player's delta for the current
// round. Re-scoring a round overwrites its rows, so the persisted state
// always reflects the round's final outcome. Caller holds room.mu.
func scoreRound(room *Room, eliminatedID string, imposterGuessed bool) ([]ScoreData, error) {
	game := room.Game
	roles, err := getSessionRoles(game.SessionID)
	if err != nil {
		return nil, err
	}

	deltas := computeRoundScores(roles, eliminatedID, imposterGuessed)
	scores := make([]ScoreData, 0, len(deltas))
	for _, r := range roles {
		points := deltas[r.PlayerID]
		if err := upsertScore(ScoreRecord{
			GameSessionID: game.SessionID,
			PlayerID:      r.PlayerID,
			RoundNumber:   game.Round,
			Points:        points,
		}); err != nil {
			return nil, err
		}

		name := "Unknown"
		if p := room.getPlayer(r.PlayerID); p != nil {
			name = p.Name
		}
		scores = append(scores, ScoreData{PlayerID: r.PlayerID, PlayerName: name, Points: points})
	}

	LogDBState("after scoring round: session " + game.SessionID)
	return scores, nil
}

// checkPlayersWinCondition reports whether every imposter of the active
// session has been voted out. Caller holds room.mu.
func checkPlayersWinCondition(room *Room) (bool, error) {
	game := room.Game
	roles, err := getSessionRoles(game.SessionID)
	if err != nil {
		return false, err
	}
	imposters := 0
	for _, r := range roles {
		if r.Role == RoleImposter {
			imposters++
			if !game.Eliminated[r.PlayerID] {
				return false, nil
			}
		}
	}
	return imposters > 0, nil
}

// checkImposterGuess compares the guess against the secret word, ignoring
// case and surrounding whitespace.
func checkImposterGuess(guess, word string) bool {
	return strings.EqualFold(strings.TrimSpace(guess), strings.TrimSpace(word))
}

// finishGame closes out the room's game and announces the winner with the
// total standings across all of the game's rounds. An empty winner means
// "decide from the standings": Players if anyone scored, otherwise a
// draw. Caller holds room.mu.
func finishGame(room *Room, winner string) {
	game := room.Game
	totals, err := getTotalGameScores(game.GameID)
	if err != nil {
		logError("finishGame: getTotalGameScores", err)
		totals = []TotalScore{}
	}
	if winner == "" {
		if len(totals) > 0 && totals[0].TotalPoints > 0 {
			winner = "Players"
		} else {
			winner = "Draw"
		}
	}

	cancelRoomTimers(room)
	room.Game = nil
	if err := updateRoomStatus(room.ID, RoomFinished); err != nil {
		logError("finishGame: updateRoomStatus", err)
	}
	for _, p := range room.Players {
		p.Role = ""
	}

	log.Printf("Game over in room %s: winner %s", room.ID, winner)
	broadcastEvent(room.ID, "game_over", GameOverData{RoomID: room.ID, Winner: winner, Scores: totals})
}

func handleWSGuessWord(client *Client, msg WSMessage) {
	room := registry.getRoom(msg.RoomID)
	if room == nil {
		sendProtocolError(client, ErrRoomNotFound)
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	game := room.Game
	if game == nil || game.Phase != PhaseReveal {
		sendError(client, "Not in reveal phase")
		return
	}
	role, err := getPlayerRole(game.SessionID, client.playerID)
	if err != nil {
		sendProtocolError(client, ErrRoleNotAssigned)
		return
	}
	if role != RoleImposter {
		sendProtocolError(client, ErrNotImposter)
		return
	}

	if checkImposterGuess(msg.Word, game.Word) {
		// A correct guess wins outright and replaces the round's vote
		// outcome in the score table.
		if _, err := scoreRound(room, "", true); err != nil {
			logError("handleWSGuessWord: scoreRound", err)
		}
		finishGame(room, "Imposter")
		return
	}

	// Wrong guess. The round was already scored when the vote resolved;
	// move on to the score screen and the next round.
	if err := transitionPhase(room, PhaseScore); err != nil {
		logError("handleWSGuessWord: transitionPhase", err)
		return
	}

	if game.Round >= game.MaxRounds {
		finishGame(room, "")
		return
	}

	broadcastEvent(room.ID, "round_complete", RoundCompleteData{
		RoomID:    room.ID,
		Round:     game.Round,
		NextRound: game.Round + 1,
	})
	scheduleNextRound(room)
}

package main

import (
	"crypto/rand"
	"errors"
	"log"
	"math/big"
	"sort"
	"strings"
)

func handleWSSubmitClue(client *Client, msg WSMessage) {
	room := registry.getRoom(msg.RoomID)
	if room == nil {
		sendProtocolError(client, ErrRoomNotFound)
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.Game == nil || room.Game.Phase != PhaseClue {
		sendError(client, "Not in clue phase")
		return
	}
	player := room.getPlayer(client.playerID)
	if player == nil {
		sendProtocolError(client, ErrPlayerNotFound)
		return
	}
	clue := strings.TrimSpace(msg.Clue)
	if clue == "" {
		sendError(client, "Clue cannot be empty")
		return
	}

	DebugLog("handleWSSubmitClue", "Room %s: clue from %s", room.ID, player.Name)
	broadcastEvent(room.ID, "clue_submitted", ClueSubmittedData{
		RoomID:     room.ID,
		PlayerName: player.Name,
		Clue:       clue,
	})
}

func handleWSSubmitVote(client *Client, msg WSMessage) {
	room := registry.getRoom(msg.RoomID)
	if room == nil {
		sendProtocolError(client, ErrRoomNotFound)
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	game := room.Game
	if game == nil || game.Phase != PhaseVoting {
		sendError(client, "Not in voting phase")
		return
	}
	if room.getPlayer(client.playerID) == nil {
		sendProtocolError(client, ErrPlayerNotFound)
		return
	}
	if room.getPlayer(msg.VotedForPlayerID) == nil {
		sendProtocolError(client, ErrPlayerNotFound)
		return
	}
	if _, err := getPlayerRole(game.SessionID, client.playerID); err != nil {
		sendProtocolError(client, ErrRoleNotAssigned)
		return
	}

	if err := insertVote(VoteRecord{
		GameSessionID: game.SessionID,
		VoterID:       client.playerID,
		VotedForID:    msg.VotedForPlayerID,
	}); err != nil {
		if errors.Is(err, ErrDuplicateVote) {
			sendProtocolError(client, ErrDuplicateVote)
		} else {
			logError("handleWSSubmitVote: insertVote", err)
			sendError(client, "Failed to submit vote")
		}
		return
	}

	votes, err := getSessionVotes(game.SessionID)
	if err != nil {
		logError("handleWSSubmitVote: getSessionVotes", err)
		return
	}
	// Disconnected players don't hold up the round.
	if len(votes) >= room.connectedCount() {
		finishVoting(room, votes)
	}
}

// tallyVotes counts votes per target.
func tallyVotes(votes []VoteRecord) map[string]int {
	counts := make(map[string]int, len(votes))
	for _, v := range votes {
		counts[v.VotedForID]++
	}
	return counts
}

// resolveTiedVotes returns the id with the most votes, breaking ties
// uniformly at random. An empty tally eliminates no one.
func resolveTiedVotes(counts map[string]int) string {
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	if maxCount == 0 {
		return ""
	}
	candidates := make([]string, 0, len(counts))
	for id, c := range counts {
		if c == maxCount {
			candidates = append(candidates, id)
		}
	}
	sort.Strings(candidates)
	if len(candidates) == 1 {
		return candidates[0]
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(candidates))))
	if err != nil {
		// crypto/rand failing means the platform entropy source is gone;
		// falling back to the first candidate keeps the game moving.
		log.Printf("resolveTiedVotes: crypto/rand failed: %v", err)
		return candidates[0]
	}
	return candidates[n.Int64()]
}

// finishVoting tallies the round's votes, announces the result and moves
// the session into REVEAL_PHASE for the imposter's guess. Caller holds
// room.mu.
func finishVoting(room *Room, votes []VoteRecord) {
	game := room.Game
	eliminatedID := resolveTiedVotes(tallyVotes(votes))

	eliminated := room.getPlayer(eliminatedID)
	if eliminated != nil {
		game.Eliminated[eliminatedID] = true
		log.Printf("Room %s: %s voted out in round %d", room.ID, eliminated.Name, game.Round)
		broadcastEvent(room.ID, "vote_results", VoteResultsData{
			RoomID:     room.ID,
			Eliminated: eliminated.Name,
			Reason:     "Voted out",
		})
	} else {
		eliminatedID = ""
		log.Printf("Room %s: no one eliminated in round %d", room.ID, game.Round)
		broadcastEvent(room.ID, "vote_results", VoteResultsData{
			RoomID: room.ID,
			Reason: "No one was eliminated",
		})
	}

	scores, err := scoreRound(room, eliminatedID, false)
	if err != nil {
		logError("finishVoting: scoreRound", err)
		return
	}

	playersWon, err := checkPlayersWinCondition(room)
	if err != nil {
		logError("finishVoting: checkPlayersWinCondition", err)
		return
	}
	if playersWon {
		finishGame(room, "Players")
		return
	}

	if !hasSufficientPlayers(room) {
		abortGame(room, "Not enough players to continue")
		return
	}

	if err := transitionPhase(room, PhaseReveal); err != nil {
		logError("finishVoting: transitionPhase", err)
		return
	}
	broadcastEvent(room.ID, "phase_changed", PhaseChangedData{RoomID: room.ID, Phase: PhaseReveal})
	broadcastEvent(room.ID, "round_results", RoundResultsData{RoomID: room.ID, Scores: scores})
}

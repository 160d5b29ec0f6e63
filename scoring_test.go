package main

import (
	"testing"

	"github.com/google/uuid"
)

func sessionRoles(imposters, players int) []PlayerRoleRecord {
	roles := make([]PlayerRoleRecord, 0, imposters+players)
	for i := 0; i < imposters; i++ {
		roles = append(roles, PlayerRoleRecord{PlayerID: uuid.NewString(), Role: RoleImposter})
	}
	for i := 0; i < players; i++ {
		roles = append(roles, PlayerRoleRecord{PlayerID: uuid.NewString(), Role: RolePlayer})
	}
	return roles
}

func TestComputeRoundScoresImposterGuessed(t *testing.T) {
	roles := sessionRoles(2, 4)
	deltas := computeRoundScores(roles, roles[2].PlayerID, true)
	for _, r := range roles {
		want := 0
		if r.Role == RoleImposter {
			want = pointsImposterGuess
		}
		if deltas[r.PlayerID] != want {
			t.Errorf("%s (%s): got %d, want %d", r.PlayerID, r.Role, deltas[r.PlayerID], want)
		}
	}
}

func TestComputeRoundScoresNoElimination(t *testing.T) {
	roles := sessionRoles(1, 3)
	deltas := computeRoundScores(roles, "", false)
	for _, r := range roles {
		want := 0
		if r.Role == RoleImposter {
			want = pointsImposterSurvived
		}
		if deltas[r.PlayerID] != want {
			t.Errorf("%s (%s): got %d, want %d", r.PlayerID, r.Role, deltas[r.PlayerID], want)
		}
	}
}

func TestComputeRoundScoresImposterCaught(t *testing.T) {
	roles := sessionRoles(1, 3)
	deltas := computeRoundScores(roles, roles[0].PlayerID, false)
	for _, r := range roles {
		want := 0
		if r.Role == RolePlayer {
			want = pointsImposterCaught
		}
		if deltas[r.PlayerID] != want {
			t.Errorf("%s (%s): got %d, want %d", r.PlayerID, r.Role, deltas[r.PlayerID], want)
		}
	}
}

func TestComputeRoundScoresPlayerEliminated(t *testing.T) {
	roles := sessionRoles(1, 3)
	deltas := computeRoundScores(roles, roles[1].PlayerID, false)
	for id, d := range deltas {
		if d != 0 {
			t.Errorf("%s scored %d for a regular-player elimination", id, d)
		}
	}
}

// Exactly one scoring rule applies per round: the deltas for any outcome
// match a single rule's signature.
func TestComputeRoundScoresRulesAreDisjoint(t *testing.T) {
	roles := sessionRoles(2, 3)
	outcomes := []struct {
		eliminated string
		guessed    bool
	}{
		{"", true},
		{roles[0].PlayerID, true}, // guess trumps elimination
		{"", false},
		{roles[0].PlayerID, false},
		{roles[3].PlayerID, false},
	}
	for _, oc := range outcomes {
		deltas := computeRoundScores(roles, oc.eliminated, oc.guessed)
		seen := map[int]bool{}
		for _, d := range deltas {
			if d != 0 {
				seen[d] = true
			}
		}
		if len(seen) > 1 {
			t.Errorf("outcome %+v awarded mixed deltas: %v", oc, deltas)
		}
		for d := range seen {
			if d != pointsImposterGuess && d != pointsImposterSurvived && d != pointsImposterCaught {
				t.Errorf("outcome %+v awarded unknown delta %d", oc, d)
			}
		}
	}
}

func TestCheckImposterGuess(t *testing.T) {
	cases := []struct {
		guess, word string
		want        bool
	}{
		{"elephant", "elephant", true},
		{"Elephant ", "elephant", true},
		{"  ELEPHANT", "elephant", true},
		{"mango", "banana", false},
		{"", "elephant", false},
		{"elephants", "elephant", false},
	}
	for _, c := range cases {
		if got := checkImposterGuess(c.guess, c.word); got != c.want {
			t.Errorf("checkImposterGuess(%q, %q) = %v, want %v", c.guess, c.word, got, c.want)
		}
	}
}

func TestScoreRoundPersistsAndOverwrites(t *testing.T) {
	newTestContext(t)
	room := makeTestRoom(t, 3)

	room.mu.Lock()
	defer room.mu.Unlock()
	game, err := startGame(room)
	if err != nil {
		t.Fatalf("startGame: %v", err)
	}
	if err := assignRoles(room, game); err != nil {
		t.Fatalf("assignRoles: %v", err)
	}
	roles, err := getSessionRoles(game.SessionID)
	if err != nil {
		t.Fatalf("getSessionRoles: %v", err)
	}
	imposterID := ""
	for _, r := range roles {
		if r.Role == RoleImposter {
			imposterID = r.PlayerID
		}
	}

	// Vote outcome first: imposter caught, players +3.
	if _, err := scoreRound(room, imposterID, false); err != nil {
		t.Fatalf("scoreRound: %v", err)
	}
	// Then a correct guess replaces the round's rows: imposter +10.
	if _, err := scoreRound(room, "", true); err != nil {
		t.Fatalf("re-score: %v", err)
	}

	scores, err := getSessionScores(game.SessionID)
	if err != nil {
		t.Fatalf("getSessionScores: %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("expected one row per player, got %d", len(scores))
	}
	for _, s := range scores {
		want := 0
		if s.PlayerID == imposterID {
			want = pointsImposterGuess
		}
		if s.Points != want {
			t.Errorf("player %s: %d points persisted, want %d", s.PlayerID, s.Points, want)
		}
	}
}

func TestTotalScoresSumAcrossSessions(t *testing.T) {
	newTestContext(t)
	room := makeTestRoom(t, 2)

	room.mu.Lock()
	defer room.mu.Unlock()
	game, err := startGame(room)
	if err != nil {
		t.Fatalf("startGame: %v", err)
	}
	players := room.listPlayers()

	if err := upsertScore(ScoreRecord{GameSessionID: game.SessionID, PlayerID: players[0].ID, RoundNumber: 1, Points: 3}); err != nil {
		t.Fatal(err)
	}
	if err := upsertScore(ScoreRecord{GameSessionID: game.SessionID, PlayerID: players[1].ID, RoundNumber: 1, Points: 0}); err != nil {
		t.Fatal(err)
	}

	next, ok, err := prepareNextRound(room)
	if err != nil || !ok {
		t.Fatalf("prepareNextRound: ok=%v err=%v", ok, err)
	}
	if err := upsertScore(ScoreRecord{GameSessionID: next.SessionID, PlayerID: players[0].ID, RoundNumber: 2, Points: 3}); err != nil {
		t.Fatal(err)
	}
	if err := upsertScore(ScoreRecord{GameSessionID: next.SessionID, PlayerID: players[1].ID, RoundNumber: 2, Points: 10}); err != nil {
		t.Fatal(err)
	}

	totals, err := getTotalGameScores(game.GameID)
	if err != nil {
		t.Fatalf("getTotalGameScores: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("expected 2 standings, got %d", len(totals))
	}
	// Ranked descending: players[1] has 10, players[0] has 6.
	if totals[0].PlayerID != players[1].ID || totals[0].TotalPoints != 10 {
		t.Errorf("first place wrong: %+v", totals[0])
	}
	if totals[1].PlayerID != players[0].ID || totals[1].TotalPoints != 6 {
		t.Errorf("second place wrong: %+v", totals[1])
	}
}

func TestCheckPlayersWinCondition(t *testing.T) {
	newTestContext(t)
	room := makeTestRoom(t, 4) // 2 imposters

	room.mu.Lock()
	defer room.mu.Unlock()
	game, err := startGame(room)
	if err != nil {
		t.Fatalf("startGame: %v", err)
	}
	if err := assignRoles(room, game); err != nil {
		t.Fatalf("assignRoles: %v", err)
	}
	roles, err := getSessionRoles(game.SessionID)
	if err != nil {
		t.Fatalf("getSessionRoles: %v", err)
	}

	if won, _ := checkPlayersWinCondition(room); won {
		t.Fatal("no eliminations yet, players cannot have won")
	}

	for _, r := range roles {
		if r.Role == RoleImposter {
			game.Eliminated[r.PlayerID] = true
		}
	}
	if won, err := checkPlayersWinCondition(room); err != nil || !won {
		t.Fatalf("all imposters out: won=%v err=%v", won, err)
	}
}

package main

import (
	"errors"
	"sort"
	"testing"
	"testing/quick"
)

// imposterCount is ceil(n/3): the smallest count whose tripling covers n.
func TestImposterCountIsCeilOfThird(t *testing.T) {
	property := func(raw uint8) bool {
		n := int(raw)%30 + 2 // room sizes 2..31
		count := imposterCount(n)
		return count >= 1 && count < n && count*3 >= n && (count-1)*3 < n
	}
	if err := quick.Check(property, nil); err != nil {
		t.Error(err)
	}
}

func TestImposterCountKnownSizes(t *testing.T) {
	cases := map[int]int{2: 1, 3: 1, 4: 2, 5: 2, 6: 2, 7: 3, 9: 3, 10: 4}
	for n, want := range cases {
		if got := imposterCount(n); got != want {
			t.Errorf("imposterCount(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestShuffleStringsPreservesMultiset(t *testing.T) {
	original := []string{"IMPOSTER", "IMPOSTER", "PLAYER", "PLAYER", "PLAYER", "PLAYER"}
	shuffled := make([]string, len(original))
	copy(shuffled, original)
	if err := shuffleStrings(shuffled); err != nil {
		t.Fatalf("shuffleStrings: %v", err)
	}

	sortedOrig := make([]string, len(original))
	copy(sortedOrig, original)
	sort.Strings(sortedOrig)
	sortedShuf := make([]string, len(shuffled))
	copy(sortedShuf, shuffled)
	sort.Strings(sortedShuf)
	for i := range sortedOrig {
		if sortedOrig[i] != sortedShuf[i] {
			t.Fatalf("shuffle changed contents: %v vs %v", original, shuffled)
		}
	}
}

func TestAssignRolesPersistsEveryPlayer(t *testing.T) {
	newTestContext(t)
	for _, n := range []int{2, 3, 5, 7} {
		room := makeTestRoom(t, n)

		room.mu.Lock()
		game, err := startGame(room)
		if err != nil {
			room.mu.Unlock()
			t.Fatalf("n=%d startGame: %v", n, err)
		}
		if err := assignRoles(room, game); err != nil {
			room.mu.Unlock()
			t.Fatalf("n=%d assignRoles: %v", n, err)
		}

		roles, err := getSessionRoles(game.SessionID)
		if err != nil {
			room.mu.Unlock()
			t.Fatalf("n=%d getSessionRoles: %v", n, err)
		}
		if len(roles) != n {
			t.Errorf("n=%d: %d role rows persisted", n, len(roles))
		}
		imposters := 0
		for _, r := range roles {
			if r.Role == RoleImposter {
				imposters++
			} else if r.Role != RolePlayer {
				t.Errorf("n=%d: unexpected role %q", n, r.Role)
			}
			if p := room.getPlayer(r.PlayerID); p == nil || p.Role != r.Role {
				t.Errorf("n=%d: in-memory role out of sync for %s", n, r.PlayerID)
			}
		}
		if imposters != imposterCount(n) {
			t.Errorf("n=%d: %d imposters, want %d", n, imposters, imposterCount(n))
		}
		if n >= 3 && imposters == n {
			t.Errorf("n=%d: no regular players assigned", n)
		}

		ok, err := verifyAllRolesAssigned(room)
		if err != nil || !ok {
			t.Errorf("n=%d: verifyAllRolesAssigned = %v, %v", n, ok, err)
		}
		room.mu.Unlock()
	}
}

func TestVerifyAllRolesAssignedIncomplete(t *testing.T) {
	newTestContext(t)
	room := makeTestRoom(t, 3)

	room.mu.Lock()
	defer room.mu.Unlock()
	game, err := startGame(room)
	if err != nil {
		t.Fatalf("startGame: %v", err)
	}

	// No roles written yet.
	if ok, err := verifyAllRolesAssigned(room); err != nil || ok {
		t.Fatalf("empty assignment reported complete: %v, %v", ok, err)
	}

	// One of three written.
	players := room.listPlayers()
	if err := insertPlayerRole(PlayerRoleRecord{GameSessionID: game.SessionID, PlayerID: players[0].ID, Role: RoleImposter}); err != nil {
		t.Fatalf("insertPlayerRole: %v", err)
	}
	if ok, err := verifyAllRolesAssigned(room); err != nil || ok {
		t.Fatalf("partial assignment reported complete: %v, %v", ok, err)
	}
}

func TestGetPlayerRoleMissing(t *testing.T) {
	newTestContext(t)
	if _, err := getPlayerRole("no-such-session", "no-such-player"); !errors.Is(err, ErrRoleNotAssigned) {
		t.Fatalf("expected ErrRoleNotAssigned, got %v", err)
	}
}

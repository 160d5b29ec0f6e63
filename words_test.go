package main

import (
	"errors"
	"testing"
)

func TestSeedWordsIsIdempotent(t *testing.T) {
	tc := newTestContext(t) // fixture already seeded once

	var before int
	if err := tc.db.Get(&before, "SELECT COUNT(*) FROM word"); err != nil {
		t.Fatal(err)
	}
	if before == 0 {
		t.Fatal("catalog empty after seeding")
	}

	if err := seedWords(); err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	var after int
	if err := tc.db.Get(&after, "SELECT COUNT(*) FROM word"); err != nil {
		t.Fatal(err)
	}
	if after != before {
		t.Fatalf("re-seed grew the catalog: %d -> %d", before, after)
	}
}

func TestRandomWordDrawsFromCatalog(t *testing.T) {
	newTestContext(t)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		w, err := randomWord()
		if err != nil {
			t.Fatalf("randomWord: %v", err)
		}
		if w.ID == "" || w.Text == "" {
			t.Fatalf("incomplete word: %+v", w)
		}
		seen[w.Text] = true
	}
	// With a 25-word catalog, 20 draws landing on a single word would
	// mean the draw is not random at all.
	if len(seen) < 2 {
		t.Errorf("20 draws produced %d distinct words", len(seen))
	}
}

func TestRandomWordEmptyCatalog(t *testing.T) {
	tc := newTestContext(t)
	if _, err := tc.db.Exec("DELETE FROM word"); err != nil {
		t.Fatal(err)
	}
	if _, err := randomWord(); !errors.Is(err, ErrNoWordsAvailable) {
		t.Fatalf("expected ErrNoWordsAvailable, got %v", err)
	}
}

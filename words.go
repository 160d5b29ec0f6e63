package main

import (
	"database/sql"
	"log"

	"github.com/google/uuid"
)

// Word catalog seeded at startup.
var seedCategories = map[string][]string{
	"Animals":     {"elephant", "penguin", "giraffe", "dolphin", "eagle"},
	"Fruits":      {"apple", "banana", "orange", "strawberry", "mango"},
	"Countries":   {"france", "japan", "brazil", "canada", "egypt"},
	"Professions": {"doctor", "teacher", "engineer", "chef", "pilot"},
	"Sports":      {"tennis", "basketball", "swimming", "soccer", "golf"},
}

// seedWords fills the category/word tables if they are missing entries.
// Safe to run on every startup; existing rows are left alone.
func seedWords() error {
	for name, words := range seedCategories {
		var categoryID string
		err := db.Get(&categoryID, "SELECT id FROM category WHERE name = ?", name)
		if err == sql.ErrNoRows {
			categoryID = uuid.NewString()
			if _, err := db.Exec("INSERT INTO category (id, name) VALUES (?, ?)", categoryID, name); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		for _, w := range words {
			_, err := db.Exec(`
				INSERT OR IGNORE INTO word (id, category_id, text)
				VALUES (?, ?, ?)`,
				uuid.NewString(), categoryID, w)
			if err != nil {
				return err
			}
		}
	}
	log.Printf("Word catalog seeded (%d categories)", len(seedCategories))
	return nil
}

// randomWord draws a uniformly random word from the catalog.
func randomWord() (WordRecord, error) {
	var word WordRecord
	err := db.Get(&word, "SELECT id, category_id, text FROM word ORDER BY RANDOM() LIMIT 1")
	if err == sql.ErrNoRows {
		return WordRecord{}, ErrNoWordsAvailable
	}
	return word, err
}

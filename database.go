package main

import (
	"database/sql"
	"log"
	"time"
)

// Room status values persisted on the room row.
const (
	RoomWaiting    = "WAITING"
	RoomInProgress = "IN_PROGRESS"
	RoomFinished   = "FINISHED"
)

// Game roles.
const (
	RolePlayer   = "PLAYER"
	RoleImposter = "IMPOSTER"
)

// RoomRecord is the persisted form of a room.
type RoomRecord struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	HostID    string    `db:"host_id"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

// PlayerRecord is the persisted form of a player.
type PlayerRecord struct {
	ID       string `db:"id"`
	RoomID   string `db:"room_id"`
	SocketID string `db:"socket_id"`
	Name     string `db:"name"`
}

// SessionRecord is the persisted form of one round's game session.
type SessionRecord struct {
	ID        string    `db:"id"`
	RoomID    string    `db:"room_id"`
	GameID    string    `db:"game_id"`
	WordID    string    `db:"word_id"`
	Phase     string    `db:"phase"`
	Round     int       `db:"round"`
	MaxRounds int       `db:"max_rounds"`
	CreatedAt time.Time `db:"created_at"`
}

// PlayerRoleRecord maps (session, player) to a role, unique per pair.
type PlayerRoleRecord struct {
	GameSessionID string `db:"game_session_id"`
	PlayerID      string `db:"player_id"`
	Role          string `db:"role"`
}

// VoteRecord maps (session, voter) to a suspect, unique per voter.
type VoteRecord struct {
	GameSessionID string `db:"game_session_id"`
	VoterID       string `db:"voter_id"`
	VotedForID    string `db:"voted_for_id"`
}

// ScoreRecord holds one player's points for one round of a session.
type ScoreRecord struct {
	GameSessionID string `db:"game_session_id"`
	PlayerID      string `db:"player_id"`
	RoundNumber   int    `db:"round_number"`
	Points        int    `db:"points"`
}

// WordRecord is one secret word in the catalog.
type WordRecord struct {
	ID         string `db:"id"`
	CategoryID string `db:"category_id"`
	Text       string `db:"text"`
}

// TotalScore is a player's summed points across all sessions of a game.
type TotalScore struct {
	PlayerID    string `db:"player_id" json:"playerId"`
	Name        string `db:"name" json:"name"`
	TotalPoints int    `db:"total_points" json:"totalPoints"`
}

func initDB() error {
	schema := `
	PRAGMA journal_mode=WAL;
	PRAGMA foreign_keys=ON;

	CREATE TABLE IF NOT EXISTS room (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		host_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'WAITING',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS player (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		socket_id TEXT NOT NULL,
		name TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS category (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);
	CREATE TABLE IF NOT EXISTS word (
		id TEXT PRIMARY KEY,
		category_id TEXT NOT NULL,
		text TEXT NOT NULL,
		FOREIGN KEY (category_id) REFERENCES category(id),
		UNIQUE(category_id, text)
	);
	CREATE TABLE IF NOT EXISTS game_session (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		game_id TEXT NOT NULL,
		word_id TEXT NOT NULL,
		phase TEXT NOT NULL DEFAULT 'LOBBY',
		round INTEGER NOT NULL DEFAULT 1,
		max_rounds INTEGER NOT NULL DEFAULT 3,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS player_role (
		game_session_id TEXT NOT NULL,
		player_id TEXT NOT NULL,
		role TEXT NOT NULL,
		UNIQUE(game_session_id, player_id)
	);
	CREATE TABLE IF NOT EXISTS vote (
		game_session_id TEXT NOT NULL,
		voter_id TEXT NOT NULL,
		voted_for_id TEXT NOT NULL,
		UNIQUE(game_session_id, voter_id)
	);
	CREATE TABLE IF NOT EXISTS score (
		game_session_id TEXT NOT NULL,
		player_id TEXT NOT NULL,
		round_number INTEGER NOT NULL,
		points INTEGER NOT NULL DEFAULT 0,
		UNIQUE(game_session_id, player_id, round_number)
	);
	CREATE INDEX IF NOT EXISTS idx_session_game ON game_session(game_id);
	CREATE INDEX IF NOT EXISTS idx_score_session ON score(game_session_id);
	`
	if _, err := db.Exec(schema); err != nil {
		log.Printf("initDB error: %v", err)
		return err
	}
	log.Printf("Database initialized successfully")
	return nil
}

// ==================== rooms & players ====================

func insertRoomRecord(room RoomRecord) error {
	_, err := db.Exec("INSERT INTO room (id, name, host_id, status) VALUES (?, ?, ?, ?)",
		room.ID, room.Name, room.HostID, room.Status)
	return err
}

func updateRoomStatus(roomID, status string) error {
	_, err := db.Exec("UPDATE room SET status = ? WHERE id = ?", status, roomID)
	return err
}

func updateRoomHost(roomID, hostID string) error {
	_, err := db.Exec("UPDATE room SET host_id = ? WHERE id = ?", hostID, roomID)
	return err
}

// deleteRoomRecord removes the room row and every player row that belonged
// to it. Sessions, roles, votes and scores stay: they are the historical
// record of games played in the room.
func deleteRoomRecord(roomID string) error {
	if _, err := db.Exec("DELETE FROM player WHERE room_id = ?", roomID); err != nil {
		return err
	}
	_, err := db.Exec("DELETE FROM room WHERE id = ?", roomID)
	return err
}

func insertPlayerRecord(p PlayerRecord) error {
	_, err := db.Exec("INSERT INTO player (id, room_id, socket_id, name) VALUES (?, ?, ?, ?)",
		p.ID, p.RoomID, p.SocketID, p.Name)
	return err
}

func updatePlayerSocket(playerID, socketID string) error {
	_, err := db.Exec("UPDATE player SET socket_id = ? WHERE id = ?", socketID, playerID)
	return err
}

func deletePlayerRecord(playerID string) error {
	_, err := db.Exec("DELETE FROM player WHERE id = ?", playerID)
	return err
}

// ==================== sessions ====================

func insertSessionRecord(s SessionRecord) error {
	_, err := db.Exec(`
		INSERT INTO game_session (id, room_id, game_id, word_id, phase, round, max_rounds)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.RoomID, s.GameID, s.WordID, s.Phase, s.Round, s.MaxRounds)
	return err
}

func updateSessionPhase(sessionID, phase string) error {
	_, err := db.Exec("UPDATE game_session SET phase = ? WHERE id = ?", phase, sessionID)
	return err
}

// ==================== roles ====================

func insertPlayerRole(r PlayerRoleRecord) error {
	_, err := db.Exec(`
		INSERT INTO player_role (game_session_id, player_id, role)
		VALUES (?, ?, ?)`,
		r.GameSessionID, r.PlayerID, r.Role)
	return err
}

func getPlayerRole(sessionID, playerID string) (string, error) {
	var role string
	err := db.Get(&role, `
		SELECT role FROM player_role
		WHERE game_session_id = ? AND player_id = ?`,
		sessionID, playerID)
	if err == sql.ErrNoRows {
		return "", ErrRoleNotAssigned
	}
	return role, err
}

func getSessionRoles(sessionID string) ([]PlayerRoleRecord, error) {
	var roles []PlayerRoleRecord
	err := db.Select(&roles, `
		SELECT game_session_id, player_id, role FROM player_role
		WHERE game_session_id = ?`, sessionID)
	return roles, err
}

func countSessionRoles(sessionID string) (int, error) {
	var count int
	err := db.Get(&count, "SELECT COUNT(*) FROM player_role WHERE game_session_id = ?", sessionID)
	return count, err
}

// ==================== votes ====================

// insertVote records a voter's single vote for the session. A second vote
// from the same voter hits the UNIQUE(game_session_id, voter_id) constraint
// and is rejected with ErrDuplicateVote; the original vote is never
// overwritten.
func insertVote(v VoteRecord) error {
	result, err := db.Exec(`
		INSERT OR IGNORE INTO vote (game_session_id, voter_id, voted_for_id)
		VALUES (?, ?, ?)`,
		v.GameSessionID, v.VoterID, v.VotedForID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrDuplicateVote
	}
	return nil
}

func getSessionVotes(sessionID string) ([]VoteRecord, error) {
	var votes []VoteRecord
	err := db.Select(&votes, `
		SELECT game_session_id, voter_id, voted_for_id FROM vote
		WHERE game_session_id = ?`, sessionID)
	return votes, err
}

// ==================== scores ====================

// upsertScore writes one (session, player, round) score row. Re-scoring a
// round replaces the row, so the final state always reflects exactly one
// outcome rule.
func upsertScore(s ScoreRecord) error {
	_, err := db.Exec(`
		INSERT INTO score (game_session_id, player_id, round_number, points)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(game_session_id, player_id, round_number)
		DO UPDATE SET points = excluded.points`,
		s.GameSessionID, s.PlayerID, s.RoundNumber, s.Points)
	return err
}

func getSessionScores(sessionID string) ([]ScoreRecord, error) {
	var scores []ScoreRecord
	err := db.Select(&scores, `
		SELECT game_session_id, player_id, round_number, points FROM score
		WHERE game_session_id = ?`, sessionID)
	return scores, err
}

// getTotalGameScores sums each player's points across every session of the
// game, ranked descending by total.
func getTotalGameScores(gameID string) ([]TotalScore, error) {
	var totals []TotalScore
	err := db.Select(&totals, `
		SELECT s.player_id as player_id,
			COALESCE(p.name, '') as name,
			SUM(s.points) as total_points
		FROM score s
			JOIN game_session g ON s.game_session_id = g.id
			LEFT JOIN player p ON s.player_id = p.id
		WHERE g.game_id = ?
		GROUP BY s.player_id
		ORDER BY total_points DESC`, gameID)
	return totals, err
}

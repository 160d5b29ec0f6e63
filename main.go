package main

import (
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
)

var db *sqlx.DB
var cfg AppConfig
var devMode bool

// logError logs an error with context and dumps the database in dev mode
func logError(context string, err error) {
	log.Printf("ERROR [%s]: %v", context, err)
	if devMode {
		LogDBState("error: " + context)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// corsMiddleware allows the configured frontend origin to call the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", cfg.Origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleWSMessage routes an inbound message to its action handler. Every
// rejection turns into a private error event; nothing here is fatal.
func handleWSMessage(client *Client, message []byte) {
	LogWSMessage("IN", client.playerID, string(message))

	var msg WSMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Invalid WebSocket message: %v", err)
		sendError(client, "Invalid message format")
		return
	}

	switch msg.Action {
	case "create_room":
		handleWSCreateRoom(client, msg)
	case "join_room":
		handleWSJoinRoom(client, msg)
	case "start_game":
		handleWSStartGame(client, msg)
	case "submit_clue":
		handleWSSubmitClue(client, msg)
	case "submit_vote":
		handleWSSubmitVote(client, msg)
	case "guess_word":
		handleWSGuessWord(client, msg)
	case "leave_room":
		handleWSLeaveRoom(client, msg)
	default:
		log.Printf("Unknown WebSocket action: %s", msg.Action)
		sendError(client, "Unknown action")
	}
}

func main() {
	// .env is optional; real env vars win over it
	godotenv.Load()

	fv := registerFlags()
	flag.Parse()
	cfg = loadConfig(*fv.configPath)
	fv.applyTo(&cfg)
	devMode = cfg.Dev

	// Set up logging to both stdout and file
	logFile, err := os.OpenFile("imposter.log", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		log.Fatal("Failed to open log file:", err)
	}
	defer logFile.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))

	if err := InitAppLogger(cfg.toLogConfig()); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer CloseAppLogger()

	if appLogger.IsEnabled() {
		log.Println("Extended logging enabled")
	}

	db, err = sqlx.Connect("sqlite3", cfg.DB)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := initDB(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	if err := seedWords(); err != nil {
		log.Fatal("Failed to seed word catalog:", err)
	}

	LogDBState("after initDB")

	// Start WebSocket hub
	go hub.run()

	wrapHandler := func(pattern string, handler http.HandlerFunc) {
		var h http.Handler = corsMiddleware(handler)
		if appLogger != nil && appLogger.logRequests {
			http.Handle(pattern, &LoggingHandler{Handler: h, Logger: appLogger})
		} else {
			http.Handle(pattern, h)
		}
	}

	wrapHandler("/health", handleHealth)
	wrapHandler("/ws", handleWebSocket)

	log.Println("Server starting on " + cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, nil))
}

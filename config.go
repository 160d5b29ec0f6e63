package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"
	"time"
)

// AppConfig holds all server configuration.
// Priority (lowest → highest): defaults < env vars < JSON config file < CLI flags.
type AppConfig struct {
	// Server
	DB     string `json:"db"`     // database connection string
	Dev    bool   `json:"dev"`    // dev mode: verbose logging, db dumps on errors
	Addr   string `json:"addr"`   // HTTP listen address
	Origin string `json:"origin"` // allowed CORS origin for the frontend

	// Logging (extended diagnostics, off by default)
	LogOutputDir string `json:"log_output_dir"`
	LogRequests  bool   `json:"log_requests"`
	LogDB        bool   `json:"log_db"`
	LogWS        bool   `json:"log_ws"`
	LogDebug     bool   `json:"log_debug"`

	// Game timings, in milliseconds. Tests shrink these to keep the
	// timer-driven phase advances fast.
	RoleRevealDelayMs int `json:"role_reveal_delay_ms"` // ASSIGN_ROLES -> CLUE_PHASE
	ClueDurationMs    int `json:"clue_duration_ms"`     // CLUE_PHASE -> VOTING_PHASE
	NextRoundDelayMs  int `json:"next_round_delay_ms"`  // SCORE_PHASE -> next round
}

func (cfg AppConfig) toLogConfig() LogConfig {
	return LogConfig{
		OutputDir:   cfg.LogOutputDir,
		LogRequests: cfg.LogRequests,
		LogDB:       cfg.LogDB,
		LogWS:       cfg.LogWS,
		Debug:       cfg.LogDebug,
	}
}

func (cfg AppConfig) roleRevealDelay() time.Duration {
	return time.Duration(cfg.RoleRevealDelayMs) * time.Millisecond
}

func (cfg AppConfig) clueDuration() time.Duration {
	return time.Duration(cfg.ClueDurationMs) * time.Millisecond
}

func (cfg AppConfig) nextRoundDelay() time.Duration {
	return time.Duration(cfg.NextRoundDelayMs) * time.Millisecond
}

func defaultConfig() AppConfig {
	return AppConfig{
		DB:                "file::memory:?cache=shared",
		Addr:              ":3001",
		Origin:            "http://localhost:5173",
		RoleRevealDelayMs: 2000,
		ClueDurationMs:    60000,
		NextRoundDelayMs:  3000,
	}
}

// loadConfig builds a config by layering: defaults → env vars → JSON config file.
// CLI flag overrides are applied separately by flagValues.applyTo after flag.Parse.
func loadConfig(configPath string) AppConfig {
	cfg := defaultConfig()

	// Layer 1: env vars
	envStr := os.Getenv
	envBool := func(key string) (val bool, set bool) {
		v := os.Getenv(key)
		if v == "" {
			return false, false
		}
		return v == "1" || v == "true" || v == "yes", true
	}
	envInt := func(key string) (val int, set bool) {
		v := os.Getenv(key)
		if v == "" {
			return 0, false
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("Config: ignoring non-numeric %s=%q", key, v)
			return 0, false
		}
		return n, true
	}

	if v := envStr("DB"); v != "" {
		cfg.DB = v
	}
	if v, ok := envBool("DEV"); ok {
		cfg.Dev = v
	}
	if v := envStr("ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := envStr("PORT"); v != "" {
		cfg.Addr = ":" + v
	}
	if v := envStr("FRONTEND_URL"); v != "" {
		cfg.Origin = v
	}
	if v := envStr("LOG_OUTPUT_DIR"); v != "" {
		cfg.LogOutputDir = v
	}
	if v, ok := envBool("LOG_REQUESTS"); ok {
		cfg.LogRequests = v
	}
	if v, ok := envBool("LOG_DB"); ok {
		cfg.LogDB = v
	}
	if v, ok := envBool("LOG_WS"); ok {
		cfg.LogWS = v
	}
	if v, ok := envBool("LOG_DEBUG"); ok {
		cfg.LogDebug = v
	}
	if v, ok := envInt("ROLE_REVEAL_DELAY_MS"); ok {
		cfg.RoleRevealDelayMs = v
	}
	if v, ok := envInt("CLUE_DURATION_MS"); ok {
		cfg.ClueDurationMs = v
	}
	if v, ok := envInt("NEXT_ROUND_DELAY_MS"); ok {
		cfg.NextRoundDelayMs = v
	}

	// Layer 2: JSON config file; only fields present in the file override env vars
	if data, err := os.ReadFile(configPath); err == nil {
		var overlay map[string]json.RawMessage
		if err := json.Unmarshal(data, &overlay); err != nil {
			log.Printf("Config: failed to parse %s: %v", configPath, err)
		} else {
			applyJSONOverlay(&cfg, overlay)
			log.Printf("Config: loaded from %s", configPath)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Config: failed to read %s: %v", configPath, err)
	}

	return cfg
}

// applyJSONOverlay only sets fields that are explicitly present in the JSON map.
func applyJSONOverlay(cfg *AppConfig, m map[string]json.RawMessage) {
	str := func(key string, dst *string) {
		if v, ok := m[key]; ok {
			json.Unmarshal(v, dst)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := m[key]; ok {
			json.Unmarshal(v, dst)
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := m[key]; ok {
			json.Unmarshal(v, dst)
		}
	}
	str("db", &cfg.DB)
	boolean("dev", &cfg.Dev)
	str("addr", &cfg.Addr)
	str("origin", &cfg.Origin)
	str("log_output_dir", &cfg.LogOutputDir)
	boolean("log_requests", &cfg.LogRequests)
	boolean("log_db", &cfg.LogDB)
	boolean("log_ws", &cfg.LogWS)
	boolean("log_debug", &cfg.LogDebug)
	integer("role_reveal_delay_ms", &cfg.RoleRevealDelayMs)
	integer("clue_duration_ms", &cfg.ClueDurationMs)
	integer("next_round_delay_ms", &cfg.NextRoundDelayMs)
}

// flagValues holds pointers to all registered CLI flags.
type flagValues struct {
	configPath      *string
	db              *string
	dev             *bool
	addr            *string
	origin          *string
	logOutputDir    *string
	logRequests     *bool
	logDB           *bool
	logWS           *bool
	logDebug        *bool
	roleRevealDelay *int
	clueDuration    *int
	nextRoundDelay  *int
}

// registerFlags registers all CLI flags and returns pointers to their values.
// Call flag.Parse() after this, then applyTo to layer them over the loaded config.
func registerFlags() flagValues {
	return flagValues{
		configPath:      flag.String("config", "config.json", "path to JSON config file"),
		db:              flag.String("db", "", "database connection string"),
		dev:             flag.Bool("dev", false, "enable development mode (verbose logging, db dumps on error)"),
		addr:            flag.String("addr", "", "HTTP listen address (e.g. :3001)"),
		origin:          flag.String("origin", "", "allowed CORS origin for the frontend"),
		logOutputDir:    flag.String("log-output-dir", "", "directory for extended log files"),
		logRequests:     flag.Bool("log-requests", false, "log HTTP requests and responses"),
		logDB:           flag.Bool("log-db", false, "log database dumps"),
		logWS:           flag.Bool("log-ws", false, "log WebSocket messages"),
		logDebug:        flag.Bool("log-debug", false, "enable debug logging"),
		roleRevealDelay: flag.Int("role-reveal-delay-ms", 0, "delay before CLUE_PHASE after roles are revealed"),
		clueDuration:    flag.Int("clue-duration-ms", 0, "length of the clue phase"),
		nextRoundDelay:  flag.Int("next-round-delay-ms", 0, "delay before the next round starts"),
	}
}

// applyTo overlays any CLI flags that were explicitly set onto cfg.
// Flags that were not passed on the command line are ignored (env/JSON values win).
func (fv flagValues) applyTo(cfg *AppConfig) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			cfg.DB = *fv.db
		case "dev":
			cfg.Dev = *fv.dev
		case "addr":
			cfg.Addr = *fv.addr
		case "origin":
			cfg.Origin = *fv.origin
		case "log-output-dir":
			cfg.LogOutputDir = *fv.logOutputDir
		case "log-requests":
			cfg.LogRequests = *fv.logRequests
		case "log-db":
			cfg.LogDB = *fv.logDB
		case "log-ws":
			cfg.LogWS = *fv.logWS
		case "log-debug":
			cfg.LogDebug = *fv.logDebug
		case "role-reveal-delay-ms":
			cfg.RoleRevealDelayMs = *fv.roleRevealDelay
		case "clue-duration-ms":
			cfg.ClueDurationMs = *fv.clueDuration
		case "next-round-delay-ms":
			cfg.NextRoundDelayMs = *fv.nextRoundDelay
		}
	})
}

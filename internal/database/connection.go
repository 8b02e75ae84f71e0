package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the global database connection
var DB *sqlx.DB

// Connect establishes a connection to the database. DB_TYPE selects the
// backend: "sqlite" (default) or "postgres". Postgres reads DATABASE_URL.
func Connect() error {
	dbType := os.Getenv("DB_TYPE")
	if dbType == "" {
		dbType = "sqlite"
	}

	var db *sqlx.DB
	var err error

	switch dbType {
	case "postgres":
		db, err = sqlx.Connect("postgres", os.Getenv("DATABASE_URL"))
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %v", err)
		}
	case "sqlite":
		dataDir := os.Getenv("DATA_DIR")
		if dataDir == "" {
			dataDir = "data"
		}
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %v", err)
		}
		dbPath := filepath.Join(dataDir, "quizly.db")
		db, err = sqlx.Connect("sqlite3", dbPath)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %v", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %v", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	default:
		return fmt.Errorf("unknown DB_TYPE: %s", dbType)
	}

	DB = db

	return initializeSchema()
}

// ConnectWithDB installs an existing connection and initializes the
// schema. Used by tests and tools that manage their own connection.
func ConnectWithDB(db *sqlx.DB) error {
	DB = db
	return initializeSchema()
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema() error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	blobColumn := "BLOB"
	if DB.DriverName() == "postgres" {
		idColumn = "BIGSERIAL PRIMARY KEY"
		blobColumn = "BYTEA"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS learners (
			telegram_id INTEGER PRIMARY KEY,
			username TEXT,
			first_name TEXT,
			reminder_enabled BOOLEAN DEFAULT true,
			reminder_hour INTEGER DEFAULT 18,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			concept TEXT NOT NULL,
			card_type TEXT NOT NULL,
			prompt TEXT NOT NULL,
			options TEXT,
			answer TEXT NOT NULL,
			explanation TEXT,
			difficulty REAL NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_concept_difficulty
			ON cards (concept, difficulty)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS mastery_states (
			id %s,
			learner_id TEXT NOT NULL,
			concept TEXT NOT NULL,
			p_learned REAL NOT NULL,
			p_guess REAL NOT NULL,
			p_slip REAL NOT NULL,
			p_transit REAL NOT NULL,
			ts_alpha REAL NOT NULL DEFAULT 1,
			ts_beta REAL NOT NULL DEFAULT 1,
			total_attempts INTEGER NOT NULL DEFAULT 0,
			correct_attempts INTEGER NOT NULL DEFAULT 0,
			last_seen_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (learner_id, concept)
		)`, idColumn),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS feed_sessions (
			session_id TEXT PRIMARY KEY,
			learner_id TEXT NOT NULL,
			state %s NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`, blobColumn),
		`CREATE TABLE IF NOT EXISTS topics (
			name TEXT PRIMARY KEY,
			unit TEXT,
			position INTEGER DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS concepts (
			name TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			position INTEGER DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS concept_prerequisites (
			concept TEXT NOT NULL,
			prerequisite TEXT NOT NULL,
			PRIMARY KEY (concept, prerequisite)
		)`,
	}

	for _, stmt := range statements {
		if _, err := DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %v", err)
		}
	}
	return nil
}

package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"ai-compass/internal/models"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// InitDB opens the SQLite database holding the moderation audit log
func InitDB(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %v", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	log.Printf("Using audit database: %s", dbPath)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	return db, nil
}

// RunMigrations executes all database migrations
func RunMigrations(db *sql.DB) error {
	migrations := []string{
		createAuditTable,
		createAuditIndexes,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %v", err)
		}
	}

	return nil
}

const createAuditTable = `
CREATE TABLE IF NOT EXISTS audit_log (
    id TEXT PRIMARY KEY,
    actor_id TEXT NOT NULL,
    action TEXT NOT NULL,
    target TEXT NOT NULL,
    created_at DATETIME NOT NULL
);
`

const createAuditIndexes = `
CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log (created_at);
CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_log (actor_id);
`

// InsertAudit stores one admin action and returns the stored entry
func InsertAudit(db *sql.DB, actorID, action, target string) (*models.AuditEntry, error) {
	entry := &models.AuditEntry{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		Action:    action,
		Target:    target,
		CreatedAt: time.Now().UTC(),
	}

	_, err := db.Exec(
		"INSERT INTO audit_log (id, actor_id, action, target, created_at) VALUES (?, ?, ?, ?, ?)",
		entry.ID, entry.ActorID, entry.Action, entry.Target, entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListAudit returns the newest entries first
func ListAudit(db *sql.DB, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, actor_id, action, target, created_at
		FROM audit_log
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return ScanAudit(rows)
}

// ListAuditByActor returns the newest entries of one admin first
func ListAuditByActor(db *sql.DB, actorID string, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, actor_id, action, target, created_at
		FROM audit_log
		WHERE actor_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, actorID, limit)
	if err != nil {
		return nil, err
	}
	return ScanAudit(rows)
}

package repos

import (
	"database/sql"

	"ai-compass/internal/database"
	"ai-compass/internal/models"
)

type SQLiteAdapter struct {
	DB *sql.DB
}

func NewSQLiteAdapter(db *sql.DB) *SQLiteAdapter {
	return &SQLiteAdapter{DB: db}
}

// AuditLog
func (s *SQLiteAdapter) Record(actorID, action, target string) error {
	_, err := database.InsertAudit(s.DB, actorID, action, target)
	return err
}

func (s *SQLiteAdapter) List(limit int) ([]models.AuditEntry, error) {
	return database.ListAudit(s.DB, limit)
}

func (s *SQLiteAdapter) ListByActor(actorID string, limit int) ([]models.AuditEntry, error) {
	return database.ListAuditByActor(s.DB, actorID, limit)
}

// NopAudit discards entries; used when no audit database is configured
type NopAudit struct{}

func (NopAudit) Record(actorID, action, target string) error { return nil }

func (NopAudit) List(limit int) ([]models.AuditEntry, error) {
	return []models.AuditEntry{}, nil
}

func (NopAudit) ListByActor(actorID string, limit int) ([]models.AuditEntry, error) {
	return []models.AuditEntry{}, nil
}

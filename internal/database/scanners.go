package database

import (
	"database/sql"
	"log"

	"ai-compass/internal/models"
)

// ScanAudit scans rows into []models.AuditEntry expecting columns:
// id, actor_id, action, target, created_at
func ScanAudit(rows *sql.Rows) ([]models.AuditEntry, error) {
	defer rows.Close()
	entries := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Target, &e.CreatedAt); err != nil {
			log.Printf("ScanAudit error: %v", err)
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

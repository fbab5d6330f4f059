package repos

import (
	"ai-compass/internal/models"
)

// UserRepo gives access to the per-user documents
type UserRepo interface {
	List() ([]models.User, error)
	GetByID(id string) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	// Save replaces the whole document; atomic selects temp-file-and-rename
	Save(u *models.User, atomic bool) error
	// Update holds the store lock across a fresh read of every user and the
	// save of the document fn returns; a nil document saves nothing.
	Update(fn func(users []models.User) (owner *models.User, atomic bool, err error)) error
	// UpdateByID is Update for a single known user; (nil, nil) when absent
	UpdateByID(id string, atomic bool, fn func(u *models.User) error) (*models.User, error)
}

// ToolRepo gives access to the per-tool documents
type ToolRepo interface {
	List() ([]models.Tool, error)
	Get(id string) (*models.Tool, error)
	Save(t *models.Tool) error
}

// ReviewRepo reads and writes the single reviews document
type ReviewRepo interface {
	Load() (map[string][]models.Review, error)
	Save(reviews map[string][]models.Review) error
}

// RequestRepo reads and writes the single tool-requests document
type RequestRepo interface {
	Load() ([]models.ToolRequest, error)
	Save(requests []models.ToolRequest) error
}

// AuditLog records admin actions
type AuditLog interface {
	Record(actorID, action, target string) error
	List(limit int) ([]models.AuditEntry, error)
	ListByActor(actorID string, limit int) ([]models.AuditEntry, error)
}

// Repos groups repository interfaces for convenience
type Repos struct {
	Users    UserRepo
	Tools    ToolRepo
	Reviews  ReviewRepo
	Requests RequestRepo
	Audit    AuditLog
}

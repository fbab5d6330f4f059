package tools

import (
	"encoding/json"
	"log"
	"sort"
	"strings"
	"sync"

	"ai-compass/internal/apperror"
	"ai-compass/internal/database"
	"ai-compass/internal/models"
	"ai-compass/internal/repos"
)

// Service manages the tool catalog
type Service struct {
	tools repos.ToolRepo
	users repos.UserRepo
	audit repos.AuditLog

	mu sync.Mutex
}

func NewService(tools repos.ToolRepo, users repos.UserRepo, audit repos.AuditLog) *Service {
	if audit == nil {
		audit = repos.NopAudit{}
	}
	return &Service{tools: tools, users: users, audit: audit}
}

func (s *Service) isAdmin(userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	u, err := s.users.GetByID(userID)
	if err != nil {
		return false, err
	}
	return u.IsAdmin(), nil
}

func (s *Service) requireAdmin(userID string) error {
	admin, err := s.isAdmin(userID)
	if err != nil {
		return err
	}
	if !admin {
		return apperror.ErrUnauthorized
	}
	return nil
}

func (s *Service) record(actorID, action, target string) {
	if err := s.audit.Record(actorID, action, target); err != nil {
		log.Printf("audit %s on %s: %v", action, target, err)
	}
}

// List returns the catalog sorted by name; hidden tools only for admins
func (s *Service) List(requesterID string) ([]models.Tool, error) {
	admin, err := s.isAdmin(requesterID)
	if err != nil {
		return nil, err
	}
	all, err := s.tools.List()
	if err != nil {
		return nil, err
	}

	out := []models.Tool{}
	for _, t := range all {
		if t.Hidden && !admin {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// Get returns one tool; hidden tools are not found for non-admins
func (s *Service) Get(id, requesterID string) (*models.Tool, error) {
	t, err := s.tools.Get(id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperror.ErrToolNotFound
	}
	if t.Hidden {
		admin, err := s.isAdmin(requesterID)
		if err != nil {
			return nil, err
		}
		if !admin {
			return nil, apperror.ErrToolNotFound
		}
	}
	return t, nil
}

// Slug derives a tool id from its name
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Create adds a tool to the catalog
func (s *Service) Create(t models.Tool, adminID string) (*models.Tool, error) {
	if err := s.requireAdmin(adminID); err != nil {
		return nil, err
	}
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return nil, apperror.Validation("missing name")
	}
	if t.ID == "" {
		t.ID = Slug(t.Name)
	}
	if !database.IsSafeID(t.ID) {
		return nil, apperror.Validation("invalid id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.tools.Get(t.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.Conflict("tool exists")
	}
	if err := s.tools.Save(&t); err != nil {
		return nil, err
	}
	s.record(adminID, "createTool", t.ID)
	return &t, nil
}

// Update merges the top-level fields of patch into the stored tool.
// The id cannot be changed.
func (s *Service) Update(id string, patch map[string]json.RawMessage, adminID string) (*models.Tool, error) {
	if err := s.requireAdmin(adminID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.tools.Get(id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperror.ErrToolNotFound
	}

	raw, err := json.Marshal(current)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	var updated models.Tool
	if err := json.Unmarshal(merged, &updated); err != nil {
		return nil, apperror.Validation("invalid tool fields")
	}
	updated.ID = id
	if strings.TrimSpace(updated.Name) == "" {
		return nil, apperror.Validation("missing name")
	}

	if err := s.tools.Save(&updated); err != nil {
		return nil, err
	}
	s.record(adminID, "updateTool", id)
	return &updated, nil
}

// Hide toggles catalog visibility of a tool
func (s *Service) Hide(id string, hidden bool, adminID string) (*models.Tool, error) {
	if err := s.requireAdmin(adminID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.tools.Get(id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperror.ErrToolNotFound
	}
	t.Hidden = hidden
	if err := s.tools.Save(t); err != nil {
		return nil, err
	}
	action := "unhideTool"
	if hidden {
		action = "hideTool"
	}
	s.record(adminID, action, id)
	return t, nil
}

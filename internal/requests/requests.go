package requests

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"ai-compass/internal/apperror"
	"ai-compass/internal/models"
	"ai-compass/internal/repos"
	"ai-compass/internal/utils"
)

// CreateInput is a new tool request
type CreateInput struct {
	ToolName string `json:"toolName"`
	Usage    string `json:"usage"`
	Contact  string `json:"contact"`
}

// PatchInput is an admin update of a ticket
type PatchInput struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// Service is the tool-request ticket queue
type Service struct {
	requests repos.RequestRepo
	users    repos.UserRepo
	audit    repos.AuditLog

	mu  sync.Mutex
	Now func() time.Time
}

func NewService(requests repos.RequestRepo, users repos.UserRepo, audit repos.AuditLog) *Service {
	if audit == nil {
		audit = repos.NopAudit{}
	}
	return &Service{
		requests: requests,
		users:    users,
		audit:    audit,
		Now:      func() time.Time { return time.Now().UTC() },
	}
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

func (s *Service) newID(existing []models.ToolRequest) string {
	ts := s.Now().UnixMilli()
	for {
		id := fmt.Sprintf("req-%d", ts)
		if find(existing, id) < 0 {
			return id
		}
		ts++
	}
}

func find(list []models.ToolRequest, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// Create opens a new ticket
func (s *Service) Create(in CreateInput, authorID string) (*models.ToolRequest, error) {
	toolName := strings.TrimSpace(in.ToolName)
	usage := strings.TrimSpace(in.Usage)
	if toolName == "" || usage == "" {
		return nil, apperror.Validation("toolName and usage are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.requests.Load()
	if err != nil {
		return nil, err
	}

	req := models.ToolRequest{
		ID:        s.newID(list),
		ToolName:  toolName,
		Usage:     usage,
		Contact:   strings.TrimSpace(in.Contact),
		CreatedAt: s.Now(),
		AuthorID:  authorID,
		Status:    models.RequestOpen,
		Comments:  []models.RequestComment{},
	}
	list = append(list, req)
	if err := s.requests.Save(list); err != nil {
		return nil, err
	}
	return &req, nil
}

// Comment appends a comment; only the ticket author or an admin may comment
func (s *Service) Comment(id, text, requesterID string) (*models.ToolRequest, error) {
	if ok, msg := utils.ValidateCommentData(text); !ok {
		return nil, apperror.Validation(msg)
	}
	if requesterID == "" {
		return nil, apperror.ErrUnauthorized
	}
	admin, err := s.isAdmin(requesterID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.requests.Load()
	if err != nil {
		return nil, err
	}
	i := find(list, id)
	if i < 0 {
		return nil, apperror.ErrRequestMissing
	}
	req := &list[i]
	if !admin && req.AuthorID != requesterID {
		return nil, apperror.ErrUnauthorized
	}

	req.Comments = append(req.Comments, models.RequestComment{
		AuthorID:  requesterID,
		Text:      strings.TrimSpace(text),
		CreatedAt: s.Now(),
	})
	if err := s.requests.Save(list); err != nil {
		return nil, err
	}
	out := *req
	return &out, nil
}

// Patch lets an admin change the status and add a comment in one call
func (s *Service) Patch(id string, in PatchInput, adminID string) (*models.ToolRequest, error) {
	admin, err := s.isAdmin(adminID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, apperror.ErrUnauthorized
	}
	if in.Status != "" && in.Status != models.RequestOpen && in.Status != models.RequestClosed {
		return nil, apperror.Validation("invalid status")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.requests.Load()
	if err != nil {
		return nil, err
	}
	i := find(list, id)
	if i < 0 {
		return nil, apperror.ErrRequestMissing
	}
	req := &list[i]
	now := s.Now()

	switch in.Status {
	case models.RequestClosed:
		req.Status = models.RequestClosed
		req.ClosedAt = &now
	case models.RequestOpen:
		req.Status = models.RequestOpen
		req.ClosedAt = nil
	}
	if text := strings.TrimSpace(in.Comment); text != "" {
		req.Comments = append(req.Comments, models.RequestComment{AuthorID: adminID, Text: text, CreatedAt: now})
	}

	if err := s.requests.Save(list); err != nil {
		return nil, err
	}
	if err := s.audit.Record(adminID, "patchRequest", id); err != nil {
		log.Printf("audit patchRequest on %s: %v", id, err)
	}
	out := *req
	return &out, nil
}

// List returns every ticket to admins, their own tickets to users and
// nothing to anonymous callers
func (s *Service) List(requesterID string) ([]models.ToolRequest, error) {
	out := []models.ToolRequest{}
	if requesterID == "" {
		return out, nil
	}
	admin, err := s.isAdmin(requesterID)
	if err != nil {
		return nil, err
	}

	list, err := s.requests.Load()
	if err != nil {
		return nil, err
	}
	if admin {
		return list, nil
	}
	for _, r := range list {
		if r.AuthorID == requesterID {
			out = append(out, r)
		}
	}
	return out, nil
}

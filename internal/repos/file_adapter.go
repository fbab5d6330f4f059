package repos

import (
	"strings"
	"sync"

	"ai-compass/internal/database"
	"ai-compass/internal/models"
)

// FileAdapter implements the document repositories over the JSON file layout
type FileAdapter struct {
	UsersDir     string
	ToolsDir     string
	ReviewsPath  string
	RequestsPath string

	// usersMu serializes user read-modify-write cycles in this process;
	// across processes the last write wins.
	usersMu sync.Mutex
}

// UserFiles, ToolFiles, ReviewFile and RequestFile narrow FileAdapter to a
// single repository interface each, since the method names overlap.
type (
	UserFiles   struct{ *FileAdapter }
	ToolFiles   struct{ *FileAdapter }
	ReviewFile  struct{ *FileAdapter }
	RequestFile struct{ *FileAdapter }
)

// NewFileRepos wires every document repository to the given layout
func NewFileRepos(a *FileAdapter, audit AuditLog) *Repos {
	if audit == nil {
		audit = NopAudit{}
	}
	return &Repos{
		Users:    UserFiles{a},
		Tools:    ToolFiles{a},
		Reviews:  ReviewFile{a},
		Requests: RequestFile{a},
		Audit:    audit,
	}
}

// UserRepo
func (f UserFiles) List() ([]models.User, error) {
	return database.LoadUsers(f.UsersDir)
}

func (f UserFiles) GetByID(id string) (*models.User, error) {
	if id == "" {
		return nil, nil
	}
	return database.LoadUser(f.UsersDir, id)
}

// GetByUsername matches case-insensitively; (nil, nil) when absent
func (f UserFiles) GetByUsername(username string) (*models.User, error) {
	if username == "" {
		return nil, nil
	}
	users, err := database.LoadUsers(f.UsersDir)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].Username, username) {
			return &users[i], nil
		}
	}
	return nil, nil
}

func (f UserFiles) Save(u *models.User, atomic bool) error {
	f.usersMu.Lock()
	defer f.usersMu.Unlock()
	return database.SaveUser(f.UsersDir, u, atomic)
}

func (f UserFiles) Update(fn func(users []models.User) (*models.User, bool, error)) error {
	f.usersMu.Lock()
	defer f.usersMu.Unlock()

	users, err := database.LoadUsers(f.UsersDir)
	if err != nil {
		return err
	}
	owner, atomic, err := fn(users)
	if err != nil || owner == nil {
		return err
	}
	return database.SaveUser(f.UsersDir, owner, atomic)
}

func (f UserFiles) UpdateByID(id string, atomic bool, fn func(u *models.User) error) (*models.User, error) {
	if id == "" {
		return nil, nil
	}
	f.usersMu.Lock()
	defer f.usersMu.Unlock()

	u, err := database.LoadUser(f.UsersDir, id)
	if err != nil || u == nil {
		return nil, err
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	if err := database.SaveUser(f.UsersDir, u, atomic); err != nil {
		return nil, err
	}
	return u, nil
}

// ToolRepo
func (f ToolFiles) List() ([]models.Tool, error) {
	return database.LoadTools(f.ToolsDir)
}

func (f ToolFiles) Get(id string) (*models.Tool, error) {
	return database.LoadTool(f.ToolsDir, id)
}

func (f ToolFiles) Save(t *models.Tool) error {
	return database.SaveTool(f.ToolsDir, t)
}

// ReviewRepo
func (f ReviewFile) Load() (map[string][]models.Review, error) {
	return database.LoadReviews(f.ReviewsPath)
}

func (f ReviewFile) Save(reviews map[string][]models.Review) error {
	return database.SaveReviews(f.ReviewsPath, reviews)
}

// RequestRepo
func (f RequestFile) Load() ([]models.ToolRequest, error) {
	return database.LoadRequests(f.RequestsPath)
}

func (f RequestFile) Save(requests []models.ToolRequest) error {
	return database.SaveRequests(f.RequestsPath, requests)
}

package database

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"

	"ai-compass/internal/models"
)

var safeName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// IsSafeID reports whether id can be used as a file name stem
func IsSafeID(id string) bool {
	return safeName.MatchString(id)
}

func docPath(dir, id string) (string, error) {
	if !IsSafeID(id) {
		return "", fmt.Errorf("invalid document id %q", id)
	}
	return filepath.Join(dir, id+".json"), nil
}

// ===================== USERS =====================

// LoadUsers reads every user document in dir
func LoadUsers(dir string) ([]models.User, error) {
	var users []models.User
	err := ReadJSONDir(dir, func(path string) error {
		var u models.User
		if err := ReadJSON(path, &u); err != nil {
			return err
		}
		if u.ID == "" {
			u.ID = Stem(path)
		}
		users = append(users, u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return users, nil
}

// userPath finds the file holding user id: <id>.json when that file is the
// user's document, otherwise the file whose "id" field names the user.
// found is false when no document exists yet.
func userPath(dir, id string) (path string, found bool, err error) {
	if IsSafeID(id) {
		path = filepath.Join(dir, id+".json")
		if docID, err := readDocID(path); err == nil && (docID == "" || docID == id) {
			return path, true, nil
		}
	}

	files, err := JSONFiles(dir)
	if err != nil {
		return "", false, err
	}
	for _, f := range files {
		if docID, err := readDocID(f); err == nil && docID == id {
			return f, true, nil
		}
	}
	if path == "" {
		return "", false, fmt.Errorf("invalid document id %q", id)
	}
	return path, false, nil
}

func readDocID(path string) (string, error) {
	var doc struct {
		ID string `json:"id"`
	}
	if err := ReadJSON(path, &doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

// LoadUser reads a single user document; (nil, nil) when it does not exist
func LoadUser(dir, id string) (*models.User, error) {
	path, found, err := userPath(dir, id)
	if err != nil || !found {
		return nil, nil
	}
	var u models.User
	if err := ReadJSON(path, &u); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}
	if u.ID == "" {
		u.ID = id
	}
	return &u, nil
}

// SaveUser writes the whole user document back to the file it was read
// from, or to <id>.json for a new user. atomic selects the
// temp-file-and-rename path.
func SaveUser(dir string, u *models.User, atomic bool) error {
	path, _, err := userPath(dir, u.ID)
	if err != nil {
		return err
	}
	if u.Threads == nil {
		u.Threads = []models.Thread{}
	}
	if atomic {
		err = WriteJSONAtomic(path, u)
	} else {
		err = WriteJSON(path, u)
	}
	if err != nil {
		return fmt.Errorf("save user %s: %w", u.ID, err)
	}
	return nil
}

// ===================== TOOLS =====================

// LoadTools reads every tool document in dir; the id is the file stem
func LoadTools(dir string) ([]models.Tool, error) {
	var tools []models.Tool
	err := ReadJSONDir(dir, func(path string) error {
		var t models.Tool
		if err := ReadJSON(path, &t); err != nil {
			return err
		}
		t.ID = Stem(path)
		tools = append(tools, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load tools: %w", err)
	}
	return tools, nil
}

// LoadTool reads one tool; (nil, nil) when it does not exist
func LoadTool(dir, id string) (*models.Tool, error) {
	path, err := docPath(dir, id)
	if err != nil {
		return nil, nil
	}
	var t models.Tool
	if err := ReadJSON(path, &t); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("load tool %s: %w", id, err)
	}
	t.ID = id
	return &t, nil
}

func SaveTool(dir string, t *models.Tool) error {
	path, err := docPath(dir, t.ID)
	if err != nil {
		return err
	}
	if err := WriteJSON(path, t); err != nil {
		return fmt.Errorf("save tool %s: %w", t.ID, err)
	}
	return nil
}

// ===================== REVIEWS =====================

// LoadReviews reads the reviews document; a missing file is an empty map
func LoadReviews(path string) (map[string][]models.Review, error) {
	reviews := map[string][]models.Review{}
	if err := ReadJSON(path, &reviews); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string][]models.Review{}, nil
		}
		return nil, fmt.Errorf("load reviews: %w", err)
	}
	if reviews == nil {
		reviews = map[string][]models.Review{}
	}
	return reviews, nil
}

func SaveReviews(path string, reviews map[string][]models.Review) error {
	if err := WriteJSON(path, reviews); err != nil {
		return fmt.Errorf("save reviews: %w", err)
	}
	return nil
}

// ===================== REQUESTS =====================

// LoadRequests reads the tool-requests document; a missing file is an empty list
func LoadRequests(path string) ([]models.ToolRequest, error) {
	var requests []models.ToolRequest
	if err := ReadJSON(path, &requests); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.ToolRequest{}, nil
		}
		return nil, fmt.Errorf("load requests: %w", err)
	}
	if requests == nil {
		requests = []models.ToolRequest{}
	}
	return requests, nil
}

func SaveRequests(path string, requests []models.ToolRequest) error {
	if err := WriteJSON(path, requests); err != nil {
		return fmt.Errorf("save requests: %w", err)
	}
	return nil
}

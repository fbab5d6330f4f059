package models

import (
	"encoding/json"
	"time"
)

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the per-user document. Threads live only here.
type User struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"displayName"`
	Password    string   `json:"password"`
	Role        string   `json:"role"`
	Bookmarks   []string `json:"bookmarks,omitempty"`
	Threads     []Thread `json:"threads"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// PublicUser is a User without password and threads
type PublicUser struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"displayName"`
	Role        string   `json:"role"`
	Bookmarks   []string `json:"bookmarks"`
}

// Thread represents a community discussion; Posts[0] is the body
type Thread struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	ToolID    string     `json:"toolId,omitempty"`
	Keywords  []string   `json:"keywords"`
	CreatedAt time.Time  `json:"createdAt"`
	Posts     []Post     `json:"posts"`
	Flagged   bool       `json:"flagged"`
	FlaggedBy string     `json:"flaggedBy,omitempty"`
	FlaggedAt *time.Time `json:"flaggedAt,omitempty"`
	Likes     []string   `json:"likes"`
}

// CommentCount is the number of posts after the body
func (t *Thread) CommentCount() int {
	if len(t.Posts) <= 1 {
		return 0
	}
	return len(t.Posts) - 1
}

// Post is a thread body or a comment
type Post struct {
	Author         string     `json:"author"`
	Text           string     `json:"text"`
	Date           time.Time  `json:"date"`
	DeletedByAdmin bool       `json:"deletedByAdmin,omitempty"`
	DeletedAt      *time.Time `json:"deletedAt,omitempty"`
	DeletedBy      string     `json:"deletedBy,omitempty"`
	DeletedText    string     `json:"deletedText,omitempty"`
}

// PostView is a Post with its author resolved for display
type PostView struct {
	Post
	AuthorID      string `json:"authorId"`
	AuthorName    string `json:"authorName"`
	AuthorIsAdmin bool   `json:"authorIsAdmin"`
}

// ThreadView is the flattened, display-ready thread returned to clients
type ThreadView struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	ToolID       string     `json:"toolId,omitempty"`
	Keywords     []string   `json:"keywords"`
	CreatedAt    time.Time  `json:"createdAt"`
	OwnerID      string     `json:"ownerId"`
	OwnerName    string     `json:"ownerName"`
	Posts        []PostView `json:"posts"`
	Flagged      bool       `json:"flagged"`
	FlaggedBy    string     `json:"flaggedBy,omitempty"`
	FlaggedAt    *time.Time `json:"flaggedAt,omitempty"`
	Likes        []string   `json:"likes"`
	LikeCount    int        `json:"likeCount"`
	CommentCount int        `json:"commentCount"`
}

// Review is one author's rating/text for a tool
type Review struct {
	ID            string         `json:"id"`
	Title         string         `json:"title,omitempty"`
	AuthorID      string         `json:"authorId,omitempty"`
	Author        string         `json:"author"`
	AuthorDisplay string         `json:"authorDisplay,omitempty"`
	Rating        *float64       `json:"rating"`
	Text          string         `json:"text"`
	History       []ReviewChange `json:"history"`
	Keywords      []string       `json:"keywords"`
	Date          time.Time      `json:"date"`
	Likes         int            `json:"likes"`
}

// ReviewChange is one entry of a review's edit history
type ReviewChange struct {
	Date   time.Time `json:"date"`
	Text   string    `json:"text"`
	Rating *float64  `json:"rating"`
}

// ReviewSummary aggregates the rated reviews of a tool
type ReviewSummary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

// Request statuses
const (
	RequestOpen   = "open"
	RequestClosed = "closed"
)

// ToolRequest is a ticket asking for a tool to be added to the catalog
type ToolRequest struct {
	ID        string           `json:"id"`
	ToolName  string           `json:"toolName"`
	Usage     string           `json:"usage"`
	Contact   string           `json:"contact"`
	CreatedAt time.Time        `json:"createdAt"`
	AuthorID  string           `json:"authorId"`
	Status    string           `json:"status"`
	Comments  []RequestComment `json:"comments"`
	ClosedAt  *time.Time       `json:"closedAt,omitempty"`
}

type RequestComment struct {
	AuthorID  string    `json:"authorId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Tool is a catalog entry. Fields not listed here are kept in Extra
// so that a read-modify-write cycle does not drop them.
type Tool struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	About    string   `json:"about,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Intents  []string `json:"intents,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Summary  string   `json:"summary,omitempty"`
	Details  string   `json:"details,omitempty"`
	HowTo    string   `json:"howTo,omitempty"`
	Hidden   bool     `json:"hidden"`

	Extra map[string]json.RawMessage `json:"-"`
}

var toolFields = map[string]bool{
	"id": true, "name": true, "about": true, "tags": true, "intents": true,
	"keywords": true, "summary": true, "details": true, "howTo": true, "hidden": true,
}

type toolAlias Tool

func (t *Tool) UnmarshalJSON(data []byte) error {
	var known toolAlias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	*t = Tool(known)
	for k, v := range all {
		if toolFields[k] {
			continue
		}
		if t.Extra == nil {
			t.Extra = make(map[string]json.RawMessage)
		}
		t.Extra[k] = v
	}
	return nil
}

func (t Tool) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(toolAlias(t))
	if err != nil {
		return nil, err
	}
	if len(t.Extra) == 0 {
		return known, nil
	}
	out := make(map[string]json.RawMessage, len(t.Extra)+len(toolFields))
	for k, v := range t.Extra {
		out[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		out[k] = v
	}
	return json.Marshal(out)
}

// AuditEntry records one admin action
type AuditEntry struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actorId"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"createdAt"`
}

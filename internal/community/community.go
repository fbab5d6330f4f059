package community

import (
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"time"

	"ai-compass/internal/apperror"
	"ai-compass/internal/models"
	"ai-compass/internal/repos"
	"ai-compass/internal/utils"
)

// Sort orders accepted by List
const (
	SortRecent = "recent"
	SortOldest = "oldest"
	SortLiked  = "liked"
)

// Filter selects threads for List
type Filter struct {
	Tool        string
	Keywords    []string
	Sort        string
	RequesterID string
}

// Payload carries the fields of every action; each action reads the ones it needs
type Payload struct {
	ThreadID  string   `json:"threadId"`
	Title     string   `json:"title"`
	ToolID    string   `json:"toolId"`
	Keywords  []string `json:"keywords"`
	Text      string   `json:"text"`
	Author    string   `json:"author"`
	Flag      *bool    `json:"flag"`
	PostIndex *int     `json:"postIndex"`
}

// Result describes the outcome of a mutation
type Result struct {
	Action  Action
	OwnerID string
	Thread  *models.Thread
	Liked   bool
}

// Service flattens the threads embedded in user documents and applies
// the community actions to them.
type Service struct {
	users repos.UserRepo
	audit repos.AuditLog

	Now func() time.Time
}

func NewService(users repos.UserRepo, audit repos.AuditLog) *Service {
	if audit == nil {
		audit = repos.NopAudit{}
	}
	return &Service{
		users: users,
		audit: audit,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

// userIndex resolves authors by id first, then by username
type userIndex struct {
	byID       map[string]*models.User
	byUsername map[string]*models.User
}

func newUserIndex(users []models.User) *userIndex {
	idx := &userIndex{
		byID:       make(map[string]*models.User, len(users)),
		byUsername: make(map[string]*models.User, len(users)),
	}
	for i := range users {
		u := &users[i]
		idx.byID[u.ID] = u
		if u.Username != "" {
			idx.byUsername[strings.ToLower(u.Username)] = u
		}
	}
	return idx
}

func (idx *userIndex) resolve(ref string) *models.User {
	if ref == "" {
		return nil
	}
	if u, ok := idx.byID[ref]; ok {
		return u
	}
	return idx.byUsername[strings.ToLower(ref)]
}

func (idx *userIndex) isAdmin(id string) bool {
	return idx.resolve(id).IsAdmin()
}

// visible reports whether requester may see the thread owned by ownerID
func (idx *userIndex) visible(t *models.Thread, ownerID, requesterID string) bool {
	if !t.Flagged {
		return true
	}
	if requesterID == "" {
		return false
	}
	if idx.isAdmin(requesterID) {
		return true
	}
	if u := idx.resolve(requesterID); u != nil && u.ID == ownerID {
		return true
	}
	return requesterID == ownerID
}

// view flattens t for display. Text removed by a moderator stays visible
// to admins only.
func (idx *userIndex) view(t *models.Thread, owner *models.User, admin bool) models.ThreadView {
	posts := make([]models.PostView, 0, len(t.Posts))
	for _, p := range t.Posts {
		if !admin {
			p.DeletedText = ""
		}
		pv := models.PostView{Post: p, AuthorID: p.Author, AuthorName: p.Author}
		if u := idx.resolve(p.Author); u != nil {
			pv.AuthorID = u.ID
			pv.AuthorName = utils.DisplayName(u)
			pv.AuthorIsAdmin = u.IsAdmin()
		}
		posts = append(posts, pv)
	}

	keywords := t.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	likes := t.Likes
	if likes == nil {
		likes = []string{}
	}

	return models.ThreadView{
		ID:           t.ID,
		Title:        t.Title,
		ToolID:       t.ToolID,
		Keywords:     keywords,
		CreatedAt:    t.CreatedAt,
		OwnerID:      owner.ID,
		OwnerName:    utils.DisplayName(owner),
		Posts:        posts,
		Flagged:      t.Flagged,
		FlaggedBy:    t.FlaggedBy,
		FlaggedAt:    t.FlaggedAt,
		Likes:        likes,
		LikeCount:    len(likes),
		CommentCount: t.CommentCount(),
	}
}

// matchesKeywords requires every keyword to be in the thread's keyword
// list or in its title
func matchesKeywords(t *models.Thread, keywords []string) bool {
	title := strings.ToLower(t.Title)
	for _, k := range keywords {
		k = strings.ToLower(k)
		if !utils.ContainsFold(t.Keywords, k) && !strings.Contains(title, k) {
			return false
		}
	}
	return true
}

// SortThreads orders views in place
func SortThreads(views []models.ThreadView, order string) {
	switch order {
	case SortOldest:
		sort.SliceStable(views, func(i, j int) bool {
			return views[i].CreatedAt.Before(views[j].CreatedAt)
		})
	case SortLiked:
		sort.SliceStable(views, func(i, j int) bool {
			if views[i].LikeCount != views[j].LikeCount {
				return views[i].LikeCount > views[j].LikeCount
			}
			return views[i].CommentCount > views[j].CommentCount
		})
	default:
		sort.SliceStable(views, func(i, j int) bool {
			return views[i].CreatedAt.After(views[j].CreatedAt)
		})
	}
}

// List returns the visible threads matching f
func (s *Service) List(f Filter) ([]models.ThreadView, error) {
	users, err := s.users.List()
	if err != nil {
		return nil, err
	}
	idx := newUserIndex(users)

	keywords := utils.NormalizeKeywords(f.Keywords)
	admin := idx.isAdmin(f.RequesterID)
	views := []models.ThreadView{}
	for i := range users {
		owner := &users[i]
		for j := range owner.Threads {
			t := &owner.Threads[j]
			if !idx.visible(t, owner.ID, f.RequesterID) {
				continue
			}
			if f.Tool != "" && t.ToolID != f.Tool {
				continue
			}
			if !matchesKeywords(t, keywords) {
				continue
			}
			views = append(views, idx.view(t, owner, admin))
		}
	}

	SortThreads(views, f.Sort)
	return views, nil
}

// Get returns one thread regardless of list filters
func (s *Service) Get(threadID, requesterID string) (*models.ThreadView, error) {
	users, err := s.users.List()
	if err != nil {
		return nil, err
	}
	idx := newUserIndex(users)

	owner, t := findThread(users, threadID)
	if t == nil || !idx.visible(t, owner.ID, requesterID) {
		return nil, apperror.ErrThreadNotFound
	}
	v := idx.view(t, owner, idx.isAdmin(requesterID))
	return &v, nil
}

func findThread(users []models.User, threadID string) (*models.User, *models.Thread) {
	for i := range users {
		for j := range users[i].Threads {
			if users[i].Threads[j].ID == threadID {
				return &users[i], &users[i].Threads[j]
			}
		}
	}
	return nil, nil
}

// mutation is what an action handler hands back for persisting
type mutation struct {
	owner  *models.User
	result *Result
	atomic bool
}

type handlerFunc func(s *Service, users []models.User, idx *userIndex, p Payload, requesterID string) (*mutation, error)

var handlers = map[Action]handlerFunc{
	ActionCreate:        (*Service).create,
	ActionComment:       (*Service).comment,
	ActionLike:          (*Service).like,
	ActionFlag:          (*Service).flag,
	ActionDeleteComment: (*Service).deleteComment,
	ActionDeleteThread:  (*Service).deleteThread,
}

// Mutate applies action and writes the owning user document back
func (s *Service) Mutate(action Action, p Payload, requesterID string) (*Result, error) {
	handle, ok := handlers[action]
	if !ok {
		return nil, apperror.Validation("unknown action")
	}

	var m *mutation
	err := s.users.Update(func(users []models.User) (*models.User, bool, error) {
		idx := newUserIndex(users)
		if action.AdminOnly() && !idx.isAdmin(requesterID) {
			return nil, false, apperror.ErrUnauthorized
		}
		var err error
		m, err = handle(s, users, idx, p, requesterID)
		if err != nil {
			return nil, false, err
		}
		return m.owner, m.atomic, nil
	})
	if err != nil {
		return nil, err
	}

	m.result.Action = action
	m.result.OwnerID = m.owner.ID
	if action.AdminOnly() {
		if err := s.audit.Record(requesterID, action.String(), p.ThreadID); err != nil {
			log.Printf("audit %s on %s: %v", action, p.ThreadID, err)
		}
	}
	return m.result, nil
}

func (s *Service) newThreadID(users []models.User) string {
	for {
		id := fmt.Sprintf("thread-%d-%d", s.Now().UnixMilli(), rand.Intn(1000))
		if _, t := findThread(users, id); t == nil {
			return id
		}
	}
}

func (s *Service) create(users []models.User, idx *userIndex, p Payload, requesterID string) (*mutation, error) {
	if requesterID == "" {
		return nil, apperror.ErrUnauthorized
	}
	user := idx.resolve(requesterID)
	if user == nil {
		return nil, apperror.ErrUserNotFound
	}
	if ok, msg := utils.ValidateThreadData(p.Title, p.Text); !ok {
		return nil, apperror.Validation(msg)
	}

	now := s.Now()
	user.Threads = append(user.Threads, models.Thread{
		ID:        s.newThreadID(users),
		Title:     strings.TrimSpace(p.Title),
		ToolID:    p.ToolID,
		Keywords:  utils.NormalizeKeywords(p.Keywords),
		CreatedAt: now,
		Posts:     []models.Post{{Author: user.ID, Text: p.Text, Date: now}},
		Likes:     []string{},
	})
	t := &user.Threads[len(user.Threads)-1]

	return &mutation{owner: user, result: &Result{Thread: t}, atomic: true}, nil
}

func (s *Service) comment(users []models.User, idx *userIndex, p Payload, requesterID string) (*mutation, error) {
	if p.ThreadID == "" {
		return nil, apperror.Validation("missing threadId")
	}
	if ok, msg := utils.ValidateCommentData(p.Text); !ok {
		return nil, apperror.Validation(msg)
	}
	owner, t := findThread(users, p.ThreadID)
	if t == nil {
		return nil, apperror.ErrThreadNotFound
	}

	author := requesterID
	if author == "" {
		author = p.Author
	}
	if author == "" {
		author = "anonymous"
	}
	t.Posts = append(t.Posts, models.Post{Author: author, Text: p.Text, Date: s.Now()})

	return &mutation{owner: owner, result: &Result{Thread: t}, atomic: true}, nil
}

func (s *Service) like(users []models.User, idx *userIndex, p Payload, requesterID string) (*mutation, error) {
	if requesterID == "" {
		return nil, apperror.Validation("missing userId")
	}
	if p.ThreadID == "" {
		return nil, apperror.Validation("missing threadId")
	}
	owner, t := findThread(users, p.ThreadID)
	if t == nil {
		return nil, apperror.ErrThreadNotFound
	}

	var liked bool
	t.Likes, liked = utils.Toggle(t.Likes, requesterID)

	return &mutation{owner: owner, result: &Result{Thread: t, Liked: liked}, atomic: true}, nil
}

func (s *Service) flag(users []models.User, idx *userIndex, p Payload, requesterID string) (*mutation, error) {
	if p.ThreadID == "" {
		return nil, apperror.Validation("missing threadId")
	}
	owner, t := findThread(users, p.ThreadID)
	if t == nil {
		return nil, apperror.ErrThreadNotFound
	}

	if p.Flag == nil || *p.Flag {
		now := s.Now()
		t.Flagged = true
		t.FlaggedBy = requesterID
		t.FlaggedAt = &now
	} else {
		t.Flagged = false
		t.FlaggedBy = ""
		t.FlaggedAt = nil
	}

	return &mutation{owner: owner, result: &Result{Thread: t}}, nil
}

func (s *Service) deleteComment(users []models.User, idx *userIndex, p Payload, requesterID string) (*mutation, error) {
	if p.ThreadID == "" {
		return nil, apperror.Validation("missing threadId")
	}
	owner, t := findThread(users, p.ThreadID)
	if t == nil {
		return nil, apperror.ErrThreadNotFound
	}
	if p.PostIndex == nil || *p.PostIndex < 0 || *p.PostIndex >= len(t.Posts) {
		return nil, apperror.Validation("invalid postIndex")
	}

	post := &t.Posts[*p.PostIndex]
	// a second delete keeps the text captured by the first one
	if !post.DeletedByAdmin {
		now := s.Now()
		post.DeletedText = post.Text
		post.Text = ""
		post.DeletedByAdmin = true
		post.DeletedBy = requesterID
		post.DeletedAt = &now
	}

	return &mutation{owner: owner, result: &Result{Thread: t}}, nil
}

func (s *Service) deleteThread(users []models.User, idx *userIndex, p Payload, requesterID string) (*mutation, error) {
	if p.ThreadID == "" {
		return nil, apperror.Validation("missing threadId")
	}
	owner, t := findThread(users, p.ThreadID)
	if t == nil {
		return nil, apperror.ErrThreadNotFound
	}

	removed := *t
	kept := make([]models.Thread, 0, len(owner.Threads)-1)
	for _, th := range owner.Threads {
		if th.ID != p.ThreadID {
			kept = append(kept, th)
		}
	}
	owner.Threads = kept

	return &mutation{owner: owner, result: &Result{Thread: &removed}}, nil
}

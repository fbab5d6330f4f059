package reviews

import (
	"sort"
	"strings"
	"sync"
	"time"

	"ai-compass/internal/apperror"
	"ai-compass/internal/models"
	"ai-compass/internal/repos"
	"ai-compass/internal/utils"

	"github.com/google/uuid"
)

const (
	SortRecent = "recent"
	SortOldest = "oldest"
	SortLiked  = "liked"
)

// Input is a submitted review
type Input struct {
	Title    string   `json:"title"`
	Rating   *float64 `json:"rating"`
	Text     string   `json:"text"`
	Keywords []string `json:"keywords"`
	// Author names an anonymous reviewer; ignored when an author id is known
	Author string `json:"author"`
}

// Service keeps one review per (tool, author) with an edit history
type Service struct {
	reviews repos.ReviewRepo
	users   repos.UserRepo

	mu  sync.Mutex
	Now func() time.Time
}

func NewService(reviews repos.ReviewRepo, users repos.UserRepo) *Service {
	return &Service{
		reviews: reviews,
		users:   users,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the reviews of a tool filtered by keywords and sorted
func (s *Service) Get(toolID string, keywords []string, order string) ([]models.Review, error) {
	all, err := s.reviews.Load()
	if err != nil {
		return nil, err
	}

	list := all[toolID]
	s.backfillDisplay(list)

	keywords = utils.NormalizeKeywords(keywords)
	out := []models.Review{}
	for _, r := range list {
		if matchesKeywords(&r, keywords) {
			out = append(out, r)
		}
	}

	switch order {
	case SortLiked:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Likes > out[j].Likes })
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	}
	return out, nil
}

// backfillDisplay fills authorDisplay from the user documents; lookup
// failures leave the reviews untouched.
func (s *Service) backfillDisplay(list []models.Review) {
	if s.users == nil {
		return
	}
	var need bool
	for _, r := range list {
		if r.AuthorDisplay == "" && r.AuthorID != "" {
			need = true
			break
		}
	}
	if !need {
		return
	}
	users, err := s.users.List()
	if err != nil {
		return
	}
	names := make(map[string]string, len(users))
	for i := range users {
		names[users[i].ID] = utils.DisplayName(&users[i])
	}
	for i := range list {
		if list[i].AuthorDisplay == "" {
			if name, ok := names[list[i].AuthorID]; ok {
				list[i].AuthorDisplay = name
			}
		}
	}
}

func matchesKeywords(r *models.Review, keywords []string) bool {
	text := strings.ToLower(r.Text)
	for _, k := range keywords {
		if !strings.Contains(text, k) && !utils.ContainsFold(r.Keywords, k) {
			return false
		}
	}
	return true
}

// Like increments the like counter of a review
func (s *Service) Like(toolID, reviewID string) (*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.reviews.Load()
	if err != nil {
		return nil, err
	}
	list := all[toolID]
	for i := range list {
		if list[i].ID == reviewID {
			list[i].Likes++
			if err := s.reviews.Save(all); err != nil {
				return nil, err
			}
			r := list[i]
			return &r, nil
		}
	}
	return nil, apperror.ErrReviewNotFound
}

// Upsert creates the author's review or edits it in place. Edits append to
// the history with the rating in effect at that edit: the new rating, else
// the previous one. Anonymous reviews always create a new entry and must
// carry a rating.
func (s *Service) Upsert(toolID, authorID string, in Input) (*models.Review, bool, error) {
	if toolID == "" {
		return nil, false, apperror.Validation("missing toolId")
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, false, apperror.Validation("missing text")
	}
	if ok, msg := utils.ValidateRating(in.Rating); !ok {
		return nil, false, apperror.Validation(msg)
	}
	if authorID == "" && in.Rating == nil {
		return nil, false, apperror.Validation("rating required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.reviews.Load()
	if err != nil {
		return nil, false, err
	}
	list := all[toolID]
	now := s.Now()

	if authorID != "" {
		for i := range list {
			if list[i].AuthorID != authorID {
				continue
			}
			r := &list[i]
			rating := in.Rating
			if rating == nil {
				rating = r.Rating
			}
			r.History = append(r.History, models.ReviewChange{Date: now, Text: text, Rating: rating})
			r.Text = text
			r.Rating = rating
			r.Date = now
			r.Keywords = utils.NormalizeKeywords(in.Keywords)
			if in.Title != "" {
				r.Title = strings.TrimSpace(in.Title)
			}
			if err := s.reviews.Save(all); err != nil {
				return nil, false, err
			}
			out := *r
			return &out, false, nil
		}
	}

	r := models.Review{
		ID:       uuid.NewString(),
		Title:    strings.TrimSpace(in.Title),
		AuthorID: authorID,
		Author:   authorID,
		Rating:   in.Rating,
		Text:     text,
		History:  []models.ReviewChange{{Date: now, Text: text, Rating: in.Rating}},
		Keywords: utils.NormalizeKeywords(in.Keywords),
		Date:     now,
	}
	if authorID == "" {
		r.Author = strings.TrimSpace(in.Author)
		if r.Author == "" {
			r.Author = "anonymous"
		}
	} else if s.users != nil {
		if u, err := s.users.GetByID(authorID); err == nil && u != nil {
			r.AuthorDisplay = utils.DisplayName(u)
		}
	}

	all[toolID] = append([]models.Review{r}, list...)
	if err := s.reviews.Save(all); err != nil {
		return nil, false, err
	}
	return &r, true, nil
}

// DeleteMine removes every review of the tool written by authorID,
// matching the legacy author field as well. It returns how many were removed.
func (s *Service) DeleteMine(toolID, authorID string) (int, error) {
	if authorID == "" {
		return 0, apperror.ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.reviews.Load()
	if err != nil {
		return 0, err
	}
	list := all[toolID]
	kept := make([]models.Review, 0, len(list))
	for _, r := range list {
		if r.AuthorID == authorID || r.Author == authorID {
			continue
		}
		kept = append(kept, r)
	}
	removed := len(list) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	all[toolID] = kept
	if err := s.reviews.Save(all); err != nil {
		return 0, err
	}
	return removed, nil
}

// Summary averages the rated reviews of a tool
func (s *Service) Summary(toolID string) (models.ReviewSummary, error) {
	all, err := s.reviews.Load()
	if err != nil {
		return models.ReviewSummary{}, err
	}
	return Summarize(all[toolID]), nil
}

func Summarize(list []models.Review) models.ReviewSummary {
	var sum models.ReviewSummary
	total := 0.0
	for _, r := range list {
		if r.Rating == nil {
			continue
		}
		sum.Count++
		total += *r.Rating
	}
	if sum.Count > 0 {
		sum.Average = total / float64(sum.Count)
	}
	return sum
}

package search

import (
	"sort"
	"strings"

	"ai-compass/internal/models"
	"ai-compass/internal/utils"
)

// Output caps
const (
	ToolLimit = 6
	LLMLimit  = 20
)

// Item is a search candidate
type Item struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	Haystack string `json:"-"`
}

// Match is a ranked candidate
type Match struct {
	ID     string  `json:"id"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
	Title  string  `json:"title,omitempty"`
}

// Tokenize splits a query on whitespace and lower-cases it
func Tokenize(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// Rank scores each item by how many query tokens appear anywhere in its
// haystack. Only positive scores are kept, best first; limit <= 0 keeps all.
func Rank(query string, items []Item, limit int) []Match {
	tokens := Tokenize(query)
	matches := []Match{}
	if len(tokens) == 0 {
		return matches
	}

	for _, it := range items {
		hay := it.Haystack
		if hay == "" {
			hay = strings.ToLower(it.Title + " " + it.Snippet)
		}
		score := 0
		for _, tok := range tokens {
			if strings.Contains(hay, tok) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, Match{ID: it.ID, Score: float64(score), Title: it.Title})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// ToolItems builds candidates from name, about, summary, tags and keywords
func ToolItems(tools []models.Tool) []Item {
	items := make([]Item, 0, len(tools))
	for _, t := range tools {
		snippet := t.Summary
		if snippet == "" {
			snippet = t.About
		}
		hay := strings.Join([]string{
			t.Name, t.About, t.Summary,
			strings.Join(t.Tags, " "), strings.Join(t.Keywords, " "),
		}, " ")
		items = append(items, Item{
			ID:       t.ID,
			Title:    t.Name,
			Snippet:  utils.Truncate(snippet, 200),
			Haystack: strings.ToLower(hay),
		})
	}
	return items
}

// ThreadItems builds candidates from title, body snippet and owner name
func ThreadItems(views []models.ThreadView) []Item {
	items := make([]Item, 0, len(views))
	for _, v := range views {
		snippet := ""
		if len(v.Posts) > 0 {
			snippet = utils.Truncate(v.Posts[0].Text, 200)
		}
		items = append(items, Item{
			ID:       v.ID,
			Title:    v.Title,
			Snippet:  snippet,
			Haystack: strings.ToLower(v.Title + " " + snippet + " " + v.OwnerName),
		})
	}
	return items
}

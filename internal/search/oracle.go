package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ErrNoKey is returned by the LLM oracle when no API key is configured
var ErrNoKey = errors.New("llm api key not configured")

// Oracle ranks items against a free-text query
type Oracle interface {
	Rank(ctx context.Context, query string, items []Item) ([]Match, error)
}

// LLMClient asks an OpenAI-compatible chat-completions endpoint to rank items
type LLMClient struct {
	URL   string
	Key   string
	Model string
	HTTP  *http.Client
}

func NewLLMClient(url, key, model string, timeout time.Duration) *LLMClient {
	return &LLMClient{
		URL:   url,
		Key:   key,
		Model: model,
		HTTP:  &http.Client{Timeout: timeout},
	}
}

const rankPrompt = `You rank catalog items for a search query.
Reply with a JSON array only, no prose: [{"id": "...", "score": 0-1, "reason": "..."}].
Only use ids from the catalog. Most relevant first. At most 20 entries.`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *LLMClient) Rank(ctx context.Context, query string, items []Item) ([]Match, error) {
	if c == nil || c.Key == "" {
		return nil, ErrNoKey
	}

	catalog, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: rankPrompt},
			{Role: "user", Content: fmt.Sprintf("Query: %s\nCatalog: %s", query, catalog)},
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Key)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("llm status %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("decode llm response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, errors.New("llm returned no choices")
	}
	return ParseMatches(cr.Choices[0].Message.Content, items)
}

// ParseMatches reads the JSON array the model replied with, dropping ids
// that are not in items and capping the result.
func ParseMatches(content string, items []Item) ([]Match, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw interface{}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("unparsable llm output: %w", err)
	}
	if _, ok := raw.([]interface{}); !ok {
		return nil, errors.New("llm output is not an array")
	}

	var matches []Match
	if err := json.Unmarshal([]byte(content), &matches); err != nil {
		return nil, fmt.Errorf("unparsable llm output: %w", err)
	}

	titles := make(map[string]string, len(items))
	for _, it := range items {
		titles[it.ID] = it.Title
	}
	out := []Match{}
	for _, m := range matches {
		title, ok := titles[m.ID]
		if !ok {
			continue
		}
		m.Title = title
		out = append(out, m)
		if len(out) == LLMLimit {
			break
		}
	}
	return out, nil
}

// Sources reported with results
const (
	SourceLLM   = "llm"
	SourceLocal = "local"
)

// Searcher prefers the oracle and falls back to the local ranker
type Searcher struct {
	Oracle Oracle
}

// Search ranks items for query. limit > 0 caps the result from either source.
func (s *Searcher) Search(ctx context.Context, query string, items []Item, limit int) ([]Match, string) {
	if s.Oracle != nil && strings.TrimSpace(query) != "" {
		matches, err := s.Oracle.Rank(ctx, query, items)
		if err == nil {
			if limit > 0 && len(matches) > limit {
				matches = matches[:limit]
			}
			return matches, SourceLLM
		}
		if !errors.Is(err, ErrNoKey) {
			log.Printf("llm search failed, using local ranker: %v", err)
		}
	}
	return Rank(query, items, limit), SourceLocal
}

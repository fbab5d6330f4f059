package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ai-compass/internal/database"
	"ai-compass/internal/middleware"
	"ai-compass/internal/models"
	"ai-compass/internal/repos"
	"ai-compass/internal/search"
)

func setupServer(t *testing.T) (http.Handler, *repos.Repos) {
	return setupServerWithOracle(t, nil)
}

func setupServerWithOracle(t *testing.T, oracle search.Oracle) (http.Handler, *repos.Repos) {
	dir := t.TempDir()
	db, err := database.InitDB(filepath.Join(dir, "audit.db"))
	if err != nil {
		t.Fatalf("open audit db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	r := repos.NewFileRepos(&repos.FileAdapter{
		UsersDir:     filepath.Join(dir, "users"),
		ToolsDir:     filepath.Join(dir, "tools"),
		ReviewsPath:  filepath.Join(dir, "reviews.json"),
		RequestsPath: filepath.Join(dir, "requests.json"),
	}, repos.NewSQLiteAdapter(db))

	users := []models.User{
		{ID: "u1", Username: "alice", DisplayName: "Alice", Password: "pw1", Role: models.RoleUser},
		{ID: "u2", Username: "bob", Password: "pw2", Role: models.RoleUser},
		{ID: "admin", Username: "root", Password: "secret", Role: models.RoleAdmin},
	}
	for i := range users {
		if err := r.Users.Save(&users[i], true); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	return NewHandler(r, oracle).Routes("*", false), r
}

func do(t *testing.T, h http.Handler, method, path, userID string, body interface{}) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(middleware.UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]json.RawMessage
	json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func decodeField(t *testing.T, out map[string]json.RawMessage, key string, v interface{}) {
	t.Helper()
	raw, ok := out[key]
	if !ok {
		t.Fatalf("response has no %q field: %v", key, out)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %q: %v", key, err)
	}
}

func createThread(t *testing.T, h http.Handler, userID string) models.Thread {
	t.Helper()
	rec, out := do(t, h, http.MethodPost, "/api/community", userID, map[string]interface{}{
		"action": "create", "toolId": "t1", "title": "Hi", "text": "Hello world",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var th models.Thread
	decodeField(t, out, "thread", &th)
	return th
}

func TestCommunityCreateThenListByTool(t *testing.T) {
	h, r := setupServer(t)
	createThread(t, h, "u1")

	rec, out := do(t, h, http.MethodGet, "/api/community?tool=t1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var threads []models.ThreadView
	decodeField(t, out, "threads", &threads)

	if len(threads) != 1 {
		t.Fatalf("expected 1 thread, got %d", len(threads))
	}
	th := threads[0]
	if th.OwnerID != "u1" {
		t.Errorf("expected owner u1, got %q", th.OwnerID)
	}
	if len(th.Posts) != 1 || th.Posts[0].Text != "Hello world" || th.Posts[0].AuthorID != "u1" {
		t.Errorf("unexpected posts: %+v", th.Posts)
	}
	if th.Likes == nil || len(th.Likes) != 0 {
		t.Errorf("expected empty likes, got %v", th.Likes)
	}

	u, _ := r.Users.GetByID("u1")
	if len(u.Threads) != 1 || u.Threads[0].Flagged {
		t.Errorf("expected one unflagged thread on disk, got %+v", u.Threads)
	}
}

func TestCommunityFlagRequiresAdmin(t *testing.T) {
	h, _ := setupServer(t)
	th := createThread(t, h, "u1")

	flag := map[string]interface{}{"action": "flag", "threadId": th.ID, "flag": true}

	rec, out := do(t, h, http.MethodPost, "/api/community", "u2", flag)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin flag: expected 403, got %d", rec.Code)
	}
	var msg string
	decodeField(t, out, "error", &msg)
	if msg != "unauthorized" {
		t.Errorf("expected unauthorized, got %q", msg)
	}

	rec, _ = do(t, h, http.MethodPost, "/api/community", "admin", flag)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin flag: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	tests := []struct {
		user string
		want int
	}{
		{"u2", 0},
		{"u1", 1},
		{"admin", 1},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			_, out := do(t, h, http.MethodGet, "/api/community", tt.user, nil)
			var threads []models.ThreadView
			decodeField(t, out, "threads", &threads)
			if len(threads) != tt.want {
				t.Errorf("expected %d threads, got %d", tt.want, len(threads))
			}
		})
	}
}

func TestCommunityUnknownAction(t *testing.T) {
	h, _ := setupServer(t)

	rec, _ := do(t, h, http.MethodPost, "/api/community", "u1", map[string]string{"action": "explode"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCommunityLikeToggle(t *testing.T) {
	h, _ := setupServer(t)
	th := createThread(t, h, "u1")
	like := map[string]interface{}{"action": "like", "threadId": th.ID}

	for i, want := range []bool{true, false} {
		_, out := do(t, h, http.MethodPost, "/api/community", "u2", like)
		var liked bool
		decodeField(t, out, "liked", &liked)
		if liked != want {
			t.Errorf("toggle %d: expected liked=%v, got %v", i, want, liked)
		}
	}
}

func TestReviewUpsertCarriesRating(t *testing.T) {
	h, _ := setupServer(t)

	rec, _ := do(t, h, http.MethodPost, "/api/tools/t1/reviews", "u1", map[string]interface{}{"rating": 4, "text": "good"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("first upsert: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec, out := do(t, h, http.MethodPost, "/api/tools/t1/reviews", "u1", map[string]interface{}{"text": "still good"})
	if rec.Code != http.StatusOK {
		t.Fatalf("second upsert: expected 200, got %d", rec.Code)
	}

	var review models.Review
	decodeField(t, out, "review", &review)
	if review.Rating == nil || *review.Rating != 4 {
		t.Fatalf("expected rating 4, got %v", review.Rating)
	}
	if len(review.History) < 2 {
		t.Fatalf("expected at least 2 history entries, got %d", len(review.History))
	}
	last := review.History[len(review.History)-1]
	if last.Text != "still good" || last.Rating == nil || *last.Rating != 4 {
		t.Errorf("unexpected last history entry: %+v", last)
	}

	_, out = do(t, h, http.MethodGet, "/api/tools/t1/reviews", "", nil)
	var list []models.Review
	decodeField(t, out, "reviews", &list)
	if len(list) != 1 {
		t.Errorf("expected one review for the author, got %d", len(list))
	}
}

func TestLoginAndMe(t *testing.T) {
	h, _ := setupServer(t)

	tests := []struct {
		name     string
		username string
		password string
		want     int
	}{
		{"valid", "Alice", "pw1", http.StatusOK},
		{"wrong password", "alice", "nope", http.StatusUnauthorized},
		{"unknown user", "carol", "pw1", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := do(t, h, http.MethodPost, "/api/login", "", map[string]string{
				"username": tt.username, "password": tt.password,
			})
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
			if bytes.Contains(rec.Body.Bytes(), []byte("pw1")) {
				t.Error("response leaks the password")
			}
		})
	}

	rec, _ := do(t, h, http.MethodGet, "/api/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous /me: expected 401, got %d", rec.Code)
	}
	rec, out := do(t, h, http.MethodGet, "/api/me", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("/me: expected 200, got %d", rec.Code)
	}
	var me models.PublicUser
	decodeField(t, out, "user", &me)
	if me.ID != "u1" || me.DisplayName != "Alice" {
		t.Errorf("unexpected user: %+v", me)
	}
}

func TestToggleBookmark(t *testing.T) {
	h, r := setupServer(t)

	_, out := do(t, h, http.MethodPost, "/api/bookmarks", "u1", map[string]string{"toolId": "t1"})
	var bookmarked bool
	decodeField(t, out, "bookmarked", &bookmarked)
	if !bookmarked {
		t.Fatal("expected bookmark to be added")
	}
	u, _ := r.Users.GetByID("u1")
	if len(u.Bookmarks) != 1 || u.Bookmarks[0] != "t1" {
		t.Errorf("unexpected bookmarks on disk: %v", u.Bookmarks)
	}

	rec, _ := do(t, h, http.MethodPost, "/api/bookmarks", "", map[string]string{"toolId": "t1"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("anonymous bookmark: expected 403, got %d", rec.Code)
	}
}

func TestSearchToolsUsesLocalRanker(t *testing.T) {
	h, r := setupServer(t)
	for _, tool := range []models.Tool{
		{ID: "painter", Name: "Painter", About: "image generation"},
		{ID: "scribe", Name: "Scribe", About: "text summaries"},
		{ID: "ghost", Name: "Ghost", About: "image tool", Hidden: true},
	} {
		tool := tool
		if err := r.Tools.Save(&tool); err != nil {
			t.Fatalf("seed tool: %v", err)
		}
	}

	rec, out := do(t, h, http.MethodGet, "/api/search/tools?q=image", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var source string
	decodeField(t, out, "source", &source)
	if source != "local" {
		t.Errorf("expected local source, got %q", source)
	}
	var results []struct {
		ID string `json:"id"`
	}
	decodeField(t, out, "results", &results)
	if len(results) != 1 || results[0].ID != "painter" {
		t.Errorf("expected only painter, got %+v", results)
	}
}

func TestRequestPatchIsAdminOnly(t *testing.T) {
	h, _ := setupServer(t)

	rec, out := do(t, h, http.MethodPost, "/api/requests", "u1", map[string]string{
		"toolName": "Foo", "usage": "bar",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var req models.ToolRequest
	decodeField(t, out, "request", &req)

	patch := map[string]string{"status": "closed"}
	rec, _ = do(t, h, http.MethodPatch, "/api/requests/"+req.ID, "u1", patch)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin patch: expected 403, got %d", rec.Code)
	}

	rec, out = do(t, h, http.MethodPatch, "/api/requests/"+req.ID, "admin", patch)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin patch: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeField(t, out, "request", &req)
	if req.Status != models.RequestClosed || req.ClosedAt == nil {
		t.Errorf("expected closed request with closedAt, got %+v", req)
	}

	_, out = do(t, h, http.MethodGet, "/api/admin/audit?actor=admin", "admin", nil)
	var entries []models.AuditEntry
	decodeField(t, out, "entries", &entries)
	if len(entries) != 1 || entries[0].Action != "patchRequest" || entries[0].Target != req.ID {
		t.Errorf("expected one patchRequest audit entry, got %+v", entries)
	}
}

func TestAuditRequiresAdmin(t *testing.T) {
	h, _ := setupServer(t)
	th := createThread(t, h, "u1")
	if rec, _ := do(t, h, http.MethodPost, "/api/community", "admin", map[string]interface{}{
		"action": "flag", "threadId": th.ID,
	}); rec.Code != http.StatusOK {
		t.Fatalf("flag: expected 200, got %d", rec.Code)
	}

	rec, _ := do(t, h, http.MethodGet, "/api/admin/audit", "u1", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}

	tests := []struct {
		query string
		want  int
	}{
		{"", 1},
		{"?actor=admin", 1},
		{"?actor=u1", 0},
	}
	for _, tt := range tests {
		t.Run("audit"+tt.query, func(t *testing.T) {
			rec, out := do(t, h, http.MethodGet, "/api/admin/audit"+tt.query, "admin", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			var entries []models.AuditEntry
			decodeField(t, out, "entries", &entries)
			if len(entries) != tt.want {
				t.Fatalf("expected %d entries, got %d", tt.want, len(entries))
			}
			if tt.want > 0 && (entries[0].Action != "flag" || entries[0].Target != th.ID) {
				t.Errorf("unexpected entry: %+v", entries[0])
			}
		})
	}
}

func TestConcurrentThreadsAndBookmarksKeepEveryUpdate(t *testing.T) {
	h, r := setupServer(t)

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			rec, _ := do(t, h, http.MethodPost, "/api/community", "u1", map[string]interface{}{
				"action": "create", "title": fmt.Sprintf("thread %d", i), "text": "body",
			})
			if rec.Code != http.StatusCreated {
				t.Errorf("create %d: got %d", i, rec.Code)
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			rec, _ := do(t, h, http.MethodPost, "/api/bookmarks", "u1", map[string]string{
				"toolId": fmt.Sprintf("tool-%d", i),
			})
			if rec.Code != http.StatusOK {
				t.Errorf("bookmark %d: got %d", i, rec.Code)
			}
		}(i)
	}
	wg.Wait()

	u, err := r.Users.GetByID("u1")
	if err != nil || u == nil {
		t.Fatalf("reload u1: %v", err)
	}
	if len(u.Threads) != n || len(u.Bookmarks) != n {
		t.Errorf("expected %d threads and %d bookmarks, got %d and %d", n, n, len(u.Threads), len(u.Bookmarks))
	}
}

func TestHideToolBody(t *testing.T) {
	h, r := setupServer(t)
	if err := r.Tools.Save(&models.Tool{ID: "painter", Name: "Painter"}); err != nil {
		t.Fatal(err)
	}

	send := func(body io.Reader, length int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/tools/painter/hide", body)
		req.ContentLength = length
		req.Header.Set(middleware.UserIDHeader, "admin")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	tests := []struct {
		name       string
		body       string
		length     int64
		wantStatus int
		wantHidden bool
	}{
		{"no body", "", 0, http.StatusOK, true},
		{"chunked empty body", "", -1, http.StatusOK, true},
		{"unhide", `{"hidden":false}`, -1, http.StatusOK, false},
		{"malformed", `{"hidden":`, -1, http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := send(io.NopCloser(strings.NewReader(tt.body)), tt.length)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			tool, _ := r.Tools.Get("painter")
			if tool.Hidden != tt.wantHidden {
				t.Errorf("expected hidden=%v, got %v", tt.wantHidden, tool.Hidden)
			}
		})
	}
}

// everyItem ranks every candidate, as a model listing the whole catalog would
type everyItem struct{}

func (everyItem) Rank(ctx context.Context, query string, items []search.Item) ([]search.Match, error) {
	out := make([]search.Match, 0, len(items))
	for _, it := range items {
		out = append(out, search.Match{ID: it.ID, Score: 1, Title: it.Title})
	}
	return out, nil
}

func TestSearchToolsCapsLLMResults(t *testing.T) {
	h, r := setupServerWithOracle(t, everyItem{})
	for i := 0; i < 10; i++ {
		if err := r.Tools.Save(&models.Tool{ID: fmt.Sprintf("tool-%d", i), Name: "Tool"}); err != nil {
			t.Fatal(err)
		}
	}

	_, out := do(t, h, http.MethodGet, "/api/search/tools?q=tool", "", nil)
	var source string
	decodeField(t, out, "source", &source)
	var results []search.Match
	decodeField(t, out, "results", &results)
	if source != search.SourceLLM || len(results) != search.ToolLimit {
		t.Errorf("expected %d llm results, got %d from %s", search.ToolLimit, len(results), source)
	}
}

func TestHubBroadcastReachesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c := &Client{userID: "u1", send: make(chan Event, 1)}
	hub.AddClient(c)
	defer hub.RemoveClient(c)

	hub.Broadcast(Event{"type": "thread_created"})
	ev := <-c.send
	if ev["type"] != "thread_created" {
		t.Errorf("unexpected event: %v", ev)
	}
	if hub.Count() != 1 {
		t.Errorf("expected 1 client, got %d", hub.Count())
	}
}

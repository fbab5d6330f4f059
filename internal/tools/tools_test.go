package tools

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"ai-compass/internal/apperror"
	"ai-compass/internal/database"
	"ai-compass/internal/models"
	"ai-compass/internal/repos"
)

func setupService(t *testing.T) (*Service, *repos.SQLiteAdapter) {
	dir := t.TempDir()
	db, err := database.InitDB(filepath.Join(dir, "audit.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.RunMigrations(db); err != nil {
		t.Fatal(err)
	}
	audit := repos.NewSQLiteAdapter(db)

	r := repos.NewFileRepos(&repos.FileAdapter{
		UsersDir: filepath.Join(dir, "users"),
		ToolsDir: filepath.Join(dir, "tools"),
	}, audit)
	for _, u := range []models.User{
		{ID: "u1", Username: "alice", Role: models.RoleUser},
		{ID: "adm", Username: "root", Role: models.RoleAdmin},
	} {
		u := u
		if err := r.Users.Save(&u, false); err != nil {
			t.Fatal(err)
		}
	}
	return NewService(r.Tools, r.Users, r.Audit), audit
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"ChatGPT":           "chatgpt",
		"Stable Diffusion":  "stable-diffusion",
		"  Mid--Journey v6 ": "mid-journey-v6",
		"!!!":               "",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateListAndHide(t *testing.T) {
	s, audit := setupService(t)

	if _, err := s.Create(models.Tool{Name: "Zeta"}, "u1"); !apperror.Is(err, apperror.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	zeta, err := s.Create(models.Tool{Name: "Zeta", Tags: []string{"audio"}}, "adm")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if zeta.ID != "zeta" {
		t.Errorf("expected slug id, got %q", zeta.ID)
	}
	if _, err := s.Create(models.Tool{Name: "Alpha"}, "adm"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(models.Tool{Name: "Zeta"}, "adm"); !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := s.Create(models.Tool{ID: "../x", Name: "Bad"}, "adm"); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected invalid id, got %v", err)
	}

	list, _ := s.List("")
	if len(list) != 2 || list[0].Name != "Alpha" {
		t.Fatalf("unexpected list: %+v", list)
	}

	if _, err := s.Hide("zeta", true, "adm"); err != nil {
		t.Fatal(err)
	}
	if list, _ := s.List("u1"); len(list) != 1 {
		t.Errorf("hidden tool visible to user: %+v", list)
	}
	if list, _ := s.List("adm"); len(list) != 2 {
		t.Errorf("admin should see hidden tools, got %d", len(list))
	}
	if _, err := s.Get("zeta", "u1"); !apperror.Is(err, apperror.KindNotFound) {
		t.Errorf("expected hidden tool not found for user, got %v", err)
	}
	if _, err := s.Get("zeta", "adm"); err != nil {
		t.Errorf("admin Get failed: %v", err)
	}

	entries, _ := audit.List(10)
	if len(entries) != 3 {
		t.Errorf("expected 3 audit entries, got %d", len(entries))
	}
}

func TestUpdateMergesFields(t *testing.T) {
	s, _ := setupService(t)
	if _, err := s.Create(models.Tool{Name: "Chat", About: "old", Tags: []string{"llm"}}, "adm"); err != nil {
		t.Fatal(err)
	}

	patch := map[string]json.RawMessage{
		"id":      json.RawMessage(`"renamed"`),
		"about":   json.RawMessage(`"new about"`),
		"pricing": json.RawMessage(`{"free":true}`),
	}
	updated, err := s.Update("chat", patch, "adm")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.ID != "chat" {
		t.Errorf("id must not change, got %q", updated.ID)
	}
	if updated.About != "new about" || len(updated.Tags) != 1 {
		t.Errorf("unexpected merge result: %+v", updated)
	}
	if _, ok := updated.Extra["pricing"]; !ok {
		t.Error("expected unknown field to be kept")
	}

	if _, err := s.Update("missing", patch, "adm"); !apperror.Is(err, apperror.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := s.Update("chat", patch, "u1"); !apperror.Is(err, apperror.KindUnauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}
}

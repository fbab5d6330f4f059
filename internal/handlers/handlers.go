package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"ai-compass/internal/apperror"
	"ai-compass/internal/community"
	"ai-compass/internal/middleware"
	"ai-compass/internal/models"
	"ai-compass/internal/repos"
	"ai-compass/internal/requests"
	"ai-compass/internal/reviews"
	"ai-compass/internal/search"
	"ai-compass/internal/tools"
	"ai-compass/internal/utils"

	"github.com/gorilla/mux"
)

type Handler struct {
	repos     *repos.Repos
	community *community.Service
	reviews   *reviews.Service
	requests  *requests.Service
	tools     *tools.Service
	search    *search.Searcher
	hub       *Hub
}

func NewHandler(r *repos.Repos, oracle search.Oracle) *Handler {
	h := &Handler{
		repos:     r,
		community: community.NewService(r.Users, r.Audit),
		reviews:   reviews.NewService(r.Reviews, r.Users),
		requests:  requests.NewService(r.Requests, r.Users, r.Audit),
		tools:     tools.NewService(r.Tools, r.Users, r.Audit),
		search:    &search.Searcher{Oracle: oracle},
		hub:       NewHub(),
	}
	// start hub run loop for safe broadcasting
	go h.hub.Run()
	return h
}

// Routes builds the API router wrapped in the common middleware. verbose
// logs every request instead of failures only.
func (h *Handler) Routes(corsOrigin string, verbose bool) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Identify)

	api := r.PathPrefix("/api").Subrouter()

	// --- Auth ---
	api.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/me", h.Me).Methods(http.MethodGet)
	api.HandleFunc("/bookmarks", h.GetBookmarks).Methods(http.MethodGet)
	api.HandleFunc("/bookmarks", h.ToggleBookmark).Methods(http.MethodPost)

	// --- Community ---
	api.HandleFunc("/community", h.ListThreads).Methods(http.MethodGet)
	api.HandleFunc("/community", h.MutateThread).Methods(http.MethodPost)

	// --- Tools ---
	api.HandleFunc("/tools", h.ListTools).Methods(http.MethodGet)
	api.HandleFunc("/tools", h.CreateTool).Methods(http.MethodPost)
	api.HandleFunc("/tools/{id}", h.GetTool).Methods(http.MethodGet)
	api.HandleFunc("/tools/{id}", h.UpdateTool).Methods(http.MethodPut)
	api.HandleFunc("/tools/{id}/hide", h.HideTool).Methods(http.MethodPost)

	// --- Reviews ---
	api.HandleFunc("/tools/{id}/reviews", h.GetReviews).Methods(http.MethodGet)
	api.HandleFunc("/tools/{id}/reviews", h.UpsertReview).Methods(http.MethodPost)
	api.HandleFunc("/tools/{id}/reviews/summary", h.ReviewSummary).Methods(http.MethodGet)
	api.HandleFunc("/tools/{id}/reviews/mine", h.DeleteMyReview).Methods(http.MethodDelete)
	api.HandleFunc("/tools/{id}/reviews/{reviewId}/like", h.LikeReview).Methods(http.MethodPost)

	// --- Tool requests ---
	api.HandleFunc("/requests", h.ListRequests).Methods(http.MethodGet)
	api.HandleFunc("/requests", h.CreateRequest).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}", h.PatchRequest).Methods(http.MethodPatch)
	api.HandleFunc("/requests/{id}/comments", h.CommentRequest).Methods(http.MethodPost)

	// --- Search ---
	api.HandleFunc("/search/tools", h.SearchTools).Methods(http.MethodGet)
	api.HandleFunc("/search/threads", h.SearchThreads).Methods(http.MethodGet)

	// --- Admin ---
	api.HandleFunc("/admin/audit", h.ListAudit).Methods(http.MethodGet)

	r.HandleFunc("/ws", h.hub.ServeWS)

	return middleware.Logging(verbose)(middleware.CORS(corsOrigin)(r))
}

//
// ===================== RESPONSES =====================
//

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps app errors to their status; anything else is a 500
// carrying the underlying message
func writeError(w http.ResponseWriter, err error) {
	status := apperror.Status(err)
	if status == http.StatusInternalServerError {
		log.Printf("ERROR: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperror.Validation("invalid body")
	}
	return nil
}

// decodeOptionalBody is decodeBody that leaves v untouched on an empty body
func decodeOptionalBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperror.Validation("invalid body")
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return v
	}
	return def
}

//
// ===================== AUTH =====================
//

// POST /api/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.repos.Users.GetByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil || utils.VerifyPassword(user.Password, req.Password) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "user": utils.Sanitize(user)})
}

// GET /api/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.repos.Users.GetByID(middleware.GetUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": utils.Sanitize(user)})
}

// GET /api/bookmarks
func (h *Handler) GetBookmarks(w http.ResponseWriter, r *http.Request) {
	user, err := h.repos.Users.GetByID(middleware.GetUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		writeError(w, apperror.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookmarks": utils.Sanitize(user).Bookmarks})
}

// POST /api/bookmarks toggles a tool in the caller's bookmarks
func (h *Handler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ToolID string `json:"toolId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ToolID == "" {
		writeError(w, apperror.Validation("missing toolId"))
		return
	}

	var bookmarked bool
	user, err := h.repos.Users.UpdateByID(middleware.GetUserID(r), true, func(u *models.User) error {
		u.Bookmarks, bookmarked = utils.Toggle(u.Bookmarks, req.ToolID)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		writeError(w, apperror.ErrUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":         true,
		"bookmarked": bookmarked,
		"bookmarks":  utils.Sanitize(user).Bookmarks,
	})
}

//
// ===================== ADMIN =====================
//

// GET /api/admin/audit?limit=N&actor=ID
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	user, err := h.repos.Users.GetByID(middleware.GetUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if !user.IsAdmin() {
		writeError(w, apperror.ErrUnauthorized)
		return
	}

	limit := queryInt(r, "limit", 50)
	var entries []models.AuditEntry
	if actor := r.URL.Query().Get("actor"); actor != "" {
		entries, err = h.repos.Audit.ListByActor(actor, limit)
	} else {
		entries, err = h.repos.Audit.List(limit)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

package handlers

import (
	"encoding/json"
	"net/http"

	"ai-compass/internal/community"
	"ai-compass/internal/middleware"
	"ai-compass/internal/models"
	"ai-compass/internal/requests"
	"ai-compass/internal/reviews"
	"ai-compass/internal/search"
	"ai-compass/internal/utils"

	"github.com/gorilla/mux"
)

//
// ===================== TOOLS =====================
//

// GET /api/tools
func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	list, err := h.tools.List(middleware.GetUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": list})
}

// GET /api/tools/{id}
func (h *Handler) GetTool(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	tool, err := h.tools.Get(id, middleware.GetUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	summary, err := h.reviews.Summary(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tool": tool, "summary": summary})
}

// POST /api/tools
func (h *Handler) CreateTool(w http.ResponseWriter, r *http.Request) {
	var t models.Tool
	if err := decodeBody(r, &t); err != nil {
		writeError(w, err)
		return
	}
	created, err := h.tools.Create(t, middleware.GetUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"ok": true, "tool": created})
}

// PUT /api/tools/{id} merges the given fields into the tool
func (h *Handler) UpdateTool(w http.ResponseWriter, r *http.Request) {
	var patch map[string]json.RawMessage
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.tools.Update(mux.Vars(r)["id"], patch, middleware.GetUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "tool": updated})
}

// POST /api/tools/{id}/hide with optional {"hidden": false} to unhide
func (h *Handler) HideTool(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Hidden *bool `json:"hidden"`
	}{}
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	hidden := req.Hidden == nil || *req.Hidden

	tool, err := h.tools.Hide(mux.Vars(r)["id"], hidden, middleware.GetUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "tool": tool})
}

//
// ===================== REVIEWS =====================
//

// GET /api/tools/{id}/reviews?keywords=&sort=
func (h *Handler) GetReviews(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	q := r.URL.Query()

	list, err := h.reviews.Get(id, utils.ParseKeywords(q.Get("keywords")), q.Get("sort"))
	if err != nil {
		writeError(w, err)
		return
	}
	summary, err := h.reviews.Summary(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reviews": list, "summary": summary})
}

// GET /api/tools/{id}/reviews/summary
func (h *Handler) ReviewSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reviews.Summary(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// POST /api/tools/{id}/reviews
func (h *Handler) UpsertReview(w http.ResponseWriter, r *http.Request) {
	var in reviews.Input
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	toolID := mux.Vars(r)["id"]

	review, created, err := h.reviews.Upsert(toolID, middleware.GetUserID(r), in)
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(Event{"type": "review_saved", "toolId": toolID, "reviewId": review.ID})

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]interface{}{"ok": true, "created": created, "review": review})
}

// DELETE /api/tools/{id}/reviews/mine
func (h *Handler) DeleteMyReview(w http.ResponseWriter, r *http.Request) {
	removed, err := h.reviews.DeleteMine(mux.Vars(r)["id"], middleware.GetUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "removed": removed})
}

// POST /api/tools/{id}/reviews/{reviewId}/like
func (h *Handler) LikeReview(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	review, err := h.reviews.Like(vars["id"], vars["reviewId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "review": review})
}

//
// ===================== TOOL REQUESTS =====================
//

// GET /api/requests
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	list, err := h.requests.List(middleware.GetUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": list})
}

// POST /api/requests
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var in requests.CreateInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	req, err := h.requests.Create(in, middleware.GetUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"ok": true, "request": req})
}

// POST /api/requests/{id}/comments
func (h *Handler) CommentRequest(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Text string `json:"text"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	req, err := h.requests.Comment(mux.Vars(r)["id"], in.Text, middleware.GetUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "request": req})
}

// PATCH /api/requests/{id}
func (h *Handler) PatchRequest(w http.ResponseWriter, r *http.Request) {
	var in requests.PatchInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	req, err := h.requests.Patch(mux.Vars(r)["id"], in, middleware.GetUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "request": req})
}

//
// ===================== SEARCH =====================
//

// GET /api/search/tools?q=
func (h *Handler) SearchTools(w http.ResponseWriter, r *http.Request) {
	list, err := h.tools.List(middleware.GetUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	matches, source := h.search.Search(r.Context(), r.URL.Query().Get("q"), search.ToolItems(list), search.ToolLimit)
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": matches, "source": source})
}

// GET /api/search/threads?q=
func (h *Handler) SearchThreads(w http.ResponseWriter, r *http.Request) {
	views, err := h.community.List(community.Filter{RequesterID: middleware.GetUserID(r)})
	if err != nil {
		writeError(w, err)
		return
	}
	matches, source := h.search.Search(r.Context(), r.URL.Query().Get("q"), search.ThreadItems(views), 0)
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": matches, "source": source})
}

package handlers

import (
	"net/http"

	"ai-compass/internal/community"
	"ai-compass/internal/middleware"
	"ai-compass/internal/utils"
)

var communityEvents = map[community.Action]string{
	community.ActionCreate:        "thread_created",
	community.ActionComment:       "comment_created",
	community.ActionLike:          "thread_liked",
	community.ActionFlag:          "thread_flagged",
	community.ActionDeleteComment: "comment_deleted",
	community.ActionDeleteThread:  "thread_deleted",
}

// GET /api/community?tool=&keywords=a,b&sort=&threadId=
func (h *Handler) ListThreads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	requester := middleware.GetUserID(r)

	if id := q.Get("threadId"); id != "" {
		view, err := h.community.Get(id, requester)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"thread": view})
		return
	}

	views, err := h.community.List(community.Filter{
		Tool:        q.Get("tool"),
		Keywords:    utils.ParseKeywords(q.Get("keywords")),
		Sort:        q.Get("sort"),
		RequesterID: requester,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"threads": views})
}

// POST /api/community with {"action": "...", ...payload}
func (h *Handler) MutateThread(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
		community.Payload
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	action, err := community.ParseAction(req.Action)
	if err != nil {
		writeError(w, err)
		return
	}

	requester := middleware.GetUserID(r)
	res, err := h.community.Mutate(action, req.Payload, requester)
	if err != nil {
		writeError(w, err)
		return
	}

	ev := Event{
		"type":     communityEvents[action],
		"threadId": res.Thread.ID,
		"ownerId":  res.OwnerID,
		"actorId":  requester,
	}
	if action == community.ActionLike {
		ev["likeCount"] = len(res.Thread.Likes)
	}
	h.hub.Broadcast(ev)

	resp := map[string]interface{}{
		"ok":      true,
		"ownerId": res.OwnerID,
		"thread":  res.Thread,
	}
	if action == community.ActionLike {
		resp["liked"] = res.Liked
	}
	status := http.StatusOK
	if action == community.ActionCreate {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

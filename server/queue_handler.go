package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"JamFM/logger"
)

// EnqueueRequest adds catalogued tracks to the session queue.
type EnqueueRequest struct {
	TrackIDs []string `json:"trackIds"`
}

// GetQueueHandler 返回会话的播放队列
func (h *APIHandler) GetQueueHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	items, err := h.sessions.Queue(r.Context(), sessionID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"queue": items})
}

// EnqueueHandler appends tracks to the queue. An idle session starts playing
// the first enqueued track; the resulting state is broadcast.
func (h *APIHandler) EnqueueHandler(w http.ResponseWriter, r *http.Request) {
	profileID, err := GetProfileIDFromContext(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	sessionID := mux.Vars(r)["sessionId"]

	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	items, err := h.sessions.Enqueue(r.Context(), sessionID, req.TrackIDs, profileID)
	if err != nil {
		respondError(w, err)
		return
	}

	logger.Info("tracks enqueued",
		logger.String("sessionId", sessionID),
		logger.Int("count", len(items)),
		logger.String("profileId", profileID))

	state, err := h.sessions.State(r.Context(), sessionID)
	if err == nil {
		h.sessionCache.PublishState(r.Context(), state)
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{"queue": items})
}

// RemoveQueueItemHandler deletes one pending queue item.
// URL: DELETE /api/music/session/{sessionId}/queue?itemId={itemId}
func (h *APIHandler) RemoveQueueItemHandler(w http.ResponseWriter, r *http.Request) {
	profileID, err := GetProfileIDFromContext(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	sessionID := mux.Vars(r)["sessionId"]
	itemID := r.URL.Query().Get("itemId")
	if itemID == "" {
		http.Error(w, "itemId query parameter is required", http.StatusBadRequest)
		return
	}

	if err := h.sessions.RemoveQueueItem(r.Context(), sessionID, itemID, profileID); err != nil {
		respondError(w, err)
		return
	}

	state, err := h.sessions.State(r.Context(), sessionID)
	if err == nil {
		h.sessionCache.PublishState(r.Context(), state)
	}

	w.WriteHeader(http.StatusNoContent)
}

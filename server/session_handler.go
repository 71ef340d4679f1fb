package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"JamFM/core/music"
	"JamFM/logger"
)

// StartSessionRequest binds a session to a (server, voice channel) pair.
type StartSessionRequest struct {
	ServerID       string `json:"serverId"`
	VoiceChannelID string `json:"voiceChannelId"`
}

// ControlRequest is one control action. Value is the raw JSON value for
// actions that carry one (number for seek/volume, string for loop).
type ControlRequest struct {
	Action string      `json:"action"`
	Value  interface{} `json:"value,omitempty"`
}

// PermissionRequest grants or revokes DJ control for one profile.
type PermissionRequest struct {
	ProfileID  string `json:"profileId"`
	CanControl bool   `json:"canControl"`
}

// StartSessionHandler 创建或返回已有的播放会话
func (h *APIHandler) StartSessionHandler(w http.ResponseWriter, r *http.Request) {
	profileID, err := GetProfileIDFromContext(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ServerID == "" || req.VoiceChannelID == "" {
		http.Error(w, "serverId and voiceChannelId are required", http.StatusBadRequest)
		return
	}

	state, err := h.sessions.Start(r.Context(), req.ServerID, req.VoiceChannelID, profileID)
	if err != nil {
		respondError(w, err)
		return
	}

	h.sessionCache.PublishState(r.Context(), state)
	respondJSON(w, http.StatusOK, state)
}

// SessionStateHandler returns the current state snapshot. Cache hits skip the
// database entirely; this is the polling hot path.
func (h *APIHandler) SessionStateHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	if cached, err := h.sessionCache.GetState(r.Context(), sessionID); err == nil && cached != nil {
		// The derived fields are frozen at cache-write time; re-stamp them so
		// a playing session's position keeps moving between cache writes.
		now := time.Now()
		cached.CurrentPositionMs = music.PositionAt(cached.MusicSession, now)
		cached.ServerTime = now.UnixMilli()
		respondJSON(w, http.StatusOK, cached)
		return
	}

	state, err := h.sessions.State(r.Context(), sessionID)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.sessionCache.PutState(r.Context(), state); err != nil {
		logger.Warn("session state cache write failed", logger.ErrorField(err))
	}
	respondJSON(w, http.StatusOK, state)
}

// ControlSessionHandler applies one control action and broadcasts the new
// state to subscribers.
func (h *APIHandler) ControlSessionHandler(w http.ResponseWriter, r *http.Request) {
	profileID, err := GetProfileIDFromContext(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	sessionID := mux.Vars(r)["sessionId"]

	var req ControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	state, err := h.sessions.Control(r.Context(), sessionID, profileID, music.Action(req.Action), req.Value)
	if err != nil {
		respondError(w, err)
		return
	}

	logger.Info("session control applied",
		logger.String("sessionId", sessionID),
		logger.String("action", req.Action),
		logger.String("profileId", profileID))

	h.sessionCache.PublishState(r.Context(), state)
	respondJSON(w, http.StatusOK, state)
}

// SetPermissionHandler lets the session creator manage the DJ allow-list.
func (h *APIHandler) SetPermissionHandler(w http.ResponseWriter, r *http.Request) {
	profileID, err := GetProfileIDFromContext(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	sessionID := mux.Vars(r)["sessionId"]

	var req PermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProfileID == "" {
		http.Error(w, "profileId is required", http.StatusBadRequest)
		return
	}

	if err := h.sessions.SetPermission(r.Context(), sessionID, profileID, req.ProfileID, req.CanControl); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "permission updated"})
}

package server

import (
	"encoding/json"
	"net/http"

	"JamFM/logger"
)

// ResolveRequest carries a raw media URL to catalogue.
type ResolveRequest struct {
	URL string `json:"url"`
}

// ResolveHandler resolves a platform URL into catalogued track rows. A
// playlist URL yields every member track.
func (h *APIHandler) ResolveHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := GetProfileIDFromContext(r.Context()); err != nil {
		respondError(w, err)
		return
	}

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	result, err := h.catalog.Resolve(r.Context(), req.URL)
	if err != nil {
		respondError(w, err)
		return
	}

	logger.Info("resolved media URL",
		logger.String("url", req.URL),
		logger.String("type", result.Type))

	respondJSON(w, http.StatusOK, result)
}

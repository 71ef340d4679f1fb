package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"JamFM/core/auth"
	"JamFM/logger"
	"JamFM/model"
	"JamFM/repository"
)

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	ImageURL string `json:"imageUrl"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterHandler handles profile registration requests
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "Name, email and password are required", http.StatusBadRequest)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		http.Error(w, "Failed to process password", http.StatusInternalServerError)
		return
	}

	profile := &model.Profile{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		ImageURL:     req.ImageURL,
	}

	if err := h.profileRepo.Create(r.Context(), profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			http.Error(w, "Email already exists", http.StatusConflict)
		} else {
			logger.Error("failed to create profile", logger.ErrorField(err))
			http.Error(w, "Failed to create profile", http.StatusInternalServerError)
		}
		return
	}

	token, err := h.tokens.IssueToken(profile.ID)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	logger.Info("profile registered",
		logger.String("profileId", profile.ID),
		logger.String("email", profile.Email))

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"token":   token,
		"profile": profile,
	})
}

// LoginHandler handles login requests
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	profile, err := h.profileRepo.GetByEmail(r.Context(), req.Email)
	if err != nil {
		logger.Error("failed to query profile", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if profile == nil || !auth.CheckPasswordHash(req.Password, profile.PasswordHash) {
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	token, err := h.tokens.IssueToken(profile.ID)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	logger.Info("profile logged in", logger.String("profileId", profile.ID))

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":   token,
		"profile": profile,
	})
}

package server

import (
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"JamFM/core/resolver"
	"JamFM/logger"
	"JamFM/model"
)

var nonAlphaNumeric = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)
var multipleSpaces = regexp.MustCompile(`\s+`)

func generateSafeFilename(title, artist string) string {
	if strings.TrimSpace(title) == "" {
		title = "Untitled_Track"
	}

	var parts []string
	if strings.TrimSpace(artist) != "" {
		parts = append(parts, strings.TrimSpace(artist))
	}
	parts = append(parts, strings.TrimSpace(title))

	base := strings.Join(parts, " - ")
	base = multipleSpaces.ReplaceAllString(base, "_")
	base = nonAlphaNumeric.ReplaceAllString(base, "")

	maxLength := 150
	if len(base) > maxLength {
		base = base[:maxLength]
	}
	if base == "" {
		base = "fallback_filename"
	}
	return base
}

// UploadTrackHandler handles audio file uploads and catalogues the result.
// Expected multipart form fields:
// - trackFile: the audio file (WAV, MP3, etc.)
// - title: track title
// - artist: track artist (optional)
// - durationMs: track duration in milliseconds (optional)
func (h *APIHandler) UploadTrackHandler(w http.ResponseWriter, r *http.Request) {
	profileID, err := GetProfileIDFromContext(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max memory
		http.Error(w, fmt.Sprintf("Failed to parse multipart form: %v", err), http.StatusBadRequest)
		return
	}

	trackFile, trackHeader, err := r.FormFile("trackFile")
	if err != nil {
		http.Error(w, "Missing 'trackFile' in form", http.StatusBadRequest)
		return
	}
	defer trackFile.Close()

	title := r.FormValue("title")
	if title == "" {
		http.Error(w, "Missing 'title' in form", http.StatusBadRequest)
		return
	}
	artist := r.FormValue("artist")

	var durationMs int64
	if v := r.FormValue("durationMs"); v != "" {
		if _, err := fmt.Sscan(v, &durationMs); err != nil || durationMs < 0 {
			http.Error(w, "Invalid 'durationMs' in form", http.StatusBadRequest)
			return
		}
	}

	ext := filepath.Ext(trackHeader.Filename)
	if ext == "" {
		ext = ".dat"
	}
	objectName := generateSafeFilename(title, artist) + ext
	contentType := trackHeader.Header.Get("Content-Type")

	fileURL, err := h.audioStore.PutAudio(r.Context(), objectName, trackFile, trackHeader.Size, contentType)
	if err != nil {
		logger.Error("failed to store uploaded track", logger.ErrorField(err))
		http.Error(w, "Failed to store uploaded file", http.StatusInternalServerError)
		return
	}

	track, err := h.catalog.Register(r.Context(), resolver.ResolvedTrack{
		Source:          model.SourceUploaded,
		SourceID:        objectName,
		Title:           title,
		Artist:          artist,
		DurationMs:      durationMs,
		OriginalURL:     fileURL,
		UploadedFileURL: fileURL,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	logger.Info("uploaded track catalogued",
		logger.String("trackId", track.ID),
		logger.String("profileId", profileID),
		logger.String("title", title))

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Track uploaded successfully",
		"track":   track,
	})
}

// Package api provides the JSON endpoints of the handwheel viewer.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/handwheel/internal/detector"
	"github.com/ayusman/handwheel/internal/store"
)

// RecordingHandler handles HTTP requests for recording resources.
type RecordingHandler struct {
	store *store.Store
}

// NewRecordingHandler creates a new RecordingHandler with the given store.
func NewRecordingHandler(s *store.Store) *RecordingHandler {
	return &RecordingHandler{store: s}
}

// ServeHTTP routes requests for
// /api/recordings, /api/recordings/{id} and /api/recordings/{id}/frames.
func (h *RecordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/recordings")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]
	if err := uuid.Validate(id); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid recording ID")
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "frames":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.frames(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type recordingResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Mirror    bool    `json:"mirror"`
	Frames    int     `json:"frames"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type listRecordingsResponse struct {
	Recordings []recordingResponse `json:"recordings"`
}

type frameResponse struct {
	Sequence     int                      `json:"sequence"`
	ElapsedMs    int64                    `json:"elapsed_ms"`
	Hands        []detector.HandLandmarks `json:"hands"`
	Tracked      bool                     `json:"tracked"`
	Mirror       bool                     `json:"mirror"`
	Radius       float64                  `json:"radius"`
	AngleDegrees float64                  `json:"angle_degrees"`
}

type listFramesResponse struct {
	RecordingID string          `json:"recording_id"`
	Frames      []frameResponse `json:"frames"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toRecordingResponse(rec *store.Recording) recordingResponse {
	return recordingResponse{
		ID:        rec.ID,
		Name:      rec.Name,
		Width:     rec.Width,
		Height:    rec.Height,
		Mirror:    rec.Mirror,
		Frames:    rec.Frames,
		CreatedAt: rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: rec.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func (h *RecordingHandler) list(w http.ResponseWriter, r *http.Request) {
	recordings, err := h.store.Recordings().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recordings")
		return
	}

	response := listRecordingsResponse{
		Recordings: make([]recordingResponse, 0, len(recordings)),
	}
	for _, rec := range recordings {
		response.Recordings = append(response.Recordings, toRecordingResponse(rec))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *RecordingHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.store.Recordings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get recording")
		return
	}

	writeJSON(w, http.StatusOK, toRecordingResponse(rec))
}

// frames handles GET /api/recordings/{id}/frames.
func (h *RecordingHandler) frames(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Recordings().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get recording")
		return
	}

	frames, err := h.store.Recordings().Frames(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read frames")
		return
	}

	response := listFramesResponse{
		RecordingID: id,
		Frames:      make([]frameResponse, 0, len(frames)),
	}
	for _, f := range frames {
		response.Frames = append(response.Frames, frameResponse{
			Sequence:     f.Sequence,
			ElapsedMs:    f.Elapsed.Milliseconds(),
			Hands:        f.Hands,
			Tracked:      f.Tracked,
			Mirror:       f.Mirror,
			Radius:       f.Radius,
			AngleDegrees: f.AngleDegrees,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *RecordingHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Recordings().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete recording")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/ayusman/handwheel/internal/chart"
	"github.com/ayusman/handwheel/internal/session"
)

// SessionHandler exposes the live steering session:
//
//	GET  /api/state        current transform, mirror mode and last sample
//	GET  /api/history      radius and angle series as JSON
//	GET  /api/history.png  the same series drawn as a PNG
//	GET  /api/mirror       current mirror mode
//	POST /api/mirror       {"mirror": bool}
type SessionHandler struct {
	session *session.Session
}

// NewSessionHandler creates a new SessionHandler for sess.
func NewSessionHandler(sess *session.Session) *SessionHandler {
	return &SessionHandler{session: sess}
}

// Register mounts the session routes on mux.
func (h *SessionHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", h.state)
	mux.HandleFunc("/api/history", h.history)
	mux.HandleFunc("/api/history.png", h.historyPNG)
	mux.HandleFunc("/api/mirror", h.mirror)
}

type mirrorRequest struct {
	Mirror *bool `json:"mirror"`
}

type mirrorResponse struct {
	Mirror            bool `json:"mirror"`
	AutoMirrorChecked bool `json:"auto_mirror_checked"`
}

func (h *SessionHandler) series() chart.Series {
	radius, angle := h.session.History().Series()
	return chart.Series{Radius: radius, Angle: angle}
}

func (h *SessionHandler) state(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

func (h *SessionHandler) history(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.series())
}

func (h *SessionHandler) historyPNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if err := chart.WritePNG(w, h.series()); err != nil {
		log.Printf("Error drawing history chart: %v", err)
	}
}

func (h *SessionHandler) mirror(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req mirrorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Mirror == nil {
			writeError(w, http.StatusBadRequest, "Mirror is required")
			return
		}
		h.session.SetMirror(*req.Mirror)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, mirrorResponse{
		Mirror:            h.session.Mirror(),
		AutoMirrorChecked: h.session.AutoMirrorChecked(),
	})
}

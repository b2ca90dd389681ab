package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

type tryonRequest struct {
	SubjectURL string `json:"subject_url"`
	StyleID    string `json:"style_id"`
}

// TryonStart launches a try-on job and returns its initial snapshot with
// status 202. The client polls TryonStatus with the returned job_id.
func (a *App) TryonStart(w http.ResponseWriter, r *http.Request) {
	var req tryonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	snap, err := a.Tryon.Start(r.Context(), req.SubjectURL, req.StyleID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, snap)
}

func (a *App) TryonStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Tryon.Status(chi.URLParam(r, "job_id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, snap)
}

// TryonCancel stops a running job. Cancelling a finished job returns its
// final snapshot unchanged.
func (a *App) TryonCancel(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Tryon.Cancel(chi.URLParam(r, "job_id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, snap)
}

// TryonResult serves the watermarked composite of a completed job as JPEG.
func (a *App) TryonResult(w http.ResponseWriter, r *http.Request) {
	data, err := a.Tryon.Result(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Recents lists the latest successful try-ons, newest first.
func (a *App) Recents(w http.ResponseWriter, r *http.Request) {
	limit := a.RecentsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	results, err := a.Tryon.Recents(r.Context(), limit)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if results == nil {
		results = []domain.RecentResult{}
	}
	a.json(w, http.StatusOK, map[string]any{"results": results})
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"server/internal/cache"
	"server/internal/domain"
	"server/internal/tryon"
	"server/internal/upload"
)

// App bundles the dependencies the HTTP handlers need.
type App struct {
	Log   zerolog.Logger
	Tryon *tryon.Service
	// TransientUploads hosts user photos with a short expiry.
	TransientUploads upload.Uploader
	// CatalogUploads hosts hairstyle images permanently.
	CatalogUploads upload.Uploader
	Repo           domain.CatalogRepository
	CatalogCache   *cache.CatalogCache

	MaxUploadBytes        int64
	MaxCatalogUploadBytes int64
	ProviderMaxDimension  int
	RecentsLimit          int
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}

// domainError maps domain sentinels onto HTTP responses.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, domain.ErrJobNotFinished):
		a.error(w, http.StatusConflict, "job_not_finished", "job has not completed yet")
	default:
		a.Log.Error().Err(err).Msg("http: internal error")
		a.error(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

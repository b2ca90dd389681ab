package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"server/internal/domain"
	"server/internal/imageprep"
	"server/internal/upload"
)

var categoryTitle = cases.Title(language.Und)

// CatalogList returns all hairstyles, newest first. The listing is served
// from the cache when warm.
func (a *App) CatalogList(w http.ResponseWriter, r *http.Request) {
	if a.CatalogCache != nil {
		if items, ok := a.CatalogCache.Get(r.Context()); ok {
			a.json(w, http.StatusOK, map[string]any{"items": items})
			return
		}
	}
	items, err := a.Repo.List(r.Context())
	if err != nil {
		a.domainError(w, err)
		return
	}
	if a.CatalogCache != nil {
		if err := a.CatalogCache.Set(r.Context(), items); err != nil {
			a.Log.Warn().Err(err).Msg("http: catalog cache refresh failed")
		}
	}
	if items == nil {
		items = []domain.CatalogItem{}
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// CatalogCreate registers a new hairstyle. It takes multipart form data
// with "name", an optional "category" and an "image" file; the image is
// hosted on the permanent gateway before the row is written.
func (a *App) CatalogCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxCatalogUploadBytes)
	if err := r.ParseMultipartForm(a.MaxCatalogUploadBytes); err != nil {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", "image exceeds the upload limit")
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "name is required")
		return
	}
	category := strings.TrimSpace(r.FormValue("category"))
	if category != "" {
		category = categoryTitle.String(strings.ToLower(category))
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "image file is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unable to read image file")
		return
	}
	if err := imageprep.ValidateBytes(data, "", a.MaxCatalogUploadBytes); err != nil {
		var verr *imageprep.ValidationError
		if errors.As(err, &verr) {
			a.error(w, http.StatusBadRequest, string(verr.Reason), verr.Message)
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	prepared, err := imageprep.FitProviderLimit(data, a.ProviderMaxDimension, uploadJPEGQuality)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "image could not be processed")
		return
	}

	res := a.CatalogUploads.Upload(r.Context(), upload.Source{Raw: prepared, Filename: header.Filename})
	if !res.Success {
		a.error(w, http.StatusBadGateway, "upload_failed", res.Error)
		return
	}

	item := domain.CatalogItem{Name: name, Category: category, ImageURL: res.URL}
	id, err := a.Repo.Create(r.Context(), &item)
	if err != nil {
		a.domainError(w, err)
		return
	}
	item.ID = id
	a.invalidateCatalog(r)
	a.json(w, http.StatusCreated, item)
}

// CatalogDelete removes a hairstyle by ID.
func (a *App) CatalogDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Repo.Delete(r.Context(), id); err != nil {
		a.domainError(w, err)
		return
	}
	a.invalidateCatalog(r)
	a.json(w, http.StatusOK, map[string]string{"deleted": id})
}

func (a *App) invalidateCatalog(r *http.Request) {
	if a.CatalogCache == nil {
		return
	}
	if err := a.CatalogCache.Invalidate(r.Context()); err != nil {
		a.Log.Warn().Err(err).Msg("http: catalog cache invalidate failed")
	}
}

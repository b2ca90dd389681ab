package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"server/internal/imageprep"
	"server/internal/upload"
)

const uploadJPEGQuality = 90

type uploadRequest struct {
	ImageBase64 string `json:"image_base64"`
	ImageURL    string `json:"image_url"`
}

// UploadsCreate re-hosts a user photo so the swap provider can fetch it.
// It accepts multipart form data with an "image" file, or a JSON body with
// either inline base64 or a URL to mirror. Local payloads are validated and
// downscaled to the provider's dimension ceiling before hosting.
func (a *App) UploadsCreate(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		a.uploadMultipart(w, r)
		return
	}

	var req uploadRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, a.MaxUploadBytes*2)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	switch {
	case strings.TrimSpace(req.ImageBase64) != "":
		data, err := decodeInlineImage(req.ImageBase64)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "image_base64 is not valid base64")
			return
		}
		a.uploadBytes(w, r, data, "upload.jpg")
	case strings.TrimSpace(req.ImageURL) != "":
		res := a.TransientUploads.Upload(r.Context(), upload.Source{RemoteURL: strings.TrimSpace(req.ImageURL)})
		a.uploadResponse(w, res)
	default:
		a.error(w, http.StatusBadRequest, "bad_request", "provide image_base64 or image_url")
	}
}

func (a *App) uploadMultipart(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes)
	if err := r.ParseMultipartForm(a.MaxUploadBytes); err != nil {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", "image exceeds the upload limit")
		return
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
	a.uploadBytes(w, r, data, header.Filename)
}

// uploadBytes validates, downscales and hosts raw image bytes.
func (a *App) uploadBytes(w http.ResponseWriter, r *http.Request, data []byte, filename string) {
	if err := imageprep.ValidateBytes(data, "", a.MaxUploadBytes); err != nil {
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
	res := a.TransientUploads.Upload(r.Context(), upload.Source{Raw: prepared, Filename: filename})
	a.uploadResponse(w, res)
}

func (a *App) uploadResponse(w http.ResponseWriter, res upload.Result) {
	if !res.Success {
		a.error(w, http.StatusBadGateway, "upload_failed", res.Error)
		return
	}
	a.json(w, http.StatusOK, res)
}

func decodeInlineImage(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if idx := strings.Index(payload, ","); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}
	return base64.StdEncoding.DecodeString(payload)
}

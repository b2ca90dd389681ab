package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// FreeImageOptions configures the freeimage.host gateway. Catalog uploads go
// through this provider because it retains images indefinitely.
type FreeImageOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// FreeImageClient uploads images to freeimage.host.
type FreeImageClient struct {
	httpClient *http.Client
	baseURL    string
	key        string
}

// NewFreeImageClient constructs a gateway with sane defaults.
func NewFreeImageClient(opts FreeImageOptions) *FreeImageClient {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://freeimage.host/api/1"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &FreeImageClient{
		httpClient: client,
		baseURL:    base,
		key:        strings.TrimSpace(opts.APIKey),
	}
}

type freeImageResponse struct {
	StatusCode int    `json:"status_code"`
	StatusTxt  string `json:"status_txt"`
	Image      *struct {
		URL       string `json:"url"`
		DeleteURL string `json:"delete_url"`
		Thumb     *struct {
			URL string `json:"url"`
		} `json:"thumb"`
	} `json:"image"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload pushes one image to freeimage.host. Success requires an HTTP 2xx
// AND the provider's own status_code==200 with an image object; anything
// else is normalized into Result.Error.
func (c *FreeImageClient) Upload(ctx context.Context, src Source) Result {
	if c == nil || c.key == "" {
		return failure("image host is not configured")
	}
	if src.IsZero() {
		return failure("no image data provided")
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	fields := map[string]string{
		"key":    c.key,
		"action": "upload",
		"format": "json",
	}
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return failure(fmt.Sprintf("build upload form: %v", err))
		}
	}
	switch {
	case len(src.Raw) > 0:
		filename := src.Filename
		if filename == "" {
			filename = "upload.jpg"
		}
		part, err := form.CreateFormFile("source", filename)
		if err != nil {
			return failure(fmt.Sprintf("build upload form: %v", err))
		}
		if _, err := part.Write(src.Raw); err != nil {
			return failure(fmt.Sprintf("build upload form: %v", err))
		}
	case strings.TrimSpace(src.Base64) != "":
		if err := form.WriteField("source", src.base64Payload()); err != nil {
			return failure(fmt.Sprintf("build upload form: %v", err))
		}
	default:
		if err := form.WriteField("source", strings.TrimSpace(src.RemoteURL)); err != nil {
			return failure(fmt.Sprintf("build upload form: %v", err))
		}
	}
	if err := form.Close(); err != nil {
		return failure(fmt.Sprintf("build upload form: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return failure(fmt.Sprintf("build upload request: %v", err))
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return failure("network error during upload")
	}
	defer resp.Body.Close()

	var out freeImageResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return failure(fmt.Sprintf("image host returned http %d", resp.StatusCode))
		}
		return failure("malformed response from image host")
	}
	if resp.StatusCode >= http.StatusBadRequest || out.StatusCode != 200 || out.Image == nil || strings.TrimSpace(out.Image.URL) == "" {
		if out.Error != nil && out.Error.Message != "" {
			return failure(out.Error.Message)
		}
		if out.StatusTxt != "" {
			return failure(out.StatusTxt)
		}
		return failure(fmt.Sprintf("image host returned http %d", resp.StatusCode))
	}

	result := Result{Success: true, URL: out.Image.URL, DeleteURL: out.Image.DeleteURL}
	if out.Image.Thumb != nil {
		result.ThumbURL = out.Image.Thumb.URL
	}
	return result
}

var _ Uploader = (*FreeImageClient)(nil)

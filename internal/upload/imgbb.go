package upload

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ImgBBOptions configures the ImgBB gateway. Subject photos go through this
// provider with a short expiration: the hosted copy only needs to live long
// enough for the inference provider to fetch it.
type ImgBBOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration

	// ExpirationSeconds is forwarded to the provider; zero keeps the image
	// indefinitely. Transient try-on uploads use 600.
	ExpirationSeconds int
}

// ImgBBClient uploads images to api.imgbb.com.
type ImgBBClient struct {
	httpClient *http.Client
	baseURL    string
	key        string
	expiration int
}

// NewImgBBClient constructs a gateway with sane defaults.
func NewImgBBClient(opts ImgBBOptions) *ImgBBClient {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.imgbb.com/1"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &ImgBBClient{
		httpClient: client,
		baseURL:    base,
		key:        strings.TrimSpace(opts.APIKey),
		expiration: opts.ExpirationSeconds,
	}
}

type imgbbResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL       string `json:"url"`
		DeleteURL string `json:"delete_url"`
		Thumb     struct {
			URL string `json:"url"`
		} `json:"thumb"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload pushes one image to ImgBB. The provider accepts base64 payloads and
// remote URLs in the same form field; raw bytes are base64-encoded first.
func (c *ImgBBClient) Upload(ctx context.Context, src Source) Result {
	if c == nil || c.key == "" {
		return failure("image host is not configured")
	}
	if src.IsZero() {
		return failure("no image data provided")
	}

	form := url.Values{}
	form.Set("key", c.key)
	if c.expiration > 0 {
		form.Set("expiration", strconv.Itoa(c.expiration))
	}
	switch {
	case len(src.Raw) > 0:
		form.Set("image", base64.StdEncoding.EncodeToString(src.Raw))
	case strings.TrimSpace(src.Base64) != "":
		form.Set("image", src.base64Payload())
	default:
		form.Set("image", strings.TrimSpace(src.RemoteURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", strings.NewReader(form.Encode()))
	if err != nil {
		return failure(fmt.Sprintf("build upload request: %v", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return failure("network error during upload")
	}
	defer resp.Body.Close()

	var out imgbbResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return failure(fmt.Sprintf("image host returned http %d", resp.StatusCode))
		}
		return failure("malformed response from image host")
	}
	if resp.StatusCode >= http.StatusBadRequest || !out.Success || strings.TrimSpace(out.Data.URL) == "" {
		if out.Error != nil && out.Error.Message != "" {
			return failure(out.Error.Message)
		}
		return failure(fmt.Sprintf("image host returned http %d", resp.StatusCode))
	}

	return Result{
		Success:   true,
		URL:       out.Data.URL,
		ThumbURL:  out.Data.Thumb.URL,
		DeleteURL: out.Data.DeleteURL,
	}
}

var _ Uploader = (*ImgBBClient)(nil)

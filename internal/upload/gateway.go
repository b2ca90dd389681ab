// Package upload delivers prepared image payloads to a hosting provider and
// normalizes the heterogeneous provider envelopes into one Result shape.
// Failed uploads are never retried here: the UI exposes an explicit retry
// affordance, so retrying is a caller decision.
package upload

import (
	"context"
	"strings"
)

// Result is the normalized outcome of one upload attempt. URL is set iff
// Success is true.
type Result struct {
	Success   bool   `json:"success"`
	URL       string `json:"url,omitempty"`
	ThumbURL  string `json:"thumb_url,omitempty"`
	DeleteURL string `json:"delete_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Source carries exactly one of the three accepted input shapes: inline
// base64 data (data-URL prefix tolerated), a pre-existing remote URL to
// re-host, or raw binary content.
type Source struct {
	Base64    string
	RemoteURL string
	Raw       []byte
	Filename  string
}

// IsZero reports whether no input shape was provided.
func (s Source) IsZero() bool {
	return strings.TrimSpace(s.Base64) == "" && strings.TrimSpace(s.RemoteURL) == "" && len(s.Raw) == 0
}

// base64Payload strips an optional data-URL prefix from the inline payload.
func (s Source) base64Payload() string {
	payload := strings.TrimSpace(s.Base64)
	if idx := strings.Index(payload, ","); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}
	return payload
}

// Uploader is the contract implemented by all hosting gateways.
type Uploader interface {
	Upload(ctx context.Context, src Source) Result
}

func failure(msg string) Result {
	if strings.TrimSpace(msg) == "" {
		msg = "upload failed"
	}
	return Result{Success: false, Error: msg}
}

package faceswap

import (
	"context"
	"errors"
	"strings"
)

var errMissingImages = errors.New("missing required images")

// Rejection is a provider-reported failure whose message already went
// through the error translator. Transport failures stay plain errors so the
// orchestrator can surface a network-specific message instead.
type Rejection struct {
	UserMessage string
}

func (r *Rejection) Error() string { return r.UserMessage }

// Request names the two hosted images of one swap job. Both must be URLs the
// remote provider can fetch; local file handles never get this far.
type Request struct {
	// SubjectURL is the user's uploaded photo, the face to composite.
	SubjectURL string
	// StyleURL is the catalog wig image supplying the hairstyle.
	StyleURL string
}

// Validate enforces the submission invariant: both references non-empty.
func (r Request) Validate() error {
	if strings.TrimSpace(r.SubjectURL) == "" || strings.TrimSpace(r.StyleURL) == "" {
		return errMissingImages
	}
	return nil
}

// Result is the terminal outcome of one orchestration. ResultURL is set iff
// Success; Err carries the already-translated user-facing message otherwise.
type Result struct {
	Success   bool
	ResultURL string
	JobID     string
	Err       string
	// Cause is nil on success; otherwise one of the domain error sentinels
	// classifying the failure (invalid input, provider rejection, timeout,
	// incomplete result, cancellation).
	Cause error
}

// Provider is the adapter contract a concrete inference provider implements.
// Submit returns the provider-issued job handle; Poll reports one canonical
// status observation per call. Adapters translate their own error codes, so
// Status.Err and Submit errors are already user-facing.
type Provider interface {
	Name() string
	Submit(ctx context.Context, req Request) (string, error)
	Poll(ctx context.Context, jobID string) (Status, error)
}

// Package faceswap submits swap jobs to a remote inference provider and
// drives them to completion. One orchestrator handles every provider; each
// provider supplies an adapter with its own wire format and error table.
package faceswap

import "strings"

// StatusKind is the canonical job state, independent of provider vocabulary.
type StatusKind string

const (
	StatusPending    StatusKind = "pending"
	StatusProcessing StatusKind = "processing"
	StatusCompleted  StatusKind = "completed"
	StatusFailed     StatusKind = "failed"
)

// Terminal reports whether the state ends the polling loop.
func (k StatusKind) Terminal() bool {
	return k == StatusCompleted || k == StatusFailed
}

// Progress estimates used when the provider omits a progress value.
const (
	progressCompleted  = 100
	progressFailed     = 0
	progressProcessing = 50
	progressPending    = 10
	progressUnknown    = 5
)

// statusSynonyms centralizes the free-form status strings observed across
// provider integrations. New provider vocabulary is a one-line addition.
var statusSynonyms = map[string]StatusKind{
	"succeeded": StatusCompleted,
	"completed": StatusCompleted,

	"processing": StatusProcessing,
	"running":    StatusProcessing,

	"pending":  StatusPending,
	"queued":   StatusPending,
	"staged":   StatusPending,
	"starting": StatusPending,

	"failed":    StatusFailed,
	"error":     StatusFailed,
	"cancelled": StatusFailed,
}

// ParseStatusKind maps a provider status string to the canonical kind. The
// second return is false for unrecognized strings, which callers must treat
// as Pending: an unknown transient state must never abort the job.
func ParseStatusKind(raw string) (StatusKind, bool) {
	kind, ok := statusSynonyms[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return StatusPending, false
	}
	return kind, true
}

// Status is one observation of a job. Created fresh on every poll, never
// mutated. ResultURL is set for Completed; Err for Failed.
type Status struct {
	Kind      StatusKind
	Progress  int
	ResultURL string
	Err       string
}

// NewStatus derives the canonical status for a provider status string plus
// its optional progress report. providerProgress <= 0 means the provider
// omitted one and the fixed estimate applies.
func NewStatus(raw string, providerProgress int) Status {
	kind, known := ParseStatusKind(raw)
	switch {
	case !known:
		return Status{Kind: StatusPending, Progress: progressUnknown}
	case kind == StatusCompleted:
		return Status{Kind: StatusCompleted, Progress: progressCompleted}
	case kind == StatusFailed:
		return Status{Kind: StatusFailed, Progress: progressFailed}
	case kind == StatusProcessing:
		if providerProgress > 0 {
			return Status{Kind: StatusProcessing, Progress: clampProgress(providerProgress)}
		}
		return Status{Kind: StatusProcessing, Progress: progressProcessing}
	default:
		if providerProgress > 0 {
			return Status{Kind: StatusPending, Progress: clampProgress(providerProgress)}
		}
		return Status{Kind: StatusPending, Progress: progressPending}
	}
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

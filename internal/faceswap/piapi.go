package faceswap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PiAPIOptions configures the canonical PiAPI face-swap adapter.
type PiAPIOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
	Translator *Translator
}

// PiAPIProvider drives PiAPI's Qubico image-toolkit face-swap task type.
type PiAPIProvider struct {
	httpClient *http.Client
	baseURL    string
	key        string
	translator *Translator
}

// NewPiAPIProvider constructs the adapter with sane defaults.
func NewPiAPIProvider(opts PiAPIOptions) *PiAPIProvider {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.piapi.ai/api/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	translator := opts.Translator
	if translator == nil {
		translator = NewTranslator(nil)
	}
	return &PiAPIProvider{
		httpClient: client,
		baseURL:    base,
		key:        strings.TrimSpace(opts.APIKey),
		translator: translator,
	}
}

func (p *PiAPIProvider) Name() string { return "piapi" }

type piapiSubmitRequest struct {
	Model    string `json:"model"`
	TaskType string `json:"task_type"`
	Input    struct {
		TargetImage string `json:"target_image"`
		SwapImage   string `json:"swap_image"`
	} `json:"input"`
}

type piapiError struct {
	Code    json.Number `json:"code"`
	Message string      `json:"message"`
}

type piapiEnvelope struct {
	Code    json.Number `json:"code"`
	Message string      `json:"message"`
	Error   string      `json:"error"`
	Data    *struct {
		TaskID   string      `json:"task_id"`
		Status   string      `json:"status"`
		Progress int         `json:"progress"`
		Output   *struct {
			ImageURL string `json:"image_url"`
			URL      string `json:"url"`
			Result   string `json:"result"`
		} `json:"output"`
		Error *piapiError `json:"error"`
	} `json:"data"`
}

func (e *piapiEnvelope) ok() bool {
	return e.Code.String() == "200"
}

// Submit creates one face-swap task. A 2xx HTTP status alone does not count:
// the provider can return 200 with an embedded failure, so success requires
// code==200 AND a non-empty task handle.
func (p *PiAPIProvider) Submit(ctx context.Context, req Request) (string, error) {
	if p.key == "" {
		return "", &Rejection{UserMessage: p.translator.Translate("API_KEY_INVALID", "API key is missing")}
	}
	var payload piapiSubmitRequest
	payload.Model = "Qubico/image-toolkit"
	payload.TaskType = "face-swap"
	payload.Input.TargetImage = req.StyleURL
	payload.Input.SwapImage = req.SubjectURL

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/task", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-api-key", p.key)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("piapi: submit: %w", err)
	}
	defer resp.Body.Close()

	var out piapiEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("piapi: decode submit response (http %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &Rejection{UserMessage: p.envelopeError(&out)}
	}
	if !out.ok() || out.Data == nil || strings.TrimSpace(out.Data.TaskID) == "" {
		return "", &Rejection{UserMessage: p.envelopeError(&out)}
	}
	return out.Data.TaskID, nil
}

// Poll fetches one status observation for the job handle.
func (p *PiAPIProvider) Poll(ctx context.Context, jobID string) (Status, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/task/"+jobID, nil)
	if err != nil {
		return Status{}, err
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-api-key", p.key)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return Status{}, fmt.Errorf("piapi: poll: %w", err)
	}
	defer resp.Body.Close()

	// A non-2xx here is a transport-level failure of the status check, not a
	// verdict on the job; the caller keeps polling.
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return Status{}, fmt.Errorf("piapi: status check http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out piapiEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return Status{}, fmt.Errorf("piapi: decode status response: %w", err)
	}
	if !out.ok() || out.Data == nil {
		code := out.Code.String()
		if code == "" || code == "200" {
			code = "STATUS_CHECK_FAILED"
		}
		return Status{
			Kind:     StatusFailed,
			Progress: progressFailed,
			Err:      p.translator.Translate(code, firstNonEmpty(out.Message, out.Error, "failed to check task status")),
		}, nil
	}

	data := out.Data
	status := NewStatus(data.Status, data.Progress)
	switch status.Kind {
	case StatusCompleted:
		if data.Output != nil {
			status.ResultURL = firstNonEmpty(data.Output.ImageURL, data.Output.URL, data.Output.Result)
		}
	case StatusFailed:
		code := "PROCESSING_FAILED"
		message := "Processing failed"
		if data.Error != nil {
			if c := data.Error.Code.String(); c != "" && c != "0" {
				code = c
			}
			if data.Error.Message != "" {
				message = data.Error.Message
			}
		} else if out.Message != "" {
			message = out.Message
		}
		status.Err = p.translator.Translate(code, message)
	}
	return status, nil
}

func (p *PiAPIProvider) envelopeError(out *piapiEnvelope) string {
	code := out.Code.String()
	if out.Data != nil && out.Data.Error != nil && out.Data.Error.Code.String() != "" {
		code = out.Data.Error.Code.String()
	}
	if code == "" || code == "200" {
		code = "UNKNOWN_ERROR"
	}
	message := firstNonEmpty(out.Message, out.Error, "failed to start face swap task")
	return p.translator.Translate(code, message)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

var _ Provider = (*PiAPIProvider)(nil)

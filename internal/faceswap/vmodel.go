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

// vmodelCodeTable holds the error codes specific to the VModel hair-swap
// model, layered over the shared table.
var vmodelCodeTable = map[string]string{
	"HairSwap.Swap.Failed": "Please try uploading a clearer photo with better lighting where your face is clearly visible.",
	"Download.Unknown":     "Unable to download the image. Please check your internet connection and try again.",
	"Upload.Failed":        "Image upload failed. Please check your internet connection and try again.",
	"InvalidImage":         "This image cannot be processed. Please use a clear photo showing your face.",
	"FaceNotDetected":      "No face was detected in your photo. Please upload a clear image where your face is clearly visible.",
}

// VModelOptions configures the alternate VModel hair-swap adapter.
type VModelOptions struct {
	BaseURL    string
	APIToken   string
	Version    string
	HTTPClient *http.Client
	Timeout    time.Duration

	// DisableSafetyChecker is forwarded verbatim to the model input.
	DisableSafetyChecker bool
}

// VModelProvider drives VModel's task API. Same orchestrator, different wire
// format and error vocabulary.
type VModelProvider struct {
	httpClient *http.Client
	baseURL    string
	token      string
	version    string
	noSafety   bool
	translator *Translator
}

// NewVModelProvider constructs the adapter with sane defaults.
func NewVModelProvider(opts VModelOptions) *VModelProvider {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.vmodel.ai/api/tasks/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &VModelProvider{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIToken),
		version:    strings.TrimSpace(opts.Version),
		noSafety:   opts.DisableSafetyChecker,
		translator: NewTranslator(vmodelCodeTable),
	}
}

func (p *VModelProvider) Name() string { return "vmodel" }

type vmodelSubmitRequest struct {
	Version string `json:"version"`
	Input   struct {
		Source               string `json:"source"`
		Target               string `json:"target"`
		DisableSafetyChecker bool   `json:"disable_safety_checker"`
	} `json:"input"`
}

type vmodelEnvelope struct {
	Code    json.Number     `json:"code"`
	Message json.RawMessage `json:"message"`
	Result  *struct {
		TaskID   string   `json:"task_id"`
		Status   string   `json:"status"`
		Output   []string `json:"output"`
		Error    *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"result"`
}

// message unwraps the provider's message field, which is either a plain
// string or a per-locale object with an "en" key.
func (e *vmodelEnvelope) message() string {
	if len(e.Message) == 0 {
		return ""
	}
	var plain string
	if err := json.Unmarshal(e.Message, &plain); err == nil {
		return plain
	}
	var localized map[string]string
	if err := json.Unmarshal(e.Message, &localized); err == nil {
		if en, ok := localized["en"]; ok {
			return en
		}
	}
	return ""
}

// Submit creates one hair-swap task.
func (p *VModelProvider) Submit(ctx context.Context, req Request) (string, error) {
	if p.token == "" {
		return "", &Rejection{UserMessage: p.translator.Translate("API_KEY_INVALID", "API token is missing")}
	}
	var payload vmodelSubmitRequest
	payload.Version = p.version
	payload.Input.Source = req.SubjectURL
	payload.Input.Target = req.StyleURL
	payload.Input.DisableSafetyChecker = p.noSafety

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/create", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("vmodel: submit: %w", err)
	}
	defer resp.Body.Close()

	var out vmodelEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("vmodel: decode submit response (http %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusBadRequest || out.Code.String() != "200" || out.Result == nil || strings.TrimSpace(out.Result.TaskID) == "" {
		code := out.Code.String()
		if code == "" || code == "200" {
			code = "Unknown"
		}
		return "", &Rejection{UserMessage: p.translator.Translate(code, firstNonEmpty(out.message(), "failed to start hairstyle swap task"))}
	}
	return out.Result.TaskID, nil
}

// Poll fetches one status observation. VModel reports the output as an array
// of URLs; the first element is the composite.
func (p *VModelProvider) Poll(ctx context.Context, jobID string) (Status, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/get/"+jobID, nil)
	if err != nil {
		return Status{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return Status{}, fmt.Errorf("vmodel: poll: %w", err)
	}
	defer resp.Body.Close()

	// Same split as the PiAPI adapter: non-2xx means the status check itself
	// failed and the caller keeps polling.
	if resp.StatusCode >= http.StatusMultipleChoices || resp.StatusCode < http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return Status{}, fmt.Errorf("vmodel: status check http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out vmodelEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return Status{}, fmt.Errorf("vmodel: decode status response: %w", err)
	}
	if out.Code.String() != "200" || out.Result == nil {
		code := out.Code.String()
		if code == "" || code == "200" {
			code = "Unknown"
		}
		return Status{
			Kind:     StatusFailed,
			Progress: progressFailed,
			Err:      p.translator.Translate(code, firstNonEmpty(out.message(), "failed to check task status")),
		}, nil
	}

	data := out.Result
	status := NewStatus(data.Status, 0)
	switch status.Kind {
	case StatusCompleted:
		if len(data.Output) > 0 {
			status.ResultURL = data.Output[0]
		}
	case StatusFailed:
		code := "HairSwap.Swap.Failed"
		message := "fail"
		if data.Error != nil {
			if data.Error.Code != "" {
				code = data.Error.Code
			}
			if data.Error.Message != "" {
				message = data.Error.Message
			}
		}
		status.Err = p.translator.Translate(code, message)
	}
	return status, nil
}

var _ Provider = (*VModelProvider)(nil)

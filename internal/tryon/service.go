package tryon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/cache"
	"server/internal/domain"
	"server/internal/faceswap"
	"server/internal/storage"
	"server/internal/watermark"
)

const defaultMaxResultBytes = 20 << 20

// ServiceOptions wires the try-on service's collaborators.
type ServiceOptions struct {
	Orchestrator *faceswap.Orchestrator
	Repo         domain.CatalogRepository
	CatalogCache *cache.CatalogCache
	Recents      *cache.RecentsStore
	Store        *storage.FileStore
	HTTPClient   *http.Client
	Watermark    watermark.Options
	// MaxResultBytes bounds the composite download. Defaults to 20 MiB.
	MaxResultBytes int64
	// JobRetention is how long finished jobs stay queryable. Defaults to
	// 30 minutes.
	JobRetention time.Duration
	Logger       zerolog.Logger
}

// Service runs try-on jobs end to end: it resolves the chosen hairstyle,
// drives the swap orchestration in the background, and serves the finished
// composite with the watermark applied.
type Service struct {
	orch           *faceswap.Orchestrator
	repo           domain.CatalogRepository
	catalogCache   *cache.CatalogCache
	recents        *cache.RecentsStore
	store          *storage.FileStore
	httpClient     *http.Client
	watermark      watermark.Options
	maxResultBytes int64
	logger         zerolog.Logger
	registry       *Registry
}

// NewService builds a Service from its options.
func NewService(opts ServiceOptions) *Service {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	maxBytes := opts.MaxResultBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxResultBytes
	}
	return &Service{
		orch:           opts.Orchestrator,
		repo:           opts.Repo,
		catalogCache:   opts.CatalogCache,
		recents:        opts.Recents,
		store:          opts.Store,
		httpClient:     client,
		watermark:      opts.Watermark,
		maxResultBytes: maxBytes,
		logger:         opts.Logger,
		registry:       NewRegistry(opts.JobRetention),
	}
}

// Start resolves the hairstyle, registers a new job and launches the swap
// orchestration in the background. The returned snapshot carries the job ID
// the caller polls with.
func (s *Service) Start(ctx context.Context, subjectURL, styleID string) (Snapshot, error) {
	subjectURL = strings.TrimSpace(subjectURL)
	if subjectURL == "" {
		return Snapshot{}, fmt.Errorf("subject image url is required: %w", domain.ErrInvalidInput)
	}
	item, err := s.resolveStyle(ctx, styleID)
	if err != nil {
		return Snapshot{}, err
	}

	id := uuid.NewString()
	// The job outlives the submitting request; cancellation goes through
	// the registry, not the request context.
	runCtx, cancel := context.WithCancel(context.Background())
	snap := s.registry.add(id, item.ID, cancel)

	req := faceswap.Request{SubjectURL: subjectURL, StyleURL: item.ImageURL}
	go s.run(runCtx, cancel, id, item.ID, req)

	return snap, nil
}

func (s *Service) run(ctx context.Context, cancel context.CancelFunc, id, styleID string, req faceswap.Request) {
	defer cancel()

	res := s.orch.Run(ctx, req, func(percent int) {
		state := StatePending
		if percent >= 50 {
			state = StateProcessing
		}
		s.registry.setProgress(id, state, percent)
	})

	if res.Success {
		s.registry.complete(id, res.ResultURL)
		s.pushRecent(id, styleID, res.ResultURL)
		return
	}
	state := StateFailed
	if errors.Is(res.Cause, domain.ErrJobCancelled) {
		state = StateCancelled
	}
	s.registry.fail(id, state, res.Err)
}

func (s *Service) pushRecent(id, styleID, resultURL string) {
	if s.recents == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.recents.Push(ctx, domain.RecentResult{
		ID:        id,
		StyleID:   styleID,
		ResultURL: resultURL,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", id).Msg("tryon: recents push failed")
	}
}

// Status returns the current snapshot of a job.
func (s *Service) Status(jobID string) (Snapshot, error) {
	return s.registry.Get(jobID)
}

// Cancel stops a running job. Cancelling a finished job is a no-op and
// returns its final snapshot.
func (s *Service) Cancel(jobID string) (Snapshot, error) {
	return s.registry.Cancel(jobID)
}

// Recents lists the most recent successful try-ons, newest first.
func (s *Service) Recents(ctx context.Context, limit int) ([]domain.RecentResult, error) {
	if s.recents == nil {
		return nil, nil
	}
	return s.recents.List(ctx, limit)
}

// Result returns the finished, watermarked composite for a completed job.
// The first call downloads the provider composite and persists the
// watermarked bytes; later calls are served from local storage.
func (s *Service) Result(ctx context.Context, jobID string) ([]byte, error) {
	snap, err := s.registry.Get(jobID)
	if err != nil {
		return nil, err
	}
	if snap.State != StateCompleted {
		return nil, fmt.Errorf("job %s is %s: %w", jobID, snap.State, domain.ErrJobNotFinished)
	}

	if key, err := s.registry.storedKey(jobID); err == nil && key != "" {
		data, err := s.store.Read(ctx, key)
		if err == nil {
			return data, nil
		}
		s.logger.Warn().Err(err).Str("job_id", jobID).Str("key", key).Msg("tryon: stored result unreadable, refetching")
	}

	raw, err := s.fetchComposite(ctx, snap.ResultURL)
	if err != nil {
		return nil, err
	}
	stamped, err := watermark.Apply(raw, s.watermark)
	if err != nil {
		return nil, fmt.Errorf("watermark result: %w", err)
	}
	key, err := s.store.WriteResult(ctx, stamped)
	if err != nil {
		// Serving the result still works; only the local copy is lost.
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("tryon: persist result failed")
	} else {
		s.registry.setStoredKey(jobID, key)
	}
	return stamped, nil
}

func (s *Service) fetchComposite(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build composite request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download composite: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("download composite: unexpected status %d: %w", resp.StatusCode, domain.ErrProviderFailure)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxResultBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read composite: %w", err)
	}
	if int64(len(data)) > s.maxResultBytes {
		return nil, fmt.Errorf("composite exceeds %d bytes: %w", s.maxResultBytes, domain.ErrInvalidInput)
	}
	return data, nil
}

// resolveStyle finds the catalog item for styleID, preferring the cached
// listing and falling back to the repository.
func (s *Service) resolveStyle(ctx context.Context, styleID string) (domain.CatalogItem, error) {
	styleID = strings.TrimSpace(styleID)
	if styleID == "" {
		return domain.CatalogItem{}, fmt.Errorf("style id is required: %w", domain.ErrInvalidInput)
	}
	if s.catalogCache != nil {
		if items, ok := s.catalogCache.Get(ctx); ok {
			if item, ok := findStyle(items, styleID); ok {
				return item, nil
			}
		}
	}
	items, err := s.repo.List(ctx)
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("list catalog: %w", err)
	}
	if s.catalogCache != nil {
		if err := s.catalogCache.Set(ctx, items); err != nil {
			s.logger.Warn().Err(err).Msg("tryon: catalog cache refresh failed")
		}
	}
	if item, ok := findStyle(items, styleID); ok {
		return item, nil
	}
	return domain.CatalogItem{}, fmt.Errorf("style %s: %w", styleID, domain.ErrNotFound)
}

func findStyle(items []domain.CatalogItem, styleID string) (domain.CatalogItem, bool) {
	for _, item := range items {
		if item.ID == styleID {
			return item, true
		}
	}
	return domain.CatalogItem{}, false
}

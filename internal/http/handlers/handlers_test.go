package handlers_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"server/internal/cache"
	"server/internal/domain"
	"server/internal/faceswap"
	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/storage"
	"server/internal/tryon"
	"server/internal/upload"
	"server/internal/watermark"
)

type fakeUploader struct {
	last upload.Source
	res  upload.Result
}

func (f *fakeUploader) Upload(ctx context.Context, src upload.Source) upload.Result {
	f.last = src
	return f.res
}

type memRepo struct {
	items  []domain.CatalogItem
	nextID int
}

func (m *memRepo) Create(ctx context.Context, item *domain.CatalogItem) (string, error) {
	if strings.TrimSpace(item.Name) == "" || strings.TrimSpace(item.ImageURL) == "" {
		return "", domain.ErrInvalidInput
	}
	m.nextID++
	id := fmt.Sprintf("style-%d", m.nextID)
	stored := *item
	stored.ID = id
	stored.CreatedAt = time.Now().UTC()
	m.items = append(m.items, stored)
	return id, nil
}

func (m *memRepo) List(ctx context.Context) ([]domain.CatalogItem, error) {
	return append([]domain.CatalogItem(nil), m.items...), nil
}

func (m *memRepo) Delete(ctx context.Context, id string) error {
	for i, item := range m.items {
		if item.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

type stubProvider struct {
	polls     []faceswap.Status
	pollCalls int
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Submit(ctx context.Context, req faceswap.Request) (string, error) {
	return "task-1", nil
}

func (p *stubProvider) Poll(ctx context.Context, jobID string) (faceswap.Status, error) {
	if p.pollCalls >= len(p.polls) {
		return faceswap.Status{Kind: faceswap.StatusProcessing, Progress: 50}, nil
	}
	status := p.polls[p.pollCalls]
	p.pollCalls++
	return status, nil
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

type testEnv struct {
	app       *handlers.App
	handler   http.Handler
	transient *fakeUploader
	catalog   *fakeUploader
	repo      *memRepo
}

func newTestEnv(t *testing.T, provider faceswap.Provider) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := &memRepo{}
	if _, err := repo.Create(context.Background(), &domain.CatalogItem{
		Name:     "Silver Bob",
		Category: "Bob",
		ImageURL: "https://cdn.example.com/styles/bob.jpg",
	}); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	orch := faceswap.NewOrchestrator(faceswap.OrchestratorOptions{
		Provider: provider,
		Interval: time.Millisecond,
		MaxPolls: 10,
		Clock: func(time.Duration) <-chan time.Time {
			ch := make(chan time.Time, 1)
			ch <- time.Time{}
			return ch
		},
		Logger: zerolog.Nop(),
	})
	catalogCache := cache.NewCatalogCache(client, time.Minute)
	svc := tryon.NewService(tryon.ServiceOptions{
		Orchestrator: orch,
		Repo:         repo,
		CatalogCache: catalogCache,
		Recents:      cache.NewRecentsStore(client, 12),
		Store:        store,
		Watermark:    watermark.Options{Text: "Tokitos Wigs"},
		Logger:       zerolog.Nop(),
	})

	transient := &fakeUploader{res: upload.Result{Success: true, URL: "https://i.ibb.co/abc/upload.jpg"}}
	catalogUp := &fakeUploader{res: upload.Result{Success: true, URL: "https://iili.io/xyz.jpg"}}
	app := &handlers.App{
		Log:                   zerolog.Nop(),
		Tryon:                 svc,
		TransientUploads:      transient,
		CatalogUploads:        catalogUp,
		Repo:                  repo,
		CatalogCache:          catalogCache,
		MaxUploadBytes:        10 << 20,
		MaxCatalogUploadBytes: 32 << 20,
		ProviderMaxDimension:  2048,
		RecentsLimit:          12,
	}
	handler := httpapi.NewRouter(app, httpapi.RouterOptions{
		Logger:   zerolog.Nop(),
		AdminKey: "secret",
	})
	return &testEnv{app: app, handler: handler, transient: transient, catalog: catalogUp, repo: repo}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
}

func TestUploadsCreateBase64(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	payload := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(testJPEG(t, 32, 32))
	body, _ := json.Marshal(map[string]string{"image_base64": payload})

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	var res upload.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !res.Success || res.URL == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(env.transient.last.Raw) == 0 {
		t.Fatal("gateway did not receive raw bytes")
	}
}

func TestUploadsCreateRemoteURL(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	body, _ := json.Marshal(map[string]string{"image_url": "https://example.com/me.jpg"})
	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	if env.transient.last.RemoteURL != "https://example.com/me.jpg" {
		t.Fatalf("gateway got %+v", env.transient.last)
	}
}

func TestUploadsCreateRejectsJunk(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})

	body, _ := json.Marshal(map[string]string{"image_base64": "!!not-base64!!"})
	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if rec := env.do(t, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad base64: got %d", rec.Code)
	}

	body, _ = json.Marshal(map[string]string{})
	req = httptest.NewRequest(http.MethodPost, "/v1/uploads", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if rec := env.do(t, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty payload: got %d", rec.Code)
	}

	// Valid base64 of bytes that are not an image.
	body, _ = json.Marshal(map[string]string{
		"image_base64": base64.StdEncoding.EncodeToString([]byte("plain text")),
	})
	req = httptest.NewRequest(http.MethodPost, "/v1/uploads", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if rec := env.do(t, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("non-image bytes: got %d", rec.Code)
	}
}

func TestUploadsCreateMultipart(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "me.jpg")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(testJPEG(t, 48, 48)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	if env.transient.last.Filename != "me.jpg" {
		t.Fatalf("filename not forwarded: %+v", env.transient.last)
	}
}

func TestTryonLifecycle(t *testing.T) {
	composite := testJPEG(t, 64, 48)
	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(composite)
	}))
	defer imgSrv.Close()

	env := newTestEnv(t, &stubProvider{polls: []faceswap.Status{
		{Kind: faceswap.StatusProcessing, Progress: 50},
		{Kind: faceswap.StatusCompleted, Progress: 100, ResultURL: imgSrv.URL + "/out.jpg"},
	}})

	body, _ := json.Marshal(map[string]string{
		"subject_url": "https://i.ibb.co/abc/me.jpg",
		"style_id":    "style-1",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/tryon", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(t, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start: got %d: %s", rec.Code, rec.Body.String())
	}
	var started tryon.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	if started.ID == "" {
		t.Fatal("missing job_id")
	}

	var final tryon.Snapshot
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec = env.do(t, httptest.NewRequest(http.MethodGet, "/v1/tryon/"+started.ID, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d", rec.Code)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &final); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if final.State.Terminal() {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if final.State != tryon.StateCompleted {
		t.Fatalf("job did not complete: %+v", final)
	}

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/v1/tryon/"+started.ID+"/result", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("result: got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("result content type %q", ct)
	}
	if _, err := jpeg.Decode(bytes.NewReader(rec.Body.Bytes())); err != nil {
		t.Fatalf("result is not a jpeg: %v", err)
	}

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/v1/recents", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("recents: got %d", rec.Code)
	}
	var recents struct {
		Results []domain.RecentResult `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &recents); err != nil {
		t.Fatalf("decode recents: %v", err)
	}
	if len(recents.Results) != 1 || recents.Results[0].ID != started.ID {
		t.Fatalf("unexpected recents %+v", recents.Results)
	}
}

func TestTryonStartValidation(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})

	req := httptest.NewRequest(http.MethodPost, "/v1/tryon", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	if rec := env.do(t, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: got %d", rec.Code)
	}

	body, _ := json.Marshal(map[string]string{"subject_url": "https://x/me.jpg", "style_id": "nope"})
	req = httptest.NewRequest(http.MethodPost, "/v1/tryon", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if rec := env.do(t, req); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown style: got %d", rec.Code)
	}

	if rec := env.do(t, httptest.NewRequest(http.MethodGet, "/v1/tryon/unknown", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown job: got %d", rec.Code)
	}
}

func TestTryonResultNotReady(t *testing.T) {
	env := newTestEnv(t, &stubProvider{polls: []faceswap.Status{
		{Kind: faceswap.StatusFailed, Err: "No face detected in your photo. Please upload a clear photo showing your face."},
	}})
	body, _ := json.Marshal(map[string]string{"subject_url": "https://x/me.jpg", "style_id": "style-1"})
	req := httptest.NewRequest(http.MethodPost, "/v1/tryon", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(t, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start: got %d", rec.Code)
	}
	var started tryon.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := env.app.Tryon.Status(started.ID)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if snap.State.Terminal() {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/v1/tryon/"+started.ID+"/result", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("result on failed job: got %d", rec.Code)
	}
}

func TestCatalogAdminGate(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})

	if rec := env.do(t, httptest.NewRequest(http.MethodGet, "/v1/catalog/", nil)); rec.Code != http.StatusOK {
		t.Fatalf("public list: got %d", rec.Code)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("name", "Wavy Long")
	mw.WriteField("category", "long hair")
	fw, _ := mw.CreateFormFile("image", "wavy.jpg")
	fw.Write(testJPEG(t, 40, 40))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/catalog/", bytes.NewReader(buf.Bytes()))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if rec := env.do(t, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("create without key: got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/catalog/", bytes.NewReader(buf.Bytes()))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Admin-Key", "secret")
	rec := env.do(t, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create with key: got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.CatalogItem
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.Category != "Long Hair" {
		t.Fatalf("category not normalized: %q", created.Category)
	}
	if created.ImageURL != "https://iili.io/xyz.jpg" {
		t.Fatalf("image url not taken from gateway: %q", created.ImageURL)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/catalog/"+created.ID, nil)
	req.Header.Set("X-Admin-Key", "secret")
	if rec := env.do(t, req); rec.Code != http.StatusOK {
		t.Fatalf("delete: got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/catalog/"+created.ID, nil)
	req.Header.Set("X-Admin-Key", "secret")
	if rec := env.do(t, req); rec.Code != http.StatusNotFound {
		t.Fatalf("delete again: got %d", rec.Code)
	}
}

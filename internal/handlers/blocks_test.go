package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/trowebvideo/backend/internal/embed"
	"github.com/trowebvideo/backend/internal/models"
	"github.com/trowebvideo/backend/internal/repositories"
	"github.com/trowebvideo/backend/internal/watch"
)

type inMemoryBlockStore struct {
	mu     sync.Mutex
	blocks map[string]models.Block
}

func newInMemoryBlockStore(blocks ...models.Block) *inMemoryBlockStore {
	s := &inMemoryBlockStore{blocks: make(map[string]models.Block)}
	for _, b := range blocks {
		s.blocks[b.ID] = b
	}
	return s
}

func (s *inMemoryBlockStore) Save(_ context.Context, block models.Block) (models.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.blocks[block.ID]; ok {
		block.CreatedAt = existing.CreatedAt
	}
	s.blocks[block.ID] = block
	return block, nil
}

func (s *inMemoryBlockStore) Find(_ context.Context, id string) (models.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	block, ok := s.blocks[id]
	if !ok {
		return models.Block{}, repositories.ErrNotFound
	}
	return block, nil
}

func (s *inMemoryBlockStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocks[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.blocks, id)
	return nil
}

type resolverStub struct {
	result embed.Result
	refs   []embed.VideoReference
}

func (s *resolverStub) Resolve(_ context.Context, ref embed.VideoReference) embed.Result {
	s.refs = append(s.refs, ref)
	return s.result
}

type denyLimiter struct{}

func (denyLimiter) Allow(string) bool { return false }

type failingBlockStore struct {
	inMemoryBlockStore
	err error
}

func (s *failingBlockStore) Find(context.Context, string) (models.Block, error) {
	return models.Block{}, s.err
}

func newTestMux(deps Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	RegisterRoutes(mux, deps)
	return mux
}

func serve(mux http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func vimeoBlock() models.Block {
	return models.Block{
		ID:        "block-1",
		SourceURL: "https://vimeo.com/46100581",
		MaxWidth:  800,
		MaxHeight: 450,
	}
}

func TestBlockHandlerConfigureDefaults(t *testing.T) {
	store := newInMemoryBlockStore()
	now := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	handler := BlockHandler{Blocks: store, NowFunc: func() time.Time { return now }}
	mux.HandleFunc("/api/v1/blocks/{id}", handler.Handle)

	body := bytes.NewBufferString(`{"sourceUrl":" https://vimeo.com/46100581 "}`)
	rec := serve(mux, httptest.NewRequest(http.MethodPut, "/api/v1/blocks/block-1", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusOK)
	}

	saved := store.blocks["block-1"]
	if saved.SourceURL != "https://vimeo.com/46100581" {
		t.Fatalf("unexpected source url %q", saved.SourceURL)
	}
	if saved.MaxWidth != embed.DefaultMaxWidth || saved.MaxHeight != embed.DefaultMaxHeight {
		t.Fatalf("expected default sizes got %dx%d", saved.MaxWidth, saved.MaxHeight)
	}
	if !saved.CreatedAt.Equal(now) {
		t.Fatalf("unexpected created at %v", saved.CreatedAt)
	}

	var resp blockResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Block.ID != "block-1" {
		t.Fatalf("unexpected response block %+v", resp.Block)
	}
}

func TestBlockHandlerConfigureExplicitSizes(t *testing.T) {
	store := newInMemoryBlockStore()
	mux := newTestMux(Dependencies{Blocks: store})

	body := bytes.NewBufferString(`{"sourceUrl":"https://vimeo.com/1","maxWidth":640,"maxHeight":0}`)
	rec := serve(mux, httptest.NewRequest(http.MethodPut, "/api/v1/blocks/b", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if got := store.blocks["b"]; got.MaxWidth != 640 || got.MaxHeight != 0 {
		t.Fatalf("unexpected sizes %dx%d", got.MaxWidth, got.MaxHeight)
	}
}

func TestBlockHandlerConfigureValidation(t *testing.T) {
	mux := newTestMux(Dependencies{Blocks: newInMemoryBlockStore()})

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{`},
		{name: "negative width", body: `{"sourceUrl":"https://vimeo.com/1","maxWidth":-1}`},
		{name: "negative height", body: `{"sourceUrl":"https://vimeo.com/1","maxHeight":-1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(mux, httptest.NewRequest(http.MethodPut, "/api/v1/blocks/b", bytes.NewBufferString(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestBlockHandlerGetAndDelete(t *testing.T) {
	store := newInMemoryBlockStore(vimeoBlock())
	mux := newTestMux(Dependencies{Blocks: store})

	rec := serve(mux, httptest.NewRequest(http.MethodGet, "/api/v1/blocks/block-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	rec = serve(mux, httptest.NewRequest(http.MethodDelete, "/api/v1/blocks/block-1", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected delete status %d", rec.Code)
	}

	rec = serve(mux, httptest.NewRequest(http.MethodGet, "/api/v1/blocks/block-1", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected not found after delete got %d", rec.Code)
	}

	rec = serve(mux, httptest.NewRequest(http.MethodDelete, "/api/v1/blocks/block-1", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected not found on second delete got %d", rec.Code)
	}

	rec = serve(mux, httptest.NewRequest(http.MethodPatch, "/api/v1/blocks/block-1", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected method not allowed got %d", rec.Code)
	}
}

func TestBlockHandlerMissingDeps(t *testing.T) {
	mux := newTestMux(Dependencies{})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/v1/blocks/b", nil),
		httptest.NewRequest(http.MethodPut, "/api/v1/blocks/b", bytes.NewBufferString(`{}`)),
		httptest.NewRequest(http.MethodGet, "/api/v1/blocks/b/view", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/blocks/b/watched", bytes.NewBufferString(`{"watched":true}`)),
	} {
		if rec := serve(mux, req); rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s %s: unexpected status %d", req.Method, req.URL.Path, rec.Code)
		}
	}
}

func TestBlockHandlerViewEmbedded(t *testing.T) {
	markup := `<iframe src="https://player.vimeo.com/video/46100581" width="800" height="450"></iframe>`
	resolver := &resolverStub{result: embed.Embedded("vimeo.com", markup)}
	mux := newTestMux(Dependencies{Blocks: newInMemoryBlockStore(vimeoBlock()), Resolver: resolver})

	rec := serve(mux, httptest.NewRequest(http.MethodGet, "/api/v1/blocks/block-1/view", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}

	if len(resolver.refs) != 1 {
		t.Fatalf("expected one resolution got %d", len(resolver.refs))
	}
	want := embed.VideoReference{SourceURL: "https://vimeo.com/46100581", MaxWidth: 800, MaxHeight: 450}
	if resolver.refs[0] != want {
		t.Fatalf("unexpected reference %+v", resolver.refs[0])
	}

	if !strings.Contains(rec.Body.String(), markup) {
		t.Fatalf("markup was not passed through verbatim: %s", rec.Body.String())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rec.Body.String()))
	if err != nil {
		t.Fatalf("parse fragment: %v", err)
	}
	block := doc.Find("div.trowebvideo_block")
	if block.Length() != 1 {
		t.Fatalf("expected one block wrapper got %d", block.Length())
	}
	if id, _ := block.Attr("data-block-id"); id != "block-1" {
		t.Fatalf("unexpected block id attr %q", id)
	}
	if status, _ := block.Attr("data-status"); status != "embedded" {
		t.Fatalf("unexpected status attr %q", status)
	}
	if src, _ := doc.Find(".trowebvideo-embed iframe").Attr("src"); src != "https://player.vimeo.com/video/46100581" {
		t.Fatalf("unexpected iframe src %q", src)
	}
	if doc.Find(".trowebvideo-message").Length() != 0 {
		t.Fatal("embedded view must not render a message")
	}
}

func TestBlockHandlerViewFailuresRenderMessages(t *testing.T) {
	tests := []struct {
		name   string
		result embed.Result
		want   string
	}{
		{name: "no url", result: embed.Unsupported(""), want: "No video URL configured"},
		{name: "unsupported", result: embed.Unsupported("www.youtube.com"), want: "Unsupported video provider (www.youtube.com)"},
		{name: "provider error", result: embed.ProviderError("vimeo.com", embed.FailureBadStatus, "provider returned status 500 Internal Server Error"), want: "Error getting video from provider (provider returned status 500 Internal Server Error)"},
		{name: "escaped", result: embed.Unsupported("<script>alert(1)</script>"), want: "Unsupported video provider (<script>alert(1)</script>)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(Dependencies{Blocks: newInMemoryBlockStore(vimeoBlock()), Resolver: &resolverStub{result: tt.result}})

			rec := serve(mux, httptest.NewRequest(http.MethodGet, "/api/v1/blocks/block-1/view", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("unexpected status %d", rec.Code)
			}

			doc, err := goquery.NewDocumentFromReader(strings.NewReader(rec.Body.String()))
			if err != nil {
				t.Fatalf("parse fragment: %v", err)
			}
			if got := doc.Find("p.trowebvideo-message").Text(); got != tt.want {
				t.Fatalf("message = %q want %q", got, tt.want)
			}
			if doc.Find("script").Length() != 0 || doc.Find("iframe").Length() != 0 {
				t.Fatalf("failure view rendered active content: %s", rec.Body.String())
			}
		})
	}
}

func TestBlockHandlerViewNotFoundAndRateLimited(t *testing.T) {
	resolver := &resolverStub{result: embed.Unsupported("")}
	mux := newTestMux(Dependencies{Blocks: newInMemoryBlockStore(), Resolver: resolver})

	if rec := serve(mux, httptest.NewRequest(http.MethodGet, "/api/v1/blocks/missing/view", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("expected not found got %d", rec.Code)
	}

	limited := newTestMux(Dependencies{Blocks: newInMemoryBlockStore(vimeoBlock()), Resolver: resolver, ViewLimiter: denyLimiter{}})
	if rec := serve(limited, httptest.NewRequest(http.MethodGet, "/api/v1/blocks/block-1/view", nil)); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected too many requests got %d", rec.Code)
	}
	if len(resolver.refs) != 0 {
		t.Fatalf("resolver must not be called for rejected requests, got %d calls", len(resolver.refs))
	}

	if rec := serve(mux, httptest.NewRequest(http.MethodPost, "/api/v1/blocks/block-1/view", nil)); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected method not allowed got %d", rec.Code)
	}
}

func TestBlockHandlerViewStoreError(t *testing.T) {
	store := &failingBlockStore{err: errors.New("db down")}
	mux := newTestMux(Dependencies{Blocks: store, Resolver: &resolverStub{}})

	if rec := serve(mux, httptest.NewRequest(http.MethodGet, "/api/v1/blocks/b/view", nil)); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected internal error got %d", rec.Code)
	}
}

func TestBlockHandlerWatched(t *testing.T) {
	mux := newTestMux(Dependencies{
		Blocks:  newInMemoryBlockStore(vimeoBlock()),
		Watches: watch.NewTracker(watch.NewInMemoryStore()),
	})

	send := func(body string, viewer string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/blocks/block-1/watched", bytes.NewBufferString(body))
		if viewer != "" {
			req.Header.Set(ViewerHeader, viewer)
		}
		return serve(mux, req)
	}

	decode := func(rec *httptest.ResponseRecorder) int {
		t.Helper()
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
		}
		var resp watchedResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return resp.WatchedCount
	}

	if got := decode(send(`{"watched":true}`, "viewer-1")); got != 1 {
		t.Fatalf("expected count 1 got %d", got)
	}
	if got := decode(send(`{"watched":true}`, "viewer-1")); got != 2 {
		t.Fatalf("expected count 2 got %d", got)
	}
	if got := decode(send(`{"watched":false}`, "viewer-1")); got != 2 {
		t.Fatalf("unwatched signal changed count to %d", got)
	}
	if got := decode(send(`{}`, "viewer-1")); got != 2 {
		t.Fatalf("empty signal changed count to %d", got)
	}
	if got := decode(send(`{"watched":false}`, "viewer-2")); got != 0 {
		t.Fatalf("expected fresh viewer at 0 got %d", got)
	}

	if rec := send(`{"watched":true}`, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request without viewer got %d", rec.Code)
	}
	if rec := send(`nope`, "viewer-1"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request for invalid body got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/blocks/missing/watched", bytes.NewBufferString(`{"watched":true}`))
	req.Header.Set(ViewerHeader, "viewer-1")
	if rec := serve(mux, req); rec.Code != http.StatusNotFound {
		t.Fatalf("expected not found got %d", rec.Code)
	}

	if rec := serve(mux, httptest.NewRequest(http.MethodGet, "/api/v1/blocks/block-1/watched", nil)); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected method not allowed got %d", rec.Code)
	}
}

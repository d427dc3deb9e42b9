//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tekstlab/interlink/internal/api/handlers"
	"github.com/tekstlab/interlink/internal/config"
	"github.com/tekstlab/interlink/internal/contentsource"
	"github.com/tekstlab/interlink/internal/pipeline"
	"github.com/tekstlab/interlink/internal/repository"
	"github.com/tekstlab/interlink/internal/server"
	"github.com/tekstlab/interlink/internal/service"
	"github.com/tekstlab/interlink/internal/testutil"
)

const testAPIToken = "e2e-test-token"

// vectorDim matches the embeddings column width.
const vectorDim = 1536

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ContentSrv   *httptest.Server
	ServerURL    string
	ServerCloser func()
	HTTPClient   *http.Client
}

// fakeDoc is one document served by the fake content source.
type fakeDoc struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	Categories  []string `json:"categories"`
	ContentHash string   `json:"content_hash"`
	Permalink   string   `json:"permalink"`
}

// corpusDocs is a small Polish corpus with one obvious match pair (both
// mortgage articles, same category) and one unrelated cooking article.
func corpusDocs() []fakeDoc {
	return []fakeDoc{
		{
			ID:    1,
			Title: "Jak wybrać kredyt hipoteczny",
			Body: "Zanim podpiszesz umowę, porównaj dostępne oferty banków. " +
				"Kredyt hipoteczny wymaga starannego planowania budżetu domowego. " +
				"Dobry kalkulator kredytowy pomoże ocenić wysokość miesięcznej raty.",
			Categories:  []string{"finanse"},
			ContentHash: "hash-doc-1",
			Permalink:   "https://example.pl/jak-wybrac-kredyt",
		},
		{
			ID:    2,
			Title: "Kredyt hipoteczny krok po kroku",
			Body: "Kredyt hipoteczny to zobowiązanie na wiele lat. " +
				"Bank oceni twoją zdolność przed podpisaniem umowy.",
			Categories:  []string{"finanse"},
			ContentHash: "hash-doc-2",
			Permalink:   "https://example.pl/kredyt-hipoteczny",
		},
		{
			ID:    3,
			Title: "Przepis na ciasto drożdżowe",
			Body: "Przepis kulinarny na puszyste ciasto drożdżowe. " +
				"Wyrabiaj ciasto aż będzie gładkie i elastyczne.",
			Categories:  []string{"kuchnia"},
			ContentHash: "hash-doc-3",
			Permalink:   "https://example.pl/ciasto-drozdzowe",
		},
	}
}

// newContentServer serves the fake corpus over the content source wire
// format: an id-ordered /documents listing and per-document detail.
func newContentServer(docs []fakeDoc) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/documents", func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if limit <= 0 {
			limit = len(docs)
		}

		type ref struct {
			ID          int64  `json:"id"`
			ContentHash string `json:"content_hash"`
		}
		page := []ref{}
		for i := offset; i < len(docs) && len(page) < limit; i++ {
			page = append(page, ref{ID: docs[i].ID, ContentHash: docs[i].ContentHash})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"documents": page})
	})

	mux.HandleFunc("/documents/", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/documents/"), 10, 64)
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		for _, d := range docs {
			if d.ID == id {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(d)
				return
			}
		}
		http.Error(w, "not found", http.StatusNotFound)
	})

	return httptest.NewServer(mux)
}

// topicStems drive the deterministic stub embedder: each stem owns one
// vector dimension, so texts sharing stems score high cosine similarity
// and unrelated texts score zero.
var topicStems = []string{"kredyt", "hipoteczn", "kalkulator", "przepis", "kulinarn", "ciasto"}

// stubEmbedder is a deterministic EmbeddingProvider for tests.
type stubEmbedder struct{}

func (stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, vectorDim)
		lower := strings.ToLower(text)
		for dim, stem := range topicStems {
			if strings.Contains(lower, stem) {
				vec[dim] = 1
			}
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// testSettings uses production defaults except a two-word anchor minimum,
// which the short test corpus needs.
func testSettings() config.Settings {
	return config.Settings{
		SimilarityThreshold:   0.75,
		CustomTargetThreshold: 0.65,
		ClusterThreshold:      0.75,
		MaxLinksPerSource:     10,
		MaxLinksPerTargetURL:  10,
		MinAnchorWords:        2,
		MaxAnchorWords:        6,
		SameCategoryOnly:      true,
		IndexPageSize:         20,
		MatchPageSize:         10,
		FilterPageSize:        25,
		MaxPendingCandidates:  500,
		MaxClusters:           2000,
		ProgressTTL:           time.Hour,
	}
}

// SetupE2EEnv starts a pgvector container, a fake content source, and the
// full HTTP server wired the way serve does it, with a stub embedder in
// place of the real provider.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	contentSrv := newContentServer(corpusDocs())

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, contentSrv.URL, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		ContentSrv:   contentSrv,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.ContentSrv != nil {
		e.ContentSrv.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// RunPipeline starts a run and ticks it to completion, failing the test if
// it does not finish within maxTicks.
func (e *E2ETestEnv) RunPipeline(maxTicks int) {
	e.T.Helper()

	if _, err := e.Post("/v1/pipeline/start", nil, testAPIToken); err != nil {
		e.T.Fatalf("failed to start pipeline: %v", err)
	}

	for i := 0; i < maxTicks; i++ {
		resp, err := e.Post("/v1/pipeline/tick", nil, testAPIToken)
		if err != nil {
			e.T.Fatalf("tick %d failed: %v", i, err)
		}
		var tick struct {
			Done       bool `json:"done"`
			Retry      bool `json:"retry"`
			RetryAfter int  `json:"retry_after_seconds"`
		}
		if err := json.Unmarshal(resp.Data, &tick); err != nil {
			e.T.Fatalf("failed to parse tick response: %v", err)
		}
		if tick.Done {
			return
		}
		if tick.Retry {
			time.Sleep(time.Duration(tick.RetryAfter) * time.Second)
		}
	}
	e.T.Fatalf("pipeline did not complete within %d ticks", maxTicks)
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path, authToken string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// startServer wires the full stack against the fake content source and
// stub embedder, then serves it on the given port.
func startServer(t *testing.T, pool *pgxpool.Pool, contentURL string, port int) (string, func()) {
	settings := testSettings()
	provider := stubEmbedder{}

	source := contentsource.NewHTTPClient(contentURL, "")

	embeddingRepo := repository.NewEmbeddingRepository(pool)
	customRepo := repository.NewCustomTargetRepository(pool)
	linkRepo := repository.NewLinkRepository(pool)
	blacklistRepo := repository.NewBlacklistRepository(pool)
	runRepo := repository.NewRunRepository(pool)
	store := repository.NewProgressStore(pool)

	registry := service.NewClusterRegistry(settings.ClusterThreshold, settings.MaxClusters)
	indexer := service.NewIndexer(source, embeddingRepo, customRepo, provider, settings)
	matcher := service.NewMatcher(linkRepo, blacklistRepo, source, registry, provider, settings, false)
	reporter := service.NewReporter(runRepo, nil)

	orchestrator := pipeline.NewOrchestrator(
		store, indexer, matcher, registry,
		linkRepo, embeddingRepo, customRepo,
		nil, provider, reporter, settings,
	)

	router := server.NewRouter(server.RouterConfig{
		APIToken:        testAPIToken,
		PipelineHandler: handlers.NewPipelineHandler(orchestrator),
		LinkHandler:     handlers.NewLinkHandler(linkRepo, blacklistRepo),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

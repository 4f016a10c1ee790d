package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"NewsLens/internal/config"
	"NewsLens/internal/domain"
	"NewsLens/internal/infrastructure/storage"
	"NewsLens/internal/ranking"
	"NewsLens/internal/topics"
	"NewsLens/internal/usecase"
)

type staticResolver struct{}

func (staticResolver) Resolve(_ context.Context, tag string) domain.Resolution {
	surface := topics.Normalize(tag)
	if surface == "ai" {
		return domain.Resolution{Canonical: "artificial intelligence", Family: "technology", Confidence: 0.9}
	}
	return domain.Resolution{Canonical: surface, Family: surface, Confidence: 0.3}
}

func (r staticResolver) ResolveBatch(ctx context.Context, tags []domain.TopicTag) []domain.TopicTag {
	out := make([]domain.TopicTag, 0, len(tags))
	for _, t := range tags {
		res := r.Resolve(ctx, t.Tag)
		out = append(out, domain.TopicTag{Tag: res.Canonical, Score: t.Score, Family: res.Family})
	}
	return out
}

func newTestServer(t *testing.T) (*httptest.Server, *storage.Store) {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "api.db") + "?_foreign_keys=on"
	store, err := storage.Open(context.Background(), "sqlite3", dsn)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := ranking.NewEngine(ranking.DefaultWeights(), ranking.DefaultDiversityConfig())
	srv := NewServer(Deps{
		Catalog:  usecase.NewCatalog(store, store, logger),
		Ranking:  usecase.NewRanking(usecase.RankingDeps{Items: store, Users: store, Feedback: store, Engine: engine, Logger: logger}, usecase.RankingOptions{DefaultLimit: 5}),
		Feedback: usecase.NewFeedback(store, store),
		Profiles: usecase.NewProfiles(store, staticResolver{}, logger),
		Topics:   staticResolver{},
		Health:   store,
		Logger:   logger,
	}, config.ServerConfig{})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func do(t *testing.T, method, url, body string) (*http.Response, Response) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var env Response
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
	}
	return resp, env
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)

	resp, env := do(t, http.MethodGet, ts.URL+"/healthz", "")
	if resp.StatusCode != http.StatusOK || env.Status != "ok" {
		t.Fatalf("healthz = %d %+v", resp.StatusCode, env)
	}

	mresp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer mresp.Body.Close()
	if mresp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status %d", mresp.StatusCode)
	}
}

func TestItemsDigestAndFeedback(t *testing.T) {
	t.Parallel()

	ts, store := newTestServer(t)
	published := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)

	resp, env := do(t, http.MethodPost, ts.URL+"/items",
		`{"id":"n1","title":"Chip export rules","url":"https://example.org/n1","published_at":"`+published+`"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add item = %d %+v", resp.StatusCode, env)
	}
	if resp, _ := do(t, http.MethodPost, ts.URL+"/items", `{"title":""}`); resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("invalid item status %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodPost, ts.URL+"/items", `{`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed item status %d", resp.StatusCode)
	}
	if _, err := store.GetItem(context.Background(), "n1"); err != nil {
		t.Fatalf("item not stored: %v", err)
	}

	resp, env = do(t, http.MethodGet, ts.URL+"/users/1/digest?limit=3", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("digest = %d %+v", resp.StatusCode, env)
	}
	raw, _ := json.Marshal(env.Data)
	var digest digestResponse
	if err := json.Unmarshal(raw, &digest); err != nil {
		t.Fatalf("decode digest: %v", err)
	}
	if len(digest.Items) != 1 || digest.Items[0].ItemID != "n1" || digest.Items[0].URL != "https://example.org/n1" {
		t.Fatalf("unexpected digest %+v", digest)
	}

	resp, env = do(t, http.MethodGet, ts.URL+"/users/1/digest?limit=68719476736", "")
	if resp.StatusCode != http.StatusBadRequest || env.Error == nil || env.Error.Code != "INVALID_LIMIT" {
		t.Fatalf("oversized limit = %d %+v", resp.StatusCode, env)
	}

	if resp, _ := do(t, http.MethodPut, ts.URL+"/users/1/feedback/n1", `{"vote":1}`); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("vote status %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodPut, ts.URL+"/users/1/feedback/n1", `{"vote":3}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid vote status %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodPut, ts.URL+"/users/1/feedback/missing", `{"vote":1}`); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing item status %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodDelete, ts.URL+"/users/1/feedback/n1", ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("undo status %d", resp.StatusCode)
	}

	if resp, _ := do(t, http.MethodPut, ts.URL+"/users/1/pause", `{"paused":true}`); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("pause status %d", resp.StatusCode)
	}
	resp, env = do(t, http.MethodGet, ts.URL+"/users/1/digest", "")
	if resp.StatusCode != http.StatusConflict || env.Error == nil || env.Error.Code != "USER_PAUSED" {
		t.Fatalf("paused digest = %d %+v", resp.StatusCode, env)
	}

	if resp, _ := do(t, http.MethodGet, ts.URL+"/users/abc/digest", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad user id status %d", resp.StatusCode)
	}
}

func TestProfileFormats(t *testing.T) {
	t.Parallel()

	ts, store := newTestServer(t)
	ctx := context.Background()

	resp, env := do(t, http.MethodPut, ts.URL+"/users/7/profile", `{"topics":[{"tag":"AI","weight":0.8}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("strict profile = %d %+v", resp.StatusCode, env)
	}
	u, err := store.GetUser(ctx, 7)
	if err != nil || len(u.Interests.Topics) != 1 || u.Interests.Topics[0].Tag != "artificial intelligence" {
		t.Fatalf("stored profile = %+v, %v", u, err)
	}

	if resp, _ := do(t, http.MethodPut, ts.URL+"/users/7/profile", `{"topics":[{"tag":"ai","weight":0.8,"extra":1}]}`); resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unknown field status %d", resp.StatusCode)
	}

	resp, _ = do(t, http.MethodPut, ts.URL+"/users/7/profile?format=legacy", `{"interests":[{"name":"Economy","aliases":["markets"]}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("legacy profile status %d", resp.StatusCode)
	}
	u, _ = store.GetUser(ctx, 7)
	if len(u.Interests.Topics) != 1 || u.Interests.Topics[0].Tag != "economy" || u.Interests.Topics[0].Weight != 0.6 {
		t.Fatalf("legacy profile stored as %+v", u.Interests)
	}

	resp, _ = do(t, http.MethodPut, ts.URL+"/users/7/profile?format=tags", `{"tags":["sports","ai"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("tag profile status %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodPut, ts.URL+"/users/7/profile?format=xml", `{}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown format status %d", resp.StatusCode)
	}

	resp, env = do(t, http.MethodGet, ts.URL+"/users/7/profile", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get profile = %d %+v", resp.StatusCode, env)
	}

	for _, body := range []string{`{"I":0.5,"H":0.1,"P":0.1,"N":0.1,"Q":2}`, `{"I":0.5,"H":-0.1}`} {
		if resp, _ := do(t, http.MethodPut, ts.URL+"/users/7/weights", body); resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("weights %s status %d", body, resp.StatusCode)
		}
	}
	if resp, _ := do(t, http.MethodPut, ts.URL+"/users/7/weights", `{"I":0.4,"H":0.1,"P":0.2,"N":0.1,"Q":0.2}`); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("valid weights status %d", resp.StatusCode)
	}
	if u, _ := store.GetUser(ctx, 7); u.Weights.Importance != 0.4 || u.Weights.Prominence != 0.2 {
		t.Fatalf("weights stored as %+v", u.Weights)
	}
	if resp, _ := do(t, http.MethodDelete, ts.URL+"/users/7/profile", ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear status %d", resp.StatusCode)
	}
	if u, _ := store.GetUser(ctx, 7); !u.Interests.Empty() {
		t.Fatalf("profile not cleared: %+v", u.Interests)
	}
}

func TestResolveTopic(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)

	resp, env := do(t, http.MethodGet, ts.URL+"/topics/resolve?tag=%23AI", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resolve = %d %+v", resp.StatusCode, env)
	}
	data, _ := env.Data.(map[string]any)
	if data["canonical"] != "artificial intelligence" || data["family"] != "technology" {
		t.Fatalf("unexpected resolution %+v", env.Data)
	}

	if resp, _ := do(t, http.MethodGet, ts.URL+"/topics/resolve", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing tag status %d", resp.StatusCode)
	}
}

func TestRateLimitByIP(t *testing.T) {
	t.Parallel()

	srv := NewServer(Deps{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))},
		config.ServerConfig{RateLimitRequests: 1, RateLimitWindow: time.Minute})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	if resp, _ := do(t, http.MethodGet, ts.URL+"/healthz", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("first request status %d", resp.StatusCode)
	}
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request status %d, want 429", resp.StatusCode)
	}
}

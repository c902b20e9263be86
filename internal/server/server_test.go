package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"srclens.dev/pkg/srclens/internal/adapter"
	"srclens.dev/pkg/srclens/internal/domain"
)

type fakeLauncher struct {
	mu   sync.Mutex
	uris []string
	err  error
}

func (f *fakeLauncher) Launch(_ context.Context, uri string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.uris = append(f.uris, uri)

	return "", f.err
}

func (f *fakeLauncher) launched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.uris...)
}

func newTestHandler(t *testing.T, launcher adapter.EditorLauncher) *Handler {
	t.Helper()

	h, err := NewHandler(Options{
		Annotator: domain.NewAnnotator(adapter.NewTreeSitterMarkupAdapter()),
		Resolver:  domain.NewResolver(nil),
		Formatter: domain.NewEditorFormatter(domain.EditorOptions{
			Editor:      "vscode",
			ProjectRoot: "/p",
			Getenv:      func(string) string { return "" },
		}),
		Launcher:  launcher,
		CacheSize: 8,
	})
	require.NoError(t, err)

	return h
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func TestNewHandler_RequiresCollaborators(t *testing.T) {
	_, err := NewHandler(Options{})
	assert.Error(t, err)
}

func TestHandleTransform(t *testing.T) {
	mux := NewMux(newTestHandler(t, nil))
	req := transformRequest{Filename: "/p/src/App.jsx", Code: "const A = () => <div>hi</div>;\n"}

	rec := postJSON(t, mux, "/transform", req)
	require.Equal(t, http.StatusOK, rec.Code)

	var first transformResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	assert.Equal(t, `const A = () => <div data-source-file="src/App.jsx" data-source-line="1">hi</div>;`+"\n", first.Code)
	assert.Equal(t, "src/App.jsx", first.File)
	assert.Equal(t, 1, first.Annotated)
	assert.True(t, first.Changed)
	assert.False(t, first.Cached)

	rec = postJSON(t, mux, "/transform", req)
	require.Equal(t, http.StatusOK, rec.Code)

	var second transformResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))

	assert.True(t, second.Cached)
	assert.Equal(t, first.Code, second.Code)
}

func TestHandleTransform_Passthrough(t *testing.T) {
	mux := NewMux(newTestHandler(t, nil))

	rec := postJSON(t, mux, "/transform", transformRequest{Filename: "styles.css", Code: "a { color: red }"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp transformResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "a { color: red }", resp.Code)
	assert.False(t, resp.Changed)
}

func TestHandleTransform_BadRequests(t *testing.T) {
	mux := NewMux(newTestHandler(t, nil))

	rec := postJSON(t, mux, "/transform", transformRequest{Code: "<div />"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/transform", bytes.NewBufferString("{"))
	bad := httptest.NewRecorder()
	mux.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	get := httptest.NewRecorder()
	mux.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/transform", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, get.Code)
}

func TestHandleResolve(t *testing.T) {
	annotated := map[string]any{
		"element": map[string]any{
			"tag":        "button",
			"attributes": map[string]string{"data-source-file": "src/App.jsx", "data-source-line": "3"},
		},
	}

	t.Run("found by attributes", func(t *testing.T) {
		mux := NewMux(newTestHandler(t, nil))

		rec := postJSON(t, mux, "/resolve", annotated)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp resolveResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		assert.True(t, resp.Resolution.Found)
		assert.Equal(t, "src/App.jsx:3", resp.Message)
		require.NotNil(t, resp.Link)
		assert.Equal(t, "vscode://file/p/src/App.jsx:3", resp.Link.URI)
	})

	t.Run("found through a fiber", func(t *testing.T) {
		mux := NewMux(newTestHandler(t, nil))

		rec := postJSON(t, mux, "/resolve", map[string]any{
			"element": map[string]any{
				"tag": "span",
				"properties": []map[string]any{
					{"key": "__reactFiber$abc", "value": map[string]any{
						"_debugSource": map[string]any{"fileName": "/p/src/B.jsx", "lineNumber": 7},
					}},
				},
			},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp resolveResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		assert.True(t, resp.Resolution.Found)
		require.NotNil(t, resp.Link)
		assert.Equal(t, "vscode://file/p/src/B.jsx:7", resp.Link.URI)
	})

	t.Run("not found", func(t *testing.T) {
		mux := NewMux(newTestHandler(t, nil))

		rec := postJSON(t, mux, "/resolve", map[string]any{"element": map[string]any{"tag": "div"}})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp resolveResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		assert.False(t, resp.Resolution.Found)
		assert.Equal(t, "Could not find React fiber node for this element", resp.Message)
		assert.Nil(t, resp.Link)
	})

	t.Run("missing element", func(t *testing.T) {
		mux := NewMux(newTestHandler(t, nil))

		rec := postJSON(t, mux, "/resolve", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("open without launcher", func(t *testing.T) {
		mux := NewMux(newTestHandler(t, nil))

		body := map[string]any{"element": annotated["element"], "open": true}
		rec := postJSON(t, mux, "/resolve", body)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("open with launcher", func(t *testing.T) {
		launcher := &fakeLauncher{}
		mux := NewMux(newTestHandler(t, launcher))

		body := map[string]any{"element": annotated["element"], "open": true}
		rec := postJSON(t, mux, "/resolve", body)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp resolveResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Opened)
		assert.Equal(t, []string{"vscode://file/p/src/App.jsx:3"}, launcher.launched())
	})

	t.Run("launch failure", func(t *testing.T) {
		mux := NewMux(newTestHandler(t, &fakeLauncher{err: errors.New("no opener")}))

		body := map[string]any{"element": annotated["element"], "open": true}
		rec := postJSON(t, mux, "/resolve", body)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestHealthzAndCORS(t *testing.T) {
	mux := NewMux(newTestHandler(t, nil))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:5173")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Body.String(), `"ok"`)

	preflight := httptest.NewRecorder()
	mux.ServeHTTP(preflight, httptest.NewRequest(http.MethodOptions, "/transform", nil))
	assert.Equal(t, http.StatusNoContent, preflight.Code)
	assert.Equal(t, "*", preflight.Header().Get("Access-Control-Allow-Origin"))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, cacheKey("a.jsx", "<b />"), cacheKey("a.jsx", "<b />"))
	assert.NotEqual(t, cacheKey("a.jsx", "<b />"), cacheKey("a.jsx<b />", ""))
}

package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// MIDDLEWARE AND ROUTING TEST SUITE
// ============================================================================

func TestMiddlewareAndRoutingSuite(t *testing.T) {
	t.Run("CORS", func(t *testing.T) {
		testCORS(t)
	})

	t.Run("URLRouting", func(t *testing.T) {
		testURLRouting(t)
	})

	t.Run("RequestHelpers", func(t *testing.T) {
		testRequestHelpers(t)
	})
}

func testCORS(t *testing.T) {
	cors := withCORS([]string{"http://127.0.0.1:5173"}, "http://localhost:3001")

	t.Run("CORS Headers Applied", func(t *testing.T) {
		called := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusTeapot)
		})

		req := httptest.NewRequest(http.MethodGet, "/anything", nil)
		req.Header.Set("Origin", "http://127.0.0.1:5173")
		w := httptest.NewRecorder()

		cors(handler).ServeHTTP(w, req)

		resp := w.Result()
		if resp.Header.Get("Access-Control-Allow-Origin") != "http://127.0.0.1:5173" {
			t.Errorf("missing or wrong CORS origin header: %v",
				resp.Header.Get("Access-Control-Allow-Origin"))
		}
		if !called {
			t.Error("expected wrapped handler to be called")
		}
		if resp.StatusCode != http.StatusTeapot {
			t.Errorf("expected status %d, got %d", http.StatusTeapot, resp.StatusCode)
		}
	})

	t.Run("Unknown origin gets the default", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/anything", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()

		cors(http.NotFoundHandler()).ServeHTTP(w, req)
		assert.Equal(t, "http://localhost:3001", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("OPTIONS Preflight", func(t *testing.T) {
		called := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		req := httptest.NewRequest(http.MethodOptions, "/deck", nil)
		w := httptest.NewRecorder()
		cors(handler).ServeHTTP(w, req)

		if called {
			t.Error("preflight should not reach the wrapped handler")
		}
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})
}

func testURLRouting(t *testing.T) {
	e := newTestEnv(t)

	t.Run("Health", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", decodeBody[map[string]string](t, w)["status"])
	})

	t.Run("Health reports an unreachable database", func(t *testing.T) {
		e.app.db = fakePinger{err: errors.New("dial tcp: refused")}
		defer func() { e.app.db = fakePinger{} }()

		w := e.do(t, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("Metrics are labelled by route pattern", func(t *testing.T) {
		e.do(t, http.MethodGet, "/profiles/12", "", nil)

		w := e.do(t, http.MethodGet, "/metrics", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `route="/profiles/{id}"`)
		assert.NotContains(t, w.Body.String(), `route="/profiles/12"`)
	})

	t.Run("Unknown route", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/recommendations", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Routes behind auth", func(t *testing.T) {
		for _, path := range []string{"/me", "/me/profile", "/deck", "/matches", "/profiles/1", "/chats/1/messages"} {
			w := e.do(t, http.MethodGet, path, "", nil)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("%s: expected status %d, got %d", path, http.StatusUnauthorized, w.Code)
			}
		}
	})

	t.Run("Request id header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-Id", "abc-123")
		w := httptest.NewRecorder()
		e.handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func testRequestHelpers(t *testing.T) {
	t.Run("decodeJSON rejects trailing data", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"dx": 1} {"dx": 2}`))
		var v releaseRequest
		assert.Error(t, decodeJSON(httptest.NewRecorder(), req, &v))
	})

	t.Run("decodeJSON accepts one object", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"dx": -120.5}`))
		var v releaseRequest
		require.NoError(t, decodeJSON(httptest.NewRecorder(), req, &v))
		require.NotNil(t, v.DX)
		assert.Equal(t, -120.5, *v.DX)
	})

	t.Run("pathID", func(t *testing.T) {
		cases := map[string]bool{"7": true, "0": false, "-3": false, "abc": false}
		for raw, valid := range cases {
			r := chi.NewRouter()
			var got int
			var ok bool
			r.Get("/u/{id}", func(w http.ResponseWriter, req *http.Request) {
				got, ok = pathID(req, "id")
			})
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/u/"+raw, nil))
			assert.Equal(t, valid, ok, raw)
			if valid {
				assert.Equal(t, 7, got)
			}
		}
	})
}

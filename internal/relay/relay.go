// Package relay serves the small HTTP endpoint that forwards prompts to the
// Gemini REST API so the API key never reaches a browser.
package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	maxUpstreamBody = 4 << 20
	defaultModel    = "gemini-2.5-flash"
)

// Options configure a Relay.
type Options struct {
	// UpstreamBaseURL is the REST base, e.g. https://generativelanguage.googleapis.com/v1beta.
	UpstreamBaseURL string
	// Model, like APIKey, is resolved per request.
	Model           func() string
	Timeout         time.Duration
	// APIKey is consulted on every request so a key set after start-up is picked up.
	APIKey func() string
}

type Relay struct {
	opts   Options
	client *http.Client
	log    *zap.Logger
}

func New(opts Options, log *zap.Logger) *Relay {
	if opts.Model == nil {
		opts.Model = func() string { return "" }
	}
	if opts.APIKey == nil {
		opts.APIKey = func() string { return "" }
	}
	opts.UpstreamBaseURL = strings.TrimRight(opts.UpstreamBaseURL, "/")
	return &Relay{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		log:    log.Named("relay"),
	}
}

// Routes returns the relay router with permissive CORS.
func (rl *Relay) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(allowAnyOrigin)

	r.Get("/api/health", rl.health)
	r.Get("/api/key-status", rl.keyStatus)
	r.Post("/api/analyze", rl.analyze)
	return r
}

func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *Relay) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "Server is running"})
}

func (rl *Relay) keyStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"configured": rl.opts.APIKey() != ""})
}

type analyzeRequest struct {
	Prompt string `json:"prompt"`
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

func (rl *Relay) analyze(w http.ResponseWriter, r *http.Request) {
	key := rl.opts.APIKey()
	if key == "" {
		writeError(w, http.StatusBadRequest, "API key not configured")
		return
	}

	var req analyzeRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	body, err := rl.forward(r, key, req.Prompt)
	if err != nil {
		rl.log.Error("relay request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// forward posts the prompt upstream and returns the JSON body unchanged.
func (rl *Relay) forward(r *http.Request, key, prompt string) (json.RawMessage, error) {
	payload, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", rl.opts.UpstreamBaseURL, rl.model())
	rl.log.Debug("calling upstream", zap.String("url", url))

	upReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	upReq.Header.Set("Content-Type", "application/json")
	upReq.Header.Set("x-goog-api-key", key)

	resp, err := rl.client.Do(upReq)
	if err != nil {
		return nil, fmt.Errorf("call upstream: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return nil, fmt.Errorf("read upstream: %w", err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("upstream returned non-JSON body (status %d)", resp.StatusCode)
	}
	return raw, nil
}

func (rl *Relay) model() string {
	if m := strings.TrimSpace(rl.opts.Model()); m != "" {
		return m
	}
	return defaultModel
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

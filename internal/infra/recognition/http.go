package recognition

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"voice-phone/internal/domain"
)

const (
	maxBatchBytes = 64 * 1024
	maxTextBytes  = 1024
)

// HTTPSource relays a browser's speech recognition to the assistant. The
// page polls the session endpoint to know whether it should be running its
// recognizer and posts every result, error and end callback back.
type HTTPSource struct {
	language    string
	authToken   string
	logger      *slog.Logger
	events      chan domain.RecognitionEvent
	mux         *http.ServeMux
	rateLimiter *RateLimiter

	mu      sync.Mutex
	active  bool
	ending  bool
	session uint64
}

func NewHTTPSource(language, authToken string, requestsPerMinute int, logger *slog.Logger) *HTTPSource {
	h := &HTTPSource{
		language:    language,
		authToken:   authToken,
		logger:      logger,
		events:      make(chan domain.RecognitionEvent, 32),
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(requestsPerMinute, time.Minute),
	}
	h.mux.HandleFunc("GET /recognition/session", h.handleSession)
	h.mux.HandleFunc("POST /recognition/results", h.guard(h.handleResults))
	h.mux.HandleFunc("POST /recognition/text", h.guard(h.handleText))
	h.mux.HandleFunc("POST /recognition/error", h.guard(h.handleError))
	h.mux.HandleFunc("POST /recognition/end", h.guard(h.handleEnd))
	return h
}

func (h *HTTPSource) Name() string {
	return "http"
}

func (h *HTTPSource) Start(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.active {
		return nil
	}
	h.active = true
	h.ending = false
	h.session++
	h.logger.Debug("recognition session opened", "session", h.session)
	return nil
}

// Stop closes the session. The browser's recognizer reports its own end
// when it notices, but the end is emitted here too so the assistant never
// waits on a page that went away.
func (h *HTTPSource) Stop() error {
	h.mu.Lock()
	if !h.active {
		h.mu.Unlock()
		return nil
	}
	h.active = false
	h.ending = true
	h.mu.Unlock()

	h.emit(domain.EndEvent())
	return nil
}

func (h *HTTPSource) Events() <-chan domain.RecognitionEvent {
	return h.events
}

func (h *HTTPSource) Handler() http.Handler {
	return h.mux
}

// InjectText feeds a final transcript as if the browser had recognized it.
func (h *HTTPSource) InjectText(text string) bool {
	return h.emit(domain.ResultEvent(domain.ResultBatch{
		Results: []domain.Segment{{Transcript: text, IsFinal: true}},
	}))
}

// acceptsResults reports whether a session is open, or was stopped and
// the page has not reported its end yet. A stopped browser recognizer
// still delivers finals for audio it already captured before its end.
func (h *HTTPSource) acceptsResults() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active || h.ending
}

func (h *HTTPSource) emit(ev domain.RecognitionEvent) bool {
	select {
	case h.events <- ev:
		return true
	default:
		h.logger.Warn("recognition event dropped, queue full", "kind", ev.Kind)
		return false
	}
}

func (h *HTTPSource) guard(next http.HandlerFunc) http.HandlerFunc {
	return h.rateLimiter.Middleware(func(w http.ResponseWriter, r *http.Request) {
		if h.authToken != "" {
			token := r.Header.Get("X-Auth-Token")
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token != h.authToken {
				h.logger.Warn("unauthorized recognition request", "remote_addr", r.RemoteAddr)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	})
}

type sessionResponse struct {
	Active         bool   `json:"active"`
	Session        uint64 `json:"session"`
	Lang           string `json:"lang"`
	Continuous     bool   `json:"continuous"`
	InterimResults bool   `json:"interimResults"`
}

func (h *HTTPSource) handleSession(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	resp := sessionResponse{
		Active:         h.active,
		Session:        h.session,
		Lang:           h.language,
		Continuous:     true,
		InterimResults: true,
	}
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPSource) handleResults(w http.ResponseWriter, r *http.Request) {
	if !h.acceptsResults() {
		http.Error(w, "not listening", http.StatusConflict)
		return
	}

	var batch domain.ResultBatch
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBatchBytes)).Decode(&batch); err != nil {
		http.Error(w, "invalid result batch", http.StatusBadRequest)
		return
	}
	if batch.ResultIndex < 0 || batch.ResultIndex > len(batch.Results) {
		http.Error(w, "resultIndex out of range", http.StatusBadRequest)
		return
	}

	h.accept(w, domain.ResultEvent(batch))
}

func (h *HTTPSource) handleText(w http.ResponseWriter, r *http.Request) {
	if !h.acceptsResults() {
		http.Error(w, "not listening", http.StatusConflict)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxTextBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		http.Error(w, "empty text", http.StatusBadRequest)
		return
	}

	h.logger.Info("received text command via HTTP", "text", text)
	h.accept(w, domain.ResultEvent(domain.ResultBatch{
		Results: []domain.Segment{{Transcript: text, IsFinal: true}},
	}))
}

func (h *HTTPSource) handleError(w http.ResponseWriter, r *http.Request) {
	var recErr domain.RecognitionError
	if err := json.NewDecoder(io.LimitReader(r.Body, maxTextBytes)).Decode(&recErr); err != nil || recErr.Code == "" {
		http.Error(w, "invalid error report", http.StatusBadRequest)
		return
	}

	h.accept(w, domain.ErrorEvent(recErr.Code, recErr.Message))
}

func (h *HTTPSource) handleEnd(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	h.ending = false
	h.mu.Unlock()

	h.accept(w, domain.EndEvent())
}

func (h *HTTPSource) accept(w http.ResponseWriter, ev domain.RecognitionEvent) {
	if !h.emit(ev) {
		http.Error(w, "queue full, try again", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "received", "kind": string(ev.Kind)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

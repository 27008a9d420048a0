// internal/stubserver/server.go
//
// A fake of the borrower-helper, underwriter-helper and letter services on
// a single chi router. The portal can point all three base URLs at it for
// local runs, and the tests mount Routes() on an httptest server.

package stubserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kingrea/mortgage-portal/internal/portal"
)

// DefaultMaxUploadBytes bounds eligibility documents.
const DefaultMaxUploadBytes int64 = 10 << 20

// Logger receives one line per served request.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Server wraps the HTTP listener and the fake handlers.
type Server struct {
	store    *Store
	logger   Logger
	maxBytes int64

	mu       sync.RWMutex
	server   *http.Server
	listener net.Listener
}

// Option customizes server construction.
type Option func(*Server)

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New prepares a server backed by store.
func New(store *Store, opts ...Option) *Server {
	if store == nil {
		store = NewStore()
	}
	s := &Server{store: store, logger: nopLogger{}, maxBytes: DefaultMaxUploadBytes}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Routes mounts every fake endpoint.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.traceRequests)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/borrower-helper-service", func(r chi.Router) {
		r.Get("/borrowers", s.handleListBorrowers)
		r.Get("/borrower/{id}", s.handleGetBorrower)
		r.Post("/borrower/{email}/check-eligibility", s.handleEligibility)
	})
	r.Route("/underwriter-helper-service", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Get("/application-explanation/borrower/{id}", s.handleExplanation)
		r.Post("/manual-decision-update", s.handleManualDecision)
	})
	r.Route("/underwriter", func(r chi.Router) {
		r.Post("/generate_letter/{id}", s.handleGenerateLetter)
		r.Put("/update_letter/{id}", s.handleUpdateLetter)
	})
	return r
}

// Start binds addr and serves in the background.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("stubserver: server already started")
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("stubserver: listen %s: %w", addr, err)
	}
	server := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if ctx != nil {
		server.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.listener = listener
	s.server = server
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("stubserver: serve error: %v", err)
		}
	}()
	s.logger.Printf("stubserver: listening on %s", listener.Addr().String())
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.listener = nil
	s.server = nil
	return nil
}

// BaseURL returns the HTTP base URL once the server has started.
func (s *Server) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String()
}

func (s *Server) traceRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Printf("%s %s id=%s status=%d elapsed=%s",
			r.Method, r.URL.Path, r.Header.Get("X-Request-ID"), ww.Status(), time.Since(start).Round(time.Millisecond))
	})
}

// injected reports whether the call was answered with an injected failure.
func (s *Server) injected(w http.ResponseWriter, route string) bool {
	if !s.store.hit(route) {
		return false
	}
	writeDetail(w, http.StatusInternalServerError, "injected failure")
	return true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, RouteLogin) {
		return
	}
	var creds portal.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid JSON")
		return
	}
	identity, err := s.store.authenticate(creds.Email, creds.Password)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

func (s *Server) handleListBorrowers(w http.ResponseWriter, _ *http.Request) {
	if s.injected(w, RouteListBorrowers) {
		return
	}
	records := s.store.listBorrowers()
	payload := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		payload = append(payload, borrowerPayload(rec))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleGetBorrower(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, RouteGetBorrower) {
		return
	}
	rec, ok := s.store.Borrower(portal.ID(chi.URLParam(r, "id")))
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, borrowerPayload(rec))
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, RouteEligibility) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "file is required")
		return
	}
	defer file.Close()
	if _, err := io.Copy(io.Discard, file); err != nil {
		writeDetail(w, http.StatusBadRequest, "unable to read file")
		return
	}
	rec, err := s.store.recordDocument(chi.URLParam(r, "email"), header.Filename)
	if err != nil {
		writeDetail(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":     "Document uploaded successfully",
		"document_id": fmt.Sprintf("%s-%s", rec.ID, header.Filename),
	})
}

func (s *Server) handleExplanation(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, RouteExplanation) {
		return
	}
	report, err := s.store.explanation(portal.ID(chi.URLParam(r, "id")))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleManualDecision(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, RouteManualDecision) {
		return
	}
	var override portal.DecisionOverride
	if err := json.NewDecoder(r.Body).Decode(&override); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid JSON")
		return
	}
	message, err := s.store.override(override)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (s *Server) handleGenerateLetter(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, RouteGenerateLetter) {
		return
	}
	letter, err := s.store.generateLetter(portal.ID(chi.URLParam(r, "id")))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Borrower not found")
		return
	}
	writeJSON(w, http.StatusOK, letter)
}

func (s *Server) handleUpdateLetter(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, RouteUpdateLetter) {
		return
	}
	var payload struct {
		LetterText *string `json:"letter_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.LetterText == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "letter_text is required")
		return
	}
	if err := s.store.updateLetter(portal.ID(chi.URLParam(r, "id")), *payload.LetterText); err != nil {
		writeDetail(w, http.StatusNotFound, "Letter not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Letter updated"})
}

// borrowerPayload keeps a null status as JSON null, the way the borrower
// service reports applications without a document.
func borrowerPayload(rec portal.BorrowerRecord) map[string]any {
	var status any
	if !rec.Status.IsNull() {
		status = strings.TrimSpace(string(rec.Status))
	}
	return map[string]any{
		"id":        rec.ID,
		"full_name": rec.FullName,
		"email":     rec.Email,
		"status":    status,
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

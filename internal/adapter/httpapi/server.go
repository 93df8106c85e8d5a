// Package httpapi serves the question answering and log endpoints over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"qalog/internal/domain"
	"qalog/internal/logger"
	"qalog/internal/usecase"
)

const maxBodyBytes = 1 << 20

// IndexStatter reports the size of the loaded index.
type IndexStatter interface {
	Stats() domain.IndexStats
}

// Options configures the server.
type Options struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	CORSMethods     []string
}

// Server is the HTTP server for the Q&A and log API.
type Server struct {
	answers *usecase.AnswerUseCase
	logs    *usecase.LogUseCase
	index   IndexStatter
	opts    Options
	handler http.Handler
}

func NewServer(answers *usecase.AnswerUseCase, logs *usecase.LogUseCase, index IndexStatter, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 2 * time.Minute
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	s := &Server{
		answers: answers,
		logs:    logs,
		index:   index,
		opts:    opts,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /logs/{$}", s.handleListIDs)
	mux.HandleFunc("GET /logs/{log_id}", s.handleGetLog)
	mux.HandleFunc("GET /all_logs/{$}", s.handleListLogs)
	mux.HandleFunc("GET /all_logs/{log_id}", s.handleListByID)
	mux.HandleFunc("POST /logs-all/{$}", s.handleImportLog)
	mux.HandleFunc("POST /logs/{$}", s.handleAsk)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.handler = requestIDMiddleware(loggingMiddleware(corsMiddleware(opts.CORSOrigins, opts.CORSMethods, mux)))
	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then waits for in-flight
// requests up to the shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      s.opts.RequestTimeout + 30*time.Second,
	}

	logger.Info("server starting", "addr", ln.Addr().String())

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", "error", err)
		}
	}()

	if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-shutdownDone
	return nil
}

type askRequest struct {
	LogID    string `json:"logid"`
	Question string `json:"question"`
}

type importRequest struct {
	LogID    string    `json:"logid"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Date     timestamp `json:"date"`
}

func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	rec, err := s.logs.Get(r.Context(), r.PathValue("log_id"))
	if err != nil {
		writeError(w, r, err, "Log not found!")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleListLogs reports 404 on an empty store even though the store itself
// returns an empty list, matching what existing clients expect.
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	recs, err := s.logs.List(r.Context())
	if err != nil {
		writeError(w, r, err, "There are no logs!")
		return
	}
	if len(recs) == 0 {
		writeDetail(w, http.StatusNotFound, "There are no logs!")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleListIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.logs.ListIDs(r.Context())
	if err != nil {
		writeError(w, r, err, "There are no logs!")
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handleListByID(w http.ResponseWriter, r *http.Request) {
	recs, err := s.logs.ListByID(r.Context(), r.PathValue("log_id"))
	if err != nil {
		writeError(w, r, err, "There are no logs!")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleImportLog(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := s.logs.Import(r.Context(), req.LogID, req.Question, req.Answer, req.Date.Time)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// handleAsk runs the pipeline detached from the client connection: a client
// that goes away does not cancel synthesis, only the request timeout does.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.opts.RequestTimeout)
	defer cancel()

	rec, err := s.answers.Ask(ctx, req.LogID, req.Question)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, rec.Answer)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.index.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"documents": stats.Documents,
		"chunks":    stats.Chunks,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps pipeline and store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrConfig):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTransient), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrAuth), errors.Is(err, domain.ErrContent):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err with its mapped status. notFound, when set, replaces
// the detail of a 404.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	status := statusFor(err)
	detail := err.Error()
	switch {
	case status == http.StatusNotFound && notFound != "":
		detail = notFound
	case status == http.StatusInternalServerError:
		detail = http.StatusText(status)
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "request_id", RequestID(r.Context()), "path", r.URL.Path, "status", status, "error", err)
	}
	writeDetail(w, status, detail)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

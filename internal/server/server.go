// Package server exposes sessions over HTTP.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/KaramelBytes/csvinsight-cli/internal/pipeline"
	"github.com/KaramelBytes/csvinsight-cli/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MaxUploadBytes bounds the size of an uploaded dataset.
const MaxUploadBytes = 64 << 20

// Sessions is the session registry the handlers drive.
type Sessions interface {
	Create(ctx context.Context, name string, raw []byte) (*session.Session, error)
	Get(id string) (*session.Session, error)
	List() []session.Summary
	Ask(ctx context.Context, id, question string) (*pipeline.Result, error)
	Delete(ctx context.Context, id string) error
}

// Server holds the HTTP handlers.
type Server struct {
	sessions Sessions
	gatherer prometheus.Gatherer
	log      *slog.Logger
}

// AnswerResponse is the body returned for a question.
type AnswerResponse struct {
	TurnID         string `json:"turn_id"`
	FinalAnswer    string `json:"final_answer"`
	Mode           string `json:"mode"`
	Code           string `json:"code,omitempty"`
	ImageBase64    string `json:"image_base64,omitempty"`
	ExecutionError bool   `json:"execution_error"`
}

type questionRequest struct {
	Question string `json:"question"`
}

// NewHandler builds the router.
func NewHandler(sessions Sessions, gatherer prometheus.Gatherer, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{sessions: sessions, gatherer: gatherer, log: log}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/", s.createSession)
		r.Get("/{id}", s.getSession)
		r.Delete("/{id}", s.deleteSession)
		r.Post("/{id}/questions", s.ask)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"duration", time.Since(start), "request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxUploadBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload.csv"
	}
	sess, err := s.sessions.Create(r.Context(), name, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Summary())
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Summary())
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	var body questionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if body.Question == "" {
		writeError(w, http.StatusBadRequest, errors.New("question is required"))
		return
	}
	res, err := s.sessions.Ask(r.Context(), chi.URLParam(r, "id"), body.Question)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			// the completion service failed
			status = http.StatusBadGateway
		}
		writeError(w, status, err)
		return
	}
	resp := AnswerResponse{
		TurnID:         res.TurnID,
		FinalAnswer:    res.FinalAnswer,
		Mode:           string(res.Mode),
		Code:           res.Code,
		ExecutionError: res.ExecutionError,
	}
	if len(res.Image) > 0 {
		resp.ImageBase64 = base64.StdEncoding.EncodeToString(res.Image)
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusFor(err error) int {
	if errors.Is(err, session.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

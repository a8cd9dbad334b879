package server

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"instaweb/internal/core/domain"
	"instaweb/internal/metrics"
	"instaweb/internal/service"
)

//go:embed static/index.html
var indexHTML []byte

var startedAt = time.Now()

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, "index.html", startedAt, bytes.NewReader(indexHTML))
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.logger.Debug("unreadable start body", zap.Error(err))
		req = startRequest{}
	}

	if !s.authorized(r, req.APIKey) {
		s.orch.Metrics().JobRejected(metrics.ReasonUnauthorized)
		s.renderSubmitError(w, r, domain.ErrUnauthorized)
		return
	}

	if err := s.validate.Struct(req); err != nil {
		s.orch.Metrics().JobRejected(metrics.ReasonInvalid)
		renderError(w, r, http.StatusBadRequest, validationMessage(err))
		return
	}
	format, _ := domain.ParseFormat(req.Format)

	jobID, err := s.orch.Submit(r.Context(), service.SubmitRequest{
		URL:      req.URL,
		Format:   format,
		Proxy:    req.Proxy,
		ClientID: clientID(r),
	})
	if err != nil {
		s.renderSubmitError(w, r, err)
		return
	}

	render.JSON(w, r, startReply{JobID: jobID})
}

func (s *Server) renderSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		renderError(w, r, http.StatusBadRequest, verr.Reason)
	case errors.Is(err, domain.ErrUnauthorized):
		renderError(w, r, http.StatusUnauthorized, "Invalid or missing API key")
	case errors.Is(err, domain.ErrRateLimited):
		renderError(w, r, http.StatusTooManyRequests, "Rate limit exceeded")
	case errors.Is(err, domain.ErrTooManyActive):
		renderError(w, r, http.StatusTooManyRequests, "Too many active downloads. Wait for one to finish.")
	case errors.Is(err, domain.ErrQueueFull):
		renderError(w, r, http.StatusServiceUnavailable, "Server is busy. Try again later.")
	default:
		s.logger.Error("failed to submit job", zap.Error(err))
		renderError(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	jobID := chi.URLParam(r, "job_id")
	for ev := range s.orch.Watch(r.Context(), jobID) {
		if _, err := fmt.Fprintf(w, "data: %s\n\n", ev.Data); err != nil {
			s.logger.Debug("event stream closed by client", zap.String("job_id", jobID), zap.Error(err))
			return
		}
		flusher.Flush()
	}
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	job, err := s.orch.ReadyFile(chi.URLParam(r, "job_id"))
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, "File not ready", http.StatusBadRequest)
		return
	}

	f, err := os.Open(job.FilePath)
	if err != nil {
		s.logger.Warn("ready job lost its file", zap.String("job_id", job.ID), zap.Error(err))
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": job.FileName}))
	http.ServeContent(w, r, job.FileName, info.ModTime(), f)
}

type healthReply struct {
	Status string `json:"status"`
	Jobs   int    `json:"jobs"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthReply{Status: "ok", Jobs: s.orch.Jobs()})
}

func renderError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	render.Status(r, code)
	render.JSON(w, r, errorReply{Error: msg})
}

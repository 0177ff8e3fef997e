package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/flowkit-io/flowkit/errors"
	"github.com/flowkit-io/flowkit/job"
	"github.com/flowkit-io/flowkit/logger"
	"github.com/flowkit-io/flowkit/monitor"
	"github.com/flowkit-io/flowkit/version"
)

// Server serves the read-only status API.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	store      job.Store
	monitor    *monitor.Monitor
	log        *logger.Logger
}

// New creates a Server bound to addr. monitor may be nil; the report
// endpoint then answers 404 for every run.
func New(addr string, store job.Store, mon *monitor.Monitor, log *logger.Logger) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine:  gin.New(),
		store:   store,
		monitor: mon,
		log:     log.WithComponent("api"),
	}
	s.engine.Use(recovery(s.log), requestLogger(s.log))
	s.routes()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.healthz)
	s.engine.GET("/pipelines/:id", s.getPipeline)
	s.engine.GET("/pipelines/:id/jobs", s.listJobs)
	s.engine.GET("/pipelines/:id/summary", s.getSummary)
	s.engine.GET("/metrics/:id", s.getReport)
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.log.Info("api listening", logger.Fields("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthz(c *gin.Context) {
	respondOK(c, gin.H{
		"status":  "ok",
		"version": version.Get(),
	})
}

func (s *Server) getPipeline(c *gin.Context) {
	p, err := s.store.GetPipeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, p)
}

func (s *Server) listJobs(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.store.GetPipeline(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	jobs, err := s.store.ListJobs(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, jobs)
}

func (s *Server) getSummary(c *gin.Context) {
	id := c.Param("id")
	p, err := s.store.GetPipeline(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	jobs, err := s.store.ListJobs(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"pipeline_id": p.ID,
		"status":      p.Status,
		"summary":     job.Summarize(jobs),
	})
}

func (s *Server) getReport(c *gin.Context) {
	id := c.Param("id")
	if s.monitor == nil {
		respondError(c, errors.NotFound("execution report", id))
		return
	}
	report, ok := s.monitor.Report(id)
	if !ok {
		respondError(c, errors.NotFound("execution report", id))
		return
	}
	respondOK(c, report)
}

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yanun0323/logs"

	"tradingdesk/internal/engine"
	"tradingdesk/internal/obs"
	"tradingdesk/internal/registry"
	"tradingdesk/pkg/exception"
)

// StatusSource reports the live sessions, *engine.Runner implements it.
type StatusSource interface {
	Status() []engine.Status
}

// Server is the read-only inspection API of the desk.
type Server struct {
	registry *registry.Registry
	sessions StatusSource
	metrics  *obs.Metrics
	started  time.Time
}

func NewServer(r *registry.Registry, sessions StatusSource, metrics *obs.Metrics) *Server {
	return &Server{registry: r, sessions: sessions, metrics: metrics, started: time.Now()}
}

type AlgorithmView struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Path          string `json:"path"`
	MinDataLength string `json:"minDataLength"`
	MaxDataLength string `json:"maxDataLength"`
}

func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.health)
	r.GET("/algorithms", s.listAlgorithms)
	r.GET("/algorithms/:name", s.getAlgorithm)
	r.GET("/sessions", s.listSessions)
	r.GET("/metrics", s.getMetrics)
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"algorithms": s.registry.Len(),
		"uptime":     time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) listAlgorithms(c *gin.Context) {
	names := s.registry.Names()
	out := make([]AlgorithmView, 0, len(names))
	for _, name := range names {
		if v, ok := s.view(name); ok {
			out = append(out, v)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getAlgorithm(c *gin.Context) {
	v, ok := s.view(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": exception.ErrUnknownAlgorithm.Error()})
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) listSessions(c *gin.Context) {
	if s.sessions == nil {
		c.JSON(http.StatusOK, []engine.Status{})
		return
	}
	c.JSON(http.StatusOK, s.sessions.Status())
}

func (s *Server) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) view(name string) (AlgorithmView, bool) {
	algo, ok := s.registry.Get(name)
	if !ok {
		return AlgorithmView{}, false
	}
	return AlgorithmView{
		Name:          algo.Name(),
		Description:   algo.Description(),
		Path:          algo.Path(),
		MinDataLength: algo.MinDataLength().String(),
		MaxDataLength: algo.MaxDataLength().String(),
	}, true
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logs.Infof("api listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

package prober

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// StatusServer exposes the prober's last sweep over HTTP so operators can
// read liveness without shelling into the box.
type StatusServer struct {
	prober *Prober
	logger *logrus.Logger
}

// NewStatusServer creates a new status server
func NewStatusServer(p *Prober, logger *logrus.Logger) *StatusServer {
	return &StatusServer{
		prober: p,
		logger: logger,
	}
}

// Run serves until the context is cancelled
func (s *StatusServer) Run(ctx context.Context, addr string) error {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/status", func(c *gin.Context) {
		statuses, sweptAt := s.prober.LastSweep()
		c.JSON(http.StatusOK, gin.H{
			"swept_at": sweptAt,
			"proxies":  statuses,
		})
	})

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warnf("Status server shutdown: %v", err)
		}
	}()

	s.logger.Infof("Status server listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aviorian/monad-mindshare/internal/config"
	"github.com/aviorian/monad-mindshare/internal/selection"
	"github.com/aviorian/monad-mindshare/internal/services"
	"github.com/aviorian/monad-mindshare/internal/transfer"
)

func NewServer(cfg config.Config, logger *zap.Logger) (*gin.Engine, *http.Server) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return r, srv
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	var verr *transfer.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, transfer.ErrTransferInFlight), errors.Is(err, services.ErrCycleCancelled):
		return http.StatusConflict
	case errors.Is(err, services.ErrTotalFetchFailure),
		errors.Is(err, selection.ErrProfileLookup),
		errors.Is(err, transfer.ErrSubmission),
		errors.Is(err, transfer.ErrConfirmation):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

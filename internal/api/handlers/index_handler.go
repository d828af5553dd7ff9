package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vehiclefinder/internal/api/middleware"
	"vehiclefinder/internal/logger"
	"vehiclefinder/internal/repository"
	"vehiclefinder/internal/services"
)

// SourceOpener opens the configured position source for a reload. The
// returned close function is called once the reload finishes.
type SourceOpener func(ctx context.Context) (repository.PositionSource, func() error, error)

type IndexHandler struct {
	indexService *services.IndexService
	openSource   SourceOpener
}

func NewIndexHandler(indexService *services.IndexService, openSource SourceOpener) *IndexHandler {
	return &IndexHandler{
		indexService: indexService,
		openSource:   openSource,
	}
}

// Stats handles GET /index/stats
func (h *IndexHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.indexService.Stats(c.Request.Context()))
}

// Reload handles POST /index/reload. The new index replaces the old one only
// after it is fully built; queries keep being served meanwhile.
func (h *IndexHandler) Reload(c *gin.Context) {
	ctx := c.Request.Context()

	source, closeSource, err := h.openSource(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer func() {
		if err := closeSource(); err != nil {
			logger.L().WithError(err).Warn("[INDEX] closing source failed")
		}
	}()

	report, err := h.indexService.Load(ctx, source)
	if err != nil {
		if errors.Is(err, services.ErrReloadInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"request_id":  middleware.GetRequestID(c),
		"load_id":     report.LoadID,
		"source":      report.Source,
		"read":        report.Read,
		"indexed":     report.Stats.Inserted,
		"dropped":     report.Stats.Dropped,
		"generation":  report.Generation,
		"duration_ms": report.Duration.Milliseconds(),
	})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vehiclefinder/internal/domain/entities"
	"vehiclefinder/internal/geo"
	"vehiclefinder/internal/services"
)

type NearestHandler struct {
	indexService *services.IndexService
}

func NewNearestHandler(indexService *services.IndexService) *NearestHandler {
	return &NearestHandler{
		indexService: indexService,
	}
}

// Pointers so that 0 is accepted as a coordinate while a missing one is not.
// A geohash, when given, takes the place of lat and long.
type NearestQuery struct {
	Lat     *float64 `form:"lat"`
	Long    *float64 `form:"long"`
	Geohash string   `form:"geohash"`
}

type Coordinate struct {
	Lat  *float64 `json:"lat" binding:"required"`
	Long *float64 `json:"long" binding:"required"`
}

type BatchNearestRequest struct {
	Coordinates []Coordinate `json:"coordinates" binding:"required,dive"`
}

// Nearest handles GET /nearest?lat=&long= and GET /nearest?geohash=
func (h *NearestHandler) Nearest(c *gin.Context) {
	var q NearestQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var lat, lon float64
	switch {
	case q.Geohash != "":
		if !geo.ValidGeohash(q.Geohash) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid geohash"})
			return
		}
		lat, lon = geo.Decode(q.Geohash)
	case q.Lat != nil && q.Long != nil:
		lat, lon = *q.Lat, *q.Long
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and long, or geohash, are required"})
		return
	}

	result, err := h.indexService.FindNearest(c.Request.Context(), lat, lon)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no nearest vehicle found"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Batch handles POST /nearest/batch
func (h *NearestHandler) Batch(c *gin.Context) {
	var req BatchNearestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	queries := make([]entities.Location, len(req.Coordinates))
	for i, coord := range req.Coordinates {
		queries[i] = entities.NewLocation(*coord.Lat, *coord.Long)
	}

	results, err := h.indexService.FindNearestBatch(c.Request.Context(), queries)
	if err != nil {
		if errors.Is(err, services.ErrBatchTooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	found := 0
	for _, r := range results {
		if r.Found {
			found++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
		"found":   found,
	})
}

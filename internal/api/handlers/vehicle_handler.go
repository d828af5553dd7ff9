package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vehiclefinder/internal/repository/memory"
	"vehiclefinder/internal/services"
)

type VehicleHandler struct {
	indexService *services.IndexService
}

func NewVehicleHandler(indexService *services.IndexService) *VehicleHandler {
	return &VehicleHandler{
		indexService: indexService,
	}
}

// GetVehicle handles GET /vehicles/:id
func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vehicle id must be an integer"})
		return
	}

	position, err := h.indexService.GetPosition(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, memory.ErrPositionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, position)
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"travelsync/internal/models"
	"travelsync/internal/services"
	"travelsync/pkg/response"
)

type ItineraryHandler struct {
	itineraryService *services.ItineraryService
	aiService        *services.AIService
	exportService    *services.ExportService
}

func NewItineraryHandler(
	itineraryService *services.ItineraryService,
	aiService *services.AIService,
	exportService *services.ExportService,
) *ItineraryHandler {
	return &ItineraryHandler{
		itineraryService: itineraryService,
		aiService:        aiService,
		exportService:    exportService,
	}
}

// Create godoc
// @Summary      Create an itinerary
// @Tags         itineraries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body models.CreateItineraryRequest true "Itinerary payload"
// @Success      201 {object} models.ItineraryResponse
// @Failure      400 {object} models.ErrorResponse
// @Router       /itineraries [post]
func (h *ItineraryHandler) Create(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req models.CreateItineraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	itinerary, err := h.itineraryService.Create(userID, &req)
	if err != nil {
		h.internal(c)
		return
	}

	c.JSON(http.StatusCreated, itinerary)
}

// List godoc
// @Summary      List the current user's itineraries
// @Tags         itineraries
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} models.ItineraryResponse
// @Router       /itineraries [get]
func (h *ItineraryHandler) List(c *gin.Context) {
	userID := c.GetUint("user_id")

	itineraries, err := h.itineraryService.List(userID)
	if err != nil {
		h.internal(c)
		return
	}

	c.JSON(http.StatusOK, itineraries)
}

// Get godoc
// @Summary      Get one itinerary with its full plan
// @Tags         itineraries
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Itinerary ID"
// @Success      200 {object} models.ItineraryResponse
// @Failure      404 {object} models.ErrorResponse
// @Router       /itineraries/{id} [get]
func (h *ItineraryHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	itinerary, err := h.itineraryService.Get(id)
	if err != nil {
		h.notFoundOrInternal(c, err)
		return
	}

	c.JSON(http.StatusOK, itinerary)
}

// GetShared godoc
// @Summary      Look up an itinerary by its share code
// @Tags         itineraries
// @Produce      json
// @Security     BearerAuth
// @Param        code path string true "Share code"
// @Success      200 {object} models.ItineraryResponse
// @Failure      404 {object} models.ErrorResponse
// @Router       /itineraries/shared/{code} [get]
func (h *ItineraryHandler) GetShared(c *gin.Context) {
	itinerary, err := h.itineraryService.GetByShareCode(c.Param("code"))
	if err != nil {
		h.notFoundOrInternal(c, err)
		return
	}

	c.JSON(http.StatusOK, itinerary)
}

// Update godoc
// @Summary      Update an itinerary's fields
// @Tags         itineraries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Itinerary ID"
// @Param        request body models.UpdateItineraryRequest true "Fields to change"
// @Success      200 {object} models.ItineraryResponse
// @Failure      403 {object} models.ErrorResponse
// @Failure      404 {object} models.ErrorResponse
// @Router       /itineraries/{id} [put]
func (h *ItineraryHandler) Update(c *gin.Context) {
	userID := c.GetUint("user_id")
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req models.UpdateItineraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	itinerary, err := h.itineraryService.Update(userID, id, &req)
	if err != nil {
		h.notFoundOrInternal(c, err)
		return
	}

	c.JSON(http.StatusOK, itinerary)
}

// Delete godoc
// @Summary      Delete an itinerary
// @Tags         itineraries
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Itinerary ID"
// @Success      200 {object} models.MessageResponse
// @Failure      403 {object} models.ErrorResponse
// @Failure      404 {object} models.ErrorResponse
// @Router       /itineraries/{id} [delete]
func (h *ItineraryHandler) Delete(c *gin.Context) {
	userID := c.GetUint("user_id")
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.itineraryService.Delete(userID, id); err != nil {
		h.notFoundOrInternal(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "itinerary deleted"})
}

// Generate godoc
// @Summary      Generate an itinerary with AI
// @Description  Builds a full day-by-day plan from destination, length and interests
// @Tags         itineraries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body models.GenerateItineraryRequest true "Generation parameters"
// @Success      201 {object} models.ItineraryResponse
// @Failure      400 {object} models.ErrorResponse
// @Failure      502 {object} models.ErrorResponse
// @Router       /itineraries/generate [post]
func (h *ItineraryHandler) Generate(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req models.GenerateItineraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	itinerary, err := h.itineraryService.Generate(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrAIUnavailable) || errors.Is(err, services.ErrEmptyPlan) {
			c.JSON(http.StatusBadGateway, models.ErrorResponse{
				Code:    response.ErrCodeAIUnavailable,
				Message: response.Message(response.ErrCodeAIUnavailable),
			})
			return
		}
		h.internal(c)
		return
	}

	c.JSON(http.StatusCreated, itinerary)
}

// GenerateStream godoc
// @Summary      Stream itinerary generation
// @Description  Server-sent events with raw model output chunks
// @Tags         itineraries
// @Accept       json
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        request body models.GenerateItineraryRequest true "Generation parameters"
// @Success      200 {string} string "SSE stream"
// @Failure      400 {object} models.ErrorResponse
// @Router       /itineraries/generate/stream [post]
func (h *ItineraryHandler) GenerateStream(c *gin.Context) {
	var req models.GenerateItineraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Flush()

	err := h.aiService.StreamPlan(c.Request.Context(), &req, func(chunk string) error {
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", chunk); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		fmt.Fprintf(c.Writer, "event: error\ndata: %s\n\n", response.Message(response.ErrCodeAIUnavailable))
	} else {
		fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	}
	c.Writer.Flush()
}

// Optimize godoc
// @Summary      Optimize an itinerary's daily schedule
// @Description  Reorders activities by time-slot fit and scores the plan
// @Tags         itineraries
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Itinerary ID"
// @Success      200 {object} models.OptimizeResponse
// @Failure      403 {object} models.ErrorResponse
// @Failure      404 {object} models.ErrorResponse
// @Router       /itineraries/{id}/optimize [post]
func (h *ItineraryHandler) Optimize(c *gin.Context) {
	userID := c.GetUint("user_id")
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	result, err := h.itineraryService.Optimize(c.Request.Context(), userID, id)
	if err != nil {
		h.notFoundOrInternal(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Export godoc
// @Summary      Export an itinerary
// @Description  Downloads the plan as JSON or CSV
// @Tags         itineraries
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Itinerary ID"
// @Param        format query string false "json or csv" default(json)
// @Success      200 {string} string "File download"
// @Failure      400 {object} models.ErrorResponse
// @Failure      404 {object} models.ErrorResponse
// @Router       /itineraries/{id}/export [get]
func (h *ItineraryHandler) Export(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	itinerary, err := h.itineraryService.Get(id)
	if err != nil {
		h.notFoundOrInternal(c, err)
		return
	}

	format := c.DefaultQuery("format", "json")
	var (
		data        []byte
		contentType string
	)
	switch format {
	case "json":
		data, err = h.exportService.ExportJSON(id)
		contentType = "application/json"
	case "csv":
		data, err = h.exportService.ExportCSV(id)
		contentType = "text/csv"
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    response.ErrCodeParamInvalid,
			Message: "format must be json or csv",
		})
		return
	}
	if err != nil {
		h.internal(c)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.exportService.Filename(itinerary, format)))
	c.Data(http.StatusOK, contentType, data)
}

func (h *ItineraryHandler) pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    response.ErrCodeParamInvalid,
			Message: "invalid itinerary id",
		})
		return 0, false
	}
	return uint(id), true
}

func (h *ItineraryHandler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Code:    response.ErrCodeParamInvalid,
		Message: response.Message(response.ErrCodeParamInvalid),
		Details: err.Error(),
	})
}

func (h *ItineraryHandler) internal(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Code:    response.ErrCodeInternal,
		Message: response.Message(response.ErrCodeInternal),
	})
}

func (h *ItineraryHandler) notFoundOrInternal(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrItineraryNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    response.ErrCodeItineraryNotFound,
			Message: response.Message(response.ErrCodeItineraryNotFound),
		})
	case errors.Is(err, services.ErrNotOwner):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Code:    response.ErrCodeNotOwner,
			Message: response.Message(response.ErrCodeNotOwner),
		})
	default:
		h.internal(c)
	}
}

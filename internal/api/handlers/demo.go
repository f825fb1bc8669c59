package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/ideaforge-api/internal/logger"
	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
	"github.com/Conceptual-Machines/ideaforge-api/internal/services"
)

type DemoRequestHandler struct {
	service *services.DemoRequestService
}

func NewDemoRequestHandler(service *services.DemoRequestService) *DemoRequestHandler {
	return &DemoRequestHandler{service: service}
}

type DemoRequestBody struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Organization string `json:"organization"`
	TeamSize     string `json:"team_size"`
	Message      string `json:"message" binding:"max=4000"`
}

// Submit records a demo request from the marketing site.
func (h *DemoRequestHandler) Submit(c *gin.Context) {
	var body DemoRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := &models.DemoRequest{
		Name:         strings.TrimSpace(body.Name),
		Email:        strings.ToLower(strings.TrimSpace(body.Email)),
		Organization: strings.TrimSpace(body.Organization),
		TeamSize:     strings.TrimSpace(body.TeamSize),
		Message:      strings.TrimSpace(body.Message),
	}
	if err := h.service.Submit(c.Request.Context(), req); err != nil {
		logger.Error("Failed to store demo request", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit request"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": req.ID, "message": "Thanks! We'll be in touch shortly."})
}

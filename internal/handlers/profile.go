package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/alimgiray/devfolio/internal/models"
	"github.com/alimgiray/devfolio/internal/services"
	"github.com/alimgiray/devfolio/pkg/logger"
	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileService *services.ProfileService
}

func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

// Profiles ingests ?username=... or, without it, lists the gallery.
// An empty username counts as absent.
func (h *ProfileHandler) Profiles(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")

	username := c.Query("username")
	if strings.TrimSpace(username) == "" {
		h.gallery(c)
		return
	}
	h.ingest(c, username)
}

func (h *ProfileHandler) gallery(c *gin.Context) {
	profiles, err := h.profileService.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, profiles)
}

func (h *ProfileHandler) ingest(c *gin.Context, username string) {
	profile, err := h.profileService.Ingest(c.Request.Context(), username)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// Avatar streams the stored avatar for an ingested username
func (h *ProfileHandler) Avatar(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")

	data, err := h.profileService.Avatar(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, models.AvatarContentType, data)
}

// writeError keeps GitHub's status code for upstream failures so callers can
// tell a missing GitHub user from a failure on our side
func writeError(c *gin.Context, err error) {
	var upstreamErr *services.UpstreamError
	switch {
	case errors.Is(err, models.ErrInvalidUsername):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &upstreamErr):
		status := upstreamErr.StatusCode
		if status < http.StatusBadRequest || status > 599 {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": upstreamErr.Message})
	default:
		logger.WithError(err).Error("Internal error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"details": err.Error(),
		})
	}
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/signalworks/email-delivery-service/internal/models"
	"github.com/signalworks/email-delivery-service/internal/services"
)

// TemplateHandler serves template management and render-preview requests.
type TemplateHandler struct {
	templates *services.TemplateService
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(templates *services.TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// Create creates the first version of a template.
func (h *TemplateHandler) Create(c *gin.Context) {
	var req models.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	tpl, err := h.templates.Create(&req)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateTemplate) {
			respondError(c, http.StatusConflict, "template already exists", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to create template", err)
		return
	}

	respondSuccess(c, http.StatusCreated, "template created", tpl)
}

// Get returns the current template, or an exact version when ?version= is set.
func (h *TemplateHandler) Get(c *gin.Context) {
	code := c.Param("template_code")
	language := c.DefaultQuery("language", "en")

	version := 0
	if v := c.Query("version"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			respondError(c, http.StatusBadRequest, "version must be a positive integer", err)
			return
		}
		version = parsed
	}

	tpl, err := h.templates.Get(code, language, version)
	if err != nil {
		if errors.Is(err, models.ErrTemplateNotFound) {
			respondError(c, http.StatusNotFound, "template not found", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to load template", err)
		return
	}

	respondSuccess(c, http.StatusOK, "template retrieved", tpl)
}

// Update archives the current version and makes the patched content current.
func (h *TemplateHandler) Update(c *gin.Context) {
	code := c.Param("template_code")
	language := c.DefaultQuery("language", "en")

	var req models.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	tpl, err := h.templates.Update(code, language, &req)
	if err != nil {
		if errors.Is(err, models.ErrTemplateNotFound) {
			respondError(c, http.StatusNotFound, "template not found", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to update template", err)
		return
	}

	respondSuccess(c, http.StatusOK, "template updated", tpl)
}

// Render previews the current template with concrete variables.
func (h *TemplateHandler) Render(c *gin.Context) {
	code := c.Param("template_code")

	var req models.RenderTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	rendered, err := h.templates.Render(code, req.Variables, req.Language)
	if err != nil {
		var missing *models.MissingVariablesError
		switch {
		case errors.Is(err, models.ErrTemplateNotFound):
			respondError(c, http.StatusNotFound, "template not found", err)
		case errors.As(err, &missing):
			respondError(c, http.StatusBadRequest, "missing template variables", err)
		default:
			respondError(c, http.StatusBadRequest, "template rendering failed", err)
		}
		return
	}

	respondSuccess(c, http.StatusOK, "template rendered", rendered)
}

// List returns current templates, optionally filtered by status and type.
func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.templates.List(
		models.TemplateStatus(c.Query("status")),
		models.TemplateType(c.Query("type")),
	)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list templates", err)
		return
	}

	respondSuccess(c, http.StatusOK, "templates retrieved", templates)
}

// ListVersions returns a pair's version history, newest first.
func (h *TemplateHandler) ListVersions(c *gin.Context) {
	code := c.Param("template_code")
	language := c.DefaultQuery("language", "en")

	versions, err := h.templates.ListVersions(code, language)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list versions", err)
		return
	}

	respondSuccess(c, http.StatusOK, "template versions retrieved", versions)
}

// Archive retires a template without deleting its history.
func (h *TemplateHandler) Archive(c *gin.Context) {
	code := c.Param("template_code")
	language := c.DefaultQuery("language", "en")

	tpl, err := h.templates.Archive(code, language)
	if err != nil {
		if errors.Is(err, models.ErrTemplateNotFound) {
			respondError(c, http.StatusNotFound, "template not found", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to archive template", err)
		return
	}

	respondSuccess(c, http.StatusOK, "template archived", tpl)
}

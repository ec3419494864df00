package routines

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler exposes the routines CRUD surface with the
// {"message": ..., "data": ...} envelope.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the CRUD routes on the group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.del)
}

func envelope(message string, data any) gin.H {
	return gin.H{"message": message, "data": data}
}

func (h *Handler) list(c *gin.Context) {
	routines, err := h.service.List(c.Request.Context())
	if err != nil {
		h.serverError(c, "retrieving routines", err)
		return
	}
	c.JSON(http.StatusOK, envelope("Successfully retrieved routines", routines))
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")

	routine, err := h.service.Get(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, envelope("Routine not found", nil))
		return
	}
	if err != nil {
		h.serverError(c, "retrieving routine", err)
		return
	}
	c.JSON(http.StatusOK, envelope("Successfully retrieved routine", routine))
}

func (h *Handler) create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, envelope("Invalid request body: "+err.Error(), nil))
		return
	}

	routine, err := h.service.Create(c.Request.Context(), in)
	if IsValidation(err) {
		c.JSON(http.StatusBadRequest, envelope(err.Error(), nil))
		return
	}
	if err != nil {
		h.serverError(c, "creating routine", err)
		return
	}
	c.JSON(http.StatusCreated, envelope("Successfully created routine", routine))
}

func (h *Handler) update(c *gin.Context) {
	id := c.Param("id")

	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, envelope("Invalid request body: "+err.Error(), nil))
		return
	}

	routine, err := h.service.Update(c.Request.Context(), id, in)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, envelope("Routine not found", nil))
		return
	}
	if IsValidation(err) {
		c.JSON(http.StatusBadRequest, envelope(err.Error(), nil))
		return
	}
	if err != nil {
		h.serverError(c, "updating routine", err)
		return
	}
	c.JSON(http.StatusOK, envelope("Successfully updated routine", routine))
}

func (h *Handler) del(c *gin.Context) {
	id := c.Param("id")

	err := h.service.Delete(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, envelope("Routine not found", nil))
		return
	}
	if err != nil {
		h.serverError(c, "deleting routine", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) serverError(c *gin.Context, action string, err error) {
	slog.ErrorContext(c.Request.Context(), action, "error", err)
	c.JSON(http.StatusInternalServerError, envelope("Internal server error", nil))
}

package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/records"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ResourceService is the CRUD contract shared by every record family.
type ResourceService[T any] interface {
	Create(ctx context.Context, record *T) error
	FindByID(ctx context.Context, id string) (*T, error)
	List(ctx context.Context, query records.ListQuery) (records.Page[T], error)
	UpdateByID(ctx context.Context, id string, fields *T) (*T, error)
	DeleteByID(ctx context.Context, id string) (*T, error)
}

type resourceHandler[T any] struct {
	service ResourceService[T]
	logger  *zap.Logger
}

func registerResource[T any](router gin.IRouter, path string, service ResourceService[T], logger *zap.Logger) {
	handler := &resourceHandler[T]{service: service, logger: logger}
	group := router.Group(path)
	group.POST("", handler.create)
	group.GET("", handler.list)
	group.GET("/:id", handler.get)
	group.PUT("/:id", handler.update)
	group.DELETE("/:id", handler.remove)
}

func (h *resourceHandler[T]) create(c *gin.Context) {
	var record T
	if err := c.ShouldBindJSON(&record); err != nil {
		respondInvalidRequest(c, err.Error())
		return
	}
	if err := h.service.Create(c.Request.Context(), &record); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *resourceHandler[T]) list(c *gin.Context) {
	query, err := parseListQuery(c)
	if err != nil {
		respondInvalidRequest(c, err.Error())
		return
	}
	page, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *resourceHandler[T]) get(c *gin.Context) {
	record, err := h.service.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *resourceHandler[T]) update(c *gin.Context) {
	var fields T
	if err := c.ShouldBindJSON(&fields); err != nil {
		respondInvalidRequest(c, err.Error())
		return
	}
	updated, err := h.service.UpdateByID(c.Request.Context(), c.Param("id"), &fields)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *resourceHandler[T]) remove(c *gin.Context) {
	if _, err := h.service.DeleteByID(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type listParameterError struct {
	name string
}

func (e listParameterError) Error() string {
	return e.name + " must be a positive integer"
}

func parseListQuery(c *gin.Context) (records.ListQuery, error) {
	query := records.ListQuery{Search: c.Query("search")}
	var err error
	if query.Page, err = positiveQueryInt(c, "page"); err != nil {
		return records.ListQuery{}, err
	}
	if query.Limit, err = positiveQueryInt(c, "limit"); err != nil {
		return records.ListQuery{}, err
	}
	if query.Limit > 0 && query.Page == 0 {
		query.Page = 1
	}
	return query, nil
}

func positiveQueryInt(c *gin.Context, name string) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, listParameterError{name: name}
	}
	return value, nil
}

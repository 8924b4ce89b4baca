package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mpetrashov/projecthub/internal/logging"
	"github.com/mpetrashov/projecthub/internal/middleware"
	"github.com/mpetrashov/projecthub/internal/models"
	"github.com/mpetrashov/projecthub/internal/service"
	"github.com/mpetrashov/projecthub/internal/transport"
	"github.com/mpetrashov/projecthub/internal/util"
)

// Searcher is the query side of the project search index.
type Searcher interface {
	Search(ctx context.Context, query string, from, size int) (int64, []models.Project, error)
}

type ProjectHTTP struct {
	Svc    *service.ProjectService
	Search Searcher
}

func projectID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func (h *ProjectHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "project_create")

	var req transport.CreateProjectRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("project_create_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	project, err := h.Svc.Create(ctx, middleware.CurrentUser(c), req.Name, req.Description)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			l.Warn("project_create_error", "status", 400, "reason", "validation failed")
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
		l.Error("project_create_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create project")
	}

	l.Info("project_create_success")
	return c.JSON(http.StatusCreated, project)
}

func (h *ProjectHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "project_list")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.List(ctx, middleware.CurrentUser(c), offset, limit)
	if err != nil {
		l.Error("project_list_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list projects")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *ProjectHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "project_get")

	id, err := projectID(c)
	if err != nil {
		l.Warn("project_get_error", "status", 400, "reason", "id is not an integer")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid project id")
	}

	project, err := h.Svc.Get(ctx, middleware.CurrentUser(c), id)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			l.Warn("project_get_error", "status", 404)
			return echo.NewHTTPError(http.StatusNotFound, "project not found")
		case errors.Is(err, service.ErrForbidden):
			l.Warn("project_get_error", "status", 403)
			return echo.NewHTTPError(http.StatusForbidden, "project owner or admin only")
		}
		l.Error("project_get_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get project")
	}

	return c.JSON(http.StatusOK, project)
}

func (h *ProjectHTTP) Patch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "project_patch")

	id, err := projectID(c)
	if err != nil {
		l.Warn("project_patch_error", "status", 400, "reason", "id is not an integer")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid project id")
	}

	var req transport.PatchProjectRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("project_patch_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	project, err := h.Svc.Patch(ctx, middleware.CurrentUser(c), id, req.Name, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			l.Warn("project_patch_error", "status", 404)
			return echo.NewHTTPError(http.StatusNotFound, "project not found")
		case errors.Is(err, service.ErrForbidden):
			l.Warn("project_patch_error", "status", 403)
			return echo.NewHTTPError(http.StatusForbidden, "project owner only")
		case errors.Is(err, service.ErrValidation):
			l.Warn("project_patch_error", "status", 400, "reason", "validation failed")
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
		l.Error("project_patch_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update project")
	}

	l.Info("project_patch_success")
	return c.JSON(http.StatusOK, project)
}

func (h *ProjectHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "project_delete")

	id, err := projectID(c)
	if err != nil {
		l.Warn("project_delete_error", "status", 400, "reason", "id is not an integer")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid project id")
	}

	if err := h.Svc.Delete(ctx, middleware.CurrentUser(c), id); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			l.Warn("project_delete_error", "status", 404)
			return echo.NewHTTPError(http.StatusNotFound, "project not found")
		case errors.Is(err, service.ErrForbidden):
			l.Warn("project_delete_error", "status", 403)
			return echo.NewHTTPError(http.StatusForbidden, "project owner only")
		}
		l.Error("project_delete_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete project")
	}

	l.Info("project_delete_success")
	return c.NoContent(http.StatusNoContent)
}

func (h *ProjectHTTP) SearchProjects(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "project_search")

	if h.Search == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search is not configured")
	}

	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing query parameter q")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, size := util.Calculate(page, size)

	total, projects, err := h.Search.Search(ctx, q, from, size)
	if err != nil {
		l.Error("project_search_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot search projects")
	}

	return c.JSON(http.StatusOK, echo.Map{"total": total, "projects": projects})
}

package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"ecitizenpay/internal/models"
	"ecitizenpay/internal/repository"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

// Operator responses use the {status, msg, obj} envelope.
func successResponse(c echo.Context, msg string, obj interface{}) error {
	return c.JSON(http.StatusOK, models.APIResponse{
		Status: true,
		Msg:    msg,
		Obj:    obj,
	})
}

func errorResponse(c echo.Context, code int, msg string) error {
	return c.JSON(code, models.APIResponse{
		Status: false,
		Msg:    msg,
		Obj:    nil,
	})
}

func paginatedResponse(data interface{}, total int64, page, limit int) models.PaginatedResponse {
	return models.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		limit = defaultLimit
	}
	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	if pages == 0 {
		pages = 1
	}
	return pages
}

// queryInt reads an integer query parameter, falling back to def.
func queryInt(c echo.Context, key string, def int) int {
	if v, err := strconv.Atoi(c.QueryParam(key)); err == nil {
		return v
	}
	return def
}

func pageParams(c echo.Context) (limit, page int) {
	limit = queryInt(c, "limit", defaultLimit)
	page = queryInt(c, "page", 1)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if page <= 0 {
		page = 1
	}
	return limit, page
}

// Repos bundles the repositories needed by operator handlers.
type Repos struct {
	Attempt  *repository.AttemptRepository
	Callback *repository.CallbackRepository
}

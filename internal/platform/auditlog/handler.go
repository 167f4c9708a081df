package auditlog

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dentalcare/dentalcare/internal/platform/apperr"
	"github.com/dentalcare/dentalcare/internal/platform/auth"
	"github.com/dentalcare/dentalcare/pkg/pagination"
)

// Lister is the read side of Store.
type Lister interface {
	List(ctx context.Context, f Filter) ([]Entry, int, error)
}

type Handler struct {
	store Lister
}

func NewHandler(store Lister) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts GET /admin/audit on api. Admin only.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/audit", h.List)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		UserID:   c.QueryParam("user_id"),
		Resource: c.QueryParam("resource"),
		Action:   c.QueryParam("action"),
		Limit:    pg.Limit,
		Offset:   pg.Offset,
	}
	var err error
	if f.Since, err = parseTime(c.QueryParam("since"), "since"); err != nil {
		return err
	}
	if f.Until, err = parseTime(c.QueryParam("until"), "until"); err != nil {
		return err
	}

	entries, total, err := h.store.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg.Limit, pg.Offset))
}

func parseTime(v, field string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, apperr.Field(field, "must be an RFC3339 timestamp")
	}
	return t, nil
}

package clinical

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dentalcare/dentalcare/internal/platform/apperr"
	"github.com/dentalcare/dentalcare/internal/platform/auth"
	"github.com/dentalcare/dentalcare/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.Staff...))
	write := api.Group("", auth.RequireRole(auth.RoleAdmin))

	for _, base := range []string{"/treatments", "/Treatment"} {
		read.GET(base, h.ListTreatments)
		read.GET(base+"/:id", h.GetTreatment)
		write.POST(base, h.CreateTreatment)
		write.PUT(base+"/:id", h.UpdateTreatment)
		write.DELETE(base+"/:id", h.DeleteTreatment)
	}

	for _, base := range []string{"/lesions", "/Lesion"} {
		read.GET(base, h.ListLesions)
		read.GET(base+"/:id", h.GetLesion)
		write.POST(base, h.CreateLesion)
		write.PUT(base+"/:id", h.UpdateLesion)
		write.DELETE(base+"/:id", h.DeleteLesion)
	}
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Field("id", "must be a UUID")
	}
	return id, nil
}

// -- Treatment Handlers --

func (h *Handler) CreateTreatment(c echo.Context) error {
	var in TreatmentInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	t, err := h.svc.CreateTreatment(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTreatment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.GetTreatment(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListTreatments(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := TreatmentFilter{Query: c.QueryParam("q")}
	if raw := c.QueryParam("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return apperr.Field("active", "must be true or false")
		}
		f.Active = &v
	}
	items, total, err := h.svc.SearchTreatments(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Treatment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateTreatment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in TreatmentInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	t, err := h.svc.UpdateTreatment(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) DeleteTreatment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteTreatment(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Lesion Handlers --

func (h *Handler) CreateLesion(c echo.Context) error {
	var in LesionInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	l, err := h.svc.CreateLesion(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) GetLesion(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	l, err := h.svc.GetLesion(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) ListLesions(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.SearchLesions(c.Request().Context(), c.QueryParam("q"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Lesion{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateLesion(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in LesionInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	l, err := h.svc.UpdateLesion(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) DeleteLesion(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteLesion(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

package odontogram

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dentalcare/dentalcare/internal/platform/apperr"
	"github.com/dentalcare/dentalcare/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("/odontograms", auth.RequireRole(auth.Staff...))
	write := api.Group("/odontograms", auth.RequireRole(auth.RoleAdmin, auth.RoleDentist))

	write.POST("", h.Create)
	read.GET("/:id", h.Get)
	write.DELETE("/:id", h.Delete)

	read.GET("/patient/:patientId", h.GetByPatient)
	read.GET("/patient/:patientId/treatment-plan", h.TreatmentPlan)
	write.PUT("/patient/:patientId/teeth/:tooth", h.UpsertTooth)
	write.DELETE("/patient/:patientId/teeth/:tooth", h.RemoveTooth)
	write.PUT("/patient/:patientId/notes", h.UpdateNotes)
}

func paramUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.Field(name, "must be a UUID")
	}
	return id, nil
}

func paramTooth(c echo.Context) (int, error) {
	n, err := strconv.Atoi(c.Param("tooth"))
	if err != nil || !ValidToothNumber(n) {
		return 0, apperr.Field("tooth", "must be an FDI tooth number")
	}
	return n, nil
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	o, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	o, err := h.svc.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetByPatient(c echo.Context) error {
	patientID, err := paramUUID(c, "patientId")
	if err != nil {
		return err
	}
	o, err := h.svc.GetByPatient(c.Request().Context(), patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) UpsertTooth(c echo.Context) error {
	patientID, err := paramUUID(c, "patientId")
	if err != nil {
		return err
	}
	tooth, err := paramTooth(c)
	if err != nil {
		return err
	}
	var in ToothInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	o, err := h.svc.UpsertTooth(c.Request().Context(), patientID, tooth, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) RemoveTooth(c echo.Context) error {
	patientID, err := paramUUID(c, "patientId")
	if err != nil {
		return err
	}
	tooth, err := paramTooth(c)
	if err != nil {
		return err
	}
	o, err := h.svc.RemoveTooth(c.Request().Context(), patientID, tooth)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) UpdateNotes(c echo.Context) error {
	patientID, err := paramUUID(c, "patientId")
	if err != nil {
		return err
	}
	var in NotesInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	o, err := h.svc.UpdateNotes(c.Request().Context(), patientID, in.Notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) TreatmentPlan(c echo.Context) error {
	patientID, err := paramUUID(c, "patientId")
	if err != nil {
		return err
	}
	plan, err := h.svc.TreatmentPlan(c.Request().Context(), patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plan)
}

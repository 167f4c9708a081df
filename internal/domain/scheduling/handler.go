package scheduling

import (
	"context"
	"net/http"
	"strconv"
	"time"

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
	write := api.Group("", auth.RequireRole(auth.Staff...))

	for _, base := range []string{"/appointments", "/Appointment"} {
		read.GET(base, h.ListAppointments)
		read.GET(base+"/:id", h.GetAppointment)
		write.POST(base, h.BookAppointment)
		write.POST(base+"/check-overlap", h.CheckOverlap)
		write.PUT(base+"/:id", h.UpdateAppointment)
		write.DELETE(base+"/:id", h.DeleteAppointment)
		write.POST(base+"/:id/reschedule", h.RescheduleAppointment)
		write.POST(base+"/:id/cancel", h.CancelAppointment)
		write.POST(base+"/:id/confirm", h.ConfirmAppointment)
		write.POST(base+"/:id/complete", h.CompleteAppointment)
		write.POST(base+"/:id/no-show", h.MarkNoShow)
	}

	for _, base := range []string{"/patients", "/Patient"} {
		read.GET(base+"/:id/appointments", h.ListPatientAppointments)
	}
	for _, base := range []string{"/doctors", "/Doctor"} {
		read.GET(base+"/:id/appointments", h.ListDoctorAppointments)
		read.GET(base+"/:id/available-slots", h.AvailableSlots)
	}
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Field("id", "must be a UUID")
	}
	return id, nil
}

func queryUUID(c echo.Context, name string) (*uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Field(name, "must be a UUID")
	}
	return &id, nil
}

// queryTime accepts RFC 3339 timestamps or plain dates, the latter taken as
// midnight in the clinic time zone.
func (h *Handler) queryTime(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, h.svc.loc)
	if err != nil {
		return nil, apperr.Field(name, "must be RFC 3339 or YYYY-MM-DD")
	}
	return &t, nil
}

func (h *Handler) bindFilter(c echo.Context) (Filter, error) {
	var f Filter
	var err error
	if f.PatientID, err = queryUUID(c, "patient_id"); err != nil {
		return f, err
	}
	if f.DoctorID, err = queryUUID(c, "doctor_id"); err != nil {
		return f, err
	}
	if raw := c.QueryParam("status"); raw != "" {
		st, err := ParseStatus(raw)
		if err != nil {
			return f, err
		}
		f.Status = &st
	}
	if f.From, err = h.queryTime(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = h.queryTime(c, "to"); err != nil {
		return f, err
	}
	return f, nil
}

func (h *Handler) respondList(c echo.Context, items []*Appointment, total int, pg pagination.Params) error {
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Appointment Handlers --

func (h *Handler) BookAppointment(c echo.Context) error {
	var in BookInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	a, err := h.svc.Book(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	f, err := h.bindFilter(c)
	if err != nil {
		return err
	}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return h.respondList(c, items, total, pg)
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	a, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RescheduleAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in RescheduleInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	a, err := h.svc.Reschedule(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in CancelInput
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&in); err != nil {
			return apperr.Validation("invalid request body")
		}
	}
	a, err := h.svc.Cancel(c.Request().Context(), id, in.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ConfirmAppointment(c echo.Context) error {
	return h.transition(c, h.svc.Confirm)
}

func (h *Handler) CompleteAppointment(c echo.Context) error {
	return h.transition(c, h.svc.Complete)
}

func (h *Handler) MarkNoShow(c echo.Context) error {
	return h.transition(c, h.svc.MarkNoShow)
}

func (h *Handler) transition(c echo.Context, fn func(ctx context.Context, id uuid.UUID) (*Appointment, error)) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := fn(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CheckOverlap(c echo.Context) error {
	var in OverlapInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	if in.DoctorID == uuid.Nil {
		return apperr.Field("doctor_id", "is required")
	}
	slot, err := in.SlotInput.resolve(DefaultDuration)
	if err != nil {
		return err
	}
	overlaps, err := h.svc.CheckOverlap(c.Request().Context(), in.DoctorID, slot, in.ExcludeID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, OverlapResult{Overlaps: overlaps})
}

func (h *Handler) ListPatientAppointments(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return h.respondList(c, items, total, pg)
}

func (h *Handler) ListDoctorAppointments(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	from, err := h.queryTime(c, "from")
	if err != nil {
		return err
	}
	to, err := h.queryTime(c, "to")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByDoctor(c.Request().Context(), id, from, to, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return h.respondList(c, items, total, pg)
}

func (h *Handler) AvailableSlots(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	date, err := time.ParseInLocation("2006-01-02", c.QueryParam("date"), h.svc.loc)
	if err != nil {
		return apperr.Field("date", "must be YYYY-MM-DD")
	}
	duration := DefaultDuration
	if raw := c.QueryParam("duration"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			return apperr.Field("duration", "must be a positive number of minutes")
		}
		duration = time.Duration(minutes) * time.Minute
	}
	slots, err := h.svc.AvailableSlots(c.Request().Context(), id, date, duration)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"doctor_id": id,
		"date":      date.Format("2006-01-02"),
		"slots":     slots,
	})
}

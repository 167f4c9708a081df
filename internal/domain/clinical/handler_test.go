package clinical

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dentalcare/dentalcare/internal/platform/apperr"
)

func newTestHandler() (*Handler, *echo.Echo) {
	return NewHandler(newTestService()), echo.New()
}

func TestHandler_CreateTreatment(t *testing.T) {
	h, e := newTestHandler()
	body := `{"code":"endo","name":"Root canal","price_amount":60000,"duration_minutes":90}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateTreatment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"price":{"amount":60000,"currency":"USD"}`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_GetTreatment_NotFound(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.GetTreatment(c); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestHandler_ListTreatments(t *testing.T) {
	h, e := newTestHandler()
	h.svc.Seed(context.Background())

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?q=root&active=true", nil), rec)
	if err := h.ListTreatments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("expected one match, got %s", rec.Body.String())
	}
}

func TestHandler_UpdateLesion(t *testing.T) {
	h, e := newTestHandler()
	l, _ := h.svc.CreateLesion(context.Background(), LesionInput{Code: "CARIES", Name: "Caries", Color: "#D32F2F"})

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"code":"CARIES","name":"Dental caries","color":"#B71C1C"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(l.ID.String())

	if err := h.UpdateLesion(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"name":"Dental caries"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_DeleteLesion(t *testing.T) {
	h, e := newTestHandler()
	l, _ := h.svc.CreateLesion(context.Background(), LesionInput{Code: "CARIES", Name: "Caries", Color: "#D32F2F"})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(l.ID.String())

	if err := h.DeleteLesion(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandler_DeleteLesion_InvalidID(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("42")

	if err := h.DeleteLesion(c); apperr.CodeOf(err) != apperr.CodeValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

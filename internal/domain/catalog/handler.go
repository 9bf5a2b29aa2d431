package catalog

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Avii12105/medlab/internal/platform/apperr"
	"github.com/Avii12105/medlab/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/test-categories", h.ListCategories)
	api.GET("/test-categories/:id", h.GetCategory)
	api.GET("/tests", h.ListTests)
	api.GET("/tests/:id", h.GetTest)
	api.GET("/tests/category/:categoryId", h.ListTestsByCategory)

	// Catalog writes are limited to admins
	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/test-categories", h.CreateCategory)
	admin.PUT("/test-categories/:id", h.UpdateCategory)
	admin.DELETE("/test-categories/:id", h.DeleteCategory)
	admin.POST("/tests", h.CreateTest)
	admin.PUT("/tests/:id", h.UpdateTest)
	admin.DELETE("/tests/:id", h.DeleteTest)
}

func parseUUIDParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// -- Categories --

type categoryRequest struct {
	Name string `json:"name"`
}

func (h *Handler) ListCategories(c echo.Context) error {
	cats, err := h.svc.ListCategories(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *Handler) GetCategory(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	cat, err := h.svc.GetCategory(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *Handler) CreateCategory(c echo.Context) error {
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cat := &Category{Name: req.Name}
	if err := h.svc.CreateCategory(c.Request().Context(), cat); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *Handler) UpdateCategory(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cat := &Category{ID: id, Name: req.Name}
	if err := h.svc.UpdateCategory(c.Request().Context(), cat); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *Handler) DeleteCategory(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteCategory(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Tests --

// valueList accepts either a JSON array of strings or a single
// comma-separated string such as "Negative,Positive".
type valueList []string

func (v *valueList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = nil
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				*v = append(*v, p)
			}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*v = list
	return nil
}

type testRequest struct {
	CategoryID   uuid.UUID  `json:"category_id"`
	Name         string     `json:"name"`
	ResultType   ResultType `json:"result_type"`
	NormalMin    *float64   `json:"normal_min"`
	NormalMax    *float64   `json:"normal_max"`
	NormalValues valueList  `json:"normal_values"`
	Unit         *string    `json:"unit"`
}

func (r testRequest) toTest() *Test {
	return &Test{
		CategoryID:   r.CategoryID,
		Name:         r.Name,
		ResultType:   r.ResultType,
		NormalMin:    r.NormalMin,
		NormalMax:    r.NormalMax,
		NormalValues: []string(r.NormalValues),
		Unit:         r.Unit,
	}
}

func (h *Handler) ListTests(c echo.Context) error {
	tests, err := h.svc.ListTests(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, tests)
}

func (h *Handler) ListTestsByCategory(c echo.Context) error {
	categoryID, err := parseUUIDParam(c, "categoryId")
	if err != nil {
		return err
	}
	tests, err := h.svc.ListTestsByCategory(c.Request().Context(), categoryID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, tests)
}

func (h *Handler) GetTest(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	t, err := h.svc.GetTest(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) CreateTest(c echo.Context) error {
	var req testRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t := req.toTest()
	if err := h.svc.CreateTest(c.Request().Context(), t); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) UpdateTest(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req testRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t := req.toTest()
	t.ID = id
	if err := h.svc.UpdateTest(c.Request().Context(), t); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) DeleteTest(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteTest(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

package report

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Avii12105/medlab/internal/platform/apperr"
	"github.com/Avii12105/medlab/pkg/pagination"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	lc *Lifecycle
}

func NewHandler(lc *Lifecycle) *Handler {
	return &Handler{lc: lc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/patient/:patientId", h.ListByPatient)
	g.GET("/items/:itemId", h.GetItem)
	g.PUT("/items/:itemId", h.UpdateItem)
	g.DELETE("/items/:itemId", h.DeleteItem)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/items", h.AddItem)
	g.GET("/:id/export", h.Export)
}

func parseUUIDParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

type createRequest struct {
	PatientID uuid.UUID   `json:"patientId"`
	Items     []ItemInput `json:"items"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.lc.Build(c.Request().Context(), req.PatientID, req.Items)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.lc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := parseUUIDParam(c, "patientId")
	if err != nil {
		return err
	}
	items, err := h.lc.ListByPatient(c.Request().Context(), patientID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	d, err := h.lc.Read(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.lc.DeleteReport(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddItem(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var in ItemInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.lc.AddItem(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) GetItem(c echo.Context) error {
	id, err := parseUUIDParam(c, "itemId")
	if err != nil {
		return err
	}
	item, err := h.lc.ReadItem(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) UpdateItem(c echo.Context) error {
	id, err := parseUUIDParam(c, "itemId")
	if err != nil {
		return err
	}
	var upd ItemUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.lc.UpdateItem(c.Request().Context(), id, upd)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteItem(c echo.Context) error {
	id, err := parseUUIDParam(c, "itemId")
	if err != nil {
		return err
	}
	if err := h.lc.DeleteItem(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Export(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	d, err := h.lc.Read(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, d); err != nil {
		return apperr.HTTP(fmt.Errorf("render report %s: %w", id, err))
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="report-%s.xlsx"`, id))
	return c.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}

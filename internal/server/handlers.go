// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pdiddy/census-viewer/internal/catalog"
	"github.com/pdiddy/census-viewer/internal/insights"
	"github.com/pdiddy/census-viewer/internal/reshape"
	"github.com/pdiddy/census-viewer/pkg/types"
)

// MsgUnmappable is returned when a category has no tract map.
const MsgUnmappable = "that indicator can't be mapped right now"

// selection is the common state/county/category query.
type selection struct {
	State      string
	Counties   []string
	Categories []string
}

func parseSelection(c echo.Context) (selection, error) {
	q := c.QueryParams()
	sel := selection{State: q.Get("state"), Counties: q["county"], Categories: q["category"]}
	switch {
	case sel.State == "":
		return sel, echo.NewHTTPError(http.StatusBadRequest, "state is required")
	case len(sel.Counties) == 0:
		return sel, echo.NewHTTPError(http.StatusBadRequest, "at least one county is required")
	case len(sel.Categories) == 0:
		return sel, echo.NewHTTPError(http.StatusBadRequest, "at least one category is required")
	}
	return sel, nil
}

// statusOf maps the error taxonomy onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, types.ErrUnknownState),
		errors.Is(err, types.ErrUnknownCounty),
		errors.Is(err, types.ErrUnknownCategory):
		return http.StatusNotFound
	case types.IsConfigError(err):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrShapeMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c echo.Context, err error) error {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("uri", c.Request().RequestURI).Error("building view")
	}
	return echo.NewHTTPError(status, err.Error()).SetInternal(err)
}

// Health reports liveness.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// GetStates lists the state names.
func (h *Handler) GetStates(c echo.Context) error {
	return c.JSON(http.StatusOK, h.cat.States())
}

// GetCounties lists the counties of the :state path parameter.
func (h *Handler) GetCounties(c echo.Context) error {
	counties, err := h.cat.Counties(c.Param("state"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, counties)
}

// GetCategories lists the category labels.
func (h *Handler) GetCategories(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"categories": h.cat.Categories(),
		"mappable":   h.mappableList(),
	})
}

// GetVariables searches the variable details index.
func (h *Handler) GetVariables(c echo.Context) error {
	q := catalog.IndexQuery{Text: c.QueryParam("q"), Category: c.QueryParam("category")}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		q.Limit = limit
	}
	if q.Category != "" && !h.cat.HasCategory(q.Category) {
		return h.fail(c, fmt.Errorf("%w: %q", types.ErrUnknownCategory, q.Category))
	}

	vars, err := h.index.Search(c.Request().Context(), q)
	if err != nil {
		return h.fail(c, err)
	}
	if vars == nil {
		vars = []catalog.Variable{}
	}
	return c.JSON(http.StatusOK, vars)
}

// GetData returns the county-vs-state table, as CSV when format=csv.
func (h *Handler) GetData(c echo.Context) error {
	sel, err := parseSelection(c)
	if err != nil {
		return err
	}
	table, err := h.views.BuildDataframe(c.Request().Context(), sel.Counties, []string{sel.State}, sel.Categories)
	if err != nil {
		return h.fail(c, err)
	}

	if c.QueryParam("format") == "csv" {
		return writeCSV(c, table)
	}
	return c.JSON(http.StatusOK, table)
}

// GetInsights returns the chart series and sentences for the selection.
func (h *Handler) GetInsights(c echo.Context) error {
	sel, err := parseSelection(c)
	if err != nil {
		return err
	}
	table, err := h.views.BuildDataframe(c.Request().Context(), sel.Counties, []string{sel.State}, sel.Categories)
	if err != nil {
		return h.fail(c, err)
	}
	report, err := insights.Build(table, h.cat)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// mapResponse adds the map centre of the first county to the snapshots.
type mapResponse struct {
	*types.TractSnapshot
	Center *center `json:"center,omitempty"`
}

type center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// GetMap returns the present and past tract snapshots.
func (h *Handler) GetMap(c echo.Context) error {
	sel, err := parseSelection(c)
	if err != nil {
		return err
	}
	for _, category := range sel.Categories {
		if !h.cat.HasCategory(category) {
			return h.fail(c, fmt.Errorf("%w: %q", types.ErrUnknownCategory, category))
		}
		if len(h.mappable) > 0 && !h.mappable[category] {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, MsgUnmappable)
		}
	}

	snap, err := h.views.BuildMappingDF(c.Request().Context(), sel.Counties, sel.State, sel.Categories)
	if err != nil {
		return h.fail(c, err)
	}
	resp := mapResponse{TractSnapshot: snap}
	if county, err := h.cat.County(sel.State, sel.Counties[0]); err == nil && (county.Lat != 0 || county.Lon != 0) {
		resp.Center = &center{Lat: county.Lat, Lon: county.Lon}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) mappableList() []string {
	if len(h.mappable) == 0 {
		return h.cat.Categories()
	}
	var out []string
	for _, category := range h.cat.Categories() {
		if h.mappable[category] {
			out = append(out, category)
		}
	}
	return out
}

func writeCSV(c echo.Context, table *types.MergedTable) error {
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	resp.Header().Set(echo.HeaderContentDisposition, `attachment; filename="census-data.csv"`)
	resp.WriteHeader(http.StatusOK)
	return reshape.WriteCSV(resp, table)
}

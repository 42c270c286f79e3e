// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server is the JSON API the dashboard UI renders: reference
// lookups, the county-vs-state table, insights and tract snapshots.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/census-viewer/internal/catalog"
	"github.com/pdiddy/census-viewer/pkg/types"
)

// Builder produces the dashboard tables. *viewer.Viewer satisfies it.
type Builder interface {
	BuildDataframe(ctx context.Context, countyNames, states, categories []string) (*types.MergedTable, error)
	BuildMappingDF(ctx context.Context, countyNames []string, state string, categories []string) (*types.TractSnapshot, error)
}

// Handler serves the API routes.
type Handler struct {
	cat      *catalog.Catalog
	index    *catalog.Index
	views    Builder
	mappable map[string]bool
	log      logrus.FieldLogger
}

// NewHandler returns a Handler. An empty mappable list allows every
// category on the map route.
func NewHandler(cat *catalog.Catalog, index *catalog.Index, views Builder, mappable []string, log logrus.FieldLogger) *Handler {
	m := make(map[string]bool, len(mappable))
	for _, c := range mappable {
		m[c] = true
	}
	return &Handler{cat: cat, index: index, views: views, mappable: m, log: log}
}

// RegisterRoutes mounts the API on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	api := e.Group("/api")
	api.GET("/states", h.GetStates)
	api.GET("/states/:state/counties", h.GetCounties)
	api.GET("/categories", h.GetCategories)
	api.GET("/variables", h.GetVariables)
	api.GET("/data", h.GetData)
	api.GET("/insights", h.GetInsights)
	api.GET("/map", h.GetMap)
}

// New returns an Echo instance with the standard middleware and h's routes.
func New(h *Handler, log logrus.FieldLogger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.Round(time.Microsecond).String(),
				"request_id": v.RequestID,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("request failed")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	h.RegisterRoutes(e)
	return e
}

// Serve runs e on addr until ctx is cancelled, then shuts down within
// timeout.
func Serve(ctx context.Context, e *echo.Echo, addr string, timeout time.Duration) error {
	errc := make(chan error, 1)
	go func() {
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

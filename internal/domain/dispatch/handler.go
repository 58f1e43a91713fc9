package dispatch

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Querier runs a read against the hub on its owning goroutine.
type Querier interface {
	Query(ctx context.Context, fn func(h *Hub)) error
}

// Handler serves read-only snapshots of the hub.
type Handler struct {
	q Querier
}

func NewHandler(q Querier) *Handler {
	return &Handler{q: q}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/ambulances/online", h.OnlineAmbulances)
	g.GET("/drivers/:ambulanceId/patients", h.DriverPatients)
	g.GET("/hospitals/:hospitalId/ambulances", h.HospitalAmbulances)
	g.GET("/status", h.Status)
}

func (h *Handler) OnlineAmbulances(c echo.Context) error {
	var roster []RosterEntry
	if err := h.query(c, func(hub *Hub) { roster = hub.Roster() }); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "ambulances": roster})
}

func (h *Handler) DriverPatients(c echo.Context) error {
	id := c.Param("ambulanceId")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ambulance id is required")
	}
	var patients []PatientLocationRecord
	if err := h.query(c, func(hub *Hub) { patients = hub.Ledger(id) }); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "patients": patients})
}

func (h *Handler) HospitalAmbulances(c echo.Context) error {
	id := c.Param("hospitalId")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "hospital id is required")
	}
	var ambulances []HospitalRosterEntry
	if err := h.query(c, func(hub *Hub) { ambulances = hub.HospitalAmbulances(id) }); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "ambulances": ambulances})
}

func (h *Handler) Status(c echo.Context) error {
	var counts Counts
	if err := h.query(c, func(hub *Hub) { counts = hub.Counts() }); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "online",
		"timestamp":   time.Now().UTC(),
		"connections": counts,
	})
}

func (h *Handler) query(c echo.Context, fn func(*Hub)) error {
	if err := h.q.Query(c.Request().Context(), fn); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "hub unavailable")
	}
	return nil
}

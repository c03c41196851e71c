package api

import (
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"

	"racecalc/internal/analysis"
	"racecalc/internal/service"
	"racecalc/internal/store"
)

// Handler contains all HTTP handlers
type Handler struct {
	planner *service.PlannerService
}

// NewHandler creates a new handler
func NewHandler(planner *service.PlannerService) *Handler {
	return &Handler{planner: planner}
}

// zoneResponse is a Zone with unbounded edges as null
type zoneResponse struct {
	Index        int      `json:"index"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Lower        float64  `json:"lower"`
	Upper        *float64 `json:"upper"`
	Unit         string   `json:"unit"`
	RangeLow     float64  `json:"range_low"`
	RangeHigh    *float64 `json:"range_high"`
	DisplayRange string   `json:"display_range"`
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func toZoneResponses(zones []analysis.Zone) []zoneResponse {
	if zones == nil {
		return nil
	}
	out := make([]zoneResponse, len(zones))
	for i, z := range zones {
		out[i] = zoneResponse{
			Index:        z.Index,
			Name:         z.Name,
			Description:  z.Description,
			Lower:        z.Lower,
			Upper:        finite(z.Upper),
			Unit:         z.Unit,
			RangeLow:     z.RangeLow,
			RangeHigh:    finite(z.RangeHigh),
			DisplayRange: z.DisplayRange,
		}
	}
	return out
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "racecalc",
	})
}

// GetZones returns every zone table the stored profile supports
func (h *Handler) GetZones(c *fiber.Ctx) error {
	set, err := h.planner.Zones(c.UserContext())
	if err != nil {
		return inputError(err, "Failed to build zones")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"profile":    set.Profile,
			"swim":       toZoneResponses(set.Swim),
			"bike":       toZoneResponses(set.Bike),
			"run":        toZoneResponses(set.Run),
			"heart_rate": toZoneResponses(set.HeartRate),
		},
	})
}

// CalculateZones builds one table from the numbers in the body
func (h *Handler) CalculateZones(c *fiber.Ctx) error {
	var req service.ZoneRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	req.Sport = strings.ToLower(c.Params("sport"))

	zones, err := service.CalculateZones(req)
	if err != nil {
		return inputError(err, "Failed to build zones")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    toZoneResponses(zones),
	})
}

// PredictBike forecasts a bike race
func (h *Handler) PredictBike(c *fiber.Ctx) error {
	var req service.BikeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	res, err := h.planner.PredictBike(c.UserContext(), req)
	if err != nil {
		return inputError(err, "Failed to predict bike race")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    res,
	})
}

// PredictTriathlon forecasts a full triathlon
func (h *Handler) PredictTriathlon(c *fiber.Ctx) error {
	var req service.TriathlonRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	res, err := h.planner.PredictTriathlon(c.UserContext(), req)
	if err != nil {
		return inputError(err, "Failed to predict triathlon")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    res,
	})
}

// ListPredictions returns the prediction history, optionally by ?kind=bike|triathlon
func (h *Handler) ListPredictions(c *fiber.Ctx) error {
	kind := c.Query("kind")
	if kind != "" && kind != store.PredictionBike && kind != store.PredictionTriathlon {
		return fiber.NewError(fiber.StatusBadRequest, "kind must be bike or triathlon")
	}

	preds, err := h.planner.History(c.UserContext(), kind, c.QueryInt("limit", service.DefaultHistoryLimit))
	if err != nil {
		return inputError(err, "Failed to list predictions")
	}
	if preds == nil {
		preds = []store.Prediction{}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    preds,
	})
}

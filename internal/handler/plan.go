package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wardrobe-planner/internal/service"
)

// PlanHandler serves the plan composer under /plan.
type PlanHandler struct {
	Plans *service.PlanService
}

func NewPlanHandler(p *service.PlanService) *PlanHandler { return &PlanHandler{Plans: p} }

type addPlanReq struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Date        string   `json:"date"`
	ClothesIDs  []uint64 `json:"clothesIds"`
}

type updatePlanReq struct {
	PlanID     uint64   `json:"planId"`
	ClothesIDs []uint64 `json:"clothesIds"`
}

// List: ?year=&month=[&day=] grouped by YYYY-MM-DD.
func (h *PlanHandler) List(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}
	year, err1 := strconv.Atoi(c.QueryParam("year"))
	month, err2 := strconv.Atoi(c.QueryParam("month"))
	if err1 != nil || err2 != nil {
		return badRequest("year and month are required numbers")
	}
	day := 0
	if d := strings.TrimSpace(c.QueryParam("day")); d != "" {
		if day, err = strconv.Atoi(d); err != nil || day < 1 {
			return badRequest("day must be between 1 and 31")
		}
	}
	out, err := h.Plans.List(c.Request().Context(), uid, year, month, day)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Detail: one plan with its garments.
func (h *PlanHandler) Detail(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.Plans.Detail(c.Request().Context(), id, uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Add: create a plan paired with the given garments.
func (h *PlanHandler) Add(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}
	var req addPlanReq
	if err := bind(c, &req); err != nil {
		return err
	}
	var desc *string
	if req.Description != nil && strings.TrimSpace(*req.Description) != "" {
		desc = req.Description
	}
	p, err := h.Plans.Add(c.Request().Context(), uid, service.PlanInput{
		Title:       req.Title,
		Description: desc,
		Date:        req.Date,
		GarmentIDs:  req.ClothesIDs,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

// Update: replace the garments of a plan.  The plan id comes from the body
// on /plan/update and from the path on /plan/:id.
func (h *PlanHandler) Update(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}
	var req updatePlanReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if c.Param("id") != "" {
		if req.PlanID, err = pathID(c, "id"); err != nil {
			return err
		}
	}
	if req.PlanID == 0 {
		return badRequest("planId is required")
	}
	p, err := h.Plans.Update(c.Request().Context(), req.PlanID, uid, req.ClothesIDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Delete: remove a plan and its pairings.
func (h *PlanHandler) Delete(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Plans.Delete(c.Request().Context(), id, uid); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

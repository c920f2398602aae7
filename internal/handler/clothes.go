package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wardrobe-planner/internal/model"
	"github.com/iliyamo/wardrobe-planner/internal/service"
)

// ClothesHandler serves the garment catalog under /clothes.
type ClothesHandler struct {
	Garments *service.GarmentService
}

func NewClothesHandler(g *service.GarmentService) *ClothesHandler {
	return &ClothesHandler{Garments: g}
}

// garmentReq is the JSON body of a garment write.  Multipart requests carry
// the same fields as form values plus an optional image part.
type garmentReq struct {
	Name     string          `json:"name"`
	Type     *string         `json:"type"`
	Brand    *string         `json:"brand"`
	Color    *string         `json:"color"`
	Seasons  []string        `json:"seasons"`
	Metadata json.RawMessage `json:"metadata"`
}

func (r garmentReq) fields() model.GarmentFields {
	meta := r.Metadata
	if string(meta) == "null" {
		meta = nil
	}
	return model.GarmentFields{
		Name:     r.Name,
		Type:     blankToNil(r.Type),
		Brand:    blankToNil(r.Brand),
		Color:    blankToNil(r.Color),
		Metadata: meta,
		Seasons:  r.Seasons,
	}
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// readGarment decodes a garment write from either a JSON body or a
// multipart form.
func readGarment(c echo.Context) (model.GarmentFields, *service.ImageUpload, error) {
	if !isMultipart(c) {
		var req garmentReq
		if err := bind(c, &req); err != nil {
			return model.GarmentFields{}, nil, err
		}
		return req.fields(), nil, nil
	}

	img, err := readImage(c)
	if err != nil {
		return model.GarmentFields{}, nil, err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return model.GarmentFields{}, nil, badRequest("invalid multipart body")
	}
	req := garmentReq{
		Name:    formValue(form.Value, "name"),
		Type:    formPtr(form.Value, "type"),
		Brand:   formPtr(form.Value, "brand"),
		Color:   formPtr(form.Value, "color"),
		Seasons: parseSeasons(form.Value["seasons"]),
	}
	if m := formValue(form.Value, "metadata"); m != "" {
		req.Metadata = json.RawMessage(m)
	}
	return req.fields(), img, nil
}

func formValue(v map[string][]string, key string) string {
	if vals := v[key]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func formPtr(v map[string][]string, key string) *string {
	if vals := v[key]; len(vals) > 0 {
		return &vals[0]
	}
	return nil
}

// parseSeasons accepts the season list as a JSON array, as repeated form
// values or as one comma-separated value.
func parseSeasons(raw []string) []string {
	if len(raw) == 1 {
		s := strings.TrimSpace(raw[0])
		if strings.HasPrefix(s, "[") {
			var out []string
			if err := json.Unmarshal([]byte(s), &out); err == nil {
				return out
			}
		}
		return strings.Split(s, ",")
	}
	return raw
}

// List: the caller's garments, filtered by ?name=&brand=&type=&season=.
func (h *ClothesHandler) List(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}
	filter := model.GarmentFilter{
		Name:   strings.TrimSpace(c.QueryParam("name")),
		Brand:  strings.TrimSpace(c.QueryParam("brand")),
		Type:   strings.TrimSpace(c.QueryParam("type")),
		Season: strings.TrimSpace(c.QueryParam("season")),
	}
	out, err := h.Garments.List(c.Request().Context(), uid, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Detail: one garment with its seasons.
func (h *ClothesHandler) Detail(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	g, err := h.Garments.Detail(c.Request().Context(), id, uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}

// Add: create a garment, optionally with an image.
func (h *ClothesHandler) Add(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}
	fields, img, err := readGarment(c)
	if err != nil {
		return err
	}
	g, err := h.Garments.Add(c.Request().Context(), uid, fields, img)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, g)
}

// Update: replace a garment's fields and seasons; a new image replaces the
// stored one.
func (h *ClothesHandler) Update(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	fields, img, err := readGarment(c)
	if err != nil {
		return err
	}
	g, err := h.Garments.Update(c.Request().Context(), id, uid, fields, img)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}

// Delete: remove a garment and, best-effort, its image.
func (h *ClothesHandler) Delete(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Garments.Delete(c.Request().Context(), id, uid); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

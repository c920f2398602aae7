package model

import (
	"encoding/json"
	"time"
)

// Garment is a wardrobe item joined with the names of its seasons.  Seasons
// is never nil so it encodes as [] rather than null.
type Garment struct {
	ID        uint64          `json:"id"`
	UserID    uint64          `json:"user_id"`
	Name      string          `json:"name"`
	Type      *string         `json:"type"`
	Brand     *string         `json:"brand"`
	Color     *string         `json:"color"`
	ImageURL  *string         `json:"image_url"`
	Metadata  json.RawMessage `json:"metadata"`
	Seasons   []string        `json:"seasons"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// GarmentFields carries the writable columns of a garment.  Update replaces
// every field, so a nil pointer clears the column.
type GarmentFields struct {
	Name     string
	Type     *string
	Brand    *string
	Color    *string
	Metadata json.RawMessage
	Seasons  []string
}

// GarmentFilter narrows a wardrobe listing.  Empty strings are ignored.
type GarmentFilter struct {
	Name   string
	Brand  string
	Type   string
	Season string
}

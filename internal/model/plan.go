package model

import "time"

// DateLayout is the day-granularity format used for plan dates in storage,
// requests and the calendar grouping.
const DateLayout = "2006-01-02"

// Plan is a dated outfit joined with summaries of its garments.  Garments is
// never nil so an empty plan encodes as [].
type Plan struct {
	ID          uint64        `json:"id"`
	UserID      uint64        `json:"user_id"`
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	Date        string        `json:"date"`
	Garments    []PlanGarment `json:"clothes"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// PlanGarment is the garment summary embedded in a plan, ordered by id.
type PlanGarment struct {
	ID       uint64  `json:"id"`
	Name     string  `json:"name"`
	Type     *string `json:"type"`
	Brand    *string `json:"brand"`
	Color    *string `json:"color"`
	ImageURL *string `json:"image_url"`
}

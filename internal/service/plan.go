package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/wardrobe-planner/internal/database"
	"github.com/iliyamo/wardrobe-planner/internal/logger"
	"github.com/iliyamo/wardrobe-planner/internal/model"
	"github.com/iliyamo/wardrobe-planner/internal/repository"
)

// PlanInput is a new plan.  Date is YYYY-MM-DD or an RFC 3339 timestamp, of
// which only the calendar day is kept.
type PlanInput struct {
	Title       string
	Description *string
	Date        string
	GarmentIDs  []uint64
}

// PlanService is the plan composer.  Ownership is folded into existence:
// another user's plan is NOT_FOUND.
type PlanService struct {
	db       *database.Handle
	plans    *repository.PlanRepo
	garments *repository.GarmentRepo
	now      func() time.Time
}

func NewPlanService(db *database.Handle, plans *repository.PlanRepo, garments *repository.GarmentRepo) *PlanService {
	return &PlanService{db: db, plans: plans, garments: garments, now: time.Now}
}

var errPlanNotFound = &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: "plan not found"}

// ParsePlanDate normalizes a plan date to YYYY-MM-DD.
func ParsePlanDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(model.DateLayout, s); err == nil {
		return t.Format(model.DateLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(model.DateLayout), nil
	}
	return "", validation("date must be YYYY-MM-DD")
}

func dedupeIDs(ids []uint64) ([]uint64, error) {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			return nil, validation("garment ids must be positive")
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// linkTx replaces the pairings of a plan after checking that every garment
// belongs to the owner.
func (s *PlanService) linkTx(ctx context.Context, tx *sql.Tx, planID, ownerID uint64, ids []uint64) error {
	n, err := s.garments.CountOwnedTx(ctx, tx, ownerID, ids)
	if err != nil {
		return err
	}
	if n != len(ids) {
		return validation("unknown garment id in plan")
	}
	if err := s.plans.UnlinkAllTx(ctx, tx, planID); err != nil {
		return err
	}
	return s.plans.LinkGarmentsTx(ctx, tx, planID, ids)
}

// Add creates a plan and pairs it with the given garments.
func (s *PlanService) Add(ctx context.Context, ownerID uint64, in PlanInput) (model.Plan, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || strings.TrimSpace(in.Date) == "" {
		return model.Plan{}, validation("title and date are required")
	}
	date, err := ParsePlanDate(in.Date)
	if err != nil {
		return model.Plan{}, err
	}
	ids, err := dedupeIDs(in.GarmentIDs)
	if err != nil {
		return model.Plan{}, err
	}

	var id uint64
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		if id, err = s.plans.CreateTx(ctx, tx, ownerID, title, in.Description, date, s.now()); err != nil {
			return err
		}
		return s.linkTx(ctx, tx, id, ownerID, ids)
	})
	if err != nil {
		return model.Plan{}, mapErr("add plan", err, "user_id", ownerID)
	}
	logger.Info("plan added", "plan_id", id, "user_id", ownerID)
	return s.Detail(ctx, id, ownerID)
}

// PlanRange returns the [start, end) bounds for a month, or for one day of
// it when day is not zero.
func PlanRange(year, month, day int) (start, end string, err error) {
	if year < 1 || year > 9999 {
		return "", "", validation("year is out of range")
	}
	if month < 1 || month > 12 {
		return "", "", validation("month must be between 1 and 12")
	}
	if day < 0 || day > 31 {
		return "", "", validation("day must be between 1 and 31")
	}
	if day == 0 {
		first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		return first.Format(model.DateLayout), first.AddDate(0, 1, 0).Format(model.DateLayout), nil
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Month() != time.Month(month) {
		return "", "", validation("day does not exist in that month")
	}
	return d.Format(model.DateLayout), d.AddDate(0, 0, 1).Format(model.DateLayout), nil
}

// List groups the owner's plans in a month, or a single day, by date.
func (s *PlanService) List(ctx context.Context, ownerID uint64, year, month, day int) (map[string][]model.Plan, error) {
	start, end, err := PlanRange(year, month, day)
	if err != nil {
		return nil, err
	}
	plans, err := s.plans.ListRange(ctx, ownerID, start, end)
	if err != nil {
		return nil, mapErr("list plans", err, "user_id", ownerID)
	}
	out := make(map[string][]model.Plan)
	for _, p := range plans {
		out[p.Date] = append(out[p.Date], p)
	}
	return out, nil
}

// Detail returns a plan with its garments.
func (s *PlanService) Detail(ctx context.Context, id, ownerID uint64) (model.Plan, error) {
	p, err := s.plans.Get(ctx, id, ownerID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Plan{}, errPlanNotFound
	}
	if err != nil {
		return model.Plan{}, mapErr("plan detail", err, "plan_id", id, "user_id", ownerID)
	}
	return p, nil
}

// Update replaces the garments of a plan.  An empty list clears them.
func (s *PlanService) Update(ctx context.Context, id, ownerID uint64, garmentIDs []uint64) (model.Plan, error) {
	ids, err := dedupeIDs(garmentIDs)
	if err != nil {
		return model.Plan{}, err
	}
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.plans.CheckOwnerTx(ctx, tx, id, ownerID); err != nil {
			return err
		}
		if err := s.linkTx(ctx, tx, id, ownerID, ids); err != nil {
			return err
		}
		return s.plans.TouchTx(ctx, tx, id, s.now())
	})
	if errors.Is(err, repository.ErrNotFound) {
		return model.Plan{}, errPlanNotFound
	}
	if err != nil {
		return model.Plan{}, mapErr("update plan", err, "plan_id", id, "user_id", ownerID)
	}
	return s.Detail(ctx, id, ownerID)
}

// Delete removes a plan and its pairings.
func (s *PlanService) Delete(ctx context.Context, id, ownerID uint64) error {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return s.plans.DeleteTx(ctx, tx, id, ownerID)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return errPlanNotFound
	}
	if err != nil {
		return mapErr("delete plan", err, "plan_id", id, "user_id", ownerID)
	}
	logger.Info("plan deleted", "plan_id", id, "user_id", ownerID)
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/wardrobe-planner/internal/database"
	"github.com/iliyamo/wardrobe-planner/internal/model"
)

const planColumns = `id, user_id, title, description, plan_date, created_at, updated_at`

// PlanRepo provides CRUD for plans and the plan_items join.  Every lookup is
// scoped by owner: a plan that exists but belongs to someone else is
// reported as ErrNotFound.
type PlanRepo struct{ db *database.Handle }

func NewPlanRepo(db *database.Handle) *PlanRepo { return &PlanRepo{db: db} }

func scanPlan(row interface{ Scan(...interface{}) error }) (model.Plan, error) {
	var (
		p    model.Plan
		desc sql.NullString
		date time.Time
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Title, &desc, &date, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return p, err
	}
	p.Description = nullString(desc)
	p.Date = date.Format(model.DateLayout)
	p.Garments = []model.PlanGarment{}
	return p, nil
}

// CreateTx inserts a plan row.  date is a YYYY-MM-DD string.
func (r *PlanRepo) CreateTx(ctx context.Context, tx *sql.Tx, userID uint64, title string, description *string, date string, now time.Time) (uint64, error) {
	now = ts(now)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO plans (user_id, title, description, plan_date, created_at, updated_at) VALUES (?,?,?,?,?,?)`,
		userID, title, strArg(description), date, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CheckOwnerTx confirms that plan id belongs to userID, locking the row on
// MySQL.  Absent and not-owned both yield ErrNotFound.
func (r *PlanRepo) CheckOwnerTx(ctx context.Context, tx *sql.Tx, id, userID uint64) error {
	var got uint64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM plans WHERE id=? AND user_id=?"+r.db.Dialect.ForUpdate(), id, userID).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// TouchTx bumps updated_at after the pairings change.
func (r *PlanRepo) TouchTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) error {
	_, err := tx.ExecContext(ctx, "UPDATE plans SET updated_at=? WHERE id=?", ts(now), id)
	return err
}

// LinkGarmentsTx pairs a plan with garments in one parameterised multi-row
// insert.  Re-adding an existing pairing is a no-op.
func (r *PlanRepo) LinkGarmentsTx(ctx context.Context, tx *sql.Tx, planID uint64, garmentIDs []uint64) error {
	if len(garmentIDs) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(r.db.Dialect.InsertIgnore() + " plan_items (plan_id, clothes_id) VALUES ")
	args := make([]interface{}, 0, len(garmentIDs)*2)
	for i, gid := range garmentIDs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?,?)")
		args = append(args, planID, gid)
	}
	_, err := tx.ExecContext(ctx, b.String(), args...)
	return err
}

// UnlinkAllTx removes every garment pairing of a plan.
func (r *PlanRepo) UnlinkAllTx(ctx context.Context, tx *sql.Tx, planID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM plan_items WHERE plan_id=?", planID)
	return err
}

// DeleteTx deletes a plan owned by userID together with its pairings.
func (r *PlanRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id, userID uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM plan_items WHERE plan_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM plans WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return err
	}
	return affected(res)
}

// Get returns a plan owned by userID with its garments ordered by id.
func (r *PlanRepo) Get(ctx context.Context, id, userID uint64) (model.Plan, error) {
	p, err := scanPlan(r.db.QueryRowContext(ctx,
		"SELECT "+planColumns+" FROM plans WHERE id=? AND user_id=?", id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	plans := []model.Plan{p}
	if err := r.attachGarments(ctx, plans); err != nil {
		return p, err
	}
	return plans[0], nil
}

// ListRange returns the user's plans with start <= date < end, ordered by
// date.  Bounds are YYYY-MM-DD strings.
func (r *PlanRepo) ListRange(ctx context.Context, userID uint64, start, end string) ([]model.Plan, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+planColumns+" FROM plans WHERE user_id=? AND plan_date >= ? AND plan_date < ? ORDER BY plan_date ASC, id ASC",
		userID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachGarments(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachGarments fills Garments for each plan with one IN query.
func (r *PlanRepo) attachGarments(ctx context.Context, plans []model.Plan) error {
	if len(plans) == 0 {
		return nil
	}
	ids := make([]uint64, len(plans))
	index := make(map[uint64]int, len(plans))
	for i, p := range plans {
		ids[i] = p.ID
		index[p.ID] = i
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT pi.plan_id, c.id, c.name, c.type, c.brand, c.color, c.image_url
			FROM plan_items pi JOIN clothes c ON c.id = pi.clothes_id
			WHERE pi.plan_id IN (`+database.Placeholders(len(ids))+`)
			ORDER BY c.id`,
		idArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			planID                   uint64
			g                        model.PlanGarment
			typ, brand, color, image sql.NullString
		)
		if err := rows.Scan(&planID, &g.ID, &g.Name, &typ, &brand, &color, &image); err != nil {
			return err
		}
		g.Type, g.Brand, g.Color, g.ImageURL = nullString(typ), nullString(brand), nullString(color), nullString(image)
		i := index[planID]
		plans[i].Garments = append(plans[i].Garments, g)
	}
	return rows.Err()
}

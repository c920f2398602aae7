package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/wardrobe-planner/internal/database"
	"github.com/iliyamo/wardrobe-planner/internal/model"
)

const garmentColumns = `c.id, c.user_id, c.name, c.type, c.brand, c.color, c.image_url, c.metadata, c.created_at, c.updated_at`

// GarmentRepo provides CRUD for the clothes table.  Writes come in Tx
// flavours so the service can run the garment row, its season pairings and
// the ownership check as one unit; reads are single autocommit queries.
type GarmentRepo struct{ db *database.Handle }

func NewGarmentRepo(db *database.Handle) *GarmentRepo { return &GarmentRepo{db: db} }

func scanGarment(row interface{ Scan(...interface{}) error }) (model.Garment, error) {
	var (
		g                        model.Garment
		typ, brand, color, image sql.NullString
		metadata                 sql.NullString
	)
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &typ, &brand, &color, &image, &metadata, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return g, err
	}
	g.Type, g.Brand, g.Color, g.ImageURL = nullString(typ), nullString(brand), nullString(color), nullString(image)
	if metadata.Valid && metadata.String != "" {
		g.Metadata = json.RawMessage(metadata.String)
	}
	g.Seasons = []string{}
	return g, nil
}

func metadataArg(m json.RawMessage) interface{} {
	if len(m) == 0 {
		return nil
	}
	return string(m)
}

// CreateTx inserts a garment row and returns its id.
func (r *GarmentRepo) CreateTx(ctx context.Context, tx *sql.Tx, userID uint64, f model.GarmentFields, imageURL *string, now time.Time) (uint64, error) {
	now = ts(now)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO clothes (user_id, name, type, brand, color, image_url, metadata, created_at, updated_at)
			VALUES (?,?,?,?,?,?,?,?,?)`,
		userID, f.Name, strArg(f.Type), strArg(f.Brand), strArg(f.Color), strArg(imageURL), metadataArg(f.Metadata), now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CheckOwnerTx verifies that garment id belongs to userID and returns its
// current image URL.  ErrNotFound when the row is absent, ErrForbidden
// when someone else owns it.  On MySQL the row stays locked until tx ends.
func (r *GarmentRepo) CheckOwnerTx(ctx context.Context, tx *sql.Tx, id, userID uint64) (*string, error) {
	var (
		owner uint64
		image sql.NullString
	)
	err := tx.QueryRowContext(ctx,
		"SELECT user_id, image_url FROM clothes WHERE id=?"+r.db.Dialect.ForUpdate(), id).Scan(&owner, &image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if owner != userID {
		return nil, ErrForbidden
	}
	return nullString(image), nil
}

// UpdateTx replaces every writable field of a garment.
func (r *GarmentRepo) UpdateTx(ctx context.Context, tx *sql.Tx, id uint64, f model.GarmentFields, imageURL *string, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE clothes SET name=?, type=?, brand=?, color=?, image_url=?, metadata=?, updated_at=? WHERE id=?`,
		f.Name, strArg(f.Type), strArg(f.Brand), strArg(f.Color), strArg(imageURL), metadataArg(f.Metadata), ts(now), id)
	if err != nil {
		return err
	}
	return affected(res)
}

// DeleteTx removes the garment's season and plan pairings and then the row.
func (r *GarmentRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM clothes_seasons WHERE clothes_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM plan_items WHERE clothes_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM clothes WHERE id=?", id)
	if err != nil {
		return err
	}
	return affected(res)
}

// Get returns one garment with its seasons.  Ownership is checked by the
// caller against Garment.UserID.
func (r *GarmentRepo) Get(ctx context.Context, id uint64) (model.Garment, error) {
	g, err := scanGarment(r.db.QueryRowContext(ctx,
		"SELECT "+garmentColumns+" FROM clothes c WHERE c.id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return g, ErrNotFound
	}
	if err != nil {
		return g, err
	}
	names, err := seasonNames(ctx, r.db, []uint64{g.ID})
	if err != nil {
		return g, err
	}
	g.Seasons = names[g.ID]
	return g, nil
}

// List returns the user's garments newest first.  Name and brand match
// case-insensitive substrings, type matches exactly and season keeps only
// garments paired with that season.
func (r *GarmentRepo) List(ctx context.Context, userID uint64, f model.GarmentFilter) ([]model.Garment, error) {
	var (
		where = []string{"c.user_id = ?"}
		args  = []interface{}{userID}
	)
	if f.Name != "" {
		where = append(where, r.db.Dialect.FoldCase("c.name")+" LIKE ? ESCAPE '!'")
		args = append(args, "%"+database.EscapeLike(strings.ToLower(f.Name))+"%")
	}
	if f.Brand != "" {
		where = append(where, r.db.Dialect.FoldCase("c.brand")+" LIKE ? ESCAPE '!'")
		args = append(args, "%"+database.EscapeLike(strings.ToLower(f.Brand))+"%")
	}
	if f.Type != "" {
		where = append(where, "c.type = ?")
		args = append(args, f.Type)
	}
	if f.Season != "" {
		where = append(where, `EXISTS (SELECT 1 FROM clothes_seasons cs2
			JOIN seasons s2 ON s2.id = cs2.season_id
			WHERE cs2.clothes_id = c.id AND s2.name = ?)`)
		args = append(args, strings.ToLower(strings.TrimSpace(f.Season)))
	}
	q := "SELECT " + garmentColumns + " FROM clothes c WHERE " + strings.Join(where, " AND ") +
		" ORDER BY c.created_at DESC, c.id DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Garment{}
	for rows.Next() {
		g, err := scanGarment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	ids := make([]uint64, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	names, err := seasonNames(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Seasons = names[out[i].ID]
	}
	return out, nil
}

// CountOwnedTx returns how many of ids belong to userID.  ids must be
// distinct.
func (r *GarmentRepo) CountOwnedTx(ctx context.Context, tx *sql.Tx, userID uint64, ids []uint64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := append([]interface{}{userID}, idArgs(ids)...)
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM clothes WHERE user_id=? AND id IN ("+database.Placeholders(len(ids))+")",
		args...).Scan(&n)
	return n, err
}

// ImageURLsTx lists the stored image URLs of every garment owned by userID.
func (r *GarmentRepo) ImageURLsTx(ctx context.Context, tx *sql.Tx, userID uint64) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT image_url FROM clothes WHERE user_id=? AND image_url IS NOT NULL", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/iliyamo/wardrobe-planner/internal/database"
)

// SeasonRepo manages the global season tags and the clothes_seasons join.
type SeasonRepo struct{ db *database.Handle }

func NewSeasonRepo(db *database.Handle) *SeasonRepo { return &SeasonRepo{db: db} }

// NormalizeSeasons trims and lower-cases names, drops blanks and
// duplicates, and returns them sorted.
func NormalizeSeasons(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// EnsureTx looks up each season by name, inserting the ones that do not
// exist yet, and returns their ids.  Names must already be normalized.
func (r *SeasonRepo) EnsureTx(ctx context.Context, tx *sql.Tx, names []string) ([]uint64, error) {
	ids := make([]uint64, 0, len(names))
	for _, name := range names {
		if _, err := tx.ExecContext(ctx, r.db.Dialect.InsertIgnore()+" seasons (name) VALUES (?)", name); err != nil {
			return nil, err
		}
		var id uint64
		if err := tx.QueryRowContext(ctx, "SELECT id FROM seasons WHERE name=?", name).Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// LinkTx pairs a garment with seasons in one multi-row statement.  Existing
// pairings are skipped.
func (r *SeasonRepo) LinkTx(ctx context.Context, tx *sql.Tx, garmentID uint64, seasonIDs []uint64) error {
	if len(seasonIDs) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(r.db.Dialect.InsertIgnore() + " clothes_seasons (clothes_id, season_id) VALUES ")
	args := make([]interface{}, 0, len(seasonIDs)*2)
	for i, sid := range seasonIDs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?,?)")
		args = append(args, garmentID, sid)
	}
	_, err := tx.ExecContext(ctx, b.String(), args...)
	return err
}

// UnlinkAllTx removes every season pairing of a garment.
func (r *SeasonRepo) UnlinkAllTx(ctx context.Context, tx *sql.Tx, garmentID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM clothes_seasons WHERE clothes_id=?", garmentID)
	return err
}

// seasonNames returns sorted season names per garment id.  Garments with no
// season get an empty, non-nil slice.
func seasonNames(ctx context.Context, q querier, garmentIDs []uint64) (map[uint64][]string, error) {
	out := make(map[uint64][]string, len(garmentIDs))
	for _, id := range garmentIDs {
		out[id] = []string{}
	}
	if len(garmentIDs) == 0 {
		return out, nil
	}
	rows, err := q.QueryContext(ctx,
		`SELECT cs.clothes_id, s.name FROM clothes_seasons cs
			JOIN seasons s ON s.id = cs.season_id
			WHERE cs.clothes_id IN (`+database.Placeholders(len(garmentIDs))+`)
			ORDER BY s.name`,
		idArgs(garmentIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   uint64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = append(out[id], name)
	}
	return out, rows.Err()
}

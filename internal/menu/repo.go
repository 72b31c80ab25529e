package menu

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("menu item not found")

type Repo struct{ DB *pgxpool.Pool }

// Querier is satisfied by *pgxpool.Pool and pgx.Tx, so item lookups can run
// inside another package's transaction.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const selectItem = `SELECT id, name, description, price::text, category, available, calories, tags, updated_at
                    FROM menu_items`

func (r *Repo) List(ctx context.Context, tenantID, category string) ([]Item, error) {
	q := selectItem + ` WHERE tenant_id=$1`
	args := []any{tenantID}
	if category != "" {
		q += ` AND category=$2`
		args = append(args, category)
	}
	q += ` ORDER BY category, name`

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, tenantID, id string) (Item, error) {
	it, err := scanItem(r.DB.QueryRow(ctx, selectItem+` WHERE tenant_id=$1 AND id=$2`, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	return it, err
}

// GetMany returns the requested items keyed by id. Missing ids are simply
// absent from the map; the caller decides whether that is an error.
func GetMany(ctx context.Context, q Querier, tenantID string, ids []string) (map[string]Item, error) {
	rows, err := q.Query(ctx, selectItem+` WHERE tenant_id=$1 AND id = ANY($2)`, tenantID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Item, len(ids))
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out[it.ID] = it
	}
	return out, rows.Err()
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		it    Item
		price string
	)
	if err := row.Scan(&it.ID, &it.Name, &it.Description, &price, &it.Category, &it.Available,
		&it.Calories, &it.Tags, &it.UpdatedAt); err != nil {
		return Item{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return Item{}, fmt.Errorf("menu item %s price %q: %w", it.ID, price, err)
	}
	it.Price = p
	return it, nil
}

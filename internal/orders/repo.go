package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-restaurant-pos/internal/menu"
	"github.com/ariefcatur/go-restaurant-pos/internal/pricing"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct {
	DB    *pgxpool.Pool
	Rates pricing.Rates
}

const selectOrder = `SELECT id, external_id, tenant_id, status, order_type, table_number, payment_method, customer,
                            subtotal::text, tax::text, service_charge::text, discount::text, tip::text, total::text,
                            created_at, updated_at
                     FROM orders`

// Create: idempotent via (tenant_id, external_id).
// - kalau external_id sudah ada -> return order lama (existed=true).
func (r *Repo) Create(ctx context.Context, tenantID string, req CreateRequest) (o Order, existed bool, err error) {
	if req.ExternalID == "" {
		req.ExternalID = uuid.NewString()
	} else {
		o, err = r.getByExternalID(ctx, tenantID, req.ExternalID)
		if err == nil {
			return o, true, nil
		} else if !errors.Is(err, ErrNotFound) {
			return Order{}, false, err
		}
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// harga diambil dari menu_items (hindari trust dari client)
	catalog, err := menu.GetMany(ctx, tx, tenantID, menuIDs(req.Items))
	if err != nil {
		return Order{}, false, err
	}
	items, totals, err := Quote(req, catalog, r.Rates)
	if err != nil {
		return Order{}, false, err
	}

	var customer []byte
	if req.CustomerInfo != nil {
		if customer, err = json.Marshal(req.CustomerInfo); err != nil {
			return Order{}, false, err
		}
	}

	o = Order{
		ID:            uuid.NewString(),
		ExternalID:    req.ExternalID,
		TenantID:      tenantID,
		Items:         items,
		Status:        StatusPlaced,
		OrderType:     req.OrderType,
		TableNumber:   req.TableNumber,
		PaymentMethod: req.PaymentMethod,
		Customer:      req.CustomerInfo,
		Totals:        totals,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, tenant_id, external_id, status, order_type, table_number, payment_method, customer,
		                   subtotal, tax, service_charge, discount, tip, total)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at, updated_at`,
		o.ID, tenantID, o.ExternalID, string(o.Status), o.OrderType, o.TableNumber, o.PaymentMethod, customer,
		totals.Subtotal.String(), totals.Tax.String(), totals.ServiceCharge.String(),
		totals.Discount.String(), totals.Tip.String(), totals.Total.String(),
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// balapan dengan request lain yang external_id-nya sama
			_ = tx.Rollback(ctx)
			o, err = r.getByExternalID(ctx, tenantID, req.ExternalID)
			return o, err == nil, err
		}
		return Order{}, false, err
	}

	for i, it := range items {
		if _, err = tx.Exec(ctx, `
			INSERT INTO order_items(order_id, position, menu_item_id, name, unit_price, qty, notes)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			o.ID, i, it.MenuItemID, it.Name, it.UnitPrice.String(), it.Quantity, it.Notes,
		); err != nil {
			return Order{}, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, false, err
	}
	return o, false, nil
}

func menuIDs(in []ItemInput) []string {
	ids := make([]string, 0, len(in))
	for _, it := range in {
		ids = append(ids, it.MenuItemID)
	}
	return ids
}

func (r *Repo) Get(ctx context.Context, tenantID, id string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, selectOrder+` WHERE tenant_id=$1 AND id=$2`, tenantID, id))
	if err != nil {
		return Order{}, err
	}
	return o, r.loadItems(ctx, &o)
}

func (r *Repo) getByExternalID(ctx context.Context, tenantID, externalID string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, selectOrder+` WHERE tenant_id=$1 AND external_id=$2`, tenantID, externalID))
	if err != nil {
		return Order{}, err
	}
	return o, r.loadItems(ctx, &o)
}

// List returns newest first. Empty status means all statuses.
func (r *Repo) List(ctx context.Context, tenantID string, status Status, limit int) ([]Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := selectOrder + ` WHERE tenant_id=$1`
	args := []any{tenantID}
	if status != "" {
		q += ` AND status=$2`
		args = append(args, string(status))
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := r.loadItems(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) GetStatus(ctx context.Context, tenantID, id string) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE tenant_id=$1 AND id=$2`, tenantID, id).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return Status(s), nil
}

// TransitionStatus locks the row, checks the transition table and updates.
// It returns the previous status.
func (r *Repo) TransitionStatus(ctx context.Context, tenantID, id string, to Status) (Status, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var cur string
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenantID, id).Scan(&cur)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	from := Status(cur)
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$3, updated_at=now() WHERE tenant_id=$1 AND id=$2`,
		tenantID, id, string(to)); err != nil {
		return "", err
	}
	return from, tx.Commit(ctx)
}

// Sales aggregates non-cancelled orders created in [from, to).
func (r *Repo) Sales(ctx context.Context, tenantID string, from, to time.Time) (SalesSummary, error) {
	var (
		total string
		count int
	)
	err := r.DB.QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0)::text, COUNT(*)
		FROM orders
		WHERE tenant_id=$1 AND status <> 'cancelled' AND created_at >= $2 AND created_at < $3`,
		tenantID, from, to).Scan(&total, &count)
	if err != nil {
		return SalesSummary{}, err
	}
	sum, err := decimal.NewFromString(total)
	if err != nil {
		return SalesSummary{}, err
	}
	return Summarize(from, sum, count), nil
}

func Summarize(day time.Time, total decimal.Decimal, count int) SalesSummary {
	s := SalesSummary{Date: day.Format("2006-01-02"), TotalSales: total.Round(2), OrderCount: count, AverageOrderValue: decimal.Zero}
	if count > 0 {
		s.AverageOrderValue = total.Div(decimal.NewFromInt(int64(count))).Round(2)
	}
	return s
}

func (r *Repo) loadItems(ctx context.Context, o *Order) error {
	rows, err := r.DB.Query(ctx, `SELECT menu_item_id, name, unit_price::text, qty, notes
	                              FROM order_items WHERE order_id=$1 ORDER BY position`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	o.Items = []Item{}
	for rows.Next() {
		var (
			it    Item
			price string
		)
		if err := rows.Scan(&it.MenuItemID, &it.Name, &price, &it.Quantity, &it.Notes); err != nil {
			return err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o        Order
		status   string
		customer []byte
		amounts  [6]string
	)
	err := row.Scan(&o.ID, &o.ExternalID, &o.TenantID, &status, &o.OrderType, &o.TableNumber, &o.PaymentMethod, &customer,
		&amounts[0], &amounts[1], &amounts[2], &amounts[3], &amounts[4], &amounts[5],
		&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	if len(customer) > 0 {
		o.Customer = &Customer{}
		if err := json.Unmarshal(customer, o.Customer); err != nil {
			return Order{}, fmt.Errorf("order %s customer: %w", o.ID, err)
		}
	}

	dst := []*decimal.Decimal{&o.Subtotal, &o.Tax, &o.ServiceCharge, &o.Discount, &o.Tip, &o.Total}
	for i, s := range amounts {
		if *dst[i], err = decimal.NewFromString(s); err != nil {
			return Order{}, fmt.Errorf("order %s amount: %w", o.ID, err)
		}
	}
	return o, nil
}

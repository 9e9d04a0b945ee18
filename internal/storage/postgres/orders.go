package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
	"github.com/polkiloo/orderboard/internal/domain/model"
)

type orderRepository struct {
	storage *Storage
}

const orderColumns = `id, number, table_id, status, is_served, is_paid, total_amount, created_at,
        served_at, completed_at, payment_method, transaction_id, paid_at, updated_at`

const itemColumns = `id, name, quantity, unit_price, is_initial, created_at`

// recomputeTotal rewrites the cached total from the authoritative item rows.
const recomputeTotal = `UPDATE orders
        SET total_amount = (SELECT COALESCE(SUM(unit_price * quantity), 0) FROM order_items WHERE order_id = $1),
            updated_at = NOW()
        WHERE id = $1`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o      model.Order
		method *string
		txID   *string
		paidAt *time.Time
	)
	err := row.Scan(&o.ID, &o.Number, &o.TableID, &o.Status, &o.Served, &o.IsPaid, &o.TotalAmount, &o.CreatedAt,
		&o.ServedAt, &o.CompletedAt, &method, &txID, &paidAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if method != nil && paidAt != nil {
		o.Payment = &model.PaymentInfo{Method: model.PaymentMethod(*method), PaidAt: *paidAt}
		if txID != nil {
			o.Payment.TransactionID = *txID
		}
	}
	return &o, nil
}

func scanItem(row rowScanner) (model.ItemLine, error) {
	var l model.ItemLine
	err := row.Scan(&l.ID, &l.Name, &l.Quantity, &l.UnitPrice, &l.Initial, &l.CreatedAt)
	return l, err
}

func getOrder(ctx context.Context, q querier, id string) (*model.Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}

	rows, err := q.Query(ctx, `SELECT `+itemColumns+` FROM order_items WHERE order_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	o.Items = []model.ItemLine{}
	for rows.Next() {
		l, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		o.Items = append(o.Items, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return o, nil
}

func insertItems(ctx context.Context, tx pgx.Tx, orderID string, items []model.ItemLine, initial bool) error {
	const query = `INSERT INTO order_items (order_id, name, quantity, unit_price, is_initial) VALUES ($1, $2, $3, $4, $5)`
	for _, item := range items {
		if _, err := tx.Exec(ctx, query, orderID, item.Name, item.Quantity, item.UnitPrice, initial); err != nil {
			return err
		}
	}
	return nil
}

// checkOrderID rejects ids the uuid column cannot hold. Such an order cannot
// exist.
func checkOrderID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domainErrors.ErrNotFound
	}
	return nil
}

func lockOrder(ctx context.Context, tx pgx.Tx, id string) error {
	var locked string
	err := tx.QueryRow(ctx, `SELECT id FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return domainErrors.ErrNotFound
	}
	return err
}

func (r *orderRepository) Create(ctx context.Context, order model.NewOrder) (*model.Order, error) {
	id := uuid.NewString()
	var created *model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const insertOrder = `INSERT INTO orders (id, number, table_id, status)
                   VALUES ($1, COALESCE(NULLIF($2, ''), nextval('order_number_seq')::text), $3, 'pending')`
		if _, err := tx.Exec(ctx, insertOrder, id, order.Number, order.TableID); err != nil {
			return err
		}
		if err := insertItems(ctx, tx, id, order.Items, true); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, recomputeTotal, id); err != nil {
			return err
		}
		if order.TableID != nil {
			const occupy = `UPDATE restaurant_tables SET status='occupied', current_order_id=$1 WHERE id=$2`
			if _, err := tx.Exec(ctx, occupy, id, *order.TableID); err != nil {
				return err
			}
		}
		var err error
		created, err = getOrder(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (*model.Order, error) {
	if err := checkOrderID(id); err != nil {
		return nil, err
	}
	return getOrder(ctx, r.storage.pool, id)
}

func (r *orderRepository) ListActive(ctx context.Context) ([]model.Order, error) {
	rows, err := r.storage.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE status <> 'completed' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		result []model.Order
		ids    []string
		index  = map[string]int{}
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		o.Items = []model.ItemLine{}
		index[o.ID] = len(result)
		ids = append(ids, o.ID)
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return result, nil
	}

	itemRows, err := r.storage.pool.Query(ctx, `SELECT order_id, `+itemColumns+` FROM order_items WHERE order_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			orderID string
			l       model.ItemLine
		)
		if err := itemRows.Scan(&orderID, &l.ID, &l.Name, &l.Quantity, &l.UnitPrice, &l.Initial, &l.CreatedAt); err != nil {
			return nil, err
		}
		if i, ok := index[orderID]; ok {
			result[i].Items = append(result[i].Items, l)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepository) CreatedAt(ctx context.Context, id string) (time.Time, error) {
	if err := checkOrderID(id); err != nil {
		return time.Time{}, err
	}
	var createdAt time.Time
	err := r.storage.pool.QueryRow(ctx, `SELECT created_at FROM orders WHERE id=$1`, id).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, domainErrors.ErrNotFound
		}
		return time.Time{}, err
	}
	return createdAt, nil
}

// AddItems appends lines and sends the order back to the kitchen queue.
// Payment state is left alone.
func (r *orderRepository) AddItems(ctx context.Context, id string, items []model.ItemLine) (*model.Order, error) {
	if err := checkOrderID(id); err != nil {
		return nil, err
	}
	var updated *model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		if err := lockOrder(ctx, tx, id); err != nil {
			return err
		}
		if err := insertItems(ctx, tx, id, items, false); err != nil {
			return err
		}
		const revert = `UPDATE orders
                   SET status='pending', is_served=false, served_at=NULL, completed_at=NULL
                   WHERE id=$1`
		if _, err := tx.Exec(ctx, revert, id); err != nil {
			return err
		}
		// A reopened order takes its table back if nobody sat down since.
		const reoccupy = `UPDATE restaurant_tables SET status='occupied', current_order_id=$1
                   WHERE id=(SELECT table_id FROM orders WHERE id=$1) AND current_order_id IS NULL`
		if _, err := tx.Exec(ctx, reoccupy, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, recomputeTotal, id); err != nil {
			return err
		}
		var err error
		updated, err = getOrder(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetItemQuantity changes a line quantity. A non-positive quantity removes the line.
func (r *orderRepository) SetItemQuantity(ctx context.Context, orderID string, itemID int64, quantity int) (*model.Order, error) {
	if err := checkOrderID(orderID); err != nil {
		return nil, err
	}
	var updated *model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		if err := lockOrder(ctx, tx, orderID); err != nil {
			return err
		}
		var (
			query = `UPDATE order_items SET quantity=$3 WHERE id=$1 AND order_id=$2`
			args  = []any{itemID, orderID, quantity}
		)
		if quantity <= 0 {
			query = `DELETE FROM order_items WHERE id=$1 AND order_id=$2`
			args = args[:2]
		}
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domainErrors.ErrNotFound
		}
		if _, err := tx.Exec(ctx, recomputeTotal, orderID); err != nil {
			return err
		}
		updated, err = getOrder(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *orderRepository) MarkServed(ctx context.Context, id string) (*model.Order, bool, error) {
	if err := checkOrderID(id); err != nil {
		return nil, false, err
	}
	const query = `UPDATE orders SET status='served', is_served=true, served_at=NOW(), updated_at=NOW()
                   WHERE id=$1 AND status IN ('pending', 'ready')`
	tag, err := r.storage.pool.Exec(ctx, query, id)
	if err != nil {
		return nil, false, err
	}
	order, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return order, tag.RowsAffected() > 0, nil
}

func (r *orderRepository) Complete(ctx context.Context, id string, at time.Time) (*model.Order, bool, error) {
	if err := checkOrderID(id); err != nil {
		return nil, false, err
	}
	var (
		order   *model.Order
		applied bool
	)
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const complete = `UPDATE orders SET status='completed', is_served=true, completed_at=$2, updated_at=NOW()
                   WHERE id=$1 AND status IN ('ready', 'served') AND is_paid
                   RETURNING table_id`
		var tableID *int64
		err := tx.QueryRow(ctx, complete, id, at).Scan(&tableID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return err
		default:
			applied = true
			if tableID != nil {
				const release = `UPDATE restaurant_tables SET status='available', current_order_id=NULL
                           WHERE id=$1 AND current_order_id=$2`
				if _, err := tx.Exec(ctx, release, *tableID, id); err != nil {
					return err
				}
			}
		}
		order, err = getOrder(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return order, applied, nil
}

// Delete removes a non-completed order and releases its table.
func (r *orderRepository) Delete(ctx context.Context, id string) error {
	if err := checkOrderID(id); err != nil {
		return err
	}
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const release = `UPDATE restaurant_tables SET status='available', current_order_id=NULL WHERE current_order_id=$1`
		if _, err := tx.Exec(ctx, release, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1 AND status <> 'completed'`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domainErrors.ErrNotFound
		}
		return nil
	})
}

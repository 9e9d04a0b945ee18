package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
	"github.com/polkiloo/orderboard/internal/domain/model"
)

type paymentRepository struct {
	storage *Storage
}

type inventoryRepository struct {
	storage *Storage
}

// RecordPayment flips is_paid and inserts the payment row in one transaction.
// The guarded update makes a retried call a no-op.
func (r *paymentRepository) RecordPayment(ctx context.Context, payment model.Payment) (*model.Order, bool, error) {
	if err := checkOrderID(payment.OrderID); err != nil {
		return nil, false, err
	}
	var (
		order   *model.Order
		applied bool
	)
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const markPaid = `UPDATE orders SET is_paid=true, payment_method=$2, transaction_id=NULLIF($3, ''), paid_at=$4, updated_at=NOW()
                   WHERE id=$1 AND is_paid=false
                   RETURNING total_amount`
		var total decimal.Decimal
		err := tx.QueryRow(ctx, markPaid, payment.OrderID, payment.Method, payment.TransactionID, payment.PaidAt).Scan(&total)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return err
		default:
			amount := payment.Amount
			if amount.IsZero() {
				amount = total
			}
			const insertPayment = `INSERT INTO payments (order_id, method, transaction_id, amount, paid_at)
                           VALUES ($1, $2, NULLIF($3, ''), $4, $5)
                           ON CONFLICT (order_id) DO NOTHING`
			tag, err := tx.Exec(ctx, insertPayment, payment.OrderID, payment.Method, payment.TransactionID, amount, payment.PaidAt)
			if err != nil {
				return err
			}
			applied = tag.RowsAffected() > 0
		}
		order, err = getOrder(ctx, tx, payment.OrderID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return order, applied, nil
}

func (r *paymentRepository) CreateIntent(ctx context.Context, intent model.PaymentIntent) (*model.PaymentIntent, error) {
	if err := checkOrderID(intent.OrderID); err != nil {
		return nil, err
	}
	if intent.ID == "" {
		intent.ID = uuid.NewString()
	}
	if intent.Status == "" {
		intent.Status = model.PaymentIntentPending
	}
	const query = `INSERT INTO payment_intents (id, order_id, gateway_ref, qr_payload, amount, status)
                   VALUES ($1, $2, $3, $4, $5, $6)
                   RETURNING created_at`
	err := r.storage.pool.QueryRow(ctx, query, intent.ID, intent.OrderID, intent.GatewayRef, intent.QRPayload, intent.Amount, intent.Status).
		Scan(&intent.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	return &intent, nil
}

// PendingIntents claims the least recently polled intents. Concurrent pollers
// skip rows another poller holds.
func (r *paymentRepository) PendingIntents(ctx context.Context, limit int) ([]model.PaymentIntent, error) {
	const selectQuery = `SELECT id, order_id, gateway_ref, qr_payload, amount, status, created_at
                         FROM payment_intents
                         WHERE status = 'pending'
                         ORDER BY updated_at
                         LIMIT $1
                         FOR UPDATE SKIP LOCKED`

	var intents []model.PaymentIntent
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, selectQuery, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		var ids []string
		for rows.Next() {
			var in model.PaymentIntent
			if err := rows.Scan(&in.ID, &in.OrderID, &in.GatewayRef, &in.QRPayload, &in.Amount, &in.Status, &in.CreatedAt); err != nil {
				return err
			}
			ids = append(ids, in.ID)
			intents = append(intents, in)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rows.Close()

		if len(ids) == 0 {
			return nil
		}
		_, err = tx.Exec(ctx, `UPDATE payment_intents SET updated_at=NOW() WHERE id = ANY($1)`, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return intents, nil
}

func (r *paymentRepository) ResolveIntent(ctx context.Context, id string, status model.PaymentIntentStatus) error {
	tag, err := r.storage.pool.Exec(ctx, `UPDATE payment_intents SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

// Deduct lowers stock for an item, never below zero.
func (r *inventoryRepository) Deduct(ctx context.Context, itemName string, quantity int) error {
	const query = `UPDATE inventory SET quantity = GREATEST(quantity - $2, 0) WHERE item_name=$1`
	tag, err := r.storage.pool.Exec(ctx, query, itemName, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

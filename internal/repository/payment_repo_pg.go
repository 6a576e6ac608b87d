package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/courtbooking/internal/domain"
)

// ExpireResult tells the sweeper what a single expiry attempt did.
type ExpireResult int

const (
	// ExpireSkipped means the payment or its booking moved on before the lock was taken.
	ExpireSkipped ExpireResult = iota
	// ExpirePaymentOnly means the booking was already cancelled; only the payment was failed.
	ExpirePaymentOnly
	// ExpireBookingCancelled means the booking was cancelled and its stock and slot released.
	ExpireBookingCancelled
)

func (r ExpireResult) Transitioned() bool {
	return r != ExpireSkipped
}

type PaymentRepository interface {
	// Upsert opens or reopens the single payment of a booking. A paid payment is
	// never overwritten and created_at of an existing row is preserved.
	Upsert(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	GetByBookingID(ctx context.Context, bookingID int64) (*domain.Payment, error)
	GetByChargeID(ctx context.Context, chargeID string) (*domain.Payment, error)
	List(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error)
	// MarkPaid settles the payment and its booking. changed is false when the
	// payment was already paid.
	MarkPaid(ctx context.Context, id int64, at time.Time) (payment *domain.Payment, changed bool, err error)
	MarkFailed(ctx context.Context, id int64, at time.Time) (payment *domain.Payment, changed bool, err error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]domain.Payment, error)
	Expire(ctx context.Context, id int64, cutoff time.Time, reason string, at time.Time) (ExpireResult, error)
}

type PGPaymentRepository struct {
	store *Store
}

func NewPaymentRepository(store *Store) PaymentRepository {
	return &PGPaymentRepository{store: store}
}

const paymentColumns = `id, booking_id, user_id, amount, method, status, external_charge_id, qr_code, created_at, paid_at, updated_at`

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(&p.ID, &p.BookingID, &p.UserID, &p.Amount, &p.Method, &p.Status,
		&p.ExternalChargeID, &p.QRCode, &p.CreatedAt, &p.PaidAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGPaymentRepository) Upsert(ctx context.Context, payment *domain.Payment) error {
	row := r.store.DB().QueryRowContext(ctx, `INSERT INTO payments (booking_id, user_id, amount, method, status, external_charge_id, qr_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (booking_id) DO UPDATE
		SET amount = EXCLUDED.amount,
		    method = EXCLUDED.method,
		    status = EXCLUDED.status,
		    external_charge_id = EXCLUDED.external_charge_id,
		    qr_code = EXCLUDED.qr_code,
		    paid_at = NULL,
		    updated_at = now()
		WHERE payments.status <> 'paid'
		RETURNING `+paymentColumns,
		payment.BookingID, payment.UserID, payment.Amount, payment.Method, domain.PaymentStatusPending, payment.ExternalChargeID, payment.QRCode)
	saved, err := scanPayment(row)
	if err != nil {
		err = storeError(fmt.Sprintf("upsert payment for booking %d", payment.BookingID), err)
		if isNotFound(err) {
			// the conflict row exists but is paid, so nothing was returned
			return fmt.Errorf("booking %d: %w", payment.BookingID, domain.ErrAlreadyPaid)
		}
		return err
	}
	*payment = *saved
	return nil
}

func (r *PGPaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	return r.getOne(ctx, fmt.Sprintf("get payment %d", id), `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

func (r *PGPaymentRepository) GetByBookingID(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	return r.getOne(ctx, fmt.Sprintf("get payment for booking %d", bookingID), `SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1`, bookingID)
}

func (r *PGPaymentRepository) GetByChargeID(ctx context.Context, chargeID string) (*domain.Payment, error) {
	return r.getOne(ctx, fmt.Sprintf("get payment for charge %s", chargeID), `SELECT `+paymentColumns+` FROM payments WHERE external_charge_id = $1`, chargeID)
}

func (r *PGPaymentRepository) getOne(ctx context.Context, op, query string, arg any) (*domain.Payment, error) {
	p, err := scanPayment(r.store.DB().QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, storeError(op, err)
	}
	return p, nil
}

func (r *PGPaymentRepository) List(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error) {
	var p predicates
	if filter.UserID != nil {
		p.add("user_id", "=", *filter.UserID)
	}
	if filter.BookingID != nil {
		p.add("booking_id", "=", *filter.BookingID)
	}
	if filter.Status != nil {
		p.add("status", "=", *filter.Status)
	}
	query := `SELECT ` + paymentColumns + ` FROM payments` + p.where() + ` ORDER BY created_at DESC, id DESC` + p.page(filter.Limit, filter.Offset)

	rows, err := r.store.DB().QueryContext(ctx, query, p.args...)
	if err != nil {
		return nil, storeError("list payments", err)
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, storeError("scan payment", err)
		}
		payments = append(payments, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list payments", err)
	}
	return payments, nil
}

// lockPaymentWithBooking locks the booking first and then the payment, the same
// order cancellation uses, and returns both as seen under the locks.
func lockPaymentWithBooking(ctx context.Context, tx DBTX, paymentID int64) (*domain.Payment, *domain.Booking, error) {
	var bookingID int64
	if err := tx.QueryRowContext(ctx, `SELECT booking_id FROM payments WHERE id = $1`, paymentID).Scan(&bookingID); err != nil {
		return nil, nil, storeError(fmt.Sprintf("find payment %d", paymentID), err)
	}
	b, err := lockBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	p, err := scanPayment(tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, paymentID))
	if err != nil {
		return nil, nil, storeError(fmt.Sprintf("lock payment %d", paymentID), err)
	}
	return p, b, nil
}

func (r *PGPaymentRepository) MarkPaid(ctx context.Context, id int64, at time.Time) (*domain.Payment, bool, error) {
	var (
		result  *domain.Payment
		changed bool
	)
	err := r.store.WithTransaction(ctx, func(tx DBTX) error {
		p, b, err := lockPaymentWithBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.Status == domain.PaymentStatusPaid {
			result = p
			return nil
		}
		if b.Status == domain.BookingStatusCancelled {
			return fmt.Errorf("booking %d: %w", b.ID, domain.ErrBookingCancelled)
		}

		updated, err := scanPayment(tx.QueryRowContext(ctx, `UPDATE payments SET status = $2, paid_at = $3, updated_at = $3
			WHERE id = $1
			RETURNING `+paymentColumns, id, domain.PaymentStatusPaid, at))
		if err != nil {
			return storeError(fmt.Sprintf("mark payment %d paid", id), err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE bookings SET status = $2 WHERE id = $1`, b.ID, domain.BookingStatusPaid); err != nil {
			return storeError(fmt.Sprintf("mark booking %d paid", b.ID), err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE court_time_slots SET status = $2 WHERE booking_id = $1`, b.ID, domain.SlotStatusBooked); err != nil {
			return storeError("book slot", err)
		}
		result, changed = updated, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, changed, nil
}

// MarkFailed fails a pending payment. The booking is left as it is.
func (r *PGPaymentRepository) MarkFailed(ctx context.Context, id int64, at time.Time) (*domain.Payment, bool, error) {
	p, err := scanPayment(r.store.DB().QueryRowContext(ctx, `UPDATE payments SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
		RETURNING `+paymentColumns, id, domain.PaymentStatusFailed, at, domain.PaymentStatusPending))
	if err == nil {
		return p, true, nil
	}
	if err = storeError(fmt.Sprintf("mark payment %d failed", id), err); !isNotFound(err) {
		return nil, false, err
	}
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

// ListExpiredPending returns payments opened before cutoff that Expire would act
// on: pending ones whose booking is pending or cancelled, and failed ones whose
// booking is still pending. Rows Expire skips are left out so they cannot fill
// the batch.
func (r *PGPaymentRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]domain.Payment, error) {
	if limit <= 0 {
		limit = maxListLimit
	}
	rows, err := r.store.DB().QueryContext(ctx, `SELECT p.id, p.booking_id, p.user_id, p.amount, p.method, p.status, p.external_charge_id, p.qr_code, p.created_at, p.paid_at, p.updated_at
		FROM payments p JOIN bookings b ON b.id = p.booking_id
		WHERE p.created_at < $1
		  AND ((p.status = $2 AND b.status IN ($4, $5)) OR (p.status = $3 AND b.status = $4))
		ORDER BY p.created_at
		LIMIT $6`, cutoff, domain.PaymentStatusPending, domain.PaymentStatusFailed,
		domain.BookingStatusPending, domain.BookingStatusCancelled, limit)
	if err != nil {
		return nil, storeError("list expired payments", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, storeError("scan payment", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list expired payments", err)
	}
	return payments, nil
}

// Expire re-checks the payment and booking under lock and only then fails the
// payment and cancels a still-pending booking. A payment settled in the meantime
// is left alone.
func (r *PGPaymentRepository) Expire(ctx context.Context, id int64, cutoff time.Time, reason string, at time.Time) (ExpireResult, error) {
	result := ExpireSkipped
	err := r.store.WithTransaction(ctx, func(tx DBTX) error {
		p, b, err := lockPaymentWithBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.Status == domain.PaymentStatusPaid || !p.CreatedAt.Before(cutoff) {
			return nil
		}

		switch b.Status {
		case domain.BookingStatusPending:
			if _, err := releaseBooking(ctx, tx, b.ID, reason, at); err != nil {
				return err
			}
			result = ExpireBookingCancelled
		case domain.BookingStatusCancelled:
			if p.Status != domain.PaymentStatusPending {
				return nil
			}
			result = ExpirePaymentOnly
		default:
			return nil
		}

		if p.Status == domain.PaymentStatusPending {
			if _, err := tx.ExecContext(ctx, `UPDATE payments SET status = $2, updated_at = $3 WHERE id = $1`,
				id, domain.PaymentStatusFailed, at); err != nil {
				return storeError(fmt.Sprintf("fail payment %d", id), err)
			}
		}
		return nil
	})
	if err != nil {
		return ExpireSkipped, err
	}
	return result, nil
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/courtbooking/internal/domain"
	"github.com/Domenick1991/courtbooking/internal/pricing"
	"github.com/lib/pq"
)

type BookingRepository interface {
	HasConflict(ctx context.Context, courtID int64, date time.Time, start, end domain.TimeOfDay) (bool, error)
	Create(ctx context.Context, nb domain.NewBooking) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)
	// Cancel locks the booking, runs check against the locked row and then releases
	// the booking's stock and slot. check may reject the cancellation.
	Cancel(ctx context.Context, id int64, reason string, at time.Time, check func(domain.Booking) error) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error)
}

type PGBookingRepository struct {
	store *Store
}

func NewBookingRepository(store *Store) BookingRepository {
	return &PGBookingRepository{store: store}
}

const bookingColumns = `id, user_id, venue_id, court_id, date, start_time, end_time, total_price, status, cancellation_reason, created_at, cancelled_at`

const conflictQuery = `SELECT EXISTS (
	SELECT 1 FROM bookings
	WHERE court_id = $1 AND date = $2 AND status = ANY($3)
	  AND start_time < $5 AND end_time > $4)`

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.UserID, &b.VenueID, &b.CourtID, &b.Date, &b.StartTime, &b.EndTime,
		&b.TotalPrice, &b.Status, &b.CancellationReason, &b.CreatedAt, &b.CancelledAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func activeStatuses() any {
	statuses := make([]string, len(domain.ActiveBookingStatuses))
	for i, s := range domain.ActiveBookingStatuses {
		statuses[i] = string(s)
	}
	return pq.Array(statuses)
}

// HasConflict is the advisory, unlocked check. Create repeats it under lock.
func (r *PGBookingRepository) HasConflict(ctx context.Context, courtID int64, date time.Time, start, end domain.TimeOfDay) (bool, error) {
	return hasConflict(ctx, r.store.DB(), courtID, date, start, end)
}

func hasConflict(ctx context.Context, q DBTX, courtID int64, date time.Time, start, end domain.TimeOfDay) (bool, error) {
	var exists bool
	if err := q.QueryRowContext(ctx, conflictQuery, courtID, date, activeStatuses(), start, end).Scan(&exists); err != nil {
		return false, storeError("check slot conflict", err)
	}
	return exists, nil
}

func (r *PGBookingRepository) Create(ctx context.Context, nb domain.NewBooking) (*domain.Booking, error) {
	reqs, err := pricing.MergeRequests(nb.Equipment)
	if err != nil {
		return nil, err
	}

	var created *domain.Booking
	err = r.store.WithTransaction(ctx, func(tx DBTX) error {
		court, venue, err := lockCourt(ctx, tx, nb.CourtID)
		if err != nil {
			return err
		}
		if court.VenueID != nb.VenueID {
			return fmt.Errorf("court %d in venue %d: %w", nb.CourtID, nb.VenueID, domain.ErrNotFound)
		}
		if !venue.Active || court.Status != domain.CourtStatusAvailable {
			return fmt.Errorf("%w: court %d is not open for booking", domain.ErrValidation, court.ID)
		}
		if !venue.Open(nb.StartTime, nb.EndTime) {
			return fmt.Errorf("%w: venue is open %s-%s", domain.ErrValidation, venue.OpeningTime, venue.ClosingTime)
		}

		conflict, err := hasConflict(ctx, tx, nb.CourtID, nb.Date, nb.StartTime, nb.EndTime)
		if err != nil {
			return err
		}
		if conflict {
			return domain.ErrSlotConflict
		}

		inventory, err := lockEquipment(ctx, tx, nb.VenueID, reqs)
		if err != nil {
			return err
		}
		quote, err := pricing.Compute(court.HourlyRate, nb.StartTime.Minutes(nb.EndTime), reqs, inventory)
		if err != nil {
			return err
		}

		row := tx.QueryRowContext(ctx, `INSERT INTO bookings (user_id, venue_id, court_id, date, start_time, end_time, total_price, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING `+bookingColumns,
			nb.UserID, nb.VenueID, nb.CourtID, nb.Date, nb.StartTime, nb.EndTime, quote.Total, domain.BookingStatusPending)
		b, err := scanBooking(row)
		if err != nil {
			return storeError("insert booking", err)
		}

		for _, line := range quote.Lines {
			if _, err := tx.ExecContext(ctx, `INSERT INTO booking_equipment (booking_id, equipment_id, quantity, price) VALUES ($1, $2, $3, $4)`,
				b.ID, line.EquipmentID, line.Quantity, line.Price); err != nil {
				return storeError("insert booking equipment", err)
			}
			res, err := tx.ExecContext(ctx, `UPDATE equipment SET stock = stock - $1 WHERE id = $2 AND stock >= $1`, line.Quantity, line.EquipmentID)
			if err != nil {
				return storeError("decrement stock", err)
			}
			if n, err := res.RowsAffected(); err != nil || n == 0 {
				return fmt.Errorf("equipment %d: %w", line.EquipmentID, domain.ErrInsufficientStock)
			}
			b.Equipment = append(b.Equipment, domain.BookingEquipment{
				BookingID:   b.ID,
				EquipmentID: line.EquipmentID,
				Quantity:    line.Quantity,
				Price:       line.Price,
			})
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO court_time_slots (court_id, date, start_time, end_time, status, booking_id) VALUES ($1, $2, $3, $4, $5, $6)`,
			nb.CourtID, nb.Date, nb.StartTime, nb.EndTime, domain.SlotStatusPending, b.ID); err != nil {
			return storeError("insert slot", err)
		}

		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func lockCourt(ctx context.Context, tx DBTX, courtID int64) (*domain.Court, *domain.Venue, error) {
	var c domain.Court
	var v domain.Venue
	err := tx.QueryRowContext(ctx, `SELECT c.id, c.venue_id, c.name, c.hourly_rate, c.status,
			v.id, v.opening_time, v.closing_time, v.is_active
		FROM courts c JOIN venues v ON v.id = c.venue_id
		WHERE c.id = $1
		FOR UPDATE OF c`, courtID).
		Scan(&c.ID, &c.VenueID, &c.Name, &c.HourlyRate, &c.Status, &v.ID, &v.OpeningTime, &v.ClosingTime, &v.Active)
	if err != nil {
		return nil, nil, storeError(fmt.Sprintf("lock court %d", courtID), err)
	}
	return &c, &v, nil
}

// lockEquipment takes row locks on the requested items in id order. Items of
// another venue are left out and surface as ErrEquipmentNotFound when priced.
func lockEquipment(ctx context.Context, tx DBTX, venueID int64, reqs []domain.EquipmentRequest) (map[int64]domain.Equipment, error) {
	inventory := make(map[int64]domain.Equipment, len(reqs))
	if len(reqs) == 0 {
		return inventory, nil
	}
	ids := make([]int64, len(reqs))
	for i, r := range reqs {
		ids[i] = r.EquipmentID
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, venue_id, name, stock, rental_price FROM equipment
		WHERE id = ANY($1) AND venue_id = $2
		ORDER BY id
		FOR UPDATE`, pq.Array(ids), venueID)
	if err != nil {
		return nil, storeError("lock equipment", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.Equipment
		if err := rows.Scan(&e.ID, &e.VenueID, &e.Name, &e.Stock, &e.RentalPrice); err != nil {
			return nil, storeError("scan equipment", err)
		}
		inventory[e.ID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("lock equipment", err)
	}
	return inventory, nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := scanBooking(r.store.DB().QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		return nil, storeError(fmt.Sprintf("get booking %d", id), err)
	}
	if b.Equipment, err = bookingEquipment(ctx, r.store.DB(), id); err != nil {
		return nil, err
	}
	return b, nil
}

func bookingEquipment(ctx context.Context, q DBTX, bookingID int64) ([]domain.BookingEquipment, error) {
	rows, err := q.QueryContext(ctx, `SELECT booking_id, equipment_id, quantity, price FROM booking_equipment WHERE booking_id = $1 ORDER BY equipment_id`, bookingID)
	if err != nil {
		return nil, storeError("list booking equipment", err)
	}
	defer rows.Close()

	var items []domain.BookingEquipment
	for rows.Next() {
		var item domain.BookingEquipment
		if err := rows.Scan(&item.BookingID, &item.EquipmentID, &item.Quantity, &item.Price); err != nil {
			return nil, storeError("scan booking equipment", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list booking equipment", err)
	}
	return items, nil
}

func (r *PGBookingRepository) List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	var p predicates
	if filter.UserID != nil {
		p.add("user_id", "=", *filter.UserID)
	}
	if filter.VenueID != nil {
		p.add("venue_id", "=", *filter.VenueID)
	}
	if filter.CourtID != nil {
		p.add("court_id", "=", *filter.CourtID)
	}
	if filter.Status != nil {
		p.add("status", "=", *filter.Status)
	}
	if filter.DateFrom != nil {
		p.add("date", ">=", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		p.add("date", "<=", *filter.DateTo)
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings` + p.where() + ` ORDER BY date DESC, start_time DESC, id DESC` + p.page(filter.Limit, filter.Offset)

	rows, err := r.store.DB().QueryContext(ctx, query, p.args...)
	if err != nil {
		return nil, storeError("list bookings", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, storeError("scan booking", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list bookings", err)
	}
	return bookings, nil
}

func (r *PGBookingRepository) Cancel(ctx context.Context, id int64, reason string, at time.Time, check func(domain.Booking) error) (*domain.Booking, error) {
	var cancelled *domain.Booking
	err := r.store.WithTransaction(ctx, func(tx DBTX) error {
		b, err := lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(*b); err != nil {
				return err
			}
		}
		if b.Status == domain.BookingStatusCancelled {
			return domain.ErrAlreadyCancelled
		}

		if cancelled, err = releaseBooking(ctx, tx, id, reason, at); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE payments SET status = $2, updated_at = $3 WHERE booking_id = $1 AND status = $4`,
			id, domain.PaymentStatusFailed, at, domain.PaymentStatusPending); err != nil {
			return storeError("fail pending payment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func lockBooking(ctx context.Context, tx DBTX, id int64) (*domain.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, storeError(fmt.Sprintf("lock booking %d", id), err)
	}
	return b, nil
}

// releaseBooking cancels a booking whose row the caller already holds locked:
// equipment stock goes back and the slot returns to available. Snapshot rows in
// booking_equipment are kept.
func releaseBooking(ctx context.Context, tx DBTX, id int64, reason string, at time.Time) (*domain.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx, `UPDATE bookings SET status = $2, cancellation_reason = $3, cancelled_at = $4
		WHERE id = $1
		RETURNING `+bookingColumns, id, domain.BookingStatusCancelled, reason, at))
	if err != nil {
		return nil, storeError(fmt.Sprintf("cancel booking %d", id), err)
	}

	items, err := bookingEquipment(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		ids := make([]int64, len(items))
		for i, item := range items {
			ids[i] = item.EquipmentID
		}
		if _, err := tx.ExecContext(ctx, `SELECT id FROM equipment WHERE id = ANY($1) ORDER BY id FOR UPDATE`, pq.Array(ids)); err != nil {
			return nil, storeError("lock equipment", err)
		}
		for _, item := range items {
			if _, err := tx.ExecContext(ctx, `UPDATE equipment SET stock = stock + $1 WHERE id = $2`, item.Quantity, item.EquipmentID); err != nil {
				return nil, storeError("restore stock", err)
			}
		}
	}
	b.Equipment = items

	if _, err := tx.ExecContext(ctx, `UPDATE court_time_slots SET status = $2, booking_id = NULL WHERE booking_id = $1`,
		id, domain.SlotStatusAvailable); err != nil {
		return nil, storeError("release slot", err)
	}
	return b, nil
}

// UpdateStatus overwrites the status only; stock and slots are left untouched.
func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	b, err := scanBooking(r.store.DB().QueryRowContext(ctx, `UPDATE bookings SET status = $2 WHERE id = $1 RETURNING `+bookingColumns, id, status))
	if err != nil {
		return nil, storeError(fmt.Sprintf("update booking %d status", id), err)
	}
	return b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)

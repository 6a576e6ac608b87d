package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/courtbooking/internal/domain"
)

type CourtRepository interface {
	GetVenue(ctx context.Context, id int64) (*domain.Venue, error)
	GetByID(ctx context.Context, id int64) (*domain.Court, error)
	ListByVenue(ctx context.Context, venueID int64) ([]domain.Court, error)
	ListEquipment(ctx context.Context, venueID int64) ([]domain.Equipment, error)
	// ListSlots returns the taken slots of a court on a date.
	ListSlots(ctx context.Context, courtID int64, date time.Time) ([]domain.CourtTimeSlot, error)
}

type PGCourtRepository struct {
	store *Store
}

func NewCourtRepository(store *Store) CourtRepository {
	return &PGCourtRepository{store: store}
}

func (r *PGCourtRepository) GetVenue(ctx context.Context, id int64) (*domain.Venue, error) {
	var v domain.Venue
	err := r.store.DB().QueryRowContext(ctx, `SELECT id, name, type, location, opening_time, closing_time, is_active FROM venues WHERE id = $1`, id).
		Scan(&v.ID, &v.Name, &v.Type, &v.Location, &v.OpeningTime, &v.ClosingTime, &v.Active)
	if err != nil {
		return nil, storeError(fmt.Sprintf("get venue %d", id), err)
	}
	return &v, nil
}

func (r *PGCourtRepository) GetByID(ctx context.Context, id int64) (*domain.Court, error) {
	var c domain.Court
	err := r.store.DB().QueryRowContext(ctx, `SELECT id, venue_id, name, hourly_rate, capacity, status FROM courts WHERE id = $1`, id).
		Scan(&c.ID, &c.VenueID, &c.Name, &c.HourlyRate, &c.Capacity, &c.Status)
	if err != nil {
		return nil, storeError(fmt.Sprintf("get court %d", id), err)
	}
	return &c, nil
}

func (r *PGCourtRepository) ListByVenue(ctx context.Context, venueID int64) ([]domain.Court, error) {
	rows, err := r.store.DB().QueryContext(ctx, `SELECT id, venue_id, name, hourly_rate, capacity, status FROM courts WHERE venue_id = $1 ORDER BY name, id`, venueID)
	if err != nil {
		return nil, storeError("list courts", err)
	}
	defer rows.Close()

	courts := make([]domain.Court, 0)
	for rows.Next() {
		var c domain.Court
		if err := rows.Scan(&c.ID, &c.VenueID, &c.Name, &c.HourlyRate, &c.Capacity, &c.Status); err != nil {
			return nil, storeError("scan court", err)
		}
		courts = append(courts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list courts", err)
	}
	return courts, nil
}

func (r *PGCourtRepository) ListEquipment(ctx context.Context, venueID int64) ([]domain.Equipment, error) {
	rows, err := r.store.DB().QueryContext(ctx, `SELECT id, venue_id, name, stock, rental_price FROM equipment WHERE venue_id = $1 ORDER BY id`, venueID)
	if err != nil {
		return nil, storeError("list equipment", err)
	}
	defer rows.Close()

	items := make([]domain.Equipment, 0)
	for rows.Next() {
		var e domain.Equipment
		if err := rows.Scan(&e.ID, &e.VenueID, &e.Name, &e.Stock, &e.RentalPrice); err != nil {
			return nil, storeError("scan equipment", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list equipment", err)
	}
	return items, nil
}

func (r *PGCourtRepository) ListSlots(ctx context.Context, courtID int64, date time.Time) ([]domain.CourtTimeSlot, error) {
	rows, err := r.store.DB().QueryContext(ctx, `SELECT id, court_id, date, start_time, end_time, status, booking_id
		FROM court_time_slots
		WHERE court_id = $1 AND date = $2 AND status <> $3
		ORDER BY start_time`, courtID, date, domain.SlotStatusAvailable)
	if err != nil {
		return nil, storeError("list slots", err)
	}
	defer rows.Close()

	slots := make([]domain.CourtTimeSlot, 0)
	for rows.Next() {
		var s domain.CourtTimeSlot
		if err := rows.Scan(&s.ID, &s.CourtID, &s.Date, &s.StartTime, &s.EndTime, &s.Status, &s.BookingID); err != nil {
			return nil, storeError("scan slot", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list slots", err)
	}
	return slots, nil
}

var _ CourtRepository = (*PGCourtRepository)(nil)

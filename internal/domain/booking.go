package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusPaid      BookingStatus = "paid"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// ActiveBookingStatuses hold their slot; only these take part in conflict checks.
var ActiveBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusPaid,
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusPaid, BookingStatusCancelled:
		return true
	}
	return false
}

func (s BookingStatus) Active() bool {
	return s.Valid() && s != BookingStatusCancelled
}

type Booking struct {
	ID                 int64              `json:"id"`
	UserID             int64              `json:"user_id"`
	VenueID            int64              `json:"venue_id"`
	CourtID            int64              `json:"court_id"`
	Date               time.Time          `json:"booking_date"`
	StartTime          TimeOfDay          `json:"start_time"`
	EndTime            TimeOfDay          `json:"end_time"`
	TotalPrice         decimal.Decimal    `json:"total_price"`
	Status             BookingStatus      `json:"status"`
	CancellationReason *string            `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	CancelledAt        *time.Time         `json:"cancelled_at,omitempty"`
	Equipment          []BookingEquipment `json:"equipment,omitempty"`
}

// BookingEquipment keeps the rental price as it was when the booking was made.
type BookingEquipment struct {
	BookingID   int64           `json:"booking_id"`
	EquipmentID int64           `json:"equipment_id"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type EquipmentRequest struct {
	EquipmentID int64 `json:"equipment_id"`
	Quantity    int   `json:"quantity"`
}

// NewBooking is a validated request ready to be written by the store.
type NewBooking struct {
	UserID    int64
	VenueID   int64
	CourtID   int64
	Date      time.Time
	StartTime TimeOfDay
	EndTime   TimeOfDay
	Equipment []EquipmentRequest
}

type SlotStatus string

const (
	SlotStatusPending   SlotStatus = "pending"
	SlotStatusBooked    SlotStatus = "booked"
	SlotStatusAvailable SlotStatus = "available"
)

type CourtTimeSlot struct {
	ID        int64      `json:"id"`
	CourtID   int64      `json:"court_id"`
	Date      time.Time  `json:"slot_date"`
	StartTime TimeOfDay  `json:"start_time"`
	EndTime   TimeOfDay  `json:"end_time"`
	Status    SlotStatus `json:"status"`
	BookingID *int64     `json:"booking_id,omitempty"`
}

type BookingFilter struct {
	UserID   *int64
	VenueID  *int64
	CourtID  *int64
	Status   *BookingStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

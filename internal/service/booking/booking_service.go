package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/courtbooking/internal/domain"
	"github.com/Domenick1991/courtbooking/internal/logger"
	"github.com/Domenick1991/courtbooking/internal/notification"
	"github.com/Domenick1991/courtbooking/internal/obs"
	"github.com/Domenick1991/courtbooking/internal/pricing"
	"github.com/Domenick1991/courtbooking/internal/repository"
	"go.opentelemetry.io/otel/attribute"
)

const defaultCancelReason = "cancelled by user"

type BookingUseCase interface {
	CheckAvailability(ctx context.Context, query AvailabilityQuery) (bool, error)
	CreateBooking(ctx context.Context, actor domain.Actor, input CreateBookingInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, actor domain.Actor, bookingID int64, reason string) (*domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, actor domain.Actor, bookingID int64, status domain.BookingStatus) (*domain.Booking, error)
	GetBooking(ctx context.Context, actor domain.Actor, bookingID int64) (*domain.Booking, error)
	ListBookings(ctx context.Context, actor domain.Actor, filter domain.BookingFilter) ([]domain.Booking, error)
}

// SlotInvalidator drops cached slot projections after a booking changes them.
type SlotInvalidator interface {
	InvalidateSlots(ctx context.Context, courtID int64, date time.Time) error
}

type BookingService struct {
	bookings repository.BookingRepository
	cache    SlotInvalidator
	notifier notification.Notifier
	now      func() time.Time
}

type AvailabilityQuery struct {
	CourtID   int64  `form:"court_id" json:"court_id"`
	Date      string `form:"date" json:"date"`
	StartTime string `form:"start_time" json:"start_time"`
	EndTime   string `form:"end_time" json:"end_time"`
}

type CreateBookingInput struct {
	VenueID   int64                     `json:"venue_id"`
	CourtID   int64                     `json:"court_id"`
	Date      string                    `json:"booking_date"`
	StartTime string                    `json:"start_time"`
	EndTime   string                    `json:"end_time"`
	Equipment []domain.EquipmentRequest `json:"equipment"`
}

type BookingServiceOption func(*BookingService)

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	cache SlotInvalidator,
	notifier notification.Notifier,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings: bookings,
		cache:    cache,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

type slot struct {
	courtID    int64
	date       time.Time
	start, end domain.TimeOfDay
}

func parseSlot(courtID int64, date, start, end string) (slot, error) {
	if courtID <= 0 {
		return slot{}, fmt.Errorf("%w: court_id is required", domain.ErrValidation)
	}
	d, err := domain.ParseDate(date)
	if err != nil {
		return slot{}, err
	}
	s, err := domain.ParseTimeOfDay(start)
	if err != nil {
		return slot{}, err
	}
	e, err := domain.ParseTimeOfDay(end)
	if err != nil {
		return slot{}, err
	}
	if s >= e {
		return slot{}, fmt.Errorf("%w: start_time must be before end_time", domain.ErrValidation)
	}
	return slot{courtID: courtID, date: d, start: s, end: e}, nil
}

// CheckAvailability is the advisory check; it takes no locks and may race.
func (s *BookingService) CheckAvailability(ctx context.Context, query AvailabilityQuery) (bool, error) {
	sl, err := parseSlot(query.CourtID, query.Date, query.StartTime, query.EndTime)
	if err != nil {
		return false, err
	}
	conflict, err := s.bookings.HasConflict(ctx, sl.courtID, sl.date, sl.start, sl.end)
	if err != nil {
		return false, err
	}
	return !conflict, nil
}

func (s *BookingService) CreateBooking(ctx context.Context, actor domain.Actor, input CreateBookingInput) (b *domain.Booking, err error) {
	ctx, span := obs.Start(ctx, "BookingService.CreateBooking")
	defer func() { obs.End(span, err) }()
	span.SetAttributes(attribute.Int64("court_id", input.CourtID), attribute.Int64("user_id", actor.UserID))

	if actor.UserID <= 0 {
		return nil, fmt.Errorf("%w: user is required", domain.ErrValidation)
	}
	if input.VenueID <= 0 {
		return nil, fmt.Errorf("%w: venue_id is required", domain.ErrValidation)
	}
	sl, err := parseSlot(input.CourtID, input.Date, input.StartTime, input.EndTime)
	if err != nil {
		return nil, err
	}
	equipment, err := pricing.MergeRequests(input.Equipment)
	if err != nil {
		return nil, err
	}

	conflict, err := s.bookings.HasConflict(ctx, sl.courtID, sl.date, sl.start, sl.end)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, domain.ErrSlotConflict
	}

	b, err = s.bookings.Create(ctx, domain.NewBooking{
		UserID:    actor.UserID,
		VenueID:   input.VenueID,
		CourtID:   sl.courtID,
		Date:      sl.date,
		StartTime: sl.start,
		EndTime:   sl.end,
		Equipment: equipment,
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("booking_id", b.ID))

	logger.InfoContext(ctx, "booking created", "booking_id", b.ID, "court_id", b.CourtID, "user_id", b.UserID, "total", b.TotalPrice.StringFixed(2))
	s.invalidate(ctx, b)
	s.notifier.Notify(ctx, b.UserID, "Booking created",
		fmt.Sprintf("Booking #%d on %s %s-%s is waiting for payment. Total %s.", b.ID, b.Date.Format(domain.DateLayout), b.StartTime, b.EndTime, b.TotalPrice.StringFixed(2)),
		domain.NotificationTypeBooking)
	return b, nil
}

// CancelBooking releases the slot and equipment of a booking. Owners may cancel
// their own unpaid bookings; only staff may cancel a paid one.
func (s *BookingService) CancelBooking(ctx context.Context, actor domain.Actor, bookingID int64, reason string) (b *domain.Booking, err error) {
	ctx, span := obs.Start(ctx, "BookingService.CancelBooking")
	defer func() { obs.End(span, err) }()
	span.SetAttributes(attribute.Int64("booking_id", bookingID))

	if reason == "" {
		reason = defaultCancelReason
	}
	b, err = s.bookings.Cancel(ctx, bookingID, reason, s.now(), func(current domain.Booking) error {
		if !actor.Privileged() && current.UserID != actor.UserID {
			return fmt.Errorf("booking %d: %w", bookingID, domain.ErrNotFound)
		}
		if current.Status == domain.BookingStatusPaid && !actor.Privileged() {
			return fmt.Errorf("booking %d: %w", bookingID, domain.ErrAlreadyPaid)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "booking cancelled", "booking_id", b.ID, "actor_id", actor.UserID, "reason", reason)
	s.invalidate(ctx, b)
	s.notifier.Notify(ctx, b.UserID, "Booking cancelled",
		fmt.Sprintf("Booking #%d on %s %s-%s was cancelled: %s.", b.ID, b.Date.Format(domain.DateLayout), b.StartTime, b.EndTime, reason),
		domain.NotificationTypeBooking)
	return b, nil
}

// UpdateBookingStatus overwrites the status for staff. Stock and slots are not touched.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, actor domain.Actor, bookingID int64, status domain.BookingStatus) (*domain.Booking, error) {
	if !actor.Privileged() {
		return nil, domain.ErrForbidden
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}
	b, err := s.bookings.UpdateStatus(ctx, bookingID, status)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "booking status overwritten", "booking_id", b.ID, "status", b.Status, "actor_id", actor.UserID)
	return b, nil
}

func (s *BookingService) GetBooking(ctx context.Context, actor domain.Actor, bookingID int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.Privileged() && b.UserID != actor.UserID {
		return nil, fmt.Errorf("booking %d: %w", bookingID, domain.ErrNotFound)
	}
	return b, nil
}

func (s *BookingService) ListBookings(ctx context.Context, actor domain.Actor, filter domain.BookingFilter) ([]domain.Booking, error) {
	if !actor.Privileged() {
		userID := actor.UserID
		filter.UserID = &userID
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, *filter.Status)
	}
	return s.bookings.List(ctx, filter)
}

func (s *BookingService) invalidate(ctx context.Context, b *domain.Booking) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSlots(ctx, b.CourtID, b.Date); err != nil {
		logger.WarnContext(ctx, "slot cache invalidation failed", "court_id", b.CourtID, "error", err)
	}
}

var _ BookingUseCase = (*BookingService)(nil)

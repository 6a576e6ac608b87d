package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Domenick1991/courtbooking/internal/domain"
	"github.com/Domenick1991/courtbooking/internal/logger"
	"github.com/Domenick1991/courtbooking/internal/notification"
	"github.com/Domenick1991/courtbooking/internal/obs"
	"github.com/Domenick1991/courtbooking/internal/pricing"
	"github.com/Domenick1991/courtbooking/internal/repository"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultTimeout = 15 * time.Minute

type PaymentUseCase interface {
	CreateCharge(ctx context.Context, actor domain.Actor, bookingID int64) (*ChargeResult, error)
	CreateOfflinePayment(ctx context.Context, actor domain.Actor, bookingID int64, method domain.PaymentMethod) (*domain.Payment, error)
	CheckChargeStatus(ctx context.Context, actor domain.Actor, chargeID string) (*domain.Payment, error)
	HandleWebhook(ctx context.Context, event domain.ChargeEvent) error
	Reconcile(ctx context.Context, charge domain.Charge) (*domain.Payment, error)
	ConfirmPaymentManually(ctx context.Context, actor domain.Actor, paymentID int64) (*domain.Payment, error)
	GetPayment(ctx context.Context, actor domain.Actor, paymentID int64) (*domain.Payment, error)
	ListPayments(ctx context.Context, actor domain.Actor, filter domain.PaymentFilter) ([]domain.Payment, error)
	SweepExpiredPayments(ctx context.Context) (int, error)
}

// Gateway is the external payment processor.
type Gateway interface {
	CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error)
	GetCharge(ctx context.Context, chargeID string) (*domain.Charge, error)
}

type SlotInvalidator interface {
	InvalidateSlots(ctx context.Context, courtID int64, date time.Time) error
}

type Config struct {
	Currency string
	// Timeout is the payment window after which a pending payment is swept.
	Timeout time.Duration
}

type PaymentService struct {
	payments repository.PaymentRepository
	bookings repository.BookingRepository
	gateway  Gateway
	cache    SlotInvalidator
	notifier notification.Notifier
	cfg      Config
	now      func() time.Time
}

// ChargeResult is what the gateway handed back, passed to the caller unchanged.
type ChargeResult struct {
	PaymentID  int64           `json:"payment_id"`
	BookingID  int64           `json:"booking_id"`
	ChargeID   string          `json:"charge_id"`
	QRImageURL string          `json:"qr_image_url"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

type PaymentServiceOption func(*PaymentService)

func WithClock(now func() time.Time) PaymentServiceOption {
	return func(s *PaymentService) {
		s.now = now
	}
}

func NewPaymentService(
	payments repository.PaymentRepository,
	bookings repository.BookingRepository,
	gateway Gateway,
	cache SlotInvalidator,
	notifier notification.Notifier,
	cfg Config,
	opts ...PaymentServiceOption,
) *PaymentService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Currency == "" {
		cfg.Currency = "THB"
	}
	s := &PaymentService{
		payments: payments,
		bookings: bookings,
		gateway:  gateway,
		cache:    cache,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// payableBooking loads a booking that the actor may pay for and that can still be paid.
func (s *PaymentService) payableBooking(ctx context.Context, actor domain.Actor, bookingID int64, allowStaff bool) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != actor.UserID && !(allowStaff && actor.Privileged()) {
		return nil, fmt.Errorf("booking %d: %w", bookingID, domain.ErrNotFound)
	}
	switch b.Status {
	case domain.BookingStatusPaid:
		return nil, fmt.Errorf("booking %d: %w", bookingID, domain.ErrAlreadyPaid)
	case domain.BookingStatusCancelled:
		return nil, fmt.Errorf("booking %d: %w", bookingID, domain.ErrBookingCancelled)
	}
	return b, nil
}

func (s *PaymentService) CreateCharge(ctx context.Context, actor domain.Actor, bookingID int64) (res *ChargeResult, err error) {
	ctx, span := obs.Start(ctx, "PaymentService.CreateCharge")
	defer func() { obs.End(span, err) }()
	span.SetAttributes(attribute.Int64("booking_id", bookingID))

	b, err := s.payableBooking(ctx, actor, bookingID, false)
	if err != nil {
		return nil, err
	}

	charge, err := s.gateway.CreateCharge(ctx, domain.ChargeRequest{
		AmountMinor: pricing.MinorUnits(b.TotalPrice),
		Currency:    s.cfg.Currency,
		Description: fmt.Sprintf("Court booking #%d", b.ID),
		Metadata: map[string]string{
			"booking_id": strconv.FormatInt(b.ID, 10),
			"user_id":    strconv.FormatInt(b.UserID, 10),
		},
	})
	if err != nil {
		if !errors.Is(err, domain.ErrGateway) {
			err = fmt.Errorf("%w: %w", domain.ErrGateway, err)
		}
		logger.WarnContext(ctx, "gateway charge failed", "booking_id", b.ID, "error", err)
		return nil, err
	}

	chargeID, qr := charge.ID, charge.QRImageURL
	p := &domain.Payment{
		BookingID:        b.ID,
		UserID:           b.UserID,
		Amount:           b.TotalPrice,
		Method:           domain.PaymentMethodQR,
		ExternalChargeID: &chargeID,
		QRCode:           &qr,
	}
	if err := s.payments.Upsert(ctx, p); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "charge created", "booking_id", b.ID, "payment_id", p.ID, "charge_id", charge.ID)
	return &ChargeResult{
		PaymentID:  p.ID,
		BookingID:  b.ID,
		ChargeID:   charge.ID,
		QRImageURL: charge.QRImageURL,
		Amount:     b.TotalPrice,
		Currency:   s.cfg.Currency,
		ExpiresAt:  charge.ExpiresAt,
	}, nil
}

// CreateOfflinePayment opens a cash or transfer payment that staff confirm later.
func (s *PaymentService) CreateOfflinePayment(ctx context.Context, actor domain.Actor, bookingID int64, method domain.PaymentMethod) (*domain.Payment, error) {
	if !method.Offline() {
		return nil, fmt.Errorf("%w: %q is not an offline payment method", domain.ErrValidation, method)
	}
	b, err := s.payableBooking(ctx, actor, bookingID, true)
	if err != nil {
		return nil, err
	}
	p := &domain.Payment{
		BookingID: b.ID,
		UserID:    b.UserID,
		Amount:    b.TotalPrice,
		Method:    method,
	}
	if err := s.payments.Upsert(ctx, p); err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "offline payment opened", "booking_id", b.ID, "payment_id", p.ID, "method", method)
	return p, nil
}

// CheckChargeStatus polls the gateway for a charge and reconciles the result.
func (s *PaymentService) CheckChargeStatus(ctx context.Context, actor domain.Actor, chargeID string) (*domain.Payment, error) {
	if chargeID == "" {
		return nil, fmt.Errorf("%w: charge id is required", domain.ErrValidation)
	}
	p, err := s.payments.GetByChargeID(ctx, chargeID)
	if err != nil {
		return nil, err
	}
	if p.UserID != actor.UserID && !actor.Privileged() {
		return nil, fmt.Errorf("charge %s: %w", chargeID, domain.ErrNotFound)
	}
	charge, err := s.gateway.GetCharge(ctx, chargeID)
	if err != nil {
		if !errors.Is(err, domain.ErrGateway) {
			err = fmt.Errorf("%w: %w", domain.ErrGateway, err)
		}
		return nil, err
	}
	return s.Reconcile(ctx, *charge)
}

func (s *PaymentService) HandleWebhook(ctx context.Context, event domain.ChargeEvent) error {
	if event.Key != domain.ChargeEventComplete && event.Key != domain.ChargeEventFailed {
		logger.DebugContext(ctx, "ignoring webhook event", "key", event.Key, "event_id", event.ID)
		return nil
	}
	if event.Data.ID == "" {
		return fmt.Errorf("%w: webhook event without charge id", domain.ErrValidation)
	}

	// The webhook route is unauthenticated, so the payload only names the charge.
	// Its state always comes from the gateway.
	if _, err := s.payments.GetByChargeID(ctx, event.Data.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.WarnContext(ctx, "webhook for unknown charge", "charge_id", event.Data.ID, "event_id", event.ID)
			return nil
		}
		return err
	}
	charge, err := s.gateway.GetCharge(ctx, event.Data.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrGateway) {
			err = fmt.Errorf("%w: %w", domain.ErrGateway, err)
		}
		return err
	}
	if charge.ID != event.Data.ID {
		return fmt.Errorf("%w: gateway returned charge %q for %q", domain.ErrGateway, charge.ID, event.Data.ID)
	}

	_, err = s.Reconcile(ctx, *charge)
	return err
}

// Reconcile applies a gateway charge state to its payment. Replaying a settled
// charge is a no-op.
func (s *PaymentService) Reconcile(ctx context.Context, charge domain.Charge) (p *domain.Payment, err error) {
	ctx, span := obs.Start(ctx, "PaymentService.Reconcile")
	defer func() { obs.End(span, err) }()
	span.SetAttributes(attribute.String("charge_id", charge.ID))

	p, err = s.payments.GetByChargeID(ctx, charge.ID)
	if err != nil {
		return nil, err
	}

	switch {
	case charge.Succeeded():
		return s.settle(ctx, p.ID)
	case charge.Failed():
		failed, changed, err := s.payments.MarkFailed(ctx, p.ID, s.now())
		if err != nil {
			return nil, err
		}
		if changed {
			logger.InfoContext(ctx, "payment failed", "payment_id", failed.ID, "booking_id", failed.BookingID, "charge_status", charge.Status)
			s.notifier.Notify(ctx, failed.UserID, "Payment failed",
				fmt.Sprintf("Payment for booking #%d did not go through. You can try again before the booking expires.", failed.BookingID),
				domain.NotificationTypePayment)
		}
		return failed, nil
	}
	return p, nil
}

// ConfirmPaymentManually settles a payment on staff say-so, e.g. cash at the counter.
func (s *PaymentService) ConfirmPaymentManually(ctx context.Context, actor domain.Actor, paymentID int64) (*domain.Payment, error) {
	if !actor.Privileged() {
		return nil, domain.ErrForbidden
	}
	p, err := s.settle(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "payment confirmed manually", "payment_id", paymentID, "actor_id", actor.UserID)
	return p, nil
}

func (s *PaymentService) settle(ctx context.Context, paymentID int64) (*domain.Payment, error) {
	p, changed, err := s.payments.MarkPaid(ctx, paymentID, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrBookingCancelled) {
			logger.ErrorContext(ctx, "payment succeeded for a cancelled booking, refund manually", "payment_id", paymentID, "error", err)
		}
		return nil, err
	}
	if !changed {
		return p, nil
	}

	logger.InfoContext(ctx, "payment settled", "payment_id", p.ID, "booking_id", p.BookingID, "amount", p.Amount.StringFixed(2))
	s.invalidateBooking(ctx, p.BookingID)
	s.notifier.Notify(ctx, p.UserID, "Payment received",
		fmt.Sprintf("Payment of %s %s for booking #%d is confirmed.", p.Amount.StringFixed(2), s.cfg.Currency, p.BookingID),
		domain.NotificationTypePayment)
	return p, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, actor domain.Actor, paymentID int64) (*domain.Payment, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.UserID != actor.UserID && !actor.Privileged() {
		return nil, fmt.Errorf("payment %d: %w", paymentID, domain.ErrNotFound)
	}
	return p, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, actor domain.Actor, filter domain.PaymentFilter) ([]domain.Payment, error) {
	if !actor.Privileged() {
		userID := actor.UserID
		filter.UserID = &userID
	}
	return s.payments.List(ctx, filter)
}

func (s *PaymentService) invalidateBooking(ctx context.Context, bookingID int64) {
	if s.cache == nil {
		return
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		logger.WarnContext(ctx, "slot cache invalidation skipped", "booking_id", bookingID, "error", err)
		return
	}
	if err := s.cache.InvalidateSlots(ctx, b.CourtID, b.Date); err != nil {
		logger.WarnContext(ctx, "slot cache invalidation failed", "court_id", b.CourtID, "error", err)
	}
}

var _ PaymentUseCase = (*PaymentService)(nil)

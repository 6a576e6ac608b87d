package api

import (
	"context"
	"time"

	"github.com/Domenick1991/courtbooking/internal/domain"
	"github.com/Domenick1991/courtbooking/internal/service/booking"
	"github.com/Domenick1991/courtbooking/internal/service/payment"
	"github.com/stretchr/testify/mock"
)

type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CheckAvailability(ctx context.Context, q booking.AvailabilityQuery) (bool, error) {
	args := m.Called(ctx, q)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, actor domain.Actor, input booking.CreateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, actor, input)
	b, _ := args.Get(0).(*domain.Booking)
	return b, args.Error(1)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, actor domain.Actor, id int64, reason string) (*domain.Booking, error) {
	args := m.Called(ctx, actor, id, reason)
	b, _ := args.Get(0).(*domain.Booking)
	return b, args.Error(1)
}

func (m *MockBookingUseCase) UpdateBookingStatus(ctx context.Context, actor domain.Actor, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	args := m.Called(ctx, actor, id, status)
	b, _ := args.Get(0).(*domain.Booking)
	return b, args.Error(1)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, actor domain.Actor, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, actor, id)
	b, _ := args.Get(0).(*domain.Booking)
	return b, args.Error(1)
}

func (m *MockBookingUseCase) ListBookings(ctx context.Context, actor domain.Actor, filter domain.BookingFilter) ([]domain.Booking, error) {
	args := m.Called(ctx, actor, filter)
	list, _ := args.Get(0).([]domain.Booking)
	return list, args.Error(1)
}

type MockPaymentUseCase struct {
	mock.Mock
}

func (m *MockPaymentUseCase) CreateCharge(ctx context.Context, actor domain.Actor, bookingID int64) (*payment.ChargeResult, error) {
	args := m.Called(ctx, actor, bookingID)
	r, _ := args.Get(0).(*payment.ChargeResult)
	return r, args.Error(1)
}

func (m *MockPaymentUseCase) CreateOfflinePayment(ctx context.Context, actor domain.Actor, bookingID int64, method domain.PaymentMethod) (*domain.Payment, error) {
	args := m.Called(ctx, actor, bookingID, method)
	p, _ := args.Get(0).(*domain.Payment)
	return p, args.Error(1)
}

func (m *MockPaymentUseCase) CheckChargeStatus(ctx context.Context, actor domain.Actor, chargeID string) (*domain.Payment, error) {
	args := m.Called(ctx, actor, chargeID)
	p, _ := args.Get(0).(*domain.Payment)
	return p, args.Error(1)
}

func (m *MockPaymentUseCase) HandleWebhook(ctx context.Context, event domain.ChargeEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockPaymentUseCase) Reconcile(ctx context.Context, charge domain.Charge) (*domain.Payment, error) {
	args := m.Called(ctx, charge)
	p, _ := args.Get(0).(*domain.Payment)
	return p, args.Error(1)
}

func (m *MockPaymentUseCase) ConfirmPaymentManually(ctx context.Context, actor domain.Actor, id int64) (*domain.Payment, error) {
	args := m.Called(ctx, actor, id)
	p, _ := args.Get(0).(*domain.Payment)
	return p, args.Error(1)
}

func (m *MockPaymentUseCase) GetPayment(ctx context.Context, actor domain.Actor, id int64) (*domain.Payment, error) {
	args := m.Called(ctx, actor, id)
	p, _ := args.Get(0).(*domain.Payment)
	return p, args.Error(1)
}

func (m *MockPaymentUseCase) ListPayments(ctx context.Context, actor domain.Actor, filter domain.PaymentFilter) ([]domain.Payment, error) {
	args := m.Called(ctx, actor, filter)
	list, _ := args.Get(0).([]domain.Payment)
	return list, args.Error(1)
}

func (m *MockPaymentUseCase) SweepExpiredPayments(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockCourtUseCase struct {
	mock.Mock
}

func (m *MockCourtUseCase) GetCourt(ctx context.Context, id int64) (*domain.Court, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*domain.Court)
	return c, args.Error(1)
}

func (m *MockCourtUseCase) ListCourts(ctx context.Context, venueID int64) ([]domain.Court, error) {
	args := m.Called(ctx, venueID)
	list, _ := args.Get(0).([]domain.Court)
	return list, args.Error(1)
}

func (m *MockCourtUseCase) ListEquipment(ctx context.Context, venueID int64) ([]domain.Equipment, error) {
	args := m.Called(ctx, venueID)
	list, _ := args.Get(0).([]domain.Equipment)
	return list, args.Error(1)
}

func (m *MockCourtUseCase) CourtSlots(ctx context.Context, courtID int64, date time.Time) ([]domain.CourtTimeSlot, error) {
	args := m.Called(ctx, courtID, date)
	list, _ := args.Get(0).([]domain.CourtTimeSlot)
	return list, args.Error(1)
}

type MockNotificationLister struct {
	mock.Mock
}

func (m *MockNotificationLister) List(ctx context.Context, userID int64, limit, offset int) ([]domain.Notification, error) {
	args := m.Called(ctx, userID, limit, offset)
	list, _ := args.Get(0).([]domain.Notification)
	return list, args.Error(1)
}

package payment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/courtbooking/internal/domain"
	"github.com/Domenick1991/courtbooking/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memoryPayments keeps payments and the status of their bookings, applying the
// same guards as the Postgres repository.
type memoryPayments struct {
	MockPaymentRepository

	mu       sync.Mutex
	payments map[int64]*domain.Payment
	bookings map[int64]domain.BookingStatus
	failOn   map[int64]error
}

func newMemoryPayments() *memoryPayments {
	return &memoryPayments{
		payments: make(map[int64]*domain.Payment),
		bookings: make(map[int64]domain.BookingStatus),
		failOn:   make(map[int64]error),
	}
}

func (m *memoryPayments) add(p domain.Payment, booking domain.BookingStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.ID] = &p
	m.bookings[p.BookingID] = booking
}

func (m *memoryPayments) MarkPaid(_ context.Context, id int64, at time.Time) (*domain.Payment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, false, domain.ErrNotFound
	}
	if p.Status == domain.PaymentStatusPaid {
		cp := *p
		return &cp, false, nil
	}
	if m.bookings[p.BookingID] == domain.BookingStatusCancelled {
		return nil, false, domain.ErrBookingCancelled
	}
	p.Status = domain.PaymentStatusPaid
	p.PaidAt = &at
	m.bookings[p.BookingID] = domain.BookingStatusPaid
	cp := *p
	return &cp, true, nil
}

func (m *memoryPayments) ListExpiredPending(_ context.Context, cutoff time.Time, limit int) ([]domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Payment
	for _, p := range m.payments {
		if !p.CreatedAt.Before(cutoff) {
			continue
		}
		booking := m.bookings[p.BookingID]
		if (p.Status == domain.PaymentStatusPending && booking != domain.BookingStatusConfirmed && booking != domain.BookingStatusPaid) ||
			(p.Status == domain.PaymentStatusFailed && booking == domain.BookingStatusPending) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryPayments) Expire(_ context.Context, id int64, cutoff time.Time, _ string, at time.Time) (repository.ExpireResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn[id]; err != nil {
		return repository.ExpireSkipped, err
	}
	p := m.payments[id]
	if p.Status == domain.PaymentStatusPaid || !p.CreatedAt.Before(cutoff) {
		return repository.ExpireSkipped, nil
	}
	switch m.bookings[p.BookingID] {
	case domain.BookingStatusPending:
		m.bookings[p.BookingID] = domain.BookingStatusCancelled
		p.Status = domain.PaymentStatusFailed
		p.UpdatedAt = at
		return repository.ExpireBookingCancelled, nil
	case domain.BookingStatusCancelled:
		if p.Status == domain.PaymentStatusPending {
			p.Status = domain.PaymentStatusFailed
			return repository.ExpirePaymentOnly, nil
		}
	}
	return repository.ExpireSkipped, nil
}

func (m *memoryPayments) bookingStatus(id int64) domain.BookingStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookings[id]
}

type sweepFixture struct {
	payments *memoryPayments
	bookings *MockBookingRepository
	notifier *MockNotifier
	cache    *MockCache
	clock    time.Time
	svc      *PaymentService
}

func newSweepFixture(start time.Time) *sweepFixture {
	f := &sweepFixture{
		payments: newMemoryPayments(),
		bookings: new(MockBookingRepository),
		notifier: new(MockNotifier),
		cache:    new(MockCache),
		clock:    start,
	}
	f.svc = NewPaymentService(f.payments, f.bookings, new(MockGateway), f.cache, f.notifier,
		Config{Timeout: 15 * time.Minute},
		WithClock(func() time.Time { return f.clock }))
	f.bookings.On("GetByID", mock.Anything, mock.Anything).Return(pendingBooking(), nil)
	f.cache.On("InvalidateSlots", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	return f
}

func paymentAt(id, bookingID int64, created time.Time) domain.Payment {
	return domain.Payment{
		ID:        id,
		BookingID: bookingID,
		UserID:    owner.UserID,
		Method:    domain.PaymentMethodQR,
		Status:    domain.PaymentStatusPending,
		CreatedAt: created,
	}
}

func TestSweep_Timeline(t *testing.T) {
	start := testNow
	f := newSweepFixture(start)
	ctx := context.Background()

	f.payments.add(paymentAt(1, 100, start), domain.BookingStatusPending)
	f.payments.add(paymentAt(2, 200, start), domain.BookingStatusPending)

	// T+10: still inside the payment window
	f.clock = start.Add(10 * time.Minute)
	n, err := f.svc.SweepExpiredPayments(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// T+14: payment 2 confirmed just in time
	f.clock = start.Add(14 * time.Minute)
	_, err = f.svc.settle(ctx, 2)
	require.NoError(t, err)

	// T+16: only the unpaid one expires
	f.clock = start.Add(16 * time.Minute)
	n, err = f.svc.SweepExpiredPayments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.BookingStatusCancelled, f.payments.bookingStatus(100))
	assert.Equal(t, domain.BookingStatusPaid, f.payments.bookingStatus(200))

	// a second run finds nothing left to do
	n, err = f.svc.SweepExpiredPayments(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.notifier.AssertCalled(t, "Notify", mock.Anything, owner.UserID, "Booking cancelled", mock.Anything, domain.NotificationTypeBooking)
}

func TestSweep_ContinuesPastFailures(t *testing.T) {
	start := testNow
	f := newSweepFixture(start.Add(30 * time.Minute))

	f.payments.add(paymentAt(1, 100, start), domain.BookingStatusPending)
	f.payments.add(paymentAt(2, 200, start), domain.BookingStatusPending)
	f.payments.add(paymentAt(3, 300, start), domain.BookingStatusPending)
	f.payments.failOn[2] = errors.New("deadlock detected")

	n, err := f.svc.SweepExpiredPayments(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, domain.BookingStatusCancelled, f.payments.bookingStatus(100))
	assert.Equal(t, domain.BookingStatusPending, f.payments.bookingStatus(200))
	assert.Equal(t, domain.BookingStatusCancelled, f.payments.bookingStatus(300))
}

func TestSweep_ConfirmedBookingIsKept(t *testing.T) {
	start := testNow
	f := newSweepFixture(start.Add(20 * time.Minute))

	f.payments.add(paymentAt(1, 100, start), domain.BookingStatusConfirmed)

	n, err := f.svc.SweepExpiredPayments(context.Background())

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, domain.BookingStatusConfirmed, f.payments.bookingStatus(100))
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSweep_ConfirmedBookingsDoNotFillTheBatch(t *testing.T) {
	start := testNow
	f := newSweepFixture(start.Add(time.Hour))

	// a full batch of older pending payments whose bookings staff already confirmed
	for i := int64(1); i <= sweepBatchSize; i++ {
		f.payments.add(paymentAt(i, 1000+i, start), domain.BookingStatusConfirmed)
	}
	f.payments.add(paymentAt(sweepBatchSize+1, 100, start.Add(10*time.Minute)), domain.BookingStatusPending)

	n, err := f.svc.SweepExpiredPayments(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.BookingStatusCancelled, f.payments.bookingStatus(100))
}

func TestSweep_CancelledBookingFailsPaymentOnly(t *testing.T) {
	start := testNow
	f := newSweepFixture(start.Add(20 * time.Minute))

	f.payments.add(paymentAt(1, 100, start), domain.BookingStatusCancelled)

	n, err := f.svc.SweepExpiredPayments(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSweep_ListError(t *testing.T) {
	payments := new(MockPaymentRepository)
	svc := NewPaymentService(payments, new(MockBookingRepository), new(MockGateway), nil, new(MockNotifier), Config{},
		WithClock(func() time.Time { return testNow }))
	payments.On("ListExpiredPending", mock.Anything, testNow.Add(-DefaultTimeout), sweepBatchSize).
		Return([]domain.Payment{}, domain.ErrPersistence)

	_, err := svc.SweepExpiredPayments(context.Background())

	assert.ErrorIs(t, err, domain.ErrPersistence)
}

package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/courtbooking/internal/domain"
	"github.com/Domenick1991/courtbooking/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memoryBookings serializes every write behind one mutex, standing in for the
// row locks the PostgreSQL repository takes.
type memoryBookings struct {
	mu        sync.Mutex
	nextID    int64
	rate      decimal.Decimal
	bookings  map[int64]*domain.Booking
	equipment map[int64]domain.Equipment
}

func newMemoryBookings() *memoryBookings {
	return &memoryBookings{
		rate:     decimal.NewFromInt(200),
		bookings: map[int64]*domain.Booking{},
		equipment: map[int64]domain.Equipment{
			3: {ID: 3, VenueID: 1, Name: "Racket", Stock: 3, RentalPrice: decimal.NewFromInt(50)},
		},
	}
}

func (m *memoryBookings) conflict(courtID int64, date time.Time, start, end domain.TimeOfDay) bool {
	for _, b := range m.bookings {
		if b.CourtID == courtID && b.Date.Equal(date) && b.Status.Active() && domain.Overlaps(start, end, b.StartTime, b.EndTime) {
			return true
		}
	}
	return false
}

func (m *memoryBookings) HasConflict(_ context.Context, courtID int64, date time.Time, start, end domain.TimeOfDay) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conflict(courtID, date, start, end), nil
}

func (m *memoryBookings) Create(_ context.Context, nb domain.NewBooking) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conflict(nb.CourtID, nb.Date, nb.StartTime, nb.EndTime) {
		return nil, domain.ErrSlotConflict
	}
	quote, err := pricing.Compute(m.rate, nb.StartTime.Minutes(nb.EndTime), nb.Equipment, m.equipment)
	if err != nil {
		return nil, err
	}

	m.nextID++
	b := &domain.Booking{
		ID: m.nextID, UserID: nb.UserID, VenueID: nb.VenueID, CourtID: nb.CourtID, Date: nb.Date,
		StartTime: nb.StartTime, EndTime: nb.EndTime, TotalPrice: quote.Total, Status: domain.BookingStatusPending,
	}
	for _, line := range quote.Lines {
		e := m.equipment[line.EquipmentID]
		e.Stock -= line.Quantity
		m.equipment[line.EquipmentID] = e
		b.Equipment = append(b.Equipment, domain.BookingEquipment{BookingID: b.ID, EquipmentID: line.EquipmentID, Quantity: line.Quantity, Price: line.Price})
	}
	m.bookings[b.ID] = b
	copied := *b
	return &copied, nil
}

func (m *memoryBookings) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (m *memoryBookings) List(context.Context, domain.BookingFilter) ([]domain.Booking, error) {
	return nil, nil
}

func (m *memoryBookings) Cancel(_ context.Context, id int64, reason string, at time.Time, check func(domain.Booking) error) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if check != nil {
		if err := check(*b); err != nil {
			return nil, err
		}
	}
	if b.Status == domain.BookingStatusCancelled {
		return nil, domain.ErrAlreadyCancelled
	}
	for _, item := range b.Equipment {
		e := m.equipment[item.EquipmentID]
		e.Stock += item.Quantity
		m.equipment[item.EquipmentID] = e
	}
	b.Status = domain.BookingStatusCancelled
	b.CancellationReason = &reason
	b.CancelledAt = &at
	copied := *b
	return &copied, nil
}

func (m *memoryBookings) UpdateStatus(_ context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	b.Status = status
	copied := *b
	return &copied, nil
}

func (m *memoryBookings) stock(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.equipment[id].Stock
}

func newLifecycleService(store *memoryBookings) *BookingService {
	cache := &MockCache{}
	cache.On("InvalidateSlots", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	notifier := &MockNotifier{}
	notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	return NewBookingService(store, cache, notifier)
}

func slotInput(start, end string, equipment ...domain.EquipmentRequest) CreateBookingInput {
	return CreateBookingInput{VenueID: 1, CourtID: 5, Date: "2025-06-01", StartTime: start, EndTime: end, Equipment: equipment}
}

func TestLifecycle_CancelFreesSlot(t *testing.T) {
	store := newMemoryBookings()
	service := newLifecycleService(store)
	ctx := context.Background()

	first, err := service.CreateBooking(ctx, owner, slotInput("10:00", "11:00"))
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, first.Status)

	_, err = service.CreateBooking(ctx, stranger, slotInput("10:30", "11:30"))
	assert.ErrorIs(t, err, domain.ErrSlotConflict)

	_, err = service.CancelBooking(ctx, owner, first.ID, "")
	require.NoError(t, err)

	second, err := service.CreateBooking(ctx, stranger, slotInput("10:30", "11:30"))
	require.NoError(t, err)
	assert.Equal(t, "300.00", second.TotalPrice.StringFixed(2))
}

func TestLifecycle_BackToBackIsAllowed(t *testing.T) {
	store := newMemoryBookings()
	service := newLifecycleService(store)
	ctx := context.Background()

	_, err := service.CreateBooking(ctx, owner, slotInput("10:00", "11:00"))
	require.NoError(t, err)
	_, err = service.CreateBooking(ctx, stranger, slotInput("11:00", "12:00"))
	require.NoError(t, err)
	_, err = service.CreateBooking(ctx, stranger, slotInput("09:00", "10:00"))
	require.NoError(t, err)
}

func TestLifecycle_StockRoundTrip(t *testing.T) {
	store := newMemoryBookings()
	service := newLifecycleService(store)
	ctx := context.Background()

	before := store.stock(3)
	b, err := service.CreateBooking(ctx, owner, slotInput("10:00", "11:00", domain.EquipmentRequest{EquipmentID: 3, Quantity: 2}))
	require.NoError(t, err)
	assert.Equal(t, "300.00", b.TotalPrice.StringFixed(2))
	assert.Equal(t, before-2, store.stock(3))

	_, err = service.CancelBooking(ctx, owner, b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, before, store.stock(3))
}

func TestLifecycle_InsufficientStockLeavesStock(t *testing.T) {
	store := newMemoryBookings()
	service := newLifecycleService(store)

	_, err := service.CreateBooking(context.Background(), owner, slotInput("10:00", "11:00", domain.EquipmentRequest{EquipmentID: 3, Quantity: 5}))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 3, store.stock(3))
}

// Only the service's handling of racing creates is covered here: the fake's mutex
// stands in for the court row lock and the exclusion constraint, which the
// repository tests cover against sqlmock.
func TestLifecycle_ConcurrentCreatesAgainstSerializedStore(t *testing.T) {
	store := newMemoryBookings()
	service := newLifecycleService(store)
	ctx := context.Background()

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := service.CreateBooking(ctx, domain.Actor{UserID: userID, Role: domain.RoleUser}, slotInput("18:00", "19:30"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, domain.ErrSlotConflict):
				conflicts++
			}
		}(int64(100 + i))
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicts)
}

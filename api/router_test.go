package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/courtbooking/internal/domain"
	"github.com/Domenick1991/courtbooking/internal/service/booking"
	"github.com/Domenick1991/courtbooking/internal/service/payment"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-123"

type testServer struct {
	router        *gin.Engine
	bookings      *MockBookingUseCase
	payments      *MockPaymentUseCase
	courts        *MockCourtUseCase
	notifications *MockNotificationLister
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	s := &testServer{
		bookings:      new(MockBookingUseCase),
		payments:      new(MockPaymentUseCase),
		courts:        new(MockCourtUseCase),
		notifications: new(MockNotificationLister),
	}
	s.router = NewRouter(testSecret, Handlers{
		Courts:        NewCourtHandler(s.courts),
		Bookings:      NewBookingHandler(s.bookings),
		Payments:      NewPaymentHandler(s.payments),
		Notifications: NewNotificationHandler(s.notifications),
	})
	return s
}

func (s *testServer) do(t *testing.T, method, path string, actor *domain.Actor, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, err := NewToken(testSecret, actor.UserID, actor.Role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

var (
	user  = &domain.Actor{UserID: 42, Role: domain.RoleUser}
	admin = &domain.Actor{UserID: 1, Role: domain.RoleAdmin}
)

func TestRouter_RequiresToken(t *testing.T) {
	s := newTestServer()

	w := s.do(t, http.MethodGet, "/v1/bookings", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/bookings", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_RejectsForeignSignature(t *testing.T) {
	s := newTestServer()
	token, err := NewToken("some-other-secret-of-sufficient-len", 42, domain.RoleUser, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateBooking(t *testing.T) {
	s := newTestServer()
	input := booking.CreateBookingInput{
		VenueID:   1,
		CourtID:   3,
		Date:      "2026-03-12",
		StartTime: "18:00",
		EndTime:   "20:00",
		Equipment: []domain.EquipmentRequest{{EquipmentID: 5, Quantity: 2}},
	}
	created := &domain.Booking{ID: 10, UserID: 42, CourtID: 3, Status: domain.BookingStatusPending, TotalPrice: decimal.NewFromInt(700)}
	s.bookings.On("CreateBooking", mock.Anything, *user, input).Return(created, nil)

	w := s.do(t, http.MethodPost, "/v1/bookings", user, input)

	require.Equal(t, http.StatusCreated, w.Code)
	var got domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, int64(10), got.ID)
	assert.Equal(t, domain.BookingStatusPending, got.Status)
}

func TestCreateBooking_ErrorStatus(t *testing.T) {
	tests := []struct {
		err       error
		status    int
		retryable bool
	}{
		{fmt.Errorf("%w: bad time", domain.ErrValidation), http.StatusBadRequest, false},
		{domain.ErrSlotConflict, http.StatusConflict, false},
		{fmt.Errorf("ball: %w", domain.ErrInsufficientStock), http.StatusConflict, false},
		{fmt.Errorf("court 3: %w", domain.ErrNotFound), http.StatusNotFound, false},
		{fmt.Errorf("create booking: %w: conn refused", domain.ErrPersistence), http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			s := newTestServer()
			s.bookings.On("CreateBooking", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			w := s.do(t, http.MethodPost, "/v1/bookings", user, booking.CreateBookingInput{CourtID: 3})

			assert.Equal(t, tt.status, w.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.retryable, resp.Retryable)
		})
	}
}

func TestCancelBooking(t *testing.T) {
	s := newTestServer()
	cancelled := &domain.Booking{ID: 10, Status: domain.BookingStatusCancelled}
	s.bookings.On("CancelBooking", mock.Anything, *user, int64(10), "rain").Return(cancelled, nil)
	s.bookings.On("CancelBooking", mock.Anything, *user, int64(11), "").Return(nil, domain.ErrAlreadyCancelled)

	w := s.do(t, http.MethodPost, "/v1/bookings/10/cancel", user, cancelBookingRequest{Reason: "rain"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/v1/bookings/11/cancel", user, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/v1/bookings/abc/cancel", user, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateBookingStatus_StaffOnly(t *testing.T) {
	s := newTestServer()
	confirmed := &domain.Booking{ID: 10, Status: domain.BookingStatusConfirmed}
	s.bookings.On("UpdateBookingStatus", mock.Anything, *admin, int64(10), domain.BookingStatusConfirmed).Return(confirmed, nil)

	w := s.do(t, http.MethodPatch, "/v1/bookings/10/status", user, updateStatusRequest{Status: domain.BookingStatusConfirmed})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPatch, "/v1/bookings/10/status", admin, updateStatusRequest{Status: domain.BookingStatusConfirmed})
	assert.Equal(t, http.StatusOK, w.Code)
	s.bookings.AssertNumberOfCalls(t, "UpdateBookingStatus", 1)
}

func TestListBookings_ParsesFilter(t *testing.T) {
	s := newTestServer()
	s.bookings.On("ListBookings", mock.Anything, *user, mock.MatchedBy(func(f domain.BookingFilter) bool {
		return f.CourtID != nil && *f.CourtID == 3 &&
			f.Status != nil && *f.Status == domain.BookingStatusPending &&
			f.DateFrom != nil && f.Limit == 20
	})).Return([]domain.Booking{{ID: 10}}, nil)

	w := s.do(t, http.MethodGet, "/v1/bookings?court_id=3&status=pending&date_from=2026-03-01&limit=20", user, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/v1/bookings?status=done", user, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailability(t *testing.T) {
	s := newTestServer()
	q := booking.AvailabilityQuery{CourtID: 3, Date: "2026-03-12", StartTime: "18:00", EndTime: "19:00"}
	s.bookings.On("CheckAvailability", mock.Anything, q).Return(false, nil)

	w := s.do(t, http.MethodGet, "/v1/availability?court_id=3&date=2026-03-12&start_time=18:00&end_time=19:00", user, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp availabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Available)
}

func TestCreateCharge_GatewayFailure(t *testing.T) {
	s := newTestServer()
	s.payments.On("CreateCharge", mock.Anything, *user, int64(10)).
		Return(nil, fmt.Errorf("%w: timeout", domain.ErrGateway))

	w := s.do(t, http.MethodPost, "/v1/payments/charges", user, createChargeRequest{BookingID: 10})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Retryable)
}

func TestCreateCharge(t *testing.T) {
	s := newTestServer()
	s.payments.On("CreateCharge", mock.Anything, *user, int64(10)).
		Return(&payment.ChargeResult{PaymentID: 7, BookingID: 10, ChargeID: "chrg_1", QRImageURL: "https://qr"}, nil)

	w := s.do(t, http.MethodPost, "/v1/payments/charges", user, createChargeRequest{BookingID: 10})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"charge_id":"chrg_1"`)
}

func TestWebhook_NoTokenRequired(t *testing.T) {
	s := newTestServer()
	s.payments.On("HandleWebhook", mock.Anything, mock.MatchedBy(func(ev domain.ChargeEvent) bool {
		return ev.Key == domain.ChargeEventComplete && ev.Data.ID == "chrg_1"
	})).Return(nil)

	body := map[string]any{
		"id":   "evnt_1",
		"key":  "charge.complete",
		"data": map[string]any{"id": "chrg_1", "paid": true, "status": "successful"},
	}
	w := s.do(t, http.MethodPost, "/v1/webhooks/omise", nil, body)

	assert.Equal(t, http.StatusOK, w.Code)
	s.payments.AssertExpectations(t)
}

func TestConfirmPayment_StaffOnly(t *testing.T) {
	s := newTestServer()
	s.payments.On("ConfirmPaymentManually", mock.Anything, *admin, int64(7)).
		Return(&domain.Payment{ID: 7, Status: domain.PaymentStatusPaid}, nil)

	w := s.do(t, http.MethodPost, "/v1/payments/7/confirm", user, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/v1/payments/7/confirm", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCourtSlots_Public(t *testing.T) {
	s := newTestServer()
	date := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	s.courts.On("CourtSlots", mock.Anything, int64(3), date).Return([]domain.CourtTimeSlot{{ID: 1, CourtID: 3}}, nil)

	w := s.do(t, http.MethodGet, "/v1/courts/3/slots?date=2026-03-12", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/v1/courts/3/slots?date=tomorrow", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotifications_ScopedToCaller(t *testing.T) {
	s := newTestServer()
	s.notifications.On("List", mock.Anything, int64(42), 10, 0).Return([]domain.Notification{{ID: 1, UserID: 42}}, nil)

	w := s.do(t, http.MethodGet, "/v1/notifications?limit=10", user, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	s.notifications.AssertExpectations(t)
}

func TestBookingHandler_get(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/bookings/10", nil)
	c.Params = gin.Params{{Key: "id", Value: "10"}}
	c.Set(actorKey, *user)

	mockService.On("GetBooking", c.Request.Context(), *user, int64(10)).Return(nil, domain.ErrNotFound)

	handler.get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockService.AssertExpectations(t)
}

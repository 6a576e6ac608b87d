package payment

import (
	"context"
	"fmt"

	"github.com/Domenick1991/courtbooking/internal/domain"
	"github.com/Domenick1991/courtbooking/internal/logger"
	"github.com/Domenick1991/courtbooking/internal/obs"
	"github.com/Domenick1991/courtbooking/internal/repository"
	"go.opentelemetry.io/otel/attribute"
)

const (
	timeoutReason  = "payment timeout"
	sweepBatchSize = 200
)

// SweepExpiredPayments fails payments older than the payment window and cancels
// their still-pending bookings. Each payment is expired in its own transaction;
// a failure is logged and the sweep moves on. The result counts payments that
// actually changed state.
func (s *PaymentService) SweepExpiredPayments(ctx context.Context) (count int, err error) {
	ctx, span := obs.Start(ctx, "PaymentService.SweepExpiredPayments")
	defer func() {
		span.SetAttributes(attribute.Int("swept", count))
		obs.End(span, err)
	}()

	now := s.now()
	cutoff := now.Add(-s.cfg.Timeout)
	expired, err := s.payments.ListExpiredPending(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	for _, p := range expired {
		if ctx.Err() != nil {
			break
		}
		result, err := s.payments.Expire(ctx, p.ID, cutoff, timeoutReason, now)
		if err != nil {
			logger.ErrorContext(ctx, "failed to expire payment", "payment_id", p.ID, "booking_id", p.BookingID, "error", err)
			continue
		}
		if !result.Transitioned() {
			continue
		}
		count++

		if result == repository.ExpireBookingCancelled {
			s.invalidateBooking(ctx, p.BookingID)
			s.notifier.Notify(ctx, p.UserID, "Booking cancelled",
				fmt.Sprintf("Booking #%d was cancelled because payment was not received within %d minutes.", p.BookingID, int(s.cfg.Timeout.Minutes())),
				domain.NotificationTypeBooking)
		}
	}

	if count > 0 || len(expired) > 0 {
		logger.InfoContext(ctx, "expired payments swept", "candidates", len(expired), "swept", count)
	}
	return count, ctx.Err()
}

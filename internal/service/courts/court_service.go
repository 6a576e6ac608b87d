package courts

import (
	"context"
	"time"

	"github.com/Domenick1991/courtbooking/internal/domain"
	"github.com/Domenick1991/courtbooking/internal/logger"
	"github.com/Domenick1991/courtbooking/internal/repository"
)

type CourtUseCase interface {
	GetCourt(ctx context.Context, id int64) (*domain.Court, error)
	ListCourts(ctx context.Context, venueID int64) ([]domain.Court, error)
	ListEquipment(ctx context.Context, venueID int64) ([]domain.Equipment, error)
	CourtSlots(ctx context.Context, courtID int64, date time.Time) ([]domain.CourtTimeSlot, error)
}

// SlotCache stores the slot projection per court and date.
type SlotCache interface {
	GetSlots(ctx context.Context, courtID int64, date time.Time) ([]domain.CourtTimeSlot, bool, error)
	SetSlots(ctx context.Context, courtID int64, date time.Time, slots []domain.CourtTimeSlot) error
}

type CourtService struct {
	repo  repository.CourtRepository
	cache SlotCache
}

func NewCourtService(repo repository.CourtRepository, cache SlotCache) *CourtService {
	return &CourtService{repo: repo, cache: cache}
}

func (s *CourtService) GetCourt(ctx context.Context, id int64) (*domain.Court, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *CourtService) ListCourts(ctx context.Context, venueID int64) ([]domain.Court, error) {
	if _, err := s.repo.GetVenue(ctx, venueID); err != nil {
		return nil, err
	}
	return s.repo.ListByVenue(ctx, venueID)
}

func (s *CourtService) ListEquipment(ctx context.Context, venueID int64) ([]domain.Equipment, error) {
	return s.repo.ListEquipment(ctx, venueID)
}

// CourtSlots returns the pending and booked slots of a court for display. The
// cache may lag behind the store by at most its TTL.
func (s *CourtService) CourtSlots(ctx context.Context, courtID int64, date time.Time) ([]domain.CourtTimeSlot, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.GetSlots(ctx, courtID, date)
		if err != nil {
			logger.Warn("slot cache read failed", "court_id", courtID, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	if _, err := s.repo.GetByID(ctx, courtID); err != nil {
		return nil, err
	}
	slots, err := s.repo.ListSlots(ctx, courtID, date)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetSlots(ctx, courtID, date, slots); err != nil {
			logger.Warn("slot cache write failed", "court_id", courtID, "error", err)
		}
	}
	return slots, nil
}

var _ CourtUseCase = (*CourtService)(nil)

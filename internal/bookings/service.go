package bookings

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/H6ise/Sports-Inventory-accounting/internal/audit"
)

// Service provides business logic for equipment bookings
type Service struct {
	repo   Repository
	audit  audit.Recorder
	logger *zap.Logger
}

// NewService creates a new bookings service. A nil recorder disables auditing.
func NewService(repo Repository, recorder audit.Recorder, logger *zap.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{repo: repo, audit: recorder, logger: logger}
}

// Book reserves an item on behalf of userID
func (s *Service) Book(ctx context.Context, userID int64, booking *Booking) error {
	booking.UserID = userID
	if err := s.repo.Create(ctx, booking); err != nil {
		s.logger.Error("Failed to book item",
			zap.Int64("inventory_id", booking.InventoryID),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return err
	}

	s.audit.Record(ctx, userID, fmt.Sprintf("Booked item %d for %s on %s", booking.InventoryID, booking.Class, booking.BookingDate))
	s.logger.Info("Item booked",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("inventory_id", booking.InventoryID))
	return nil
}

// List returns the bookings of one user, or all of them when userID is 0
func (s *Service) List(ctx context.Context, userID int64) ([]Booking, error) {
	return s.repo.List(ctx, userID)
}

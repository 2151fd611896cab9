package bookings

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/H6ise/Sports-Inventory-accounting/internal/inventory"
)

// Repository defines the interface for booking persistence
type Repository interface {
	Create(ctx context.Context, booking *Booking) error
	List(ctx context.Context, userID int64) ([]Booking, error)
}

// GormRepository stores bookings through gorm
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a repository on the shared gorm session
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Create inserts a booking after checking the item exists, in one transaction
func (r *GormRepository) Create(ctx context.Context, booking *Booking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item inventory.Item
		if err := tx.Select("id").First(&item, booking.InventoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %d", ErrUnknownItem, booking.InventoryID)
			}
			return fmt.Errorf("failed to load item: %w", err)
		}

		booking.ID = 0
		if err := tx.Create(booking).Error; err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		return nil
	})
}

// List returns the bookings of one user, or every booking when userID is 0,
// ordered by day
func (r *GormRepository) List(ctx context.Context, userID int64) ([]Booking, error) {
	query := r.db.WithContext(ctx).Order("booking_date").Order("id")
	if userID > 0 {
		query = query.Where("user_id = ?", userID)
	}

	bookings := []Booking{}
	if err := query.Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

package bookings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/H6ise/Sports-Inventory-accounting/internal/inventory"
)

var (
	// ErrInvalidBooking is returned when a booking fails validation
	ErrInvalidBooking = errors.New("invalid booking")
	// ErrUnknownItem is returned when the booked item does not exist
	ErrUnknownItem = errors.New("booked item not found")
)

const maxClassLength = 50

// Booking reserves an inventory item for a class on one day
type Booking struct {
	ID          int64          `gorm:"column:id;primaryKey" json:"id"`
	InventoryID int64          `gorm:"column:inventory_id" json:"inventory_id"`
	UserID      int64          `gorm:"column:user_id" json:"user_id"`
	BookingDate inventory.Date `gorm:"column:booking_date" json:"booking_date"`
	Class       string         `gorm:"column:class" json:"class"`
	CreatedAt   time.Time      `gorm:"column:created_at" json:"created_at"`
}

// TableName implements gorm's tabler
func (Booking) TableName() string {
	return "bookings"
}

// BeforeSave validates the booking inside the write transaction
func (b *Booking) BeforeSave(*gorm.DB) error {
	return b.Validate()
}

// Validate checks the values the bookings table cannot hold
func (b *Booking) Validate() error {
	b.Class = strings.TrimSpace(b.Class)
	switch {
	case b.InventoryID <= 0:
		return fmt.Errorf("%w: inventory_id is required", ErrInvalidBooking)
	case b.UserID <= 0:
		return fmt.Errorf("%w: user_id is required", ErrInvalidBooking)
	case b.BookingDate.IsZero():
		return fmt.Errorf("%w: booking_date is required", ErrInvalidBooking)
	case len(b.Class) > maxClassLength:
		return fmt.Errorf("%w: class must be at most %d characters", ErrInvalidBooking, maxClassLength)
	}
	return nil
}

package inventory

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/builder"
)

var (
	// ErrNotFound is returned when an item does not exist
	ErrNotFound = errors.New("item not found")
	// ErrInvalidItem is returned when an item fails validation
	ErrInvalidItem = errors.New("invalid item")
)

// Columns are the headers of inventory listings, in table order
var Columns = []string{"id", "name", "category", "quantity", "condition", "purchase_date", "service_life", "photo"}

// Date is a calendar day stored as YYYY-MM-DD. The zero value is NULL.
type Date struct {
	time.Time
}

// ParseDate parses a YYYY-MM-DD string; the empty string gives the zero Date
func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(builder.DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: dates must use YYYY-MM-DD, got %q", ErrInvalidItem, s)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(builder.DateLayout)
}

// Value implements driver.Valuer
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan implements sql.Scanner for DATE columns and their TEXT rendition
func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = Date{time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)}
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", value)
	}
	return nil
}

func (d *Date) scanString(s string) error {
	if len(s) > len(builder.DateLayout) {
		s = s[:len(builder.DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Item is a row of the inventory table
type Item struct {
	ID           int64  `gorm:"column:id;primaryKey" json:"id"`
	Name         string `gorm:"column:name" json:"name"`
	Category     string `gorm:"column:category" json:"category"`
	Quantity     int    `gorm:"column:quantity" json:"quantity"`
	Condition    string `gorm:"column:condition" json:"condition"`
	PurchaseDate Date   `gorm:"column:purchase_date" json:"purchase_date"`
	ServiceLife  int    `gorm:"column:service_life" json:"service_life"`
	Photo        string `gorm:"column:photo" json:"photo"`
}

// TableName implements gorm's tabler
func (Item) TableName() string {
	return "inventory"
}

// BeforeSave validates the item inside the write transaction
func (i *Item) BeforeSave(*gorm.DB) error {
	return i.Validate()
}

// Validate checks the values the inventory table cannot hold
func (i *Item) Validate() error {
	i.Name = strings.TrimSpace(i.Name)
	switch {
	case i.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	case !contains(builder.Categories, i.Category):
		return fmt.Errorf("%w: unknown category %q", ErrInvalidItem, i.Category)
	case !contains(builder.Conditions, i.Condition):
		return fmt.Errorf("%w: unknown condition %q", ErrInvalidItem, i.Condition)
	case i.Quantity < 0:
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidItem)
	case i.ServiceLife < 0:
		return fmt.Errorf("%w: service_life must not be negative", ErrInvalidItem)
	}
	return nil
}

// Row renders the item in Columns order
func (i *Item) Row() []interface{} {
	var purchased interface{}
	if !i.PurchaseDate.IsZero() {
		purchased = i.PurchaseDate.String()
	}
	return []interface{}{
		i.ID, i.Name, i.Category, int64(i.Quantity), i.Condition, purchased, int64(i.ServiceLife), i.Photo,
	}
}

// ReplacementYear is the year the item reaches the end of its service life.
// ok is false when the purchase date is unknown.
func (i *Item) ReplacementYear() (year int, ok bool) {
	if i.PurchaseDate.IsZero() {
		return 0, false
	}
	return i.PurchaseDate.Year() + i.ServiceLife, true
}

// Reminder flags an item that is due for replacement
type Reminder struct {
	Item    Item `json:"item"`
	DueYear int  `json:"due_year"`
}

func (r Reminder) String() string {
	return fmt.Sprintf("%s (%s, qty %d) reached its service life in %d", r.Item.Name, r.Item.Category, r.Item.Quantity, r.DueYear)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

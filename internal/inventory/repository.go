package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Repository defines the interface for inventory persistence
type Repository interface {
	List(ctx context.Context, offset, limit int) ([]Item, int, error)
	Search(ctx context.Context, term string, offset, limit int) ([]Item, int, error)
	All(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id int64) (*Item, error)
	Create(ctx context.Context, items ...*Item) error
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id int64) (*Item, error)
}

// GormRepository stores items through gorm. Every write runs in a transaction.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a repository on the shared gorm session
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// List returns one window of items ordered by id, and the total count
func (r *GormRepository) List(ctx context.Context, offset, limit int) ([]Item, int, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&Item{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	items := []Item{}
	err := r.db.WithContext(ctx).Order("id").Offset(offset).Limit(limit).Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}
	return items, int(total), nil
}

// likeEscaper escapes LIKE wildcards so a search term matches literally
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches term case-insensitively against name, category and
// condition, returning one window ordered by id and the match count
func (r *GormRepository) Search(ctx context.Context, term string, offset, limit int) ([]Item, int, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
	query := r.db.WithContext(ctx).Model(&Item{}).
		Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\' OR LOWER(condition) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count search results: %w", err)
	}

	items := []Item{}
	if err := query.Order("id").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to search items: %w", err)
	}
	return items, int(total), nil
}

// All returns every item ordered by id
func (r *GormRepository) All(ctx context.Context) ([]Item, error) {
	items := []Item{}
	if err := r.db.WithContext(ctx).Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	return items, nil
}

// Get returns one item
func (r *GormRepository) Get(ctx context.Context, id int64) (*Item, error) {
	var item Item
	err := r.db.WithContext(ctx).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

// Create inserts the items in one transaction; either all are stored or none
func (r *GormRepository) Create(ctx context.Context, items ...*Item) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			item.ID = 0
			if err := tx.Create(item).Error; err != nil {
				return fmt.Errorf("failed to create item %q: %w", item.Name, err)
			}
		}
		return nil
	})
}

// Update overwrites every column of an existing item
func (r *GormRepository) Update(ctx context.Context, item *Item) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Item
		if err := tx.Select("id").First(&existing, item.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load item: %w", err)
		}
		if err := tx.Save(item).Error; err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}
		return nil
	})
}

// Delete removes an item and returns what was removed
func (r *GormRepository) Delete(ctx context.Context, id int64) (*Item, error) {
	var item Item
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load item: %w", err)
		}
		if err := tx.Delete(&Item{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

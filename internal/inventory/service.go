package inventory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/H6ise/Sports-Inventory-accounting/internal/audit"
	"github.com/H6ise/Sports-Inventory-accounting/internal/tabular"
)

const cachePrefix = "inventory:"

// Service provides business logic for the equipment catalogue
type Service struct {
	repo     Repository
	cache    *Cache
	audit    audit.Recorder
	pageSize int
	logger   *zap.Logger
}

// NewService creates a new inventory service. A nil recorder disables auditing.
func NewService(repo Repository, cache *Cache, recorder audit.Recorder, pageSize int, logger *zap.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if pageSize <= 0 {
		pageSize = tabular.DefaultPageSize
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		audit:    recorder,
		pageSize: pageSize,
		logger:   logger,
	}
}

// =====================================================
// Reads
// =====================================================

// List returns page n of the catalogue ordered by id. Pages are cached
// until the next successful mutation.
func (s *Service) List(ctx context.Context, page int) (*tabular.Page, error) {
	if page < 1 {
		page = 1
	}
	key := fmt.Sprintf("%spage:%d:%d", cachePrefix, page, s.pageSize)

	value, err := s.cache.GetOrSet(key, func() (interface{}, error) {
		return s.Table().Load(ctx, page)
	})
	if err != nil {
		return nil, err
	}
	return value.(*tabular.Page), nil
}

// Table returns an uncached paged view of the catalogue
func (s *Service) Table() *tabular.Table {
	return tabular.NewTable(Columns, s.rows, s.pageSize)
}

// Search returns page n of the items whose name, category or condition
// contains term. Results are not cached.
func (s *Service) Search(ctx context.Context, term string, page int) (*tabular.Page, error) {
	if page < 1 {
		page = 1
	}
	source := func(ctx context.Context, offset, limit int) ([][]interface{}, int, error) {
		return itemRows(s.repo.Search(ctx, term, offset, limit))
	}
	return tabular.NewTable(Columns, source, s.pageSize).Load(ctx, page)
}

func (s *Service) rows(ctx context.Context, offset, limit int) ([][]interface{}, int, error) {
	return itemRows(s.repo.List(ctx, offset, limit))
}

func itemRows(items []Item, total int, err error) ([][]interface{}, int, error) {
	if err != nil {
		return nil, 0, err
	}
	rows := make([][]interface{}, len(items))
	for i := range items {
		rows[i] = items[i].Row()
	}
	return rows, total, nil
}

// Get returns one item
func (s *Service) Get(ctx context.Context, id int64) (*Item, error) {
	return s.repo.Get(ctx, id)
}

// All returns the whole catalogue
func (s *Service) All(ctx context.Context) ([]Item, error) {
	return s.repo.All(ctx)
}

// Reminders lists items whose service life ends in or before now's year
func (s *Service) Reminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	items, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load items for reminders: %w", err)
	}

	reminders := []Reminder{}
	for _, item := range items {
		year, ok := item.ReplacementYear()
		if ok && year <= now.Year() {
			reminders = append(reminders, Reminder{Item: item, DueYear: year})
		}
	}
	return reminders, nil
}

// =====================================================
// Mutations
// =====================================================

// Add stores new items in one transaction
func (s *Service) Add(ctx context.Context, userID int64, items ...*Item) error {
	if err := s.repo.Create(ctx, items...); err != nil {
		s.logger.Error("Failed to add items", zap.Int("count", len(items)), zap.Error(err))
		return err
	}
	s.invalidate()

	for _, item := range items {
		s.audit.Record(ctx, userID, "Added item "+item.Name)
		s.logger.Info("Item added", zap.Int64("item_id", item.ID), zap.String("name", item.Name))
	}
	return nil
}

// Update overwrites an existing item
func (s *Service) Update(ctx context.Context, userID int64, item *Item) error {
	if err := s.repo.Update(ctx, item); err != nil {
		s.logger.Error("Failed to update item", zap.Int64("item_id", item.ID), zap.Error(err))
		return err
	}
	s.invalidate()

	s.audit.Record(ctx, userID, "Updated item "+item.Name)
	s.logger.Info("Item updated", zap.Int64("item_id", item.ID))
	return nil
}

// Delete removes an item
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	item, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("Failed to delete item", zap.Int64("item_id", id), zap.Error(err))
		return err
	}
	s.invalidate()

	s.audit.Record(ctx, userID, "Deleted item "+item.Name)
	s.logger.Info("Item deleted", zap.Int64("item_id", id))
	return nil
}

func (s *Service) invalidate() {
	s.cache.DeleteByPrefix(cachePrefix)
}

package search

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/carbidz-backend/pkg/db/models"
	"github.com/angelmondragon/carbidz-backend/pkg/enums"
)

// Repository owns the search_items projection.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) InsertIfAbsent(ctx context.Context, item *models.SearchItem) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(item)
	return res.RowsAffected > 0, res.Error
}

// Patch applies changes only when updatedAt is newer than the stored
// source_updated_at, so stale or replayed updates are dropped.
func (r *Repository) Patch(ctx context.Context, id uuid.UUID, changes map[string]any, updatedAt time.Time) (bool, error) {
	values := make(map[string]any, len(changes)+2)
	for k, v := range changes {
		values[k] = v
	}
	values["updated_at"] = updatedAt.UTC()
	values["source_updated_at"] = updatedAt.UTC()
	res := r.db.WithContext(ctx).
		Model(&models.SearchItem{}).
		Where("id = ? AND source_updated_at < ?", id, updatedAt.UTC()).
		Updates(values)
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.SearchItem{}).Error
}

func (r *Repository) RaiseHighBid(ctx context.Context, id uuid.UUID, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.SearchItem{}).
		Where("id = ? AND (current_high_bid IS NULL OR current_high_bid < ?)", id, amount).
		Update("current_high_bid", amount)
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) Finish(ctx context.Context, id uuid.UUID, status enums.AuctionStatus, winner *string, amount *int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.SearchItem{}).
		Where("id = ? AND status = ?", id, enums.AuctionStatusLive).
		Updates(map[string]any{
			"status":      status,
			"winner":      winner,
			"sold_amount": amount,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SearchItem{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SearchItem, error) {
	var item models.SearchItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// Search returns one page of matches and the total match count.
func (r *Repository) Search(ctx context.Context, q Query, now time.Time, endingSoon time.Duration) ([]models.SearchItem, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.SearchItem{})
	if term := strings.TrimSpace(q.Term); term != "" {
		base = r.matchText(base, term)
	}
	if q.Seller != "" {
		base = base.Where("seller = ?", q.Seller)
	}
	if q.Winner != "" {
		base = base.Where("winner = ?", q.Winner)
	}
	after, before := endWindow(q.Filter, now, endingSoon)
	if after != nil {
		base = base.Where("auction_end > ?", *after)
	}
	if before != nil {
		base = base.Where("auction_end < ?", *before)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	list := base.Session(&gorm.Session{})
	for _, order := range orderClauses(q.OrderBy) {
		list = list.Order(order)
	}
	var items []models.SearchItem
	err := list.Order("id ASC").
		Offset(q.Page.Offset()).
		Limit(q.Page.PageSize).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// matchText uses the generated tsvector on Postgres. SQLite test databases
// have no tsvector, so they fall back to substring matching.
func (r *Repository) matchText(q *gorm.DB, term string) *gorm.DB {
	if r.db.Dialector.Name() == "sqlite" {
		like := "%" + strings.ToLower(term) + "%"
		return q.Where("(lower(make) LIKE ? OR lower(model) LIKE ? OR lower(color) LIKE ?)", like, like, like)
	}
	return q.Where("search_vector @@ plainto_tsquery('simple', ?)", term)
}

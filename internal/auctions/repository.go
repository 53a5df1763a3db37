package auctions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/carbidz-backend/pkg/db/models"
	"github.com/angelmondragon/carbidz-backend/pkg/enums"
)

// Repository persists canonical auction records.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// List returns auctions ordered by make, optionally only those updated after since.
func (r *Repository) List(ctx context.Context, since *time.Time) ([]models.Auction, error) {
	q := r.db.WithContext(ctx).Model(&models.Auction{})
	if since != nil {
		q = q.Where("updated_at > ?", since.UTC())
	}
	var rows []models.Auction
	err := q.Order("make ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

// FindByID returns gorm.ErrRecordNotFound when the auction does not exist.
func (r *Repository) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	if err := r.conn(ctx, tx).Where("id = ?", id).Take(&auction).Error; err != nil {
		return nil, err
	}
	return &auction, nil
}

func (r *Repository) Create(ctx context.Context, tx *gorm.DB, auction *models.Auction) error {
	return r.conn(ctx, tx).Create(auction).Error
}

// Patch writes the changed columns plus updated_at.
func (r *Repository) Patch(ctx context.Context, tx *gorm.DB, id uuid.UUID, changes map[string]any, updatedAt time.Time) error {
	values := make(map[string]any, len(changes)+1)
	for k, v := range changes {
		values[k] = v
	}
	values["updated_at"] = updatedAt.UTC()
	return r.conn(ctx, tx).Model(&models.Auction{}).Where("id = ?", id).Updates(values).Error
}

func (r *Repository) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.conn(ctx, tx).Where("id = ?", id).Delete(&models.Auction{}).Error
}

// RaiseHighBid sets current_high_bid only when amount exceeds it, so replays
// and out-of-order deliveries never lower it.
func (r *Repository) RaiseHighBid(ctx context.Context, auctionID uuid.UUID, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ? AND (current_high_bid IS NULL OR current_high_bid < ?)", auctionID, amount).
		Update("current_high_bid", amount)
	return res.RowsAffected > 0, res.Error
}

// Finish records the outcome while the auction is still live; later
// deliveries affect no rows.
func (r *Repository) Finish(ctx context.Context, auctionID uuid.UUID, status enums.AuctionStatus, winner *string, amount *int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ? AND status = ?", auctionID, enums.AuctionStatusLive).
		Updates(map[string]any{
			"status":      status,
			"winner":      winner,
			"sold_amount": amount,
		})
	return res.RowsAffected > 0, res.Error
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

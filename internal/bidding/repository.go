package bidding

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/carbidz-backend/pkg/db/models"
	"github.com/angelmondragon/carbidz-backend/pkg/enums"
)

// Repository owns the auction mirror and the bid ledger.
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

// FindMirror returns nil without error when the auction is not mirrored.
func (r *Repository) FindMirror(ctx context.Context, tx *gorm.DB, auctionID uuid.UUID) (*models.AuctionMirror, error) {
	var mirror models.AuctionMirror
	err := r.conn(ctx, tx).Where("auction_id = ?", auctionID).Take(&mirror).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mirror, nil
}

// LockMirror loads the mirror row with FOR UPDATE, serializing bids and
// finalization of the same auction.
func (r *Repository) LockMirror(ctx context.Context, tx *gorm.DB, auctionID uuid.UUID) (*models.AuctionMirror, error) {
	var mirror models.AuctionMirror
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("auction_id = ?", auctionID).
		Take(&mirror).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mirror, nil
}

// InsertMirrorIfAbsent reports whether a row was created.
func (r *Repository) InsertMirrorIfAbsent(ctx context.Context, tx *gorm.DB, mirror *models.AuctionMirror) (bool, error) {
	res := r.conn(ctx, tx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "auction_id"}}, DoNothing: true}).
		Create(mirror)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// TouchMirror advances source_updated_at when the change is newer than what
// the mirror has seen. Item attributes are not mirrored, so nothing else moves.
func (r *Repository) TouchMirror(ctx context.Context, tx *gorm.DB, auctionID uuid.UUID, updatedAt time.Time) (bool, error) {
	res := r.conn(ctx, tx).
		Model(&models.AuctionMirror{}).
		Where("auction_id = ? AND source_updated_at < ?", auctionID, updatedAt.UTC()).
		Update("source_updated_at", updatedAt.UTC())
	return res.RowsAffected > 0, res.Error
}

// MarkMirrorFinished flips finished once; repeated calls affect no rows.
func (r *Repository) MarkMirrorFinished(ctx context.Context, tx *gorm.DB, auctionID uuid.UUID) (bool, error) {
	res := r.conn(ctx, tx).
		Model(&models.AuctionMirror{}).
		Where("auction_id = ? AND finished = ?", auctionID, false).
		Update("finished", true)
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) DeleteMirror(ctx context.Context, tx *gorm.DB, auctionID uuid.UUID) error {
	return r.conn(ctx, tx).
		Where("auction_id = ?", auctionID).
		Delete(&models.AuctionMirror{}).Error
}

// DueMirrors lists unfinished auctions whose end has passed, oldest end first.
func (r *Repository) DueMirrors(ctx context.Context, now time.Time, limit int) ([]models.AuctionMirror, error) {
	var rows []models.AuctionMirror
	q := r.db.WithContext(ctx).
		Where("auction_end <= ? AND finished = ?", now.UTC(), false).
		Order("auction_end ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

// LeadingBid is the highest accepted or accepted_below_reserve bid, newest
// first on equal amounts.
func (r *Repository) LeadingBid(ctx context.Context, tx *gorm.DB, auctionID uuid.UUID) (*models.Bid, error) {
	return r.topBid(ctx, tx, auctionID, enums.LeadingBidStatuses()...)
}

// WinningBid only considers bids that met the reserve.
func (r *Repository) WinningBid(ctx context.Context, tx *gorm.DB, auctionID uuid.UUID) (*models.Bid, error) {
	return r.topBid(ctx, tx, auctionID, enums.BidStatusAccepted)
}

func (r *Repository) topBid(ctx context.Context, tx *gorm.DB, auctionID uuid.UUID, statuses ...enums.BidStatus) (*models.Bid, error) {
	var bid models.Bid
	err := r.conn(ctx, tx).
		Where("auction_id = ? AND status IN ?", auctionID, statuses).
		Order("amount DESC").
		Order("bid_time DESC").
		Take(&bid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *Repository) InsertBid(ctx context.Context, tx *gorm.DB, bid *models.Bid) error {
	return r.conn(ctx, tx).Create(bid).Error
}

// DemoteBid marks a former leader too_low.
func (r *Repository) DemoteBid(ctx context.Context, tx *gorm.DB, bidID uuid.UUID) error {
	return r.conn(ctx, tx).
		Model(&models.Bid{}).
		Where("id = ?", bidID).
		Update("status", enums.BidStatusTooLow).Error
}

// ListBids returns every bid for the auction, newest first.
func (r *Repository) ListBids(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("bid_time DESC").
		Find(&bids).Error
	return bids, err
}

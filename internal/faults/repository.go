package faults

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/carbidz-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert stores a fault once per (event_id, consumer) and reports whether a
// new row was written.
func (r *Repository) Insert(ctx context.Context, fault *models.EventFault) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`INSERT INTO event_faults (id, event_id, event_type, consumer, subscription, attempts, reason, payload, failed_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (event_id, consumer) DO NOTHING`,
		fault.ID, fault.EventID, fault.EventType, fault.Consumer, fault.Subscription,
		fault.Attempts, fault.Reason, fault.Payload, fault.FailedAt.UTC(), fault.CreatedAt.UTC(),
	)
	return res.RowsAffected > 0, res.Error
}

// Recent lists the latest faults for operator inspection.
func (r *Repository) Recent(ctx context.Context, limit int) ([]models.EventFault, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.EventFault
	err := r.db.WithContext(ctx).Order("failed_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

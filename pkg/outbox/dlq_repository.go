package outbox

import (
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/carbidz-backend/pkg/db/models"
)

const maxDLQErrorLen = 1024

// DLQRepository records outbox rows the publisher gave up on. Rows are
// written in the same transaction that marks the outbox row terminal.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("dlq insert needs a transaction")
	}
	if entry.ErrorMessage != nil {
		clipped := clip(*entry.ErrorMessage, maxDLQErrorLen)
		entry.ErrorMessage = &clipped
	}
	return tx.Create(&entry).Error
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/rubriq/rubriq-api/internal/models"
)

// BatchRepository persists upload batches. Counter columns are advanced with
// single atomic UPDATEs so concurrent worker completions never lose increments.
type BatchRepository interface {
	Create(ctx context.Context, batch *models.UploadBatch) error
	GetByID(ctx context.Context, id uint) (models.UploadBatch, error)
	RecordResult(ctx context.Context, id uint, failed bool) (models.UploadBatch, error)
}

type batchRepository struct {
	db *gorm.DB
}

// NewBatchRepository instantiates a GORM-backed repository.
func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) Create(ctx context.Context, batch *models.UploadBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *batchRepository) GetByID(ctx context.Context, id uint) (models.UploadBatch, error) {
	var batch models.UploadBatch
	if err := r.db.WithContext(ctx).First(&batch, id).Error; err != nil {
		return models.UploadBatch{}, err
	}

	return batch, nil
}

func (r *batchRepository) RecordResult(ctx context.Context, id uint, failed bool) (models.UploadBatch, error) {
	column := "processed_files"
	if failed {
		column = "failed_files"
	}

	var batch models.UploadBatch
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.UploadBatch{}).
			Where("id = ?", id).
			UpdateColumn(column, gorm.Expr(column+" + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.First(&batch, id).Error; err != nil {
			return err
		}

		if batch.IsFinished() && batch.Status != models.BatchStatusCompleted {
			batch.Status = models.BatchStatusCompleted
			if err := tx.Model(&models.UploadBatch{}).Where("id = ?", id).
				UpdateColumn("status", models.BatchStatusCompleted).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return models.UploadBatch{}, err
	}

	return batch, nil
}

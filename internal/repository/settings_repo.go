package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/rubriq/rubriq-api/internal/models"
)

// SettingsRepository persists the single settings row.
type SettingsRepository interface {
	// Ensure returns the settings row, creating it from the given defaults if
	// no row exists yet. At most one row is ever created.
	Ensure(ctx context.Context, defaults models.Settings) (models.Settings, error)
	Update(ctx context.Context, settings *models.Settings) error
}

type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository instantiates a GORM-backed repository.
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Ensure(ctx context.Context, defaults models.Settings) (models.Settings, error) {
	var settings models.Settings
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Order("id ASC").First(&settings).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		settings = defaults
		return tx.Create(&settings).Error
	})
	if err != nil {
		return models.Settings{}, err
	}

	return settings, nil
}

func (r *settingsRepository) Update(ctx context.Context, settings *models.Settings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}

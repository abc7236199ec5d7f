package persistence

import (
	"context"
	"errors"

	"github.com/erp/orderrecon/internal/domain/history"
	"github.com/erp/orderrecon/internal/domain/shared"
	"github.com/erp/orderrecon/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultRunLimit caps FindRecent when the filter sets no limit
const DefaultRunLimit = 20

// GormRunRepository implements history.Repository using GORM
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// Migrate creates or updates the run history table
func (r *GormRunRepository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&models.RunModel{})
}

// Save creates or updates a run
func (r *GormRunRepository) Save(ctx context.Context, run *history.Run) error {
	model := models.RunModelFromDomain(run)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a run by ID
func (r *GormRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*history.Run, error) {
	var model models.RunModel
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRecent returns runs newest first
func (r *GormRunRepository) FindRecent(ctx context.Context, filter history.Filter) ([]*history.Run, error) {
	query := r.db.WithContext(ctx).Model(&models.RunModel{})
	if filter.Platform != "" {
		query = query.Where("platform = ?", filter.Platform)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultRunLimit
	}

	var runModels []models.RunModel
	if err := query.Order("created_at DESC").Limit(limit).Find(&runModels).Error; err != nil {
		return nil, err
	}

	runs := make([]*history.Run, len(runModels))
	for i := range runModels {
		runs[i] = runModels[i].ToDomain()
	}
	return runs, nil
}

var _ history.Repository = (*GormRunRepository)(nil)

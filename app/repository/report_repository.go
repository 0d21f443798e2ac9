package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/trashmap/trashmap-api/app/models"
)

// reportRepository implements ReportRepository on gorm (MySQL).
type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a SQL backed report repository.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepository) AttachJurisdiction(ctx context.Context, id string, j *models.Jurisdiction) error {
	var probe models.Report
	probe.SetJurisdiction(j)

	res := r.db.WithContext(ctx).Model(&models.Report{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"region":    probe.Region,
			"subregion": probe.Subregion,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL reports zero rows when the values did not change
		_, err := r.GetByID(ctx, id)
		return err
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) List(ctx context.Context, opts ListOptions) ([]models.Report, error) {
	var reports []models.Report
	q := r.db.WithContext(ctx).Model(&models.Report{})
	if opts.Since != nil {
		q = q.Where("submitted_at >= ?", opts.Since.UTC())
	}
	err := q.Order("submitted_at DESC").Limit(opts.EffectiveLimit()).Find(&reports).Error
	return reports, err
}

func (r *reportRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Report{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrReportNotFound
	}
	return nil
}

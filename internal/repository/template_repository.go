package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/signalworks/email-delivery-service/internal/models"
)

// TemplateRepository is the gorm-backed store for versioned templates and
// their immutable version history.
type TemplateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new TemplateRepository.
func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	// Auto-migrate the schema
	db.AutoMigrate(&models.Template{}, &models.TemplateVersion{})
	return &TemplateRepository{db: db}
}

// GetCurrent returns the row with IsCurrent=true for (code, language).
func (r *TemplateRepository) GetCurrent(code, language string) (*models.Template, error) {
	var tpl models.Template
	err := r.db.
		Where("template_code = ? AND language = ? AND is_current = ?", code, language, true).
		First(&tpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

// GetByVersion returns the live row holding an exact historical version.
func (r *TemplateRepository) GetByVersion(code, language string, version int) (*models.Template, error) {
	var tpl models.Template
	err := r.db.
		Where("template_code = ? AND language = ? AND version = ?", code, language, version).
		First(&tpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

// GetArchivedVersion returns the version-history snapshot for an exact version.
func (r *TemplateRepository) GetArchivedVersion(code, language string, version int) (*models.TemplateVersion, error) {
	var snapshot models.TemplateVersion
	err := r.db.
		Where("template_code = ? AND language = ? AND version = ?", code, language, version).
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Insert persists a brand new template row.
func (r *TemplateRepository) Insert(tpl *models.Template) error {
	return r.db.Create(tpl).Error
}

// ReplaceCurrent atomically supersedes the current version: the prior
// current row loses its is_current flag, its snapshot lands in the version
// history, and the next version becomes current. A crash can never leave
// zero or two current rows for the pair because all three writes share one
// transaction.
func (r *TemplateRepository) ReplaceCurrent(snapshot *models.TemplateVersion, next *models.Template) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Template{}).
			Where("template_code = ? AND language = ? AND is_current = ?", next.TemplateCode, next.Language, true).
			Update("is_current", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrTemplateNotFound
		}

		if err := tx.Create(snapshot).Error; err != nil {
			return err
		}
		return tx.Create(next).Error
	})
}

// ListCurrent returns current rows, optionally filtered by status and type.
func (r *TemplateRepository) ListCurrent(status models.TemplateStatus, templateType models.TemplateType) ([]models.Template, error) {
	query := r.db.Where("is_current = ?", true)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if templateType != "" {
		query = query.Where("template_type = ?", templateType)
	}

	var templates []models.Template
	if err := query.Order("template_code, language").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// ListVersions returns a pair's version history, newest first.
func (r *TemplateRepository) ListVersions(code, language string) ([]models.TemplateVersion, error) {
	var versions []models.TemplateVersion
	err := r.db.
		Where("template_code = ? AND language = ?", code, language).
		Order("version DESC").
		Find(&versions).Error
	if err != nil {
		return nil, err
	}
	return versions, nil
}

package repositories

import (
	"errors"

	"metallvector_backend/internal/models"

	"gorm.io/gorm"
)

var ErrAnalysisNotFound = errors.New("analysis not found")

type AnalysisRepository interface {
	Create(db *gorm.DB, analysis *models.Analysis) error
	FindByID(db *gorm.DB, id string) (*models.Analysis, error)
	FindByIDForUser(db *gorm.DB, id, userID string) (*models.Analysis, error)
	ListForUser(db *gorm.DB, userID string, deleted bool, page, pageSize int) ([]models.Analysis, int64, error)
	SetDeleted(db *gorm.DB, id, userID string, deleted bool) error
	SetTargetProposal(db *gorm.DB, id, proposal string) error
	CountAll(db *gorm.DB) (int64, error)
	CountNonTarget(db *gorm.DB) (int64, error)
}

type AnalysisRepositoryImpl struct{}

func NewAnalysisRepository() AnalysisRepository {
	return &AnalysisRepositoryImpl{}
}

func (r *AnalysisRepositoryImpl) Create(db *gorm.DB, analysis *models.Analysis) error {
	return db.Create(analysis).Error
}

func (r *AnalysisRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Analysis, error) {
	var analysis models.Analysis
	err := db.First(&analysis, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnalysisNotFound
		}
		return nil, err
	}
	return &analysis, nil
}

// FindByIDForUser находит анализ только если он принадлежит пользователю.
// Чужой и несуществующий анализ неразличимы для клиента (404).
func (r *AnalysisRepositoryImpl) FindByIDForUser(db *gorm.DB, id, userID string) (*models.Analysis, error) {
	var analysis models.Analysis
	err := db.First(&analysis, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnalysisNotFound
		}
		return nil, err
	}
	return &analysis, nil
}

func (r *AnalysisRepositoryImpl) ListForUser(db *gorm.DB, userID string, deleted bool, page, pageSize int) ([]models.Analysis, int64, error) {
	query := db.Model(&models.Analysis{}).
		Where("user_id = ? AND is_deleted = ?", userID, deleted)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page > 0 && pageSize > 0 {
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	var analyses []models.Analysis
	if err := query.Order("created_at DESC").Find(&analyses).Error; err != nil {
		return nil, 0, err
	}
	return analyses, total, nil
}

// SetDeleted перекидывает анализ в корзину и обратно (флаг, не удаление)
func (r *AnalysisRepositoryImpl) SetDeleted(db *gorm.DB, id, userID string, deleted bool) error {
	result := db.Model(&models.Analysis{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_deleted", deleted)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAnalysisNotFound
	}
	return nil
}

func (r *AnalysisRepositoryImpl) SetTargetProposal(db *gorm.DB, id, proposal string) error {
	result := db.Model(&models.Analysis{}).
		Where("id = ?", id).
		Update("target_proposal", proposal)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAnalysisNotFound
	}
	return nil
}

func (r *AnalysisRepositoryImpl) CountAll(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&models.Analysis{}).Count(&count).Error
	return count, err
}

func (r *AnalysisRepositoryImpl) CountNonTarget(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&models.Analysis{}).Where("is_non_target = ?", true).Count(&count).Error
	return count, err
}

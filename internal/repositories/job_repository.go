package repositories

import (
	"errors"

	"metallvector_backend/internal/models"

	"gorm.io/gorm"
)

var ErrJobNotFound = errors.New("job not found")

type JobRepository interface {
	Create(db *gorm.DB, job *models.Job) error
	FindByIDForUser(db *gorm.DB, id, userID string) (*models.Job, error)
	NextPending(db *gorm.DB) (*models.Job, error)
	Claim(db *gorm.DB, id string) (bool, error)
	Complete(db *gorm.DB, id, analysisID string) error
	Fail(db *gorm.DB, id, errMsg string) error
}

type JobRepositoryImpl struct{}

func NewJobRepository() JobRepository {
	return &JobRepositoryImpl{}
}

func (r *JobRepositoryImpl) Create(db *gorm.DB, job *models.Job) error {
	return db.Create(job).Error
}

func (r *JobRepositoryImpl) FindByIDForUser(db *gorm.DB, id, userID string) (*models.Job, error) {
	var job models.Job
	err := db.First(&job, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (r *JobRepositoryImpl) NextPending(db *gorm.DB) (*models.Job, error) {
	var job models.Job
	err := db.Where("status = ?", models.JobStatusPending).
		Order("created_at ASC").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

// Claim переводит задачу pending -> processing условным UPDATE.
// false означает, что задачу уже забрал другой воркер.
func (r *JobRepositoryImpl) Claim(db *gorm.DB, id string) (bool, error) {
	result := db.Model(&models.Job{}).
		Where("id = ? AND status = ?", id, models.JobStatusPending).
		Update("status", models.JobStatusProcessing)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *JobRepositoryImpl) Complete(db *gorm.DB, id, analysisID string) error {
	return db.Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      models.JobStatusCompleted,
			"analysis_id": analysisID,
		}).Error
}

func (r *JobRepositoryImpl) Fail(db *gorm.DB, id, errMsg string) error {
	return db.Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status": models.JobStatusFailed,
			"error":  errMsg,
		}).Error
}

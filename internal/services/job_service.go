package services

import (
	"time"

	"gorm.io/gorm"

	"metallvector_backend/internal/inn"
	"metallvector_backend/internal/models"
	"metallvector_backend/internal/repositories"
	"metallvector_backend/internal/services/dto"
	"metallvector_backend/pkg/apperrors"
)

type JobService interface {
	CreateJob(db *gorm.DB, userID string, req *dto.CreateJobRequest) (*dto.JobResponse, error)
	GetJob(db *gorm.DB, userID, jobID string) (*dto.JobResponse, error)
}

type JobServiceImpl struct {
	jobRepo  repositories.JobRepository
	userRepo repositories.UserRepository
}

func NewJobService(jobRepo repositories.JobRepository, userRepo repositories.UserRepository) JobService {
	return &JobServiceImpl{jobRepo: jobRepo, userRepo: userRepo}
}

// CreateJob ставит анализ в очередь. Квота здесь не резервируется:
// ею управляет пайплайн в момент фактического выполнения, но пустой
// баланс отсекаем сразу, чтобы не копить заведомо провальные задачи.
func (s *JobServiceImpl) CreateJob(db *gorm.DB, userID string, req *dto.CreateJobRequest) (*dto.JobResponse, error) {
	if req.URL == "" && req.INN == "" {
		return nil, apperrors.NewBadRequestError("Укажите сайт компании или ИНН")
	}
	if req.INN != "" && !inn.ValidFormat(req.INN) {
		return nil, apperrors.NewBadRequestError("ИНН должен состоять из 10 или 12 цифр")
	}

	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if user.AnalysesRemaining <= 0 {
		return nil, apperrors.NewQuotaExhaustedError()
	}

	job := &models.Job{
		UserID: userID,
		Status: models.JobStatusPending,
		URL:    req.URL,
		INN:    req.INN,
	}
	if err := s.jobRepo.Create(db, job); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return toJobResponse(job), nil
}

func (s *JobServiceImpl) GetJob(db *gorm.DB, userID, jobID string) (*dto.JobResponse, error) {
	job, err := s.jobRepo.FindByIDForUser(db, jobID, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrJobNotFound) {
			return nil, apperrors.NewNotFoundError("job", "Задача не найдена")
		}
		return nil, apperrors.DatabaseError(err)
	}
	return toJobResponse(job), nil
}

func toJobResponse(job *models.Job) *dto.JobResponse {
	return &dto.JobResponse{
		ID:         job.ID,
		Status:     string(job.Status),
		AnalysisID: job.AnalysisID,
		Error:      job.Error,
		CreatedAt:  job.CreatedAt.Format(time.RFC3339),
	}
}

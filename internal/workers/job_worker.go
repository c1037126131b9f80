package workers

import (
	"context"
	"time"

	"gorm.io/gorm"

	"metallvector_backend/internal/logger"
	"metallvector_backend/internal/repositories"
	"metallvector_backend/internal/services"
	"metallvector_backend/internal/services/dto"
	"metallvector_backend/pkg/apperrors"
)

const jobPollInterval = 5 * time.Second

// JobWorker выполняет отложенные анализы из очереди. Перевод задачи
// pending -> processing идет условным UPDATE, поэтому несколько
// инстансов воркера не возьмут одну задачу дважды.
type JobWorker struct {
	db              *gorm.DB
	jobRepo         repositories.JobRepository
	analysisService services.AnalysisService
}

func NewJobWorker(db *gorm.DB, jobRepo repositories.JobRepository, analysisService services.AnalysisService) *JobWorker {
	return &JobWorker{
		db:              db,
		jobRepo:         jobRepo,
		analysisService: analysisService,
	}
}

// Start запускает цикл обработки очереди
func (w *JobWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *JobWorker) run(ctx context.Context) {
	ticker := time.NewTicker(jobPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("job worker stopped")
			return
		case <-ticker.C:
			w.drainQueue(ctx)
		}
	}
}

// drainQueue обрабатывает задачи, пока очередь не опустеет
func (w *JobWorker) drainQueue(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := w.jobRepo.NextPending(w.db)
		if err != nil {
			if !apperrors.Is(err, repositories.ErrJobNotFound) {
				logger.WorkerLog("job_worker", "next_pending", err)
			}
			return
		}

		claimed, err := w.jobRepo.Claim(w.db, job.ID)
		if err != nil {
			logger.WorkerLog("job_worker", "claim", err)
			return
		}
		if !claimed {
			// Задачу перехватил другой инстанс
			continue
		}

		w.process(ctx, job.ID, job.UserID, job.URL, job.INN)
	}
}

func (w *JobWorker) process(ctx context.Context, jobID, userID, url, innValue string) {
	start := time.Now()

	resp, err := w.analysisService.Analyze(ctx, w.db, userID, &dto.AnalyzeRequest{URL: url, INN: innValue})
	if err != nil {
		logger.WorkerLog("job_worker", "analyze", err)
		msg := "Не удалось выполнить анализ"
		var appErr *apperrors.AppError
		if apperrors.As(err, &appErr) {
			msg = appErr.Message
		}
		if failErr := w.jobRepo.Fail(w.db, jobID, msg); failErr != nil {
			logger.WorkerLog("job_worker", "fail", failErr)
		}
		return
	}

	if err := w.jobRepo.Complete(w.db, jobID, resp.ID); err != nil {
		logger.WorkerLog("job_worker", "complete", err)
		return
	}

	logger.Info("job completed",
		"job_id", jobID,
		"analysis_id", resp.ID,
		"is_non_target", resp.IsNonTarget,
		"duration", time.Since(start))
}

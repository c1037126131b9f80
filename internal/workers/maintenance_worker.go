package workers

import (
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"metallvector_backend/internal/logger"
	"metallvector_backend/internal/middleware"
	"metallvector_backend/internal/repositories"
)

// MaintenanceWorker выполняет регламентные задачи по расписанию:
// чистку просроченных токенов подтверждения/сброса и таблицы лимитера.
type MaintenanceWorker struct {
	db          *gorm.DB
	userRepo    repositories.UserRepository
	rateLimiter *middleware.RateLimiter
	cron        *cron.Cron
}

func NewMaintenanceWorker(db *gorm.DB, userRepo repositories.UserRepository, rateLimiter *middleware.RateLimiter) *MaintenanceWorker {
	return &MaintenanceWorker{
		db:          db,
		userRepo:    userRepo,
		rateLimiter: rateLimiter,
		cron:        cron.New(),
	}
}

// Start регистрирует расписание и запускает планировщик
func (w *MaintenanceWorker) Start() error {
	if _, err := w.cron.AddFunc("@hourly", w.clearExpiredTokens); err != nil {
		return err
	}
	if _, err := w.cron.AddFunc("@every 5m", w.sweepRateLimiter); err != nil {
		return err
	}
	w.cron.Start()
	logger.Info("maintenance worker started")
	return nil
}

func (w *MaintenanceWorker) Stop() {
	<-w.cron.Stop().Done()
	logger.Info("maintenance worker stopped")
}

func (w *MaintenanceWorker) clearExpiredTokens() {
	cleared, err := w.userRepo.ClearExpiredTokens(w.db)
	logger.WorkerLog("maintenance", "clear_expired_tokens", err)
	if err == nil && cleared > 0 {
		logger.Info("expired tokens cleared", "count", cleared)
	}
}

func (w *MaintenanceWorker) sweepRateLimiter() {
	removed := w.rateLimiter.Sweep()
	if removed > 0 {
		logger.Info("rate limiter swept", "removed", removed)
	}
}

package repositories

import (
	"errors"
	"time"

	"metallvector_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

type UserRepository interface {
	FindByID(db *gorm.DB, id string) (*models.User, error)
	FindByEmail(db *gorm.DB, email string) (*models.User, error)
	Create(db *gorm.DB, user *models.User) error
	Update(db *gorm.DB, user *models.User) error
	Delete(db *gorm.DB, userID string) error

	// Квота: только атомарные условные операции, никаких read-modify-write
	ConsumeAnalysis(db *gorm.DB, userID string) (bool, error)
	AddAnalyses(db *gorm.DB, userID string, count int) error
	SetAnalyses(db *gorm.DB, userID string, count int) error
	SetPlan(db *gorm.DB, userID string, plan models.Plan) error

	// Инвалидация токенов
	BumpTokenVersion(db *gorm.DB, userID string) error

	// Токены верификации/сброса
	FindByVerificationToken(db *gorm.DB, token string) (*models.User, error)
	FindByResetToken(db *gorm.DB, token string) (*models.User, error)
	ClearExpiredTokens(db *gorm.DB) (int64, error)

	// Admin
	FindWithFilter(db *gorm.DB, filter UserFilter) ([]models.User, int64, error)
	CountAll(db *gorm.DB) (int64, error)
	CountRegisteredSince(db *gorm.DB, since time.Time) (int64, error)
}

type UserFilter struct {
	Plan     models.Plan
	Role     models.UserRole
	Search   string
	Page     int
	PageSize int
}

type UserRepositoryImpl struct{}

func NewUserRepository() UserRepository {
	return &UserRepositoryImpl{}
}

func (r *UserRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) Create(db *gorm.DB, user *models.User) error {
	var existing models.User
	if err := db.Where("email = ?", user.Email).First(&existing).Error; err == nil {
		return ErrUserAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return db.Create(user).Error
}

func (r *UserRepositoryImpl) Update(db *gorm.DB, user *models.User) error {
	return db.Save(user).Error
}

// Delete удаляет пользователя вместе с его анализами (каскад на уровне
// приложения - на sqlite в тестах FK-каскад не гарантирован).
func (r *UserRepositoryImpl) Delete(db *gorm.DB, userID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.Analysis{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Job{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.User{}, "id = ?", userID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

// ConsumeAnalysis атомарно резервирует один анализ.
// Условный UPDATE гарантирует, что баланс не уйдет ниже нуля даже при
// конкурентных запросах: из двух одновременных запросов при балансе 1
// ровно один получит true.
func (r *UserRepositoryImpl) ConsumeAnalysis(db *gorm.DB, userID string) (bool, error) {
	result := db.Model(&models.User{}).
		Where("id = ? AND analyses_remaining > 0", userID).
		UpdateColumn("analyses_remaining", gorm.Expr("analyses_remaining - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AddAnalyses атомарно увеличивает баланс (возврат резерва, зачисление
// оплаты, админская операция ADD_REPORTS).
func (r *UserRepositoryImpl) AddAnalyses(db *gorm.DB, userID string, count int) error {
	result := db.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("analyses_remaining", gorm.Expr("analyses_remaining + ?", count))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetAnalyses выставляет баланс в абсолютное значение (SET_REPORTS).
// Отрицательные значения зажимаются в ноль.
func (r *UserRepositoryImpl) SetAnalyses(db *gorm.DB, userID string, count int) error {
	if count < 0 {
		count = 0
	}
	result := db.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("analyses_remaining", count)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) SetPlan(db *gorm.DB, userID string, plan models.Plan) error {
	result := db.Model(&models.User{}).Where("id = ?", userID).Update("plan", plan)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// BumpTokenVersion инвалидирует все выданные токены пользователя
func (r *UserRepositoryImpl) BumpTokenVersion(db *gorm.DB, userID string) error {
	return db.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("token_version", gorm.Expr("token_version + 1")).Error
}

func (r *UserRepositoryImpl) FindByVerificationToken(db *gorm.DB, token string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "verification_token = ? AND verification_token <> ''", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByResetToken(db *gorm.DB, token string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "reset_token = ? AND reset_token <> ''", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ClearExpiredTokens чистит просроченные токены верификации и сброса
// пароля (вызывается фоновым воркером).
func (r *UserRepositoryImpl) ClearExpiredTokens(db *gorm.DB) (int64, error) {
	now := time.Now()
	var total int64

	result := db.Model(&models.User{}).
		Where("verification_token <> '' AND verification_token_exp < ?", now).
		Updates(map[string]interface{}{"verification_token": "", "verification_token_exp": nil})
	if result.Error != nil {
		return total, result.Error
	}
	total += result.RowsAffected

	result = db.Model(&models.User{}).
		Where("reset_token <> '' AND reset_token_exp < ?", now).
		Updates(map[string]interface{}{"reset_token": "", "reset_token_exp": nil})
	if result.Error != nil {
		return total, result.Error
	}
	total += result.RowsAffected

	return total, nil
}

func (r *UserRepositoryImpl) FindWithFilter(db *gorm.DB, filter UserFilter) ([]models.User, int64, error) {
	query := db.Model(&models.User{})

	if filter.Plan != "" {
		query = query.Where("plan = ?", filter.Plan)
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("email LIKE ? OR name LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var users []models.User
	if err := query.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepositoryImpl) CountAll(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&models.User{}).Count(&count).Error
	return count, err
}

func (r *UserRepositoryImpl) CountRegisteredSince(db *gorm.DB, since time.Time) (int64, error) {
	var count int64
	err := db.Model(&models.User{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

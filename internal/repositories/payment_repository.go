package repositories

import (
	"errors"
	"strings"

	"metallvector_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrAlreadyCredited - зачисление по этому платежу уже проведено
	ErrAlreadyCredited = errors.New("payment already credited")
)

type PaymentRepository interface {
	Create(db *gorm.DB, payment *models.Payment) error
	FindByProviderID(db *gorm.DB, providerPaymentID string) (*models.Payment, error)
	FindByIDForUser(db *gorm.DB, id, userID string) (*models.Payment, error)
	UpdateStatus(db *gorm.DB, providerPaymentID string, status models.PaymentStatus) error
	ListForUser(db *gorm.DB, userID string) ([]models.Payment, error)

	// CreditOnce проводит зачисление квоты не более одного раза на платеж
	CreditOnce(db *gorm.DB, payment *models.Payment) error

	TotalRevenue(db *gorm.DB) (float64, error)
	CountByStatus(db *gorm.DB, status models.PaymentStatus) (int64, error)
}

// isUniqueViolation распознает нарушение уникального индекса у обоих
// драйверов: gorm транслирует его в ErrDuplicatedKey, sqlite и postgres
// без транслятора отдают сырой текст ошибки.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}

type PaymentRepositoryImpl struct{}

func NewPaymentRepository() PaymentRepository {
	return &PaymentRepositoryImpl{}
}

func (r *PaymentRepositoryImpl) Create(db *gorm.DB, payment *models.Payment) error {
	return db.Create(payment).Error
}

func (r *PaymentRepositoryImpl) FindByProviderID(db *gorm.DB, providerPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := db.First(&payment, "provider_payment_id = ?", providerPaymentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepositoryImpl) FindByIDForUser(db *gorm.DB, id, userID string) (*models.Payment, error) {
	var payment models.Payment
	err := db.First(&payment, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepositoryImpl) UpdateStatus(db *gorm.DB, providerPaymentID string, status models.PaymentStatus) error {
	result := db.Model(&models.Payment{}).
		Where("provider_payment_id = ?", providerPaymentID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *PaymentRepositoryImpl) ListForUser(db *gorm.DB, userID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := db.Where("user_id = ?", userID).Order("created_at DESC").Find(&payments).Error
	return payments, err
}

// CreditOnce - сердце идемпотентности платежей.
// В одной транзакции: запись в append-only журнал зачислений (уникальный
// индекс по provider_payment_id), перевод платежа в succeeded и
// атомарное увеличение баланса. Повторная доставка того же события
// упирается в уникальный индекс и возвращает ErrAlreadyCredited,
// не тронув баланс.
func (r *PaymentRepositoryImpl) CreditOnce(db *gorm.DB, payment *models.Payment) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.PaymentCredit{}).
			Where("provider_payment_id = ?", payment.ProviderPaymentID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyCredited
		}

		credit := &models.PaymentCredit{
			ProviderPaymentID: payment.ProviderPaymentID,
			UserID:            payment.UserID,
			AnalysesCount:     payment.AnalysesCount,
		}
		if err := tx.Create(credit).Error; err != nil {
			// Гонка двух триггеров: проигравший упирается в уникальный
			// индекс - трактуем так же, как "уже зачислено". Любая
			// другая ошибка БД уходит наверх: вебхук нельзя
			// подтверждать, пока зачисление не проведено.
			if isUniqueViolation(err) {
				return ErrAlreadyCredited
			}
			return err
		}

		if err := tx.Model(&models.Payment{}).
			Where("provider_payment_id = ?", payment.ProviderPaymentID).
			Update("status", models.PaymentStatusSucceeded).Error; err != nil {
			return err
		}

		return tx.Model(&models.User{}).
			Where("id = ?", payment.UserID).
			UpdateColumn("analyses_remaining", gorm.Expr("analyses_remaining + ?", payment.AnalysesCount)).Error
	})
}

func (r *PaymentRepositoryImpl) TotalRevenue(db *gorm.DB) (float64, error) {
	var total float64
	err := db.Model(&models.Payment{}).
		Where("status = ?", models.PaymentStatusSucceeded).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *PaymentRepositoryImpl) CountByStatus(db *gorm.DB, status models.PaymentStatus) (int64, error) {
	var count int64
	err := db.Model(&models.Payment{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

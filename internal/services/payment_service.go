package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"metallvector_backend/internal/email"
	"metallvector_backend/internal/logger"
	"metallvector_backend/internal/models"
	"metallvector_backend/internal/payments"
	"metallvector_backend/internal/repositories"
	"metallvector_backend/internal/services/dto"
	"metallvector_backend/pkg/apperrors"
)

type PaymentService interface {
	CreatePayment(ctx context.Context, db *gorm.DB, userID string, req *dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error)
	HandleWebhook(ctx context.Context, db *gorm.DB, event *dto.WebhookEvent) error
	CheckStatus(ctx context.Context, db *gorm.DB, userID, paymentID string) (*dto.PaymentStatusResponse, error)
	ListForUser(db *gorm.DB, userID string) ([]dto.PaymentResponse, error)
	Plans() []dto.PlanResponse
}

type PaymentServiceImpl struct {
	paymentRepo repositories.PaymentRepository
	userRepo    repositories.UserRepository
	provider    payments.Provider
	mailer      email.Sender
	returnURL   string
}

func NewPaymentService(
	paymentRepo repositories.PaymentRepository,
	userRepo repositories.UserRepository,
	provider payments.Provider,
	mailer email.Sender,
	returnURL string,
) PaymentService {
	return &PaymentServiceImpl{
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		provider:    provider,
		mailer:      mailer,
		returnURL:   returnURL,
	}
}

// CreatePayment создает платеж у провайдера и локальную запись в
// статусе pending. Цена и количество отчетов берутся из серверной
// таблицы тарифов, клиент присылает только идентификатор плана.
func (s *PaymentServiceImpl) CreatePayment(ctx context.Context, db *gorm.DB, userID string, req *dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error) {
	plan := models.Plan(req.PlanID)
	info, ok := models.GetPlanInfo(plan)
	if !ok || plan == models.PlanTrial {
		return nil, apperrors.NewBadRequestError("Неизвестный тариф")
	}

	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	description := fmt.Sprintf("Тариф «%s» — %d отчетов", info.Title, info.AnalysesCount)
	created, err := s.provider.CreatePayment(ctx, info.PriceRUB, description, s.returnURL, map[string]string{
		"user_id": user.ID,
		"plan":    string(plan),
	})
	if err != nil {
		return nil, apperrors.ExternalServiceError("payment", err).
			WithDetails("Не удалось создать платеж. Попробуйте позже.")
	}

	payment := &models.Payment{
		UserID:            user.ID,
		Amount:            info.PriceRUB,
		ProviderPaymentID: created.ProviderPaymentID,
		Status:            models.PaymentStatusPending,
		Plan:              plan,
		AnalysesCount:     info.AnalysesCount,
		Metadata:          datatypes.JSON(created.Raw),
	}
	if err := s.paymentRepo.Create(db, payment); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	return &dto.CreatePaymentResponse{
		PaymentID:       payment.ID,
		ConfirmationURL: created.ConfirmationURL,
	}, nil
}

// HandleWebhook обрабатывает уведомление YooKassa. Подпись проверяет
// обработчик HTTP до разбора тела; здесь событие считается доверенным.
// Зачисление идемпотентно: повторная доставка не меняет баланс.
func (s *PaymentServiceImpl) HandleWebhook(ctx context.Context, db *gorm.DB, event *dto.WebhookEvent) error {
	if event.Object.ID == "" {
		return apperrors.NewBadRequestError("Пустое уведомление")
	}

	payment, err := s.paymentRepo.FindByProviderID(db, event.Object.ID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPaymentNotFound) {
			// Чужой или устаревший платеж: отвечаем 200, чтобы
			// провайдер не ретраил бесконечно
			logger.CtxWarn(ctx, "webhook for unknown payment", "provider_payment_id", event.Object.ID)
			return nil
		}
		return apperrors.DatabaseError(err)
	}

	status := models.PaymentStatus(event.Object.Status)
	switch status {
	case models.PaymentStatusSucceeded:
		return s.credit(ctx, db, payment)
	case models.PaymentStatusCanceled, models.PaymentStatusWaitingForCapture, models.PaymentStatusPending:
		if err := s.paymentRepo.UpdateStatus(db, payment.ProviderPaymentID, status); err != nil {
			return apperrors.DatabaseError(err)
		}
		return nil
	default:
		logger.CtxWarn(ctx, "webhook with unknown payment status",
			"provider_payment_id", event.Object.ID, "status", event.Object.Status)
		return nil
	}
}

// CheckStatus - ручная проверка платежа. Опрашивает провайдера и, если
// платеж успешен, зачисляет квоту тем же идемпотентным путем, что и
// вебхук: кто бы ни пришел первым, зачисление пройдет ровно один раз.
func (s *PaymentServiceImpl) CheckStatus(ctx context.Context, db *gorm.DB, userID, paymentID string) (*dto.PaymentStatusResponse, error) {
	payment, err := s.paymentRepo.FindByIDForUser(db, paymentID, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPaymentNotFound) {
			return nil, apperrors.NewNotFoundError("payment", "Платеж не найден")
		}
		return nil, apperrors.DatabaseError(err)
	}

	if payment.Status == models.PaymentStatusSucceeded {
		return &dto.PaymentStatusResponse{Status: string(payment.Status), Paid: true}, nil
	}

	state, err := s.provider.GetPayment(ctx, payment.ProviderPaymentID)
	if err != nil {
		return nil, apperrors.ExternalServiceError("payment", err)
	}

	status := models.PaymentStatus(state.Status)
	if status == models.PaymentStatusSucceeded || state.Paid {
		if err := s.credit(ctx, db, payment); err != nil {
			return nil, err
		}
		return &dto.PaymentStatusResponse{Status: string(models.PaymentStatusSucceeded), Paid: true}, nil
	}

	if status.Valid() && status != payment.Status {
		if err := s.paymentRepo.UpdateStatus(db, payment.ProviderPaymentID, status); err != nil {
			return nil, apperrors.DatabaseError(err)
		}
	}
	return &dto.PaymentStatusResponse{Status: state.Status, Paid: false}, nil
}

// credit проводит зачисление и смену тарифа. ErrAlreadyCredited не
// ошибка: событие уже обработано другим путем доставки.
func (s *PaymentServiceImpl) credit(ctx context.Context, db *gorm.DB, payment *models.Payment) error {
	err := s.paymentRepo.CreditOnce(db, payment)
	if err != nil {
		if apperrors.Is(err, repositories.ErrAlreadyCredited) {
			logger.CtxInfo(ctx, "payment already credited, skipping",
				"provider_payment_id", payment.ProviderPaymentID)
			return nil
		}
		return apperrors.DatabaseError(err)
	}

	if err := s.userRepo.SetPlan(db, payment.UserID, payment.Plan); err != nil {
		return apperrors.DatabaseError(err)
	}

	user, err := s.userRepo.FindByID(db, payment.UserID)
	if err == nil {
		info, _ := models.GetPlanInfo(payment.Plan)
		if mailErr := s.mailer.SendPaymentReceipt(user.Email, info.Title, payment.Amount, payment.AnalysesCount); mailErr != nil {
			logger.CtxWarn(ctx, "failed to send payment receipt", "user_id", user.ID, "error", mailErr)
		}
	}

	logger.CtxInfo(ctx, "payment credited",
		"provider_payment_id", payment.ProviderPaymentID,
		"user_id", payment.UserID,
		"plan", payment.Plan,
		"analyses_count", payment.AnalysesCount)
	return nil
}

func (s *PaymentServiceImpl) ListForUser(db *gorm.DB, userID string) ([]dto.PaymentResponse, error) {
	list, err := s.paymentRepo.ListForUser(db, userID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	resp := make([]dto.PaymentResponse, 0, len(list))
	for i := range list {
		p := &list[i]
		resp = append(resp, dto.PaymentResponse{
			ID:            p.ID,
			Amount:        p.Amount,
			Status:        string(p.Status),
			Plan:          string(p.Plan),
			AnalysesCount: p.AnalysesCount,
			CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		})
	}
	return resp, nil
}

func (s *PaymentServiceImpl) Plans() []dto.PlanResponse {
	plans := models.PurchasablePlans()
	resp := make([]dto.PlanResponse, 0, len(plans))
	for _, p := range plans {
		resp = append(resp, dto.PlanResponse{
			ID:            string(p.Plan),
			Title:         p.Title,
			PriceRUB:      p.PriceRUB,
			AnalysesCount: p.AnalysesCount,
		})
	}
	return resp
}

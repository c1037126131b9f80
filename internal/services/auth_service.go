package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"metallvector_backend/internal/auth"
	"metallvector_backend/internal/email"
	"metallvector_backend/internal/logger"
	"metallvector_backend/internal/models"
	"metallvector_backend/internal/repositories"
	"metallvector_backend/internal/services/dto"
	"metallvector_backend/pkg/apperrors"
)

const (
	verificationTokenTTL = 24 * time.Hour
	resetTokenTTL        = time.Hour
)

type AuthService interface {
	Register(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*dto.LoginResponse, error)
	Login(db *gorm.DB, req *dto.LoginRequest) (*dto.LoginResponse, error)
	VerifyEmail(db *gorm.DB, token string) error
	RequestPasswordReset(ctx context.Context, db *gorm.DB, emailAddr string) error
	ResetPassword(db *gorm.DB, req *dto.ResetPasswordRequest) error
	ChangePassword(db *gorm.DB, userID string, req *dto.ChangePasswordRequest) error
	Me(db *gorm.DB, userID string) (*dto.UserResponse, error)
}

type AuthServiceImpl struct {
	userRepo repositories.UserRepository
	mailer   email.Sender
}

func NewAuthService(userRepo repositories.UserRepository, mailer email.Sender) AuthService {
	return &AuthServiceImpl{userRepo: userRepo, mailer: mailer}
}

// Register создает пользователя на тарифе trial со стартовым балансом
// отчетов и отправляет письмо для подтверждения email. Провал отправки
// письма регистрацию не ломает.
func (s *AuthServiceImpl) Register(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*dto.LoginResponse, error) {
	emailAddr := normalizeEmail(req.Email)

	if _, err := s.userRepo.FindByEmail(db, emailAddr); err == nil {
		return nil, apperrors.New(apperrors.CodeAlreadyExists, "auth",
			"Пользователь с таким email уже зарегистрирован", 409)
	} else if !apperrors.Is(err, repositories.ErrUserNotFound) {
		return nil, apperrors.DatabaseError(err)
	}

	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	trial, _ := models.GetPlanInfo(models.PlanTrial)
	verificationExp := time.Now().Add(verificationTokenTTL)

	user := &models.User{
		Email:                emailAddr,
		PasswordHash:         hash,
		Name:                 strings.TrimSpace(req.Name),
		Role:                 models.RoleUser,
		Plan:                 models.PlanTrial,
		AnalysesRemaining:    trial.AnalysesCount,
		VerificationToken:    uuid.NewString(),
		VerificationTokenExp: &verificationExp,
	}
	if err := s.userRepo.Create(db, user); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	if err := s.mailer.SendVerification(user.Email, user.VerificationToken); err != nil {
		logger.CtxWarn(ctx, "failed to send verification email", "user_id", user.ID, "error", err)
	}

	token, err := auth.GenerateToken(user)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.LoginResponse{AccessToken: token, User: buildUserResponse(user)}, nil
}

// Login не различает "пользователь не найден" и "неверный пароль".
func (s *AuthServiceImpl) Login(db *gorm.DB, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	invalidCredentials := apperrors.New(apperrors.CodeInvalidCredentials, "auth",
		"Неверный email или пароль", 401)

	user, err := s.userRepo.FindByEmail(db, normalizeEmail(req.Email))
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, invalidCredentials
		}
		return nil, apperrors.DatabaseError(err)
	}
	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, invalidCredentials
	}

	token, err := auth.GenerateToken(user)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.LoginResponse{AccessToken: token, User: buildUserResponse(user)}, nil
}

func (s *AuthServiceImpl) VerifyEmail(db *gorm.DB, token string) error {
	user, err := s.userRepo.FindByVerificationToken(db, token)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.NewBadRequestError("Недействительная ссылка подтверждения")
		}
		return apperrors.DatabaseError(err)
	}
	if user.VerificationTokenExp == nil || time.Now().After(*user.VerificationTokenExp) {
		return apperrors.NewBadRequestError("Срок действия ссылки истек, запросите новую")
	}

	user.IsVerified = true
	user.VerificationToken = ""
	user.VerificationTokenExp = nil
	if err := s.userRepo.Update(db, user); err != nil {
		return apperrors.DatabaseError(err)
	}
	return nil
}

// RequestPasswordReset всегда отвечает успехом, чтобы по ответу нельзя
// было перебирать зарегистрированные адреса.
func (s *AuthServiceImpl) RequestPasswordReset(ctx context.Context, db *gorm.DB, emailAddr string) error {
	user, err := s.userRepo.FindByEmail(db, normalizeEmail(emailAddr))
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil
		}
		return apperrors.DatabaseError(err)
	}

	resetExp := time.Now().Add(resetTokenTTL)
	user.ResetToken = uuid.NewString()
	user.ResetTokenExp = &resetExp
	if err := s.userRepo.Update(db, user); err != nil {
		return apperrors.DatabaseError(err)
	}

	if err := s.mailer.SendPasswordReset(user.Email, user.ResetToken); err != nil {
		logger.CtxWarn(ctx, "failed to send password reset email", "user_id", user.ID, "error", err)
	}
	return nil
}

// ResetPassword меняет пароль по токену из письма и инвалидирует все
// ранее выданные JWT через инкремент версии токена.
func (s *AuthServiceImpl) ResetPassword(db *gorm.DB, req *dto.ResetPasswordRequest) error {
	user, err := s.userRepo.FindByResetToken(db, req.Token)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.NewBadRequestError("Недействительная ссылка восстановления")
		}
		return apperrors.DatabaseError(err)
	}
	if user.ResetTokenExp == nil || time.Now().After(*user.ResetTokenExp) {
		return apperrors.NewBadRequestError("Срок действия ссылки истек, запросите новую")
	}

	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		return apperrors.NewBadRequestError(err.Error())
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}

	user.PasswordHash = hash
	user.ResetToken = ""
	user.ResetTokenExp = nil
	if err := s.userRepo.Update(db, user); err != nil {
		return apperrors.DatabaseError(err)
	}
	if err := s.userRepo.BumpTokenVersion(db, user.ID); err != nil {
		return apperrors.DatabaseError(err)
	}
	return nil
}

func (s *AuthServiceImpl) ChangePassword(db *gorm.DB, userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	if !auth.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		return apperrors.New(apperrors.CodeInvalidCredentials, "auth",
			"Текущий пароль указан неверно", 401)
	}

	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		return apperrors.NewBadRequestError(err.Error())
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}

	user.PasswordHash = hash
	if err := s.userRepo.Update(db, user); err != nil {
		return apperrors.DatabaseError(err)
	}
	if err := s.userRepo.BumpTokenVersion(db, user.ID); err != nil {
		return apperrors.DatabaseError(err)
	}
	return nil
}

func (s *AuthServiceImpl) Me(db *gorm.DB, userID string) (*dto.UserResponse, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.NewNotFoundError("user", "Пользователь не найден")
		}
		return nil, apperrors.DatabaseError(err)
	}
	return buildUserResponse(user), nil
}

func normalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

func buildUserResponse(user *models.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:                user.ID,
		Email:             user.Email,
		Name:              user.Name,
		Role:              string(user.Role),
		Plan:              string(user.Plan),
		AnalysesRemaining: user.AnalysesRemaining,
		IsVerified:        user.IsVerified,
		CreatedAt:         user.CreatedAt.Format(time.RFC3339),
	}
}

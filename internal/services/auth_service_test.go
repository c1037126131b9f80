package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metallvector_backend/internal/auth"
	"metallvector_backend/internal/models"
	"metallvector_backend/internal/repositories"
	"metallvector_backend/internal/services/dto"
	"metallvector_backend/pkg/apperrors"
)

func newAuthService(mailer *fakeMailer) AuthService {
	return NewAuthService(repositories.NewUserRepository(), mailer)
}

func TestRegisterGrantsTrialQuota(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	mailer := &fakeMailer{}
	svc := newAuthService(mailer)

	resp, err := svc.Register(context.Background(), db, &dto.RegisterRequest{
		Name:     "Иван Петров",
		Email:    "  Ivan@Example.Com ",
		Password: "secret-password-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "ivan@example.com", resp.User.Email)
	assert.Equal(t, "trial", resp.User.Plan)
	assert.Equal(t, 3, resp.User.AnalysesRemaining)
	assert.False(t, resp.User.IsVerified)
	assert.Equal(t, []string{"ivan@example.com"}, mailer.verifications)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	svc := newAuthService(&fakeMailer{})

	req := &dto.RegisterRequest{Name: "Иван", Email: "dup@example.com", Password: "secret-password-1"}
	_, err := svc.Register(context.Background(), db, req)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), db, req)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, 409, appErr.HTTPCode)
}

func TestLoginUniformErrorForBadCredentials(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	svc := newAuthService(&fakeMailer{})

	_, err := svc.Register(context.Background(), db, &dto.RegisterRequest{
		Name: "Иван", Email: "login@example.com", Password: "secret-password-1",
	})
	require.NoError(t, err)

	_, errWrongPassword := svc.Login(db, &dto.LoginRequest{Email: "login@example.com", Password: "wrong"})
	_, errUnknownUser := svc.Login(db, &dto.LoginRequest{Email: "nobody@example.com", Password: "wrong"})

	require.Error(t, errWrongPassword)
	require.Error(t, errUnknownUser)

	var e1, e2 *apperrors.AppError
	require.True(t, apperrors.As(errWrongPassword, &e1))
	require.True(t, apperrors.As(errUnknownUser, &e2))
	// Ответ не раскрывает, существует ли адрес
	assert.Equal(t, e1.Message, e2.Message)
	assert.Equal(t, e1.HTTPCode, e2.HTTPCode)
}

func TestVerifyEmail(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	svc := newAuthService(&fakeMailer{})

	_, err := svc.Register(context.Background(), db, &dto.RegisterRequest{
		Name: "Иван", Email: "verify@example.com", Password: "secret-password-1",
	})
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.First(&user, "email = ?", "verify@example.com").Error)
	require.NotEmpty(t, user.VerificationToken)

	require.NoError(t, svc.VerifyEmail(db, user.VerificationToken))

	require.NoError(t, db.First(&user, "email = ?", "verify@example.com").Error)
	assert.True(t, user.IsVerified)
	assert.Empty(t, user.VerificationToken)

	// Повторное использование токена отклоняется
	require.Error(t, svc.VerifyEmail(db, "no-such-token"))
}

func TestVerifyEmailExpiredToken(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	svc := newAuthService(&fakeMailer{})

	_, err := svc.Register(context.Background(), db, &dto.RegisterRequest{
		Name: "Иван", Email: "expired@example.com", Password: "secret-password-1",
	})
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.First(&user, "email = ?", "expired@example.com").Error)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&user).Update("verification_token_exp", &past).Error)

	err = svc.VerifyEmail(db, user.VerificationToken)
	require.Error(t, err)
}

func TestPasswordResetFlowInvalidatesOldTokens(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	mailer := &fakeMailer{}
	svc := newAuthService(mailer)

	reg, err := svc.Register(context.Background(), db, &dto.RegisterRequest{
		Name: "Иван", Email: "reset@example.com", Password: "old-password-123",
	})
	require.NoError(t, err)
	oldToken := reg.AccessToken

	require.NoError(t, svc.RequestPasswordReset(context.Background(), db, "reset@example.com"))
	require.Equal(t, []string{"reset@example.com"}, mailer.resets)

	var user models.User
	require.NoError(t, db.First(&user, "email = ?", "reset@example.com").Error)
	require.NotEmpty(t, user.ResetToken)

	require.NoError(t, svc.ResetPassword(db, &dto.ResetPasswordRequest{
		Token:       user.ResetToken,
		NewPassword: "new-password-456",
	}))

	// Новый пароль работает, старый нет
	_, err = svc.Login(db, &dto.LoginRequest{Email: "reset@example.com", Password: "new-password-456"})
	require.NoError(t, err)
	_, err = svc.Login(db, &dto.LoginRequest{Email: "reset@example.com", Password: "old-password-123"})
	require.Error(t, err)

	// Версия токена выросла: выданный до сброса JWT отозван
	require.NoError(t, db.First(&user, "email = ?", "reset@example.com").Error)
	claims, err := auth.ParseToken(oldToken)
	require.NoError(t, err)
	assert.NotEqual(t, user.TokenVersion, claims.TokenVersion)
}

func TestRequestPasswordResetUnknownEmailSilent(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	mailer := &fakeMailer{}
	svc := newAuthService(mailer)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), db, "ghost@example.com"))
	assert.Empty(t, mailer.resets)
}

func TestChangePasswordBumpsTokenVersion(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	svc := newAuthService(&fakeMailer{})

	reg, err := svc.Register(context.Background(), db, &dto.RegisterRequest{
		Name: "Иван", Email: "change@example.com", Password: "old-password-123",
	})
	require.NoError(t, err)

	err = svc.ChangePassword(db, reg.User.ID, &dto.ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "new-password-456",
	})
	require.Error(t, err)

	err = svc.ChangePassword(db, reg.User.ID, &dto.ChangePasswordRequest{
		CurrentPassword: "old-password-123",
		NewPassword:     "new-password-456",
	})
	require.NoError(t, err)

	user, err := repositories.NewUserRepository().FindByID(db, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, user.TokenVersion)
}

package services

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"metallvector_backend/internal/config"
	"metallvector_backend/internal/gemini"
	"metallvector_backend/internal/models"
	"metallvector_backend/internal/payments"
	"metallvector_backend/internal/repositories"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Analysis{},
		&models.Payment{},
		&models.PaymentCredit{},
		&models.Job{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func setupTestConfig(t *testing.T) {
	t.Helper()
	config.AppConfig = &config.Config{}
	config.AppConfig.JWT.Secret = "test-secret-key-for-unit-tests"
	t.Cleanup(func() { config.AppConfig = nil })
}

func createTestUser(t *testing.T, db *gorm.DB, balance int) *models.User {
	t.Helper()
	user := &models.User{
		Email:             "user@example.com",
		PasswordHash:      "x",
		Name:              "Тестовый пользователь",
		Role:              models.RoleUser,
		Plan:              models.PlanTrial,
		AnalysesRemaining: balance,
		IsVerified:        true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func userBalance(t *testing.T, db *gorm.DB, userID string) int {
	t.Helper()
	user, err := repositories.NewUserRepository().FindByID(db, userID)
	if err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	return user.AnalysesRemaining
}

// fakeGateway подменяет Gemini в тестах сервисов
type fakeGateway struct {
	result *gemini.Result
	err    error
	calls  int
}

func (f *fakeGateway) Generate(_ context.Context, _ string, _ bool) (*gemini.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeFetcher подменяет загрузку сайта
type fakeFetcher struct {
	text  string
	err   error
	calls int
}

func (f *fakeFetcher) FetchSiteText(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// fakeProvider подменяет YooKassa
type fakeProvider struct {
	created     *payments.CreatedPayment
	createErr   error
	state       *payments.PaymentState
	getErr      error
	lastAmount  float64
	createCalls int
	getCalls    int
}

func (f *fakeProvider) CreatePayment(_ context.Context, amountRUB float64, _, _ string, _ map[string]string) (*payments.CreatedPayment, error) {
	f.createCalls++
	f.lastAmount = amountRUB
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.created, nil
}

func (f *fakeProvider) GetPayment(_ context.Context, _ string) (*payments.PaymentState, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.state, nil
}

// fakeMailer записывает отправленные письма
type fakeMailer struct {
	verifications []string
	resets        []string
	receipts      []string
}

func (f *fakeMailer) SendVerification(to, _ string) error {
	f.verifications = append(f.verifications, to)
	return nil
}

func (f *fakeMailer) SendPasswordReset(to, _ string) error {
	f.resets = append(f.resets, to)
	return nil
}

func (f *fakeMailer) SendPaymentReceipt(to string, _ string, _ float64, _ int) error {
	f.receipts = append(f.receipts, to)
	return nil
}

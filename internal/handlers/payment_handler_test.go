package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"metallvector_backend/internal/config"
	"metallvector_backend/internal/services/dto"
	"metallvector_backend/internal/validator"
	"metallvector_backend/pkg/contextkeys"
)

const webhookTestSecret = "test-webhook-secret"

// fakePaymentService записывает принятые вебхуки; остальные методы
// в этих тестах не вызываются.
type fakePaymentService struct {
	events []*dto.WebhookEvent
}

func (f *fakePaymentService) CreatePayment(_ context.Context, _ *gorm.DB, _ string, _ *dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error) {
	panic("not expected in webhook tests")
}

func (f *fakePaymentService) HandleWebhook(_ context.Context, _ *gorm.DB, event *dto.WebhookEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakePaymentService) CheckStatus(_ context.Context, _ *gorm.DB, _, _ string) (*dto.PaymentStatusResponse, error) {
	panic("not expected in webhook tests")
}

func (f *fakePaymentService) ListForUser(_ *gorm.DB, _ string) ([]dto.PaymentResponse, error) {
	panic("not expected in webhook tests")
}

func (f *fakePaymentService) Plans() []dto.PlanResponse {
	return nil
}

func setupWebhookRouter(t *testing.T) (*gin.Engine, *fakePaymentService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	prev := config.AppConfig
	cfg := &config.Config{}
	cfg.YooKassa.VerifyWebhook = true
	cfg.YooKassa.WebhookSecret = webhookTestSecret
	config.AppConfig = cfg
	t.Cleanup(func() { config.AppConfig = prev })

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	svc := &fakePaymentService{}
	handler := NewPaymentHandler(NewBaseHandler(validator.New()), svc)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(string(contextkeys.DBContextKey), db)
		c.Next()
	})
	api := router.Group("/api/v1")
	handler.RegisterWebhookRoutes(api)
	return router, svc
}

func signWebhookBody(body []byte) string {
	h := hmac.New(sha256.New, []byte(webhookTestSecret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func TestWebhookAcceptsSignedNotification(t *testing.T) {
	router, svc := setupWebhookRouter(t)

	body := []byte(`{"type":"notification","event":"payment.succeeded","object":{"id":"pay-123","status":"succeeded"}}`)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Authorization", "HMAC "+signWebhookBody(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	require.Len(t, svc.events, 1)
	assert.Equal(t, "payment.succeeded", svc.events[0].Event)
	assert.Equal(t, "pay-123", svc.events[0].Object.ID)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	router, svc := setupWebhookRouter(t)

	body := []byte(`{"event":"payment.succeeded","object":{"id":"pay-123","status":"succeeded"}}`)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Authorization", "HMAC "+hex.EncodeToString(bytes.Repeat([]byte{0xab}, 32)))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, svc.events)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	router, svc := setupWebhookRouter(t)

	body := []byte(`{"event":"payment.succeeded","object":{"id":"pay-123","status":"succeeded"}}`)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, svc.events)
}

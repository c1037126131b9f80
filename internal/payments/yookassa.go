// Package payments - тонкая обертка над YooKassa API v3.
package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"metallvector_backend/internal/logger"

	"github.com/google/uuid"
)

const apiBaseURL = "https://api.yookassa.ru/v3"

// CreatedPayment - результат создания платежа у провайдера
type CreatedPayment struct {
	ProviderPaymentID string
	ConfirmationURL   string
	Status            string
	Raw               json.RawMessage
}

// PaymentState - живой статус платежа у провайдера
type PaymentState struct {
	ProviderPaymentID string
	Status            string
	Paid              bool
	Raw               json.RawMessage
}

// Provider абстрагирует платежный API для тестов сервиса
type Provider interface {
	CreatePayment(ctx context.Context, amountRUB float64, description, returnURL string, metadata map[string]string) (*CreatedPayment, error)
	GetPayment(ctx context.Context, providerPaymentID string) (*PaymentState, error)
}

type YooKassaClient struct {
	shopID    string
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewYooKassaClient(shopID, secretKey string) *YooKassaClient {
	return &YooKassaClient{
		shopID:    shopID,
		secretKey: secretKey,
		baseURL:   apiBaseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewYooKassaClientWithBaseURL - для тестов с httptest-сервером
func NewYooKassaClientWithBaseURL(shopID, secretKey, baseURL string) *YooKassaClient {
	c := NewYooKassaClient(shopID, secretKey)
	c.baseURL = baseURL
	return c
}

type paymentResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Paid         bool   `json:"paid"`
	Confirmation struct {
		ConfirmationURL string `json:"confirmation_url"`
	} `json:"confirmation"`
}

// CreatePayment создает платеж с редиректом на страницу подтверждения.
// Idempotence-Key обязателен по контракту YooKassa: повтор запроса с тем
// же ключом не создаст второй платеж.
func (y *YooKassaClient) CreatePayment(ctx context.Context, amountRUB float64, description, returnURL string, metadata map[string]string) (*CreatedPayment, error) {
	body := map[string]interface{}{
		"amount":       map[string]interface{}{"value": fmt.Sprintf("%.2f", amountRUB), "currency": "RUB"},
		"confirmation": map[string]string{"type": "redirect", "return_url": returnURL},
		"capture":      true,
		"description":  description,
	}
	if len(metadata) > 0 {
		body["metadata"] = metadata
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, y.baseURL+"/payments", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotence-Key", uuid.NewString())
	req.SetBasicAuth(y.shopID, y.secretKey)

	start := time.Now()
	resp, err := y.client.Do(req)
	logger.ExternalCallLog("yookassa", "create_payment", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("yookassa: create payment returned status %d", resp.StatusCode)
	}

	var pr paymentResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, err
	}

	return &CreatedPayment{
		ProviderPaymentID: pr.ID,
		ConfirmationURL:   pr.Confirmation.ConfirmationURL,
		Status:            pr.Status,
		Raw:               raw,
	}, nil
}

// GetPayment запрашивает живой статус платежа
func (y *YooKassaClient) GetPayment(ctx context.Context, providerPaymentID string) (*PaymentState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+"/payments/"+providerPaymentID, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(y.shopID, y.secretKey)

	start := time.Now()
	resp, err := y.client.Do(req)
	logger.ExternalCallLog("yookassa", "get_payment", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yookassa: get payment returned status %d", resp.StatusCode)
	}

	var pr paymentResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, err
	}

	return &PaymentState{
		ProviderPaymentID: pr.ID,
		Status:            pr.Status,
		Paid:              pr.Paid,
		Raw:               raw,
	}, nil
}

// VerifyWebhookSignature проверяет HMAC-SHA256 подпись уведомления.
// YooKassa передает подпись в Authorization ("HMAC <sig>" или
// "HMAC-SHA256 <sig>") либо в Content-Yoomoney-Signature.
func VerifyWebhookSignature(secret string, body []byte, authHeader, yoomoneyHeader string) bool {
	var signatures []string
	if authHeader != "" {
		if strings.HasPrefix(authHeader, "HMAC ") || strings.HasPrefix(authHeader, "HMAC-SHA256 ") {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 {
				signatures = append(signatures, parts[1])
			}
		}
	}
	if yoomoneyHeader != "" {
		signatures = append(signatures, yoomoneyHeader)
	}
	if len(signatures) == 0 {
		return false
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	calc := hex.EncodeToString(h.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(calc)) {
			return true
		}
	}
	return false
}

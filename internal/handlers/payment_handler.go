package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"metallvector_backend/internal/config"
	"metallvector_backend/internal/logger"
	"metallvector_backend/internal/payments"
	"metallvector_backend/internal/services"
	"metallvector_backend/internal/services/dto"
)

// Вебхуки YooKassa невелики; лимит отсекает мусорные payload
const maxWebhookBodySize = 1 << 20

type PaymentHandler struct {
	*BaseHandler
	paymentService services.PaymentService
}

func NewPaymentHandler(base *BaseHandler, paymentService services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler:    base,
		paymentService: paymentService,
	}
}

// RegisterRoutes регистрирует платежные маршруты под JWT
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	pay := rg.Group("/payments")
	{
		pay.GET("/plans", h.Plans)
		pay.POST("", h.CreatePayment)
		pay.GET("", h.List)
		pay.GET("/:id/status", h.CheckStatus)
	}
}

// RegisterWebhookRoutes регистрирует публичный вебхук провайдера.
// Аутентификация - подпись HMAC, а не JWT.
func (h *PaymentHandler) RegisterWebhookRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/webhook", h.Webhook)
}

func (h *PaymentHandler) Plans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": h.paymentService.Plans()})
}

func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.CreatePaymentRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	response, err := h.paymentService.CreatePayment(c.Request.Context(), db, userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// Webhook принимает уведомление YooKassa. Тело читается целиком до
// разбора: подпись считается по сырым байтам.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodySize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось прочитать тело запроса"})
		return
	}

	cfg := config.GetConfig()
	if cfg.YooKassa.VerifyWebhook {
		ok := payments.VerifyWebhookSignature(
			cfg.YooKassa.WebhookSecret,
			body,
			c.GetHeader("Authorization"),
			c.GetHeader("Content-Yoomoney-Signature"),
		)
		if !ok {
			logger.CtxWarn(ctx, "webhook signature verification failed", "ip", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Недействительная подпись"})
			return
		}
	}

	var event dto.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректное тело уведомления"})
		return
	}

	db := h.GetDB(c)

	if err := h.paymentService.HandleWebhook(ctx, db, &event); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *PaymentHandler) CheckStatus(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	response, err := h.paymentService.CheckStatus(c.Request.Context(), db, userID, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *PaymentHandler) List(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	response, err := h.paymentService.ListForUser(db, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": response})
}

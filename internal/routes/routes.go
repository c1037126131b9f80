package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"metallvector_backend/internal/handlers"
	"metallvector_backend/internal/middleware"
	"metallvector_backend/internal/models"
	"metallvector_backend/internal/repositories"
)

// RegisterRoutes регистрирует все HTTP маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	userRepo repositories.UserRepository,
	rateLimiter *middleware.RateLimiter,
) {
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := ginRouter.Group("/api/v1")

	// Вебхук провайдера без лимитера: YooKassa шлет с общих адресов,
	// и чужой трафик с того же IP не должен ронять доставку событий.
	// Его защита - проверка подписи в хендлере.
	appHandlers.PaymentHandler.RegisterWebhookRoutes(api)

	// Публичные маршруты аутентификации: лимит по IP
	public := api.Group("")
	public.Use(rateLimiter.Middleware())
	{
		appHandlers.AuthHandler.RegisterRoutes(public)
	}

	// Маршруты под JWT. Лимитер стоит после AuthMiddleware,
	// чтобы ключом окна был ID пользователя, а не IP.
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(userRepo))
	protected.Use(rateLimiter.Middleware())
	{
		appHandlers.AuthHandler.RegisterProtectedRoutes(protected)
		appHandlers.AnalysisHandler.RegisterRoutes(protected)
		appHandlers.PaymentHandler.RegisterRoutes(protected)
		appHandlers.JobHandler.RegisterRoutes(protected)
	}

	// Админка: JWT + роль admin
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(userRepo))
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		appHandlers.AdminHandler.RegisterRoutes(admin)
	}
}

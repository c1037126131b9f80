package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"metallvector_backend/internal/auth"
	"metallvector_backend/internal/logger"
	"metallvector_backend/internal/models"
	"metallvector_backend/internal/repositories"
	"metallvector_backend/pkg/contextkeys"
)

// Ключи gin-контекста, которые выставляет AuthMiddleware
const (
	CtxUserIDKey         = "userID"
	CtxRoleKey           = "role"
	CtxImpersonatedByKey = "impersonatedBy"
)

// AuthMiddleware проверяет JWT и сверяет версию токена с базой: после
// смены пароля все ранее выданные токены перестают приниматься, даже
// если их срок еще не истек.
func AuthMiddleware(userRepo repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Требуется авторизация"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.ParseToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Недействительный токен"})
			return
		}

		db, ok := c.MustGet(string(contextkeys.DBContextKey)).(*gorm.DB)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Внутренняя ошибка сервера"})
			return
		}

		user, err := userRepo.FindByID(db, claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Недействительный токен"})
			return
		}
		if claims.TokenVersion != user.TokenVersion {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Токен отозван, войдите заново"})
			return
		}

		ctx := logger.WithUserID(c.Request.Context(), user.ID)
		c.Request = c.Request.WithContext(ctx)

		c.Set(CtxUserIDKey, user.ID)
		c.Set(CtxRoleKey, user.Role)
		if claims.IsImpersonation() {
			c.Set(CtxImpersonatedByKey, claims.ImpersonatedBy)
			logger.CtxInfo(ctx, "impersonated request",
				"admin_id", claims.ImpersonatedBy,
				"admin_email", claims.ImpersonatedByEmail,
				"target_id", user.ID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path)
		}
		c.Next()
	}
}

// RequireRoles ограничивает маршрут перечисленными ролями
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]bool)
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		roleVal, exists := c.Get(CtxRoleKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Доступ запрещен"})
			return
		}

		role, ok := roleVal.(models.UserRole)
		if !ok {
			roleStr, isString := roleVal.(string)
			if !isString {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Доступ запрещен"})
				return
			}
			role = models.UserRole(roleStr)
		}

		if !roleSet[role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Недостаточно прав"})
			return
		}
		c.Next()
	}
}

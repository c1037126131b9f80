package auth

import (
	"errors"
	"time"

	"metallvector_backend/internal/config"
	"metallvector_backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Обычный токен живет 30 дней
	tokenTTL = 30 * 24 * time.Hour
	// Токен имперсонации короткоживущий
	impersonationTTL = time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

// Claims - полезная нагрузка JWT.
// TokenVersion сверяется с полем пользователя на каждом запросе:
// смена пароля или действие админа инвалидирует все выданные токены.
type Claims struct {
	UserID       string          `json:"user_id"`
	Role         models.UserRole `json:"role"`
	TokenVersion int             `json:"token_version"`

	// Поля аудита имперсонации. Пустые для обычных токенов.
	ImpersonatedBy      string `json:"impersonated_by,omitempty"`
	ImpersonatedByEmail string `json:"impersonated_by_email,omitempty"`

	jwt.RegisteredClaims
}

// IsImpersonation сообщает, выдан ли токен через админскую имперсонацию
func (c *Claims) IsImpersonation() bool {
	return c.ImpersonatedBy != ""
}

// GenerateToken выдает обычный токен доступа для пользователя
func GenerateToken(user *models.User) (string, error) {
	return signClaims(&Claims{
		UserID:       user.ID,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   user.ID,
		},
	})
}

// GenerateImpersonationToken выдает короткоживущий токен от имени target,
// сохраняя в claims кто именно имперсонирует (для аудита в логах).
func GenerateImpersonationToken(target *models.User, admin *models.User) (string, error) {
	return signClaims(&Claims{
		UserID:              target.ID,
		Role:                target.Role,
		TokenVersion:        target.TokenVersion,
		ImpersonatedBy:      admin.ID,
		ImpersonatedByEmail: admin.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(impersonationTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   target.ID,
		},
	})
}

func signClaims(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.GetConfig().JWT.Secret))
}

// ParseToken проверяет подпись и срок действия токена.
// Любая ошибка (битый токен, чужая подпись, истек срок) возвращается
// одинаково как ErrInvalidToken - вызывающий код отвечает 401.
func ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(config.GetConfig().JWT.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

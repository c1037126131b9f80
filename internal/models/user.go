package models

import "time"

type User struct {
	BaseModel
	Email        string   `gorm:"uniqueIndex;not null"`
	PasswordHash string   `gorm:"not null"`
	Name         string   `gorm:"not null"`
	Role         UserRole `gorm:"type:varchar(20);not null;default:'user'"`
	Plan         Plan     `gorm:"type:varchar(20);not null;default:'trial'"`

	// Баланс отчетов. Изменяется ТОЛЬКО атомарными операциями в
	// UserRepository (ConsumeAnalysis / AddAnalyses), никогда через Save.
	AnalysesRemaining int `gorm:"not null;default:0"`

	IsVerified           bool `gorm:"default:false"`
	VerificationToken    string
	VerificationTokenExp *time.Time
	ResetToken           string
	ResetTokenExp        *time.Time

	// Версия токена: инкремент инвалидирует все выданные JWT
	TokenVersion int `gorm:"not null;default:0"`

	// Relations
	Analyses []Analysis `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Payments []Payment  `gorm:"foreignKey:UserID"`
}

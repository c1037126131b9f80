package models

import "gorm.io/datatypes"

type Payment struct {
	BaseModel
	UserID string  `gorm:"not null;index"`
	Amount float64 `gorm:"not null"`

	// ID платежа на стороне YooKassa
	ProviderPaymentID string        `gorm:"uniqueIndex;not null"`
	Status            PaymentStatus `gorm:"type:varchar(30);not null;default:'pending'"`

	Plan          Plan `gorm:"type:varchar(20);not null"`
	AnalysesCount int  `gorm:"not null"`

	// Сырой ответ провайдера (для разбора инцидентов)
	Metadata datatypes.JSON `gorm:"type:jsonb"`
}

// PaymentCredit - append-only журнал зачислений квоты.
// Уникальный индекс по ProviderPaymentID гарантирует "не более одного
// зачисления на платеж" независимо от того, кто первым увидел смену
// статуса - вебхук или ручная проверка статуса.
type PaymentCredit struct {
	BaseModel
	ProviderPaymentID string `gorm:"uniqueIndex;not null"`
	UserID            string `gorm:"not null;index"`
	AnalysesCount     int    `gorm:"not null"`
}

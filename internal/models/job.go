package models

// Job - фоновая задача анализа (альтернативный асинхронный путь).
// Создается pending, забирается воркером условным UPDATE
// (pending -> processing), терминальные статусы completed/failed.
type Job struct {
	BaseModel
	UserID string    `gorm:"not null;index"`
	Status JobStatus `gorm:"type:varchar(20);not null;default:'pending';index"`

	URL string
	INN string `gorm:"type:varchar(12)"`

	AnalysisID *string
	Error      string `gorm:"type:text"`
}

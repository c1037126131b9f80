package models

type Analysis struct {
	BaseModel
	UserID      string  `gorm:"not null;index"`
	CompanyName string  `gorm:"not null"`
	CompanyINN  *string `gorm:"type:varchar(12);index"`

	// Полный текст отчета (markdown после пост-обработки)
	ReportText string `gorm:"type:text;not null"`

	// Кэш сгенерированного целевого предложения (лениво, по запросу)
	TargetProposal *string `gorm:"type:text"`

	// Корзина: флаг, записи физически не удаляются
	IsDeleted bool `gorm:"not null;default:false;index"`

	// Компания признана нецелевой - квота за такой анализ не списывается
	IsNonTarget bool `gorm:"not null;default:false"`
}

package dto

// AnalyzeRequest - вход пайплайна анализа. Хотя бы одно из полей должно
// быть непустым; это проверяет сервис, а не теги валидации.
type AnalyzeRequest struct {
	URL string `json:"url" validate:"omitempty,max=2048"`
	INN string `json:"inn" validate:"omitempty,inn"`
}

type AnalyzeResponse struct {
	ID                string `json:"id"`
	Message           string `json:"message"`
	AnalysesRemaining int    `json:"analysesRemaining"`
	IsNonTarget       bool   `json:"isNonTarget"`
}

type AnalysisResponse struct {
	ID             string  `json:"id"`
	CompanyName    string  `json:"companyName"`
	CompanyINN     *string `json:"companyInn"`
	ReportText     string  `json:"reportText"`
	TargetProposal *string `json:"targetProposal,omitempty"`
	IsNonTarget    bool    `json:"isNonTarget"`
	IsDeleted      bool    `json:"isDeleted"`
	CreatedAt      string  `json:"createdAt"`
}

type AnalysisListResponse struct {
	Analyses []AnalysisResponse `json:"analyses"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
}

type TargetProposalResponse struct {
	ID             string `json:"id"`
	TargetProposal string `json:"targetProposal"`
	Cached         bool   `json:"cached"`
}

package handlers

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	AuthHandler     *AuthHandler
	AnalysisHandler *AnalysisHandler
	PaymentHandler  *PaymentHandler
	AdminHandler    *AdminHandler
	JobHandler      *JobHandler
}

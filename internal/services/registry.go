package services

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	AuthService     AuthService
	AnalysisService AnalysisService
	PaymentService  PaymentService
	AdminService    AdminService
	JobService      JobService
}

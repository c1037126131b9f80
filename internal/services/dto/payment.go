package dto

type CreatePaymentRequest struct {
	PlanID string `json:"planId" binding:"required" validate:"required,plan"`
}

type CreatePaymentResponse struct {
	PaymentID       string `json:"paymentId"`
	ConfirmationURL string `json:"confirmationUrl"`
}

type PaymentStatusResponse struct {
	Status string `json:"status"`
	Paid   bool   `json:"paid"`
}

// WebhookEvent - входящее уведомление YooKassa
type WebhookEvent struct {
	Type   string `json:"type"`
	Event  string `json:"event"`
	Object struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"object"`
}

type PaymentResponse struct {
	ID            string  `json:"id"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	Plan          string  `json:"plan"`
	AnalysesCount int     `json:"analysesCount"`
	CreatedAt     string  `json:"createdAt"`
}

type PlanResponse struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	PriceRUB      float64 `json:"priceRub"`
	AnalysesCount int     `json:"analysesCount"`
}

package dto

type CreateJobRequest struct {
	URL string `json:"url" validate:"omitempty,max=2048"`
	INN string `json:"inn" validate:"omitempty,inn"`
}

type JobResponse struct {
	ID         string  `json:"id"`
	Status     string  `json:"status"`
	AnalysisID *string `json:"analysisId,omitempty"`
	Error      string  `json:"error,omitempty"`
	CreatedAt  string  `json:"createdAt"`
}

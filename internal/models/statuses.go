package models

// UserRole - закрытое перечисление ролей. Проверяется один раз на
// границе авторизации (middleware), а не строками по хендлерам.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

func (r UserRole) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Plan - тарифный план пользователя
type Plan string

const (
	PlanTrial   Plan = "trial"
	PlanStart   Plan = "start"
	PlanOptimal Plan = "optimal"
	PlanProfi   Plan = "profi"
)

func (p Plan) Valid() bool {
	switch p {
	case PlanTrial, PlanStart, PlanOptimal, PlanProfi:
		return true
	}
	return false
}

// PaymentStatus отражает машину состояний YooKassa
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusWaitingForCapture PaymentStatus = "waiting_for_capture"
	PaymentStatusSucceeded         PaymentStatus = "succeeded"
	PaymentStatusCanceled          PaymentStatus = "canceled"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusWaitingForCapture, PaymentStatusSucceeded, PaymentStatusCanceled:
		return true
	}
	return false
}

// JobStatus - статус фоновой задачи анализа
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

package dto

// AdminUserActionRequest - единая форма мутаций пользователя админом
type AdminUserActionRequest struct {
	Action string `json:"action" validate:"required,oneof=SET_PLAN SET_REPORTS ADD_REPORTS SUBTRACT_REPORTS"`
	// Для SET_PLAN
	Plan string `json:"plan" validate:"omitempty,oneof=trial start optimal profi"`
	// Для *_REPORTS
	Count int `json:"count" validate:"omitempty,min=0"`
}

type AdminUserListRequest struct {
	Plan     string `form:"plan" validate:"omitempty,oneof=trial start optimal profi"`
	Role     string `form:"role" validate:"omitempty,oneof=user admin"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

type AdminUserListResponse struct {
	Users    []UserResponse `json:"users"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

type ImpersonateResponse struct {
	AccessToken string        `json:"access_token"`
	User        *UserResponse `json:"user"`
}

type DashboardStatsResponse struct {
	TotalUsers         int64   `json:"totalUsers"`
	NewUsersToday      int64   `json:"newUsersToday"`
	NewUsersThisWeek   int64   `json:"newUsersThisWeek"`
	TotalAnalyses      int64   `json:"totalAnalyses"`
	NonTargetAnalyses  int64   `json:"nonTargetAnalyses"`
	SucceededPayments  int64   `json:"succeededPayments"`
	PendingPayments    int64   `json:"pendingPayments"`
	TotalRevenueRUB    float64 `json:"totalRevenueRub"`
}

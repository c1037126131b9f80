package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"metallvector_backend/internal/auth"
	"metallvector_backend/internal/models"
	"metallvector_backend/internal/repositories"
	"metallvector_backend/internal/services/dto"
	"metallvector_backend/pkg/apperrors"
)

// Коды действий админа над пользователем
const (
	ActionSetPlan         = "SET_PLAN"
	ActionSetReports      = "SET_REPORTS"
	ActionAddReports      = "ADD_REPORTS"
	ActionSubtractReports = "SUBTRACT_REPORTS"
)

type AdminService interface {
	ListUsers(db *gorm.DB, req *dto.AdminUserListRequest) (*dto.AdminUserListResponse, error)
	ApplyUserAction(db *gorm.DB, targetUserID string, req *dto.AdminUserActionRequest) (*dto.UserResponse, error)
	DeleteUser(db *gorm.DB, targetUserID string) error
	Impersonate(db *gorm.DB, adminUserID, targetUserID string) (*dto.ImpersonateResponse, error)
	DashboardStats(db *gorm.DB) (*dto.DashboardStatsResponse, error)
	ExportUsersXLSX(db *gorm.DB) ([]byte, error)
}

type AdminServiceImpl struct {
	userRepo     repositories.UserRepository
	analysisRepo repositories.AnalysisRepository
	paymentRepo  repositories.PaymentRepository
}

func NewAdminService(
	userRepo repositories.UserRepository,
	analysisRepo repositories.AnalysisRepository,
	paymentRepo repositories.PaymentRepository,
) AdminService {
	return &AdminServiceImpl{
		userRepo:     userRepo,
		analysisRepo: analysisRepo,
		paymentRepo:  paymentRepo,
	}
}

func (s *AdminServiceImpl) ListUsers(db *gorm.DB, req *dto.AdminUserListRequest) (*dto.AdminUserListResponse, error) {
	filter := repositories.UserFilter{
		Plan:     models.Plan(req.Plan),
		Role:     models.UserRole(req.Role),
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	users, total, err := s.userRepo.FindWithFilter(db, filter)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	resp := &dto.AdminUserListResponse{
		Users:    make([]dto.UserResponse, 0, len(users)),
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	for i := range users {
		resp.Users = append(resp.Users, *buildUserResponse(&users[i]))
	}
	return resp, nil
}

// ApplyUserAction выполняет одну из мутаций SET_PLAN / SET_REPORTS /
// ADD_REPORTS / SUBTRACT_REPORTS. Смена плана НЕ трогает баланс:
// начисление отчетов идет только через платеж или явное *_REPORTS.
func (s *AdminServiceImpl) ApplyUserAction(db *gorm.DB, targetUserID string, req *dto.AdminUserActionRequest) (*dto.UserResponse, error) {
	user, err := s.userRepo.FindByID(db, targetUserID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.NewNotFoundError("admin", "Пользователь не найден")
		}
		return nil, apperrors.DatabaseError(err)
	}

	switch req.Action {
	case ActionSetPlan:
		plan := models.Plan(req.Plan)
		if !plan.Valid() {
			return nil, apperrors.NewBadRequestError("Неизвестный тариф")
		}
		err = s.userRepo.SetPlan(db, user.ID, plan)
	case ActionSetReports:
		err = s.userRepo.SetAnalyses(db, user.ID, req.Count)
	case ActionAddReports:
		err = s.userRepo.AddAnalyses(db, user.ID, req.Count)
	case ActionSubtractReports:
		// Баланс не опускается ниже нуля
		newCount := user.AnalysesRemaining - req.Count
		if newCount < 0 {
			newCount = 0
		}
		err = s.userRepo.SetAnalyses(db, user.ID, newCount)
	default:
		return nil, apperrors.NewBadRequestError("Неизвестное действие")
	}
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	user, err = s.userRepo.FindByID(db, targetUserID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return buildUserResponse(user), nil
}

func (s *AdminServiceImpl) DeleteUser(db *gorm.DB, targetUserID string) error {
	user, err := s.userRepo.FindByID(db, targetUserID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.NewNotFoundError("admin", "Пользователь не найден")
		}
		return apperrors.DatabaseError(err)
	}
	if user.Role == models.RoleAdmin {
		return apperrors.NewForbiddenError("Нельзя удалить администратора")
	}
	if err := s.userRepo.Delete(db, user.ID); err != nil {
		return apperrors.DatabaseError(err)
	}
	return nil
}

// Impersonate выдает короткоживущий токен от имени пользователя.
// В токене фиксируется, какой админ его получил; вход под другим
// админом запрещен.
func (s *AdminServiceImpl) Impersonate(db *gorm.DB, adminUserID, targetUserID string) (*dto.ImpersonateResponse, error) {
	admin, err := s.userRepo.FindByID(db, adminUserID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	target, err := s.userRepo.FindByID(db, targetUserID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.NewNotFoundError("admin", "Пользователь не найден")
		}
		return nil, apperrors.DatabaseError(err)
	}
	if target.Role == models.RoleAdmin {
		return nil, apperrors.NewForbiddenError("Вход под другим администратором запрещен")
	}

	token, err := auth.GenerateImpersonationToken(target, admin)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &dto.ImpersonateResponse{AccessToken: token, User: buildUserResponse(target)}, nil
}

func (s *AdminServiceImpl) DashboardStats(db *gorm.DB) (*dto.DashboardStatsResponse, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -7)

	stats := &dto.DashboardStatsResponse{}
	var err error

	if stats.TotalUsers, err = s.userRepo.CountAll(db); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if stats.NewUsersToday, err = s.userRepo.CountRegisteredSince(db, dayStart); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if stats.NewUsersThisWeek, err = s.userRepo.CountRegisteredSince(db, weekAgo); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if stats.TotalAnalyses, err = s.analysisRepo.CountAll(db); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if stats.NonTargetAnalyses, err = s.analysisRepo.CountNonTarget(db); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if stats.SucceededPayments, err = s.paymentRepo.CountByStatus(db, models.PaymentStatusSucceeded); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if stats.PendingPayments, err = s.paymentRepo.CountByStatus(db, models.PaymentStatusPending); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if stats.TotalRevenueRUB, err = s.paymentRepo.TotalRevenue(db); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return stats, nil
}

// ExportUsersXLSX выгружает всех пользователей в xlsx для админа.
func (s *AdminServiceImpl) ExportUsersXLSX(db *gorm.DB) ([]byte, error) {
	users, _, err := s.userRepo.FindWithFilter(db, repositories.UserFilter{})
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Пользователи"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Email", "Имя", "Роль", "Тариф", "Остаток отчетов", "Email подтвержден", "Дата регистрации"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, u := range users {
		values := []interface{}{
			u.Email,
			u.Name,
			string(u.Role),
			string(u.Plan),
			u.AnalysesRemaining,
			u.IsVerified,
			u.CreatedAt.Format("02.01.2006 15:04"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, apperrors.InternalError(fmt.Errorf("xlsx export: %w", err))
	}
	return buf.Bytes(), nil
}

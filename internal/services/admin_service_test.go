package services

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"metallvector_backend/internal/models"
	"metallvector_backend/internal/repositories"
	"metallvector_backend/internal/services/dto"
	"metallvector_backend/pkg/apperrors"
)

func newAdminService() AdminService {
	return NewAdminService(
		repositories.NewUserRepository(),
		repositories.NewAnalysisRepository(),
		repositories.NewPaymentRepository(),
	)
}

func TestAdminUserActions(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 3)
	svc := newAdminService()

	resp, err := svc.ApplyUserAction(db, user.ID, &dto.AdminUserActionRequest{Action: ActionSetPlan, Plan: "optimal"})
	require.NoError(t, err)
	assert.Equal(t, "optimal", resp.Plan)
	// Смена плана не меняет баланс
	assert.Equal(t, 3, resp.AnalysesRemaining)

	resp, err = svc.ApplyUserAction(db, user.ID, &dto.AdminUserActionRequest{Action: ActionAddReports, Count: 10})
	require.NoError(t, err)
	assert.Equal(t, 13, resp.AnalysesRemaining)

	resp, err = svc.ApplyUserAction(db, user.ID, &dto.AdminUserActionRequest{Action: ActionSetReports, Count: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, resp.AnalysesRemaining)

	// Вычитание зажимается в ноль
	resp, err = svc.ApplyUserAction(db, user.ID, &dto.AdminUserActionRequest{Action: ActionSubtractReports, Count: 100})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.AnalysesRemaining)

	_, err = svc.ApplyUserAction(db, user.ID, &dto.AdminUserActionRequest{Action: "UNKNOWN"})
	require.Error(t, err)
}

func TestImpersonateRefusesAdminTarget(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	svc := newAdminService()

	admin := &models.User{
		Email: "admin@example.com", PasswordHash: "x", Name: "Админ",
		Role: models.RoleAdmin, Plan: models.PlanTrial,
	}
	require.NoError(t, db.Create(admin).Error)

	secondAdmin := &models.User{
		Email: "admin2@example.com", PasswordHash: "x", Name: "Админ 2",
		Role: models.RoleAdmin, Plan: models.PlanTrial,
	}
	require.NoError(t, db.Create(secondAdmin).Error)

	user := createTestUser(t, db, 0)

	resp, err := svc.Impersonate(db, admin.ID, user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, user.ID, resp.User.ID)

	_, err = svc.Impersonate(db, admin.ID, secondAdmin.ID)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, 403, appErr.HTTPCode)
}

func TestDeleteUserRefusesAdmins(t *testing.T) {
	db := setupTestDB(t)
	svc := newAdminService()

	admin := &models.User{
		Email: "admin@example.com", PasswordHash: "x", Name: "Админ",
		Role: models.RoleAdmin, Plan: models.PlanTrial,
	}
	require.NoError(t, db.Create(admin).Error)
	user := createTestUser(t, db, 0)

	require.Error(t, svc.DeleteUser(db, admin.ID))
	require.NoError(t, svc.DeleteUser(db, user.ID))
}

func TestDashboardStats(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 0)
	svc := newAdminService()

	require.NoError(t, db.Create(&models.Analysis{
		UserID: user.ID, CompanyName: "А", ReportText: "отчет",
	}).Error)
	require.NoError(t, db.Create(&models.Analysis{
		UserID: user.ID, CompanyName: "Б", ReportText: "нецелевой", IsNonTarget: true,
	}).Error)
	require.NoError(t, db.Create(&models.Payment{
		UserID: user.ID, Amount: 4900, ProviderPaymentID: "yk-stat-1",
		Status: models.PaymentStatusSucceeded, Plan: models.PlanStart, AnalysesCount: 20,
	}).Error)

	stats, err := svc.DashboardStats(db)
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.TotalUsers)
	assert.Equal(t, int64(2), stats.TotalAnalyses)
	assert.Equal(t, int64(1), stats.NonTargetAnalyses)
	assert.Equal(t, int64(1), stats.SucceededPayments)
	assert.Equal(t, float64(4900), stats.TotalRevenueRUB)
}

func TestExportUsersXLSX(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, 7)
	svc := newAdminService()

	data, err := svc.ExportUsersXLSX(db)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Пользователи")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Email", rows[0][0])
	assert.Equal(t, "user@example.com", rows[1][0])
}

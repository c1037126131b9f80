package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metallvector_backend/internal/gemini"
	"metallvector_backend/internal/models"
	"metallvector_backend/internal/repositories"
	"metallvector_backend/internal/services/dto"
	"metallvector_backend/pkg/apperrors"
)

func newAnalysisService(gw *fakeGateway, fetcher *fakeFetcher) AnalysisService {
	return NewAnalysisService(
		repositories.NewUserRepository(),
		repositories.NewAnalysisRepository(),
		fetcher,
		gw,
	)
}

func TestAnalyzeHappyPath(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 3)

	gw := &fakeGateway{result: &gemini.Result{Text: "## Отчет\n\nКомпания закупает трубы и листовой прокат."}}
	fetcher := &fakeFetcher{text: "ООО Стройтрест, закупаем металлопрокат"}
	svc := newAnalysisService(gw, fetcher)

	resp, err := svc.Analyze(context.Background(), db, user.ID, &dto.AnalyzeRequest{URL: "stroytrest.ru"})
	require.NoError(t, err)

	assert.False(t, resp.IsNonTarget)
	assert.Equal(t, 2, resp.AnalysesRemaining)
	assert.Equal(t, 2, userBalance(t, db, user.ID))
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 1, gw.calls)

	var count int64
	db.Model(&models.Analysis{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestAnalyzeQuotaExhausted(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 0)

	gw := &fakeGateway{result: &gemini.Result{Text: "отчет"}}
	svc := newAnalysisService(gw, &fakeFetcher{})

	_, err := svc.Analyze(context.Background(), db, user.ID, &dto.AnalyzeRequest{INN: "1234567890"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeQuotaExhausted, appErr.Code)
	assert.Equal(t, 403, appErr.HTTPCode)

	// Внешние сервисы не вызывались, запись не создана
	assert.Equal(t, 0, gw.calls)
	var count int64
	db.Model(&models.Analysis{}).Count(&count)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, 0, userBalance(t, db, user.ID))
}

func TestAnalyzeRequiresURLOrINN(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 3)
	svc := newAnalysisService(&fakeGateway{}, &fakeFetcher{})

	_, err := svc.Analyze(context.Background(), db, user.ID, &dto.AnalyzeRequest{})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, 400, appErr.HTTPCode)
	assert.Equal(t, 3, userBalance(t, db, user.ID))
}

func TestAnalyzeNonTargetRefundsQuota(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 2)

	gw := &fakeGateway{result: &gemini.Result{
		Text: NonTargetSentinel + "\n\nКомпания оказывает бухгалтерские услуги, металл не закупает.",
	}}
	svc := newAnalysisService(gw, &fakeFetcher{text: "бухгалтерские услуги"})

	resp, err := svc.Analyze(context.Background(), db, user.ID, &dto.AnalyzeRequest{URL: "buh-uslugi.ru"})
	require.NoError(t, err)

	assert.True(t, resp.IsNonTarget)
	// Отчет сохранен, но резерв возвращен
	assert.Equal(t, 2, resp.AnalysesRemaining)
	assert.Equal(t, 2, userBalance(t, db, user.ID))

	var analysis models.Analysis
	require.NoError(t, db.First(&analysis, "user_id = ?", user.ID).Error)
	assert.True(t, analysis.IsNonTarget)
}

func TestAnalyzeGenerateFailureRefundsQuota(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 2)

	gw := &fakeGateway{err: errors.New("model unavailable")}
	svc := newAnalysisService(gw, &fakeFetcher{text: "текст"})

	_, err := svc.Analyze(context.Background(), db, user.ID, &dto.AnalyzeRequest{URL: "site.ru"})
	require.Error(t, err)

	assert.Equal(t, 2, userBalance(t, db, user.ID))
	var count int64
	db.Model(&models.Analysis{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestAnalyzeFetchFailureIsNonFatal(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 2)

	gw := &fakeGateway{result: &gemini.Result{Text: "Отчет по открытым источникам"}}
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	svc := newAnalysisService(gw, fetcher)

	resp, err := svc.Analyze(context.Background(), db, user.ID, &dto.AnalyzeRequest{URL: "unreachable.ru"})
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, 1, resp.AnalysesRemaining)
}

func TestAnalyzeUserINNWinsOverExtracted(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 2)

	gw := &fakeGateway{result: &gemini.Result{Text: "Отчет. ИНН: 7736050003. Закупает арматуру."}}
	fetcher := &fakeFetcher{}
	svc := newAnalysisService(gw, fetcher)

	_, err := svc.Analyze(context.Background(), db, user.ID, &dto.AnalyzeRequest{INN: "7707083893"})
	require.NoError(t, err)

	// Без URL наружу никто не ходит - отчет строится только по ИНН
	assert.Equal(t, 0, fetcher.calls)

	var analysis models.Analysis
	require.NoError(t, db.First(&analysis, "user_id = ?", user.ID).Error)
	require.NotNil(t, analysis.CompanyINN)
	assert.Equal(t, "7707083893", *analysis.CompanyINN)
}

func TestAnalyzeExtractsINNFromReport(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 2)

	gw := &fakeGateway{result: &gemini.Result{Text: "Отчет о компании. ИНН: 7736050003. Профиль: стройка."}}
	svc := newAnalysisService(gw, &fakeFetcher{text: "стройка"})

	_, err := svc.Analyze(context.Background(), db, user.ID, &dto.AnalyzeRequest{URL: "stroika.ru"})
	require.NoError(t, err)

	var analysis models.Analysis
	require.NoError(t, db.First(&analysis, "user_id = ?", user.ID).Error)
	require.NotNil(t, analysis.CompanyINN)
	assert.Equal(t, "7736050003", *analysis.CompanyINN)
}

func TestTargetProposalCachedOnSecondCall(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 2)

	gw := &fakeGateway{result: &gemini.Result{Text: "Готовый отчет о целевой компании"}}
	svc := newAnalysisService(gw, &fakeFetcher{})

	resp, err := svc.Analyze(context.Background(), db, user.ID, &dto.AnalyzeRequest{URL: "zavod.ru"})
	require.NoError(t, err)

	gw.result = &gemini.Result{Text: "Предлагаем поставку арматуры А500С со склада"}
	first, err := svc.GenerateTargetProposal(context.Background(), db, user.ID, resp.ID)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	callsAfterFirst := gw.calls
	second, err := svc.GenerateTargetProposal(context.Background(), db, user.ID, resp.ID)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.TargetProposal, second.TargetProposal)
	assert.Equal(t, callsAfterFirst, gw.calls)

	// Предложение квоту не списывает
	assert.Equal(t, 1, userBalance(t, db, user.ID))
}

func TestTargetProposalRejectedForNonTarget(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 2)

	gw := &fakeGateway{result: &gemini.Result{Text: NonTargetSentinel + ": услуги связи"}}
	svc := newAnalysisService(gw, &fakeFetcher{})

	resp, err := svc.Analyze(context.Background(), db, user.ID, &dto.AnalyzeRequest{URL: "telecom.ru"})
	require.NoError(t, err)

	_, err = svc.GenerateTargetProposal(context.Background(), db, user.ID, resp.ID)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, 400, appErr.HTTPCode)
}

func TestTrashAndRestore(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 2)

	gw := &fakeGateway{result: &gemini.Result{Text: "Отчет"}}
	svc := newAnalysisService(gw, &fakeFetcher{})

	resp, err := svc.Analyze(context.Background(), db, user.ID, &dto.AnalyzeRequest{URL: "site.ru"})
	require.NoError(t, err)

	require.NoError(t, svc.MoveToTrash(db, user.ID, resp.ID))

	active, err := svc.List(db, user.ID, false, 1, 20)
	require.NoError(t, err)
	assert.Len(t, active.Analyses, 0)

	trashed, err := svc.List(db, user.ID, true, 1, 20)
	require.NoError(t, err)
	assert.Len(t, trashed.Analyses, 1)

	require.NoError(t, svc.Restore(db, user.ID, resp.ID))
	active, err = svc.List(db, user.ID, false, 1, 20)
	require.NoError(t, err)
	assert.Len(t, active.Analyses, 1)
}

func TestAnalysisNotAccessibleByOtherUser(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, 2)

	other := &models.User{
		Email: "other@example.com", PasswordHash: "x", Name: "Другой",
		Role: models.RoleUser, Plan: models.PlanTrial, AnalysesRemaining: 2,
	}
	require.NoError(t, db.Create(other).Error)

	gw := &fakeGateway{result: &gemini.Result{Text: "Отчет"}}
	svc := newAnalysisService(gw, &fakeFetcher{})

	resp, err := svc.Analyze(context.Background(), db, owner.ID, &dto.AnalyzeRequest{URL: "site.ru"})
	require.NoError(t, err)

	_, err = svc.Get(db, other.ID, resp.ID)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, 404, appErr.HTTPCode)
}

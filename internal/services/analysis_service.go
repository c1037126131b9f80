package services

import (
	"context"
	"time"

	"metallvector_backend/internal/gemini"
	"metallvector_backend/internal/inn"
	"metallvector_backend/internal/logger"
	"metallvector_backend/internal/models"
	"metallvector_backend/internal/repositories"
	"metallvector_backend/internal/scraper"
	"metallvector_backend/internal/services/dto"
	"metallvector_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type AnalysisService interface {
	Analyze(ctx context.Context, db *gorm.DB, userID string, req *dto.AnalyzeRequest) (*dto.AnalyzeResponse, error)
	List(db *gorm.DB, userID string, deleted bool, page, pageSize int) (*dto.AnalysisListResponse, error)
	Get(db *gorm.DB, userID, analysisID string) (*dto.AnalysisResponse, error)
	MoveToTrash(db *gorm.DB, userID, analysisID string) error
	Restore(db *gorm.DB, userID, analysisID string) error
	GenerateTargetProposal(ctx context.Context, db *gorm.DB, userID, analysisID string) (*dto.TargetProposalResponse, error)
}

type AnalysisServiceImpl struct {
	userRepo     repositories.UserRepository
	analysisRepo repositories.AnalysisRepository
	fetcher      scraper.Fetcher
	ai           gemini.Gateway
}

func NewAnalysisService(
	userRepo repositories.UserRepository,
	analysisRepo repositories.AnalysisRepository,
	fetcher scraper.Fetcher,
	ai gemini.Gateway,
) AnalysisService {
	return &AnalysisServiceImpl{
		userRepo:     userRepo,
		analysisRepo: analysisRepo,
		fetcher:      fetcher,
		ai:           ai,
	}
}

// Analyze - основной пайплайн генерации отчета.
//
// Квота резервируется атомарно ДО внешних вызовов и возвращается, если
// анализ не удался или компания признана нецелевой. Так баланс никогда
// не уходит в минус, а из двух конкурентных запросов при балансе 1
// внешнюю работу начнет ровно один.
func (s *AnalysisServiceImpl) Analyze(ctx context.Context, db *gorm.DB, userID string, req *dto.AnalyzeRequest) (*dto.AnalyzeResponse, error) {
	if req.URL == "" && req.INN == "" {
		return nil, apperrors.NewBadRequestError("Укажите сайт компании или ИНН")
	}
	if req.INN != "" && !inn.ValidFormat(req.INN) {
		return nil, apperrors.NewBadRequestError("ИНН должен состоять из 10 или 12 цифр")
	}

	// 1. Резерв квоты
	reserved, err := s.userRepo.ConsumeAnalysis(db, userID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if !reserved {
		return nil, apperrors.NewQuotaExhaustedError()
	}

	refund := func() {
		if err := s.userRepo.AddAnalyses(db, userID, 1); err != nil {
			logger.CtxError(ctx, "failed to refund analysis reservation", "user_id", userID, "error", err)
		}
	}

	// 2. Текст сайта - best effort, провал не прерывает анализ
	siteText := ""
	if req.URL != "" {
		text, err := s.fetcher.FetchSiteText(ctx, req.URL)
		if err != nil {
			logger.CtxWarn(ctx, "site fetch failed, continuing without site text",
				"url", req.URL, "error", err)
		} else {
			siteText = text
		}
	}

	// 3-4. Промпт и вызов модели: одна попытка, без ретраев
	prompt := BuildReportPrompt(siteText, req.URL, req.INN)
	result, err := s.ai.Generate(ctx, prompt, true)
	if err != nil {
		refund()
		return nil, apperrors.ExternalServiceError("analysis", err).
			WithDetails("Не удалось выполнить анализ. Попробуйте позже.")
	}

	// 5. Пост-обработка
	reportText := PostprocessReport(result.Text)
	if reportText == "" {
		refund()
		return nil, apperrors.New(apperrors.CodeExternalServiceError, "analysis",
			"Модель вернула пустой отчет", 500)
	}

	nonTarget := IsNonTarget(reportText)

	// Приоритет ИНН: пользовательский > извлеченный из отчета > null
	var companyINN *string
	if req.INN != "" {
		companyINN = &req.INN
	} else if extracted := inn.Extract(reportText); extracted != "" {
		if !inn.ValidChecksum(extracted) {
			// Принимаем (на этом участке проверяется только формат),
			// но фиксируем в логе для разбора
			logger.CtxWarn(ctx, "extracted INN fails checksum", "inn", extracted)
		}
		companyINN = &extracted
	}

	// 6. Сохранение
	analysis := &models.Analysis{
		UserID:      userID,
		CompanyName: CompanyNameFromInput(req.URL, req.INN),
		CompanyINN:  companyINN,
		ReportText:  reportText,
		IsNonTarget: nonTarget,
	}
	if err := s.analysisRepo.Create(db, analysis); err != nil {
		refund()
		return nil, apperrors.DatabaseError(err)
	}

	// 7. Нецелевой анализ бесплатен - возвращаем резерв
	if nonTarget {
		refund()
	}

	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	message := "Анализ готов"
	if nonTarget {
		message = "Компания признана нецелевой, отчет не списан с баланса"
	}

	return &dto.AnalyzeResponse{
		ID:                analysis.ID,
		Message:           message,
		AnalysesRemaining: user.AnalysesRemaining,
		IsNonTarget:       nonTarget,
	}, nil
}

func (s *AnalysisServiceImpl) List(db *gorm.DB, userID string, deleted bool, page, pageSize int) (*dto.AnalysisListResponse, error) {
	analyses, total, err := s.analysisRepo.ListForUser(db, userID, deleted, page, pageSize)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	resp := &dto.AnalysisListResponse{
		Analyses: make([]dto.AnalysisResponse, 0, len(analyses)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for i := range analyses {
		resp.Analyses = append(resp.Analyses, toAnalysisResponse(&analyses[i]))
	}
	return resp, nil
}

func (s *AnalysisServiceImpl) Get(db *gorm.DB, userID, analysisID string) (*dto.AnalysisResponse, error) {
	analysis, err := s.analysisRepo.FindByIDForUser(db, analysisID, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrAnalysisNotFound) {
			return nil, apperrors.NewNotFoundError("analysis", "Анализ не найден")
		}
		return nil, apperrors.DatabaseError(err)
	}
	resp := toAnalysisResponse(analysis)
	return &resp, nil
}

func (s *AnalysisServiceImpl) MoveToTrash(db *gorm.DB, userID, analysisID string) error {
	return s.setDeleted(db, userID, analysisID, true)
}

func (s *AnalysisServiceImpl) Restore(db *gorm.DB, userID, analysisID string) error {
	return s.setDeleted(db, userID, analysisID, false)
}

func (s *AnalysisServiceImpl) setDeleted(db *gorm.DB, userID, analysisID string, deleted bool) error {
	err := s.analysisRepo.SetDeleted(db, analysisID, userID, deleted)
	if err != nil {
		if apperrors.Is(err, repositories.ErrAnalysisNotFound) {
			return apperrors.NewNotFoundError("analysis", "Анализ не найден")
		}
		return apperrors.DatabaseError(err)
	}
	return nil
}

// GenerateTargetProposal генерирует целевое предложение по готовому
// отчету. Результат кэшируется в записи анализа; квота не списывается.
func (s *AnalysisServiceImpl) GenerateTargetProposal(ctx context.Context, db *gorm.DB, userID, analysisID string) (*dto.TargetProposalResponse, error) {
	analysis, err := s.analysisRepo.FindByIDForUser(db, analysisID, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrAnalysisNotFound) {
			return nil, apperrors.NewNotFoundError("analysis", "Анализ не найден")
		}
		return nil, apperrors.DatabaseError(err)
	}

	if analysis.IsNonTarget {
		return nil, apperrors.New(apperrors.CodeInvalidOperation, "analysis",
			"Для нецелевой компании предложение не формируется", 400)
	}

	if analysis.TargetProposal != nil && *analysis.TargetProposal != "" {
		return &dto.TargetProposalResponse{
			ID:             analysis.ID,
			TargetProposal: *analysis.TargetProposal,
			Cached:         true,
		}, nil
	}

	result, err := s.ai.Generate(ctx, BuildProposalPrompt(analysis.ReportText), false)
	if err != nil {
		return nil, apperrors.ExternalServiceError("analysis", err)
	}

	proposal := PostprocessReport(result.Text)
	if proposal == "" {
		return nil, apperrors.New(apperrors.CodeExternalServiceError, "analysis",
			"Модель вернула пустое предложение", 500)
	}

	if err := s.analysisRepo.SetTargetProposal(db, analysis.ID, proposal); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	return &dto.TargetProposalResponse{
		ID:             analysis.ID,
		TargetProposal: proposal,
	}, nil
}

func toAnalysisResponse(a *models.Analysis) dto.AnalysisResponse {
	return dto.AnalysisResponse{
		ID:             a.ID,
		CompanyName:    a.CompanyName,
		CompanyINN:     a.CompanyINN,
		ReportText:     a.ReportText,
		TargetProposal: a.TargetProposal,
		IsNonTarget:    a.IsNonTarget,
		IsDeleted:      a.IsDeleted,
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
	}
}

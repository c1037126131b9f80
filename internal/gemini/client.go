// Package gemini - тонкая обертка над генеративным API Google.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"metallvector_backend/internal/logger"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Жесткий таймаут генерации. Единственная точка отмены в пайплайне.
const generateTimeout = 5 * time.Minute

var ErrEmptyResponse = errors.New("gemini: empty response")

// Result - сгенерированный текст плюс метаданные цитирования
// (источники web-поиска, если модель их вернула).
type Result struct {
	Text      string
	Citations []string
}

// Gateway абстрагирует генерацию текста. Сервисы зависят от интерфейса,
// тесты подставляют фейк без сетевых вызовов.
type Gateway interface {
	Generate(ctx context.Context, prompt string, useWebSearch bool) (*Result, error)
}

type Client struct {
	apiKey    string
	modelName string
}

func NewClient(apiKey, modelName string) *Client {
	return &Client{apiKey: apiKey, modelName: modelName}
}

// Generate выполняет ОДНУ попытку генерации без ретраев.
// Блокировку ответа по safety-основаниям возвращаем как обычную ошибку -
// наверху она превращается в generic 500 "анализ не удался".
func (c *Client) Generate(ctx context.Context, prompt string, useWebSearch bool) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	start := time.Now()

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.modelName)
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockOnlyHigh},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockOnlyHigh},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockOnlyHigh},
	}
	if useWebSearch {
		model.Tools = []*genai.Tool{
			{GoogleSearchRetrieval: &genai.GoogleSearchRetrieval{}},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	logger.ExternalCallLog("gemini", "generate", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrEmptyResponse
	}

	cand := resp.Candidates[0]

	var text string
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	if text == "" {
		return nil, ErrEmptyResponse
	}

	result := &Result{Text: text}
	if cand.CitationMetadata != nil {
		for _, src := range cand.CitationMetadata.CitationSources {
			if src.URI != nil && *src.URI != "" {
				result.Citations = append(result.Citations, *src.URI)
			}
		}
	}

	return result, nil
}

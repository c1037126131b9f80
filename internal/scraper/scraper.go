// Package scraper - best-effort загрузка и очистка HTML сайта клиента.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"metallvector_backend/internal/logger"
)

const (
	// Одна попытка, короткий таймаут: провал загрузки сайта не должен
	// ронять весь анализ
	fetchTimeout = 15 * time.Second

	// Бюджет символов текста сайта в промпте
	maxSiteTextLen = 50000

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var (
	scriptRe     = regexp.MustCompile(`(?is)<script.*?</script>`)
	styleRe      = regexp.MustCompile(`(?is)<style.*?</style>`)
	tagRe        = regexp.MustCompile(`(?s)<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Fetcher загружает текст сайта. Интерфейс нужен, чтобы пайплайн
// анализа тестировался без сетевых вызовов.
type Fetcher interface {
	FetchSiteText(ctx context.Context, url string) (string, error)
}

type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// FetchSiteText делает единственный GET и возвращает очищенный текст
// страницы. Любая ошибка (не-2xx, таймаут, сеть) возвращается вызывающему,
// который обязан продолжить анализ с пустым текстом сайта.
func (f *HTTPFetcher) FetchSiteText(ctx context.Context, url string) (string, error) {
	start := time.Now()

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en;q=0.8")

	resp, err := f.client.Do(req)
	logger.ExternalCallLog("site", "fetch", time.Since(start), err)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("site returned status %d", resp.StatusCode)
	}

	// Читаем с запасом: после вырезания тегов текст сожмется
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return "", err
	}

	return CleanHTML(string(body)), nil
}

// CleanHTML вырезает script/style, остальные теги и сжимает пробелы.
// Результат обрезается до бюджета промпта.
func CleanHTML(html string) string {
	text := scriptRe.ReplaceAllString(html, " ")
	text = styleRe.ReplaceAllString(text, " ")
	text = tagRe.ReplaceAllString(text, " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	// Бюджет считается в символах: срез по байтам разрезал бы
	// многобайтную кириллицу посередине руны
	if utf8.RuneCountInString(text) > maxSiteTextLen {
		runes := []rune(text)
		text = string(runes[:maxSiteTextLen])
	}
	return text
}

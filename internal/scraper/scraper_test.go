package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		desc string
		html string
		want string
	}{
		{
			"вырезает script и style",
			`<html><head><style>body{color:red}</style><script>alert(1)</script></head><body>Металлопрокат оптом</body></html>`,
			"Металлопрокат оптом",
		},
		{
			"вырезает теги и сжимает пробелы",
			"<div>Труба   стальная</div>\n\n<p>ГОСТ  8732</p>",
			"Труба стальная ГОСТ 8732",
		},
		{
			"многострочный script",
			"<script>\nvar a = 1;\nvar b = 2;\n</script>Прайс-лист",
			"Прайс-лист",
		},
		{
			"пустой вход",
			"",
			"",
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanHTML(tt.html), tt.desc)
	}
}

func TestCleanHTML_Truncates(t *testing.T) {
	long := strings.Repeat("a", 120000)
	got := CleanHTML(long)
	assert.Len(t, got, 50000)
}

func TestCleanHTML_TruncatesOnRuneBoundary(t *testing.T) {
	// Кириллица двухбайтная: срез по байтам оставил бы в хвосте
	// половину руны
	long := strings.Repeat("м", 60000)
	got := CleanHTML(long)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, maxSiteTextLen, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "м"))
}

func TestFetchSiteText_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Проверяем браузерный User-Agent
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		w.Write([]byte("<html><body><h1>ООО Ромашка</h1></body></html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher()
	text, err := f.FetchSiteText(context.Background(), srv.URL)
	assert.NoError(t, err)
	assert.Equal(t, "ООО Ромашка", text)
}

func TestFetchSiteText_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewHTTPFetcher()
	_, err := f.FetchSiteText(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestFetchSiteText_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := NewHTTPFetcher()
	_, err := f.FetchSiteText(ctx, srv.URL)
	assert.Error(t, err)
}

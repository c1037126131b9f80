package services

import (
	"strings"
	"testing"
)

func TestPostprocessReport(t *testing.T) {
	tests := []struct {
		desc string
		in   string
		want string
	}{
		{"жирное выделение", "**Важно**: закупают трубы", "Важно: закупают трубы"},
		{"одиночные звездочки", "*курсив* и **жирный**", "курсив и жирный"},
		{"глубокие заголовки", "### Раздел\nтекст", "## Раздел\nтекст"},
		{"очень глубокие заголовки", "##### Подраздел", "## Подраздел"},
		{"заголовок второго уровня не трогаем", "## Раздел", "## Раздел"},
		{"обрезка пробелов", "  \n\nтекст\n\n  ", "текст"},
		{"пустой вход", "   \n  ", ""},
	}

	for _, tt := range tests {
		if got := PostprocessReport(tt.in); got != tt.want {
			t.Errorf("%s: PostprocessReport(%q) = %q, want %q", tt.desc, tt.in, got, tt.want)
		}
	}
}

func TestIsNonTarget(t *testing.T) {
	if !IsNonTarget("Вывод: " + NonTargetSentinel + ". Компания оказывает юридические услуги.") {
		t.Error("expected non-target for text containing sentinel")
	}
	if IsNonTarget("Компания закупает металлопрокат крупными партиями") {
		t.Error("expected target for ordinary report")
	}
}

func TestCompanyNameFromInput(t *testing.T) {
	tests := []struct {
		desc string
		url  string
		inn  string
		want string
	}{
		{"хост из URL", "https://www.zavod-metall.ru/about", "", "zavod-metall.ru"},
		{"URL без схемы", "stroytrest.ru", "", "stroytrest.ru"},
		{"порт отбрасывается", "http://example.ru:8080", "", "example.ru"},
		{"только ИНН", "", "7707083893", "ИНН 7707083893"},
		{"URL важнее ИНН", "metall.ru", "7707083893", "metall.ru"},
		{"ничего не задано", "", "", "Без названия"},
	}

	for _, tt := range tests {
		if got := CompanyNameFromInput(tt.url, tt.inn); got != tt.want {
			t.Errorf("%s: CompanyNameFromInput(%q, %q) = %q, want %q", tt.desc, tt.url, tt.inn, got, tt.want)
		}
	}
}

func TestBuildReportPromptIncludesInputs(t *testing.T) {
	prompt := BuildReportPrompt("Производим металлоконструкции", "zavod.ru", "7707083893")

	for _, fragment := range []string{"zavod.ru", "7707083893", "Производим металлоконструкции", NonTargetSentinel} {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("prompt does not contain %q", fragment)
		}
	}
}

func TestBuildReportPromptWithoutSiteText(t *testing.T) {
	prompt := BuildReportPrompt("", "zavod.ru", "")
	if !strings.Contains(prompt, "поиск в интернете") {
		t.Error("prompt should direct the model to web search when site text is unavailable")
	}
}

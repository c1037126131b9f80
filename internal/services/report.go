package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// NonTargetSentinel - фиксированная фраза, которой модель помечает
// компанию, нецелевую для продаж металлопроката. Ищется в тексте отчета
// после пост-обработки; за нецелевой анализ квота не списывается.
const NonTargetSentinel = "АНАЛИЗ НЕЦЕЛЕСООБРАЗЕН"

const reportPromptTemplate = `Ты - аналитик отдела продаж компании-поставщика металлопроката "Металл Вектор".
Подготовь структурированный отчет о потенциальном клиенте для менеджера по продажам.

Данные о компании:
%s

Структура отчета:
## Общие сведения
Название, ИНН (обязательно укажи в формате "ИНН: ..."), регион, сфера деятельности.
## Потребность в металлопрокате
Какие виды проката и в каких объемах компания предположительно закупает.
## Ключевые лица
Кто принимает решения о закупках, если информация доступна.
## Рекомендации по продаже
Конкретные шаги для первого контакта.

Если компания очевидно не закупает металлопрокат и не может быть клиентом
поставщика (банк, школа, госорган без строительных проектов и т.п.),
вместо отчета напиши "` + NonTargetSentinel + `" и одним абзацем объясни почему.

Пиши по-русски, по делу, без воды.`

const proposalPromptTemplate = `Ты - менеджер по продажам металлопроката компании "Металл Вектор".
На основе отчета о клиенте ниже составь короткое целевое коммерческое
предложение (5-8 предложений): какие позиции предложить, какой повод для
первого контакта использовать, какую выгоду подчеркнуть.

Отчет:
%s

Пиши по-русски, без приветствий и подписей.`

var (
	boldMarkerRe = regexp.MustCompile(`\*{1,2}`)
	headerRe     = regexp.MustCompile(`(?m)^#{3,}\s*`)
	hostPortRe   = regexp.MustCompile(`:\d+$`)
)

// BuildReportPrompt собирает промпт из текста сайта, URL и ИНН
func BuildReportPrompt(siteText, siteURL, companyINN string) string {
	var facts []string
	if siteURL != "" {
		facts = append(facts, "Сайт: "+siteURL)
	}
	if companyINN != "" {
		facts = append(facts, "ИНН: "+companyINN)
	}
	if siteText != "" {
		facts = append(facts, "Текст с сайта компании:\n"+siteText)
	} else if siteURL != "" {
		facts = append(facts, "Текст сайта недоступен - используй поиск в интернете.")
	}
	return fmt.Sprintf(reportPromptTemplate, strings.Join(facts, "\n"))
}

// BuildProposalPrompt собирает промпт целевого предложения из отчета
func BuildProposalPrompt(reportText string) string {
	return fmt.Sprintf(proposalPromptTemplate, reportText)
}

// PostprocessReport чистит текст модели: убирает звездочки жирного
// выделения и нормализует заголовки глубже второго уровня.
func PostprocessReport(text string) string {
	text = boldMarkerRe.ReplaceAllString(text, "")
	text = headerRe.ReplaceAllString(text, "## ")
	return strings.TrimSpace(text)
}

// IsNonTarget проверяет наличие сентинели нецелевой компании
func IsNonTarget(text string) bool {
	return strings.Contains(text, NonTargetSentinel)
}

// CompanyNameFromInput синтезирует имя компании из URL или ИНН.
// Из тела отчета имя при сохранении не берется.
func CompanyNameFromInput(siteURL, companyINN string) string {
	if siteURL != "" {
		host := siteURL
		if u, err := url.Parse(ensureScheme(siteURL)); err == nil && u.Host != "" {
			host = u.Host
		}
		host = hostPortRe.ReplaceAllString(host, "")
		host = strings.TrimPrefix(host, "www.")
		return host
	}
	if companyINN != "" {
		return "ИНН " + companyINN
	}
	return "Без названия"
}

func ensureScheme(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

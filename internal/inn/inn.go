// Package inn - валидация и извлечение ИНН (10 или 12 цифр).
package inn

import "regexp"

var digitsOnly = regexp.MustCompile(`^\d+$`)

// Приоритетные шаблоны поиска ИНН в тексте отчета: сначала явные метки
// "ИНН: ...", затем слабо-привязанные последовательности цифр.
var extractPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ИНН[:\s№-]*(\d{12})`),
	regexp.MustCompile(`(?i)ИНН[:\s№-]*(\d{10})`),
	regexp.MustCompile(`(?i)INN[:\s№-]*(\d{12})`),
	regexp.MustCompile(`(?i)INN[:\s№-]*(\d{10})`),
	regexp.MustCompile(`\b(\d{12})\b`),
	regexp.MustCompile(`\b(\d{10})\b`),
}

// ValidFormat проверяет формат: ровно 10 или 12 ASCII-цифр.
// Контрольные числа здесь не проверяются.
func ValidFormat(s string) bool {
	if len(s) != 10 && len(s) != 12 {
		return false
	}
	return digitsOnly.MatchString(s)
}

// ValidChecksum проверяет контрольные числа ИНН по алгоритму ФНС.
// Формат должен быть уже валиден, иначе false.
func ValidChecksum(s string) bool {
	if !ValidFormat(s) {
		return false
	}

	digits := make([]int, len(s))
	for i, c := range s {
		digits[i] = int(c - '0')
	}

	switch len(s) {
	case 10:
		w := []int{2, 4, 10, 3, 5, 9, 4, 6, 8}
		return control(digits, w) == digits[9]
	case 12:
		w11 := []int{7, 2, 4, 10, 3, 5, 9, 4, 6, 8}
		w12 := []int{3, 7, 2, 4, 10, 3, 5, 9, 4, 6, 8}
		return control(digits, w11) == digits[10] && control(digits, w12) == digits[11]
	}
	return false
}

func control(digits, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += digits[i] * w
	}
	return sum % 11 % 10
}

// Extract ищет ИНН в произвольном тексте по приоритетным шаблонам.
// Проверяется только количество цифр; пустая строка если не найден.
func Extract(text string) string {
	for _, re := range extractPatterns {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

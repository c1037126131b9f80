package inn

import "testing"

func TestValidFormat(t *testing.T) {
	tests := []struct {
		desc string
		in   string
		want bool
	}{
		{"10 цифр", "1234567890", true},
		{"12 цифр", "123456789012", true},
		{"9 цифр", "123456789", false},
		{"11 цифр", "12345678901", false},
		{"13 цифр", "1234567890123", false},
		{"пустая строка", "", false},
		{"буквы", "12345678ab", false},
		{"пробел внутри", "12345 67890", false},
		{"юникод-цифры", "１２３４５６７８９０", false},
	}

	for _, tt := range tests {
		if got := ValidFormat(tt.in); got != tt.want {
			t.Errorf("%s: ValidFormat(%q) = %v, want %v", tt.desc, tt.in, got, tt.want)
		}
	}
}

func TestValidChecksum(t *testing.T) {
	tests := []struct {
		desc string
		in   string
		want bool
	}{
		// Реальные публичные ИНН: Сбербанк и Газпром
		{"валидный 10-значный", "7707083893", true},
		{"валидный 10-значный 2", "7736050003", true},
		// ИП с валидными контрольными числами
		{"валидный 12-значный", "500100732259", true},
		{"битая контрольная цифра", "7707083894", false},
		{"битая контрольная 12", "500100732258", false},
		{"неверный формат", "123", false},
	}

	for _, tt := range tests {
		if got := ValidChecksum(tt.in); got != tt.want {
			t.Errorf("%s: ValidChecksum(%q) = %v, want %v", tt.desc, tt.in, got, tt.want)
		}
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		desc string
		text string
		want string
	}{
		{"явная метка ИНН", "Компания ООО Ромашка, ИНН: 7707083893, Москва", "7707083893"},
		{"метка без двоеточия", "ИНН 500100732259 зарегистрирован", "500100732259"},
		{"латинская метка", "INN: 7736050003", "7736050003"},
		{"12 цифр приоритетнее при метке", "ИНН: 500100732259 и еще 7707083893", "500100732259"},
		{"голая последовательность", "Реквизиты компании 7707083893 указаны выше", "7707083893"},
		{"нет ИНН", "Отчет о компании без реквизитов", ""},
		{"слишком длинная последовательность", "номер счета 40702810400000012345", ""},
	}

	for _, tt := range tests {
		if got := Extract(tt.text); got != tt.want {
			t.Errorf("%s: Extract() = %q, want %q", tt.desc, got, tt.want)
		}
	}
}

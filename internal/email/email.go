package email

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"metallvector_backend/internal/config"
)

// Sender определяет интерфейс для отправки писем. Сервисы зависят от
// интерфейса, чтобы в тестах подставлять заглушку.
type Sender interface {
	SendVerification(to, token string) error
	SendPasswordReset(to, token string) error
	SendPaymentReceipt(to string, planTitle string, amount float64, analysesCount int) error
}

// SMTPSender отправляет письма через SMTP (gomail).
type SMTPSender struct {
	dialer    *gomail.Dialer
	fromEmail string
	fromName  string
	baseURL   string
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{
		dialer:    gomail.NewDialer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUsername, cfg.Email.SMTPPassword),
		fromEmail: cfg.Email.FromEmail,
		fromName:  cfg.Email.FromName,
		baseURL:   cfg.Email.AppBaseURL,
	}
}

func (s *SMTPSender) send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.fromEmail, s.fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

func (s *SMTPSender) SendVerification(to, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, token)
	body := fmt.Sprintf(verificationTemplate, link, link)
	return s.send(to, "Подтверждение email — Металл Вектор", body)
}

func (s *SMTPSender) SendPasswordReset(to, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)
	body := fmt.Sprintf(passwordResetTemplate, link, link)
	return s.send(to, "Восстановление пароля — Металл Вектор", body)
}

func (s *SMTPSender) SendPaymentReceipt(to string, planTitle string, amount float64, analysesCount int) error {
	body := fmt.Sprintf(paymentReceiptTemplate, planTitle, amount, analysesCount)
	return s.send(to, "Оплата получена — Металл Вектор", body)
}

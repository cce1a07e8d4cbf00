package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// SMTPSender は認証コードをSMTPで送る
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string

	// テストで差し替える
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(host string, port int, username string, password string, from string) *SMTPSender {
	var a smtp.Auth
	if username != "" {
		a = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		auth: a,
		from: from,
		send: smtp.SendMail,
	}
}

func (s *SMTPSender) SendVerificationEmail(ctx context.Context, email string, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := buildVerificationMessage(s.from, email, code)
	if err := s.send(s.addr, s.auth, s.from, []string{email}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func buildVerificationMessage(from string, to string, code string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: Tu código de verificación\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString("Tu código de verificación es: " + code + "\r\n")
	b.WriteString("Caduca en 5 minutos.\r\n")
	return []byte(b.String())
}

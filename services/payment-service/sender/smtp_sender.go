package sender

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
)

var ErrInvalidRecipient = errors.New("invalid email recipient")

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	cfg     SMTPConfig
	breaker *gobreaker.CircuitBreaker[SendResult]
	// sendMail is smtp.SendMail outside tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP_HOST not set")
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP_FROM not set")
	}

	return &SMTPSender{
		cfg:      cfg,
		breaker:  newBreaker("smtp"),
		sendMail: smtp.SendMail,
	}, nil
}

func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, htmlBody string) (SendResult, error) {
	if to == "" || strings.ContainsAny(to, "\r\n") {
		return SendResult{}, ErrInvalidRecipient
	}
	if err := ctx.Err(); err != nil {
		return SendResult{}, err
	}

	return s.breaker.Execute(func() (SendResult, error) {
		addr := s.cfg.Host + ":" + s.cfg.Port
		var auth smtp.Auth
		if s.cfg.Username != "" {
			auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		}

		messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.cfg.Host)
		msg := []byte(
			"From: " + s.cfg.From + "\r\n" +
				"To: " + to + "\r\n" +
				"Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n" +
				"Message-ID: " + messageID + "\r\n" +
				"MIME-Version: 1.0\r\n" +
				"Content-Type: text/html; charset=UTF-8\r\n" +
				"\r\n" +
				htmlBody,
		)

		if err := s.sendMail(addr, auth, s.cfg.From, []string{to}, msg); err != nil {
			return SendResult{}, fmt.Errorf("smtp send failed: %w", err)
		}
		return SendResult{MessageID: messageID, SentAt: time.Now()}, nil
	})
}

func newBreaker(name string) *gobreaker.CircuitBreaker[SendResult] {
	return gobreaker.NewCircuitBreaker[SendResult](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// Package email はSMTP経由のメール送信を提供する。
package email

import (
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
)

// SMTPSender は認証なしSMTPリレー経由でメールを送信する。
// 開発環境ではMailHog等のローカルリレーを想定している。
type SMTPSender struct {
	host   string
	port   string
	from   string
	logger *slog.Logger
}

// NewSMTPSender はSMTPSenderを生成する。
func NewSMTPSender(host, port, from string, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{
		host:   host,
		port:   port,
		from:   from,
		logger: logger,
	}
}

// Send はプレーンテキストメールを1通送信する。
// SMTPホストが未設定の場合は送信をスキップし、ログのみ残す。
func (s *SMTPSender) Send(to, subject, body string) error {
	if s.host == "" {
		s.logger.Warn("SMTPホストが未設定のためメール送信をスキップしました",
			slog.String("to", to),
			slog.String("subject", subject),
		)
		return nil
	}

	addr := s.host + ":" + s.port
	msg := buildMessage(s.from, to, subject, body)
	if err := smtp.SendMail(addr, nil, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// buildMessage はメールのヘッダと本文を組み立てる。
// Subjectには日本語が入るため、RFC 2047のQエンコーディングで
// ASCIIヘッダに変換する。ASCIIのみの件名はそのまま出力される。
func buildMessage(from, to, subject, body string) []byte {
	msg := "From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		body
	return []byte(msg)
}

package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"grumblr/internal/config"
	"grumblr/web"
)

// sendFunc matches smtp.SendMail
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type MailService struct {
	cfg     config.MailConfig
	Enabled bool
	send    sendFunc
	tmpl    *template.Template
	log     zerolog.Logger
}

func NewMailService(cfg config.MailConfig, log zerolog.Logger) (*MailService, error) {
	log = log.With().Str("component", "mail").Logger()

	tmpl, err := template.ParseFS(web.FS, "templates/email/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	enabled := cfg.Enabled()
	if !enabled {
		log.Warn().Msg("MailService disabled: missing SMTP environment variables")
	}

	return &MailService{
		cfg:     cfg,
		Enabled: enabled,
		send:    smtp.SendMail,
		tmpl:    tmpl,
		log:     log,
	}, nil
}

func (s *MailService) buildMessage(to []string, subject, body string) []byte {
	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	return []byte(fmt.Sprintf("To: %s\r\n"+
		"From: grumblr <%s>\r\n"+
		"Subject: %s\r\n"+
		"%s\r\n%s", strings.Join(to, ","), s.cfg.From, subject, mime, body))
}

func (s *MailService) sendAsync(to []string, subject string, body string) {
	if !s.Enabled {
		s.log.Info().Strs("to", to).Str("subject", subject).Msg("Mail disabled, message dropped")
		return
	}

	go func() {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)

		if err := s.send(addr, auth, s.cfg.From, to, s.buildMessage(to, subject, body)); err != nil {
			s.log.Error().Err(err).Strs("to", to).Msg("Failed to send email")
			return
		}
		s.log.Info().Strs("to", to).Str("subject", subject).Msg("Email sent")
	}()
}

func (s *MailService) render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

// SendVerificationEmail mails the account activation link
func (s *MailService) SendVerificationEmail(email, username, link string) {
	if !s.Enabled {
		// 本地开发没有 SMTP，直接把链接打到日志里
		s.log.Info().Str("username", username).Str("link", link).Msg("Verification link")
		return
	}

	body, err := s.render("verify.html", map[string]string{
		"Username": username,
		"Link":     link,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Error rendering verification email")
		return
	}
	s.sendAsync([]string{email}, "Verify your grumblr account", body)
}

// services/email_service.go
package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"text/template"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"player-monitor-system/config"
	"player-monitor-system/logging"
	"player-monitor-system/models"
	"player-monitor-system/utils"
)

// UserDirectory resolves the account behind a subscriber id.
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

type emailMessage struct {
	To      string
	Subject string
	Body    string
}

// mailTransport hands a rendered message to a provider.
type mailTransport interface {
	Deliver(ctx context.Context, from string, msg emailMessage) error
	Name() string
}

type EmailService struct {
	Users     UserDirectory
	From      string
	FromName  string
	transport mailTransport
}

var (
	startedSubject = template.Must(template.New("started_subject").Parse(
		`♟️ {{.PlayerName}} started a game`))
	startedBody = template.Must(template.New("started_body").Parse(
		`Hi {{.Recipient}},

{{.PlayerName}} just started a game on Chess.com.
{{if .GameURL}}
Watch it here: {{.GameURL}}{{if .TimeControl}} (time control {{.TimeControl}}){{end}}
{{end}}
You are receiving this because you follow {{.PlayerName}}.
`))
	endedSubject = template.Must(template.New("ended_subject").Parse(
		`🏁 {{.PlayerName}} finished a game`))
	endedBody = template.Must(template.New("ended_body").Parse(
		`Hi {{.Recipient}},

{{.PlayerName}} is no longer playing on Chess.com.
{{if .Result}}
Result: {{.Result}}
{{end}}
You are receiving this because you follow {{.PlayerName}}.
`))
)

// NewEmailService picks the provider from cfg.Provider (ses, smtp or log).
func NewEmailService(ctx context.Context, cfg config.EmailConfig, users UserDirectory) (*EmailService, error) {
	svc := &EmailService{
		Users:    users,
		From:     cfg.From,
		FromName: cfg.FromName,
	}

	switch cfg.Provider {
	case "ses":
		awsCfg, err := utils.LoadAWSConfig(ctx, cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey)
		if err != nil {
			return nil, err
		}
		client := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
			if cfg.SESEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.SESEndpoint)
			}
		})
		svc.transport = &sesTransport{client: client}
	case "smtp":
		svc.transport = &smtpTransport{
			host:     cfg.SMTPHost,
			port:     cfg.SMTPPort,
			user:     cfg.SMTPUser,
			password: cfg.SMTPPassword,
			useTLS:   cfg.SMTPUseTLS,
			timeout:  30 * time.Second,
		}
	case "log", "":
		svc.transport = logTransport{}
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}

	logging.Info().Str("provider", svc.transport.Name()).Msg("[EMAIL] Delivery configured")
	return svc, nil
}

// Send renders and delivers one notification. Failures are reported in the
// result, never as a panic or error.
func (s *EmailService) Send(ctx context.Context, userID string, event models.PlayerEvent, ec EmailContext) (res EmailResult) {
	defer func() {
		if r := recover(); r != nil {
			res = EmailResult{Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	user, err := s.Users.GetUser(ctx, userID)
	if err != nil {
		return EmailResult{Error: fmt.Sprintf("lookup recipient: %v", err)}
	}
	if user == nil || strings.TrimSpace(user.Email) == "" {
		return EmailResult{Error: "no e-mail address on file"}
	}

	msg, err := renderEmail(user, event, ec)
	if err != nil {
		return EmailResult{Error: err.Error()}
	}

	if err := s.transport.Deliver(ctx, s.fromHeader(), msg); err != nil {
		return EmailResult{Error: err.Error()}
	}
	return EmailResult{Delivered: true}
}

func (s *EmailService) fromHeader() string {
	if s.FromName == "" {
		return s.From
	}
	return fmt.Sprintf("%s <%s>", s.FromName, s.From)
}

func renderEmail(user *models.User, event models.PlayerEvent, ec EmailContext) (emailMessage, error) {
	recipient := user.DisplayName
	if recipient == "" {
		recipient = user.Email
	}
	data := struct {
		EmailContext
		Recipient string
	}{ec, recipient}

	var subjectTpl, bodyTpl *template.Template
	switch event.(type) {
	case models.GameStarted:
		subjectTpl, bodyTpl = startedSubject, startedBody
	case models.GameEnded:
		subjectTpl, bodyTpl = endedSubject, endedBody
	default:
		return emailMessage{}, fmt.Errorf("%w: %T", models.ErrInvalidEventType, event)
	}

	var subject, body strings.Builder
	if err := subjectTpl.Execute(&subject, data); err != nil {
		return emailMessage{}, fmt.Errorf("render subject: %w", err)
	}
	if err := bodyTpl.Execute(&body, data); err != nil {
		return emailMessage{}, fmt.Errorf("render body: %w", err)
	}

	return emailMessage{To: user.Email, Subject: subject.String(), Body: body.String()}, nil
}

type sesTransport struct {
	client *sesv2.Client
}

func (t *sesTransport) Name() string { return "ses" }

func (t *sesTransport) Deliver(ctx context.Context, from string, msg emailMessage) error {
	_, err := t.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &sestypes.Destination{ToAddresses: []string{msg.To}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

type smtpTransport struct {
	host     string
	port     int
	user     string
	password string
	useTLS   bool
	timeout  time.Duration
}

func (t *smtpTransport) Name() string { return "smtp" }

func (t *smtpTransport) Deliver(ctx context.Context, from string, msg emailMessage) error {
	addr := net.JoinHostPort(t.host, fmt.Sprint(t.port))

	dialer := &net.Dialer{Timeout: t.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }()

	client, err := smtp.NewClient(conn, t.host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if t.useTLS {
		if err := client.StartTLS(&tls.Config{ServerName: t.host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}
	if t.user != "" && t.password != "" {
		if err := client.Auth(smtp.PlainAuth("", t.user, t.password, t.host)); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(envelopeAddress(from)); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start message: %w", err)
	}
	if _, err := w.Write([]byte(buildMIME(from, msg))); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close message: %w", err)
	}

	_ = client.Quit()
	return nil
}

// envelopeAddress strips a display name: "Name <a@b>" -> "a@b".
func envelopeAddress(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.LastIndex(from, ">"); j > i {
			return from[i+1 : j]
		}
	}
	return from
}

func buildMIME(from string, msg emailMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return b.String()
}

// logTransport is for local development: it only logs the message.
type logTransport struct{}

func (logTransport) Name() string { return "log" }

func (logTransport) Deliver(_ context.Context, from string, msg emailMessage) error {
	logging.Info().Str("from", from).Str("to", msg.To).Str("subject", msg.Subject).Msg("[EMAIL] 📧 Would send")
	return nil
}

package notify

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/wneessen/go-mail"

	"github.com/trashmap/trashmap-api/internal/pkg/config"
)

// SMTPSender sends messages through go-mail.
type SMTPSender struct {
	client *mail.Client
	from   string
}

func NewSMTPSender(cfg config.NotifyConfig) (*SMTPSender, error) {
	port := cfg.SMTPPort
	if port <= 0 {
		port = mail.DefaultPortTLS
		log.Warnf("[Notify] SMTP port not set, using %d", port)
	}

	tlsPolicy := mail.TLSMandatory
	if !cfg.SMTPTLS {
		tlsPolicy = mail.TLSOpportunistic
	}

	opts := []mail.Option{
		mail.WithTLSPortPolicy(tlsPolicy),
		mail.WithPort(port),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create email client: %w", err)
	}

	from := cfg.From
	if from == "" {
		from = "no-reply@localhost"
		log.Warnf("[Notify] SMTP_SENDER not set, using default sender: %s", from)
	}
	return &SMTPSender{client: client, from: from}, nil
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	msg, err := s.compose(m)
	if err != nil {
		return err
	}
	return s.client.DialAndSendWithContext(ctx, msg)
}

func (s *SMTPSender) compose(m Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	msg.SetMessageID()
	msg.SetDate()
	msg.Subject(m.Subject)

	if err := msg.FromFormat("TrashMap", s.from); err != nil {
		return nil, fmt.Errorf("could not set the from address: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("could not set the operator address: %w", err)
	}
	if m.ReplyTo != "" {
		if err := msg.ReplyTo(m.ReplyTo); err != nil {
			log.Warnf("[Notify] Ignoring invalid reply-to %q: %v", m.ReplyTo, err)
		}
	}

	msg.SetBodyString(mail.TypeTextPlain, m.Text)
	if m.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	}
	return msg, nil
}

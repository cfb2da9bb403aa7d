package tools

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"

	"github.com/go-mail/mail"
)

// Message is a plain text email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer delivers a message.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

var ErrInvalidRecipient = errors.New("invalid recipient address")

// ParseRecipients splits a comma separated list and validates each address.
func ParseRecipients(list string) ([]string, error) {
	addrs, err := netmail.ParseAddressList(list)
	if err != nil || len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRecipient, list)
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Address)
	}
	return out, nil
}

var _ Mailer = (*SMTPMailer)(nil)

type SMTPMailer struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	if from == "" {
		from = user
	}
	return &SMTPMailer{Host: host, Port: port, User: user, Password: password, From: from}
}

func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := msg.From
	if from == "" {
		from = s.From
	}

	m := mail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Password)
	d.TLSConfig = &tls.Config{ServerName: s.Host}
	if s.Port == 465 {
		d.SSL = true
	}
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("[SMTPMailer Send] to %s: %w", strings.Join(msg.To, ","), err)
	}
	return nil
}

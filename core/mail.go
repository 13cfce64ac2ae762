package core

import (
	"bytes"
	"context"
	htmltmpl "html/template"
	"net/mail"
	"strings"
)

var htmlLayout = htmltmpl.Must(htmltmpl.New("email").Parse(
	`<!DOCTYPE html><html><body>{{range .}}<p>{{.}}</p>{{end}}</body></html>`,
))

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain content; also rendered as the html body

		TextContent string
		HTMLContent string
	}

	// EmailService is any service that can deliver emails.
	EmailService interface {
		// SendMessage renders and delivers msg, blocking until the provider accepted or rejected it.
		SendMessage(ctx context.Context, msg *EmailMessage) error
	}
)

func NewEmailMessage(to, subject, body string) *EmailMessage {
	return &EmailMessage{
		To:      []mail.Address{{Address: to}},
		Subject: subject,
		BodyStr: body,
	}
}

func (m *EmailMessage) Render() error {
	if m.BodyStr == "" {
		return nil
	}
	m.TextContent = m.BodyStr

	var buff bytes.Buffer
	if err := htmlLayout.Execute(&buff, strings.Split(m.BodyStr, "\n")); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

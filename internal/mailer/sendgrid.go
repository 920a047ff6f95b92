package mailer

import (
	"encoding/base64"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

type SendGridMailer struct {
	fromEmail string
	client    sender
}

func NewSendGrid(apiKey, fromEmail string) *SendGridMailer {
	return &SendGridMailer{fromEmail: fromEmail, client: sendgrid.NewSendClient(apiKey)}
}

func (m *SendGridMailer) SendQREmail(toEmail, toName, userID string) error {
	msg, err := Build(toEmail, toName, userID)
	if err != nil {
		return err
	}

	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(FromName, m.fromEmail))
	message.Subject = "Your HackUTD QR Code"

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.ToEmail))
	message.AddPersonalizations(p)
	message.AddContent(mail.NewContent("text/html", msg.HTML))

	attachment := mail.NewAttachment()
	attachment.SetContent(base64.StdEncoding.EncodeToString(msg.QRPNG))
	attachment.SetType("image/png")
	attachment.SetFilename("hackutd-qrcode.png")
	attachment.SetDisposition("attachment")
	message.AddAttachment(attachment)

	response, err := m.client.Send(message)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

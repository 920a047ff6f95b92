// Package mailer sends check-in emails with a QR code that encodes the
// hacker's user id.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"sync"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/sirupsen/logrus"
)

const (
	FromName      = "HackUTD"
	defaultName   = "Hacker"
	maxConcurrent = 10
)

//go:embed template/*
var templates embed.FS

var qrTemplate = template.Must(template.ParseFS(templates, "template/qr_email.html"))

// Client delivers a single QR email.
type Client interface {
	SendQREmail(toEmail, toName, userID string) error
}

// Message is a rendered QR email ready for delivery.
type Message struct {
	ToEmail string
	ToName  string
	HTML    string
	QRPNG   []byte
}

// Build renders the email body and the QR image for userID.
func Build(toEmail, toName, userID string) (*Message, error) {
	png, err := qrcode.Encode(userID, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("generating QR code: %w", err)
	}
	var body bytes.Buffer
	if err := qrTemplate.Execute(&body, map[string]string{"Name": toName}); err != nil {
		return nil, fmt.Errorf("executing email template: %w", err)
	}
	return &Message{ToEmail: toEmail, ToName: toName, HTML: body.String(), QRPNG: png}, nil
}

type Recipient struct {
	UserID    string
	Email     string
	FirstName *string
}

type Report struct {
	Total  int      `json:"total"`
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

// SendAll sends one QR email per recipient with bounded concurrency. Failures
// are collected, never fatal.
func SendAll(ctx context.Context, client Client, recipients []Recipient, log *logrus.Entry) Report {
	report := Report{Total: len(recipients)}
	if len(recipients) == 0 {
		return report
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, maxConcurrent)
	)
	for _, r := range recipients {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				mu.Lock()
				report.Failed++
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", r.Email, ctx.Err()))
				mu.Unlock()
				return
			}
			defer func() { <-sem }()

			name := defaultName
			if r.FirstName != nil && *r.FirstName != "" {
				name = *r.FirstName
			}
			err := client.SendQREmail(r.Email, name, r.UserID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", r.Email, err))
				log.WithError(err).WithField("email", r.Email).Error("failed to send QR email")
				return
			}
			report.Sent++
		}()
	}
	wg.Wait()
	return report
}

// LogMailer stands in when no delivery provider is configured.
type LogMailer struct {
	log *logrus.Entry
}

func NewLogMailer(log *logrus.Entry) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendQREmail(toEmail, toName, userID string) error {
	if _, err := Build(toEmail, toName, userID); err != nil {
		return err
	}
	m.log.WithFields(logrus.Fields{"email": toEmail, "user_id": userID}).Info("QR email not delivered: mailer disabled")
	return nil
}

package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var subjects = map[Event]string{
	EventRequestCreated:  "New assignment request for %s",
	EventRequestApproved: "Assignment request approved for %s",
	EventRequestRejected: "Assignment request rejected for %s",
}

var templateNames = map[Event]string{
	EventRequestCreated:  "request_created.html",
	EventRequestApproved: "request_approved.html",
	EventRequestRejected: "request_rejected.html",
}

// EmailSender sends notifications through Resend
type EmailSender struct {
	client *resend.Client
	from   string
}

func NewEmailSender(apiKey, from string) *EmailSender {
	return &EmailSender{client: resend.NewClient(apiKey), from: from}
}

func (s *EmailSender) Send(ctx context.Context, n Notification) error {
	subject, html, err := Render(n)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      n.Recipients,
		Subject: subject,
		Html:    html,
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return errors.Wrap(err, "send email")
	}
	return nil
}

// Render builds the subject and HTML body for n
func Render(n Notification) (string, string, error) {
	name, ok := templateNames[n.Event]
	if !ok {
		return "", "", errors.Errorf("no template for event %s", n.Event)
	}

	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name, n); err != nil {
		return "", "", errors.Wrapf(err, "render template %s", name)
	}
	return fmt.Sprintf(subjects[n.Event], n.ProjectName), body.String(), nil
}

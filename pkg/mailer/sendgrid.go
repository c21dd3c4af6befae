package mailer

import (
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	key  string
	from *sgmail.Email
}

// NewSendGridSender configures a SendGrid-backed sender.
func NewSendGridSender(key, fromName, fromAddress string) *SendGridSender {
	return &SendGridSender{
		key:  key,
		from: sgmail.NewEmail(fromName, fromAddress),
	}
}

// Send delivers a single message.
func (s *SendGridSender) Send(msg Message) error {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToAddress))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)

	text := msg.TextBody
	if text == "" {
		text = msg.Subject
	}
	contents := []*sgmail.Content{sgmail.NewContent("text/plain", text)}
	if msg.HTMLBody != "" {
		contents = append(contents, sgmail.NewContent("text/html", msg.HTMLBody))
	}
	m.AddContent(contents...)

	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected message: status %d", res.StatusCode)
	}
	return nil
}

// Package mailer sends transactional email. Delivery is best-effort:
// callers dispatch messages through the jobs queue and never block on
// the outcome.
package mailer

// Message is a single outbound email.
type Message struct {
	ToName    string
	ToAddress string
	Subject   string
	HTMLBody  string
	TextBody  string
}

// Sender delivers a message to one recipient.
type Sender interface {
	Send(msg Message) error
}

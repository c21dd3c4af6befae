package mailer

import "go.uber.org/zap"

// ConsoleSender logs messages instead of delivering them. Used in
// development and as the fallback when no mail backend is configured.
type ConsoleSender struct {
	logger *zap.Logger
}

// NewConsoleSender returns a logging sender.
func NewConsoleSender(logger *zap.Logger) *ConsoleSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleSender{logger: logger}
}

// Send logs the message.
func (s *ConsoleSender) Send(msg Message) error {
	s.logger.Info("email (console backend)",
		zap.String("to", msg.ToAddress),
		zap.String("subject", msg.Subject),
	)
	return nil
}

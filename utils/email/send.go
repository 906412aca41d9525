package email

import (
	"annopedia-backend/logging"
	"sync"

	"gopkg.in/gomail.v2"
)

// Sender 发送一封邮件，body 为 html 时 html 为 true。
type Sender interface {
	Send(to, subject, body string, html bool) error
}

type smtpSender struct {
	config SMTPConfig
}

func NewSMTPSender(config SMTPConfig) Sender {
	return &smtpSender{config: config}
}

func (s *smtpSender) from() string {
	if len(s.config.From) != 0 {
		return s.config.From
	}
	return s.config.UserName
}

func (s *smtpSender) Send(to, subject, body string, html bool) error {
	msg := gomail.NewMessage()

	msg.SetHeader("From", s.from())
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)

	contentType := "text/plain"
	if html {
		contentType = "text/html"
	}
	msg.SetBody(contentType, body)

	dialer := gomail.NewDialer(
		s.config.Host,
		s.config.Port,
		s.config.UserName,
		s.config.Password)

	if err := dialer.DialAndSend(msg); err != nil {
		return err
	}

	return nil
}

type logSender struct{}

func (logSender) Send(to, subject, body string, html bool) error {
	logging.Default().WithField("to", to).Infof("email disabled, drop message [%s]", subject)
	return nil
}

var (
	senderLock   sync.RWMutex
	globalSender Sender = logSender{}
)

func Init(config *Config) {
	if config.Enabled {
		SetSender(NewSMTPSender(config.SMTP))
	} else {
		SetSender(logSender{})
	}
}

// SetSender 替换全局的 Sender，测试中用于注入 Recorder。
func SetSender(sender Sender) {
	senderLock.Lock()
	defer senderLock.Unlock()
	globalSender = sender
}

func Default() Sender {
	senderLock.RLock()
	defer senderLock.RUnlock()
	return globalSender
}

func SendHtml(email string, subject string, htmlContent string) error {
	return Default().Send(email, subject, htmlContent, true)
}

func SendText(email string, subject string, content string) error {
	return Default().Send(email, subject, content, false)
}

// Package mail delivers the response confirmation message. Delivery is best
// effort: a submission never fails because the mail did not go out.
package mail

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/chedi-ouerghi/bigscreen/config"
	"github.com/chedi-ouerghi/bigscreen/log"
	"github.com/chedi-ouerghi/bigscreen/model"
)

// Sender sends the confirmation for a persisted response. resultURL is the
// deep link the respondent keeps to review their answers.
type Sender interface {
	SendConfirmation(resp model.SurveyResponse, resultURL string) error
}

// NewSender picks the SMTP sender when mail is configured, otherwise a no-op.
func NewSender(cfg config.Config) Sender {
	if !cfg.MailEnabled() {
		return Disabled{}
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		from:   cfg.MailFrom,
	}
}

type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func (s *SMTPSender) SendConfirmation(resp model.SurveyResponse, resultURL string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", resp.Email)
	m.SetHeader("Subject", "Your survey response was recorded")
	m.SetBody("text/html", fmt.Sprintf(
		"<p>Thank you for completing the survey.</p>"+
			"<p>You can review your answers at any time:</p>"+
			"<p><a href=%q>%s</a></p>"+
			"<p>Keep this link private, it is the only way to access your answers.</p>",
		resultURL, resultURL,
	))

	return s.dialer.DialAndSend(m)
}

// Disabled is used when no SMTP host is configured.
type Disabled struct{}

func (Disabled) SendConfirmation(resp model.SurveyResponse, resultURL string) error {
	log.Debugf("mail.disabled: skipping confirmation to %s", resp.Email)
	return nil
}

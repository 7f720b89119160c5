package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSendClient(apiKey, fromEmail, fromName string) *MailerSendClient {
	return &MailerSendClient{
		client: mailersend.NewMailersend(apiKey),
		from:   mailersend.From{Name: fromName, Email: fromEmail},
	}
}

func (m *MailerSendClient) SendFineNotice(toEmail, toName, eventTitle string, amount float64) error {
	subject := fmt.Sprintf("Absence recorded for %s", eventTitle)
	text := fmt.Sprintf(
		"Hi %s,\n\nYou were marked absent for %q, a mandatory event.\nAn absentee fine of %.2f has been added to your account.",
		toName, eventTitle, amount)
	html := fmt.Sprintf(`
		<h2>Absence Recorded</h2>
		<p>Hi %s,</p>
		<p>You were marked absent for <strong>%s</strong>, a mandatory event.</p>
		<p>An absentee fine of <strong>%.2f</strong> has been added to your account.</p>
	`, toName, eventTitle, amount)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)
	msg.SetText(text)
	msg.SetHTML(html)

	_, err := m.client.Email.Send(ctx, msg)
	return err
}

var _ Service = (*MailerSendClient)(nil)

package mailer

import (
	"fmt"

	"github.com/campusops/attendance-portal/pkg/logger"
)

type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendFineNotice(toEmail, toName, eventTitle string, amount float64) error {
	logger.Info("[DEV MAIL] Fine Notice",
		"to", toEmail,
		"name", toName,
		"event", eventTitle,
		"amount", amount,
	)

	fmt.Printf("\n"+
		"=================================================================\n"+
		"FINE NOTICE (DEV MODE)\n"+
		"=================================================================\n"+
		"To: %s (%s)\n"+
		"Subject: Absence recorded for %s\n"+
		"\n"+
		"You were marked absent for %q, a mandatory event.\n"+
		"An absentee fine of %.2f has been added to your account.\n"+
		"=================================================================\n\n",
		toEmail, toName, eventTitle, eventTitle, amount)

	return nil
}

var _ Service = (*DevMailer)(nil)

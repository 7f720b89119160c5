package mailer

// Service sends student-facing notices. Implementations must be safe for
// concurrent use by the notify worker.
type Service interface {
	SendFineNotice(toEmail, toName, eventTitle string, amount float64) error
}

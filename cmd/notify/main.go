package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/campusops/attendance-portal/internal/mailer"
	"github.com/campusops/attendance-portal/pkg/config"
	"github.com/campusops/attendance-portal/pkg/events"
	"github.com/campusops/attendance-portal/pkg/logger"
	"github.com/joho/godotenv"
)

// The notify worker turns absence events into fine notice emails. It runs
// separately from the API so a slow mail provider never blocks finalize.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	var mail mailer.Service
	switch {
	case cfg.Email.DevMode:
		mail = mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		mail = mailer.NewMailerSendClient(cfg.Email.MailerSendKey, cfg.Email.SMTPFrom, "Campus Events")
	default:
		mail = mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass)
	}

	err = eventBus.QueueSubscribe(events.AbsenceMarked, "notify", func(msg *events.Message) {
		var evt events.AbsenceMarkedEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			logger.Error("Failed to decode absence event", "error", err)
			return
		}
		if evt.PenaltyAmount <= 0 || evt.StudentEmail == "" {
			return
		}
		if err := mail.SendFineNotice(evt.StudentEmail, evt.StudentName, evt.EventTitle, evt.PenaltyAmount); err != nil {
			logger.Error("Failed to send fine notice", "error", err, "student_id", evt.StudentID)
			return
		}
		logger.Info("Fine notice sent", "student_id", evt.StudentID, "event_id", evt.EventID)
	})
	if err != nil {
		logger.Error("Failed to subscribe", "error", err)
		os.Exit(1)
	}

	logger.Info("Notify worker started", "subject", events.AbsenceMarked)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down notify worker...")
}

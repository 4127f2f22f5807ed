package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"taskie/backend/internal/recon"
	"taskie/backend/internal/reports"
)

// Mailer delivers rendered report and reminder messages. The default
// implementation only logs; a real SMTP sender slots in behind it.
type Mailer interface {
	Send(to, subject, body string) error
}

type LogMailer struct{}

func (LogMailer) Send(to, subject, body string) error {
	log.Printf("Sending mail to %s: %s\n%s", to, subject, body)
	return nil
}

func payloadString(job *Job, key string) (string, error) {
	value, ok := job.Payload[key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("job %s missing payload field %q", job.ID, key)
	}
	return value, nil
}

// NewReportEmailHandler loads the owner's tasks, builds the summary and
// mails the rendered report.
func NewReportEmailHandler(svc *recon.Service, mailer Mailer) JobHandler {
	return func(ctx context.Context, job *Job) error {
		ownerID, err := payloadString(job, "owner_id")
		if err != nil {
			return err
		}
		to, err := payloadString(job, "to")
		if err != nil {
			return err
		}

		tasks, err := svc.Load(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("failed to load tasks for report: %w", err)
		}

		summary := reports.Build(ownerID, tasks, time.Now())
		subject := fmt.Sprintf("Task report %s", summary.GeneratedAt.Format("2006-01-02"))
		return mailer.Send(to, subject, reports.RenderText(summary))
	}
}

// NewTaskReminderHandler mails a single due-date reminder.
func NewTaskReminderHandler(mailer Mailer) JobHandler {
	return func(ctx context.Context, job *Job) error {
		to, err := payloadString(job, "to")
		if err != nil {
			return err
		}
		title, err := payloadString(job, "title")
		if err != nil {
			return err
		}
		dueDate, _ := job.Payload["due_date"].(string)

		body := fmt.Sprintf("Reminder: %q is waiting on you.", title)
		if dueDate != "" {
			body = fmt.Sprintf("Reminder: %q is due %s.", title, dueDate)
		}
		return mailer.Send(to, "Task reminder: "+title, body)
	}
}

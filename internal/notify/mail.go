package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// Mailer sends lifecycle notifications over SMTP. Zone managers receive
// upload and outcome notices for their zone; the approver receives
// ready-for-approval and outcome notices.
type Mailer struct {
	client        *mail.Client
	from          string
	approverEmail string
	managerEmail  func(zoneID int) string
}

func NewMailer(host string, port int, user, pass, from, approverEmail string, managerEmail func(int) string) (*Mailer, error) {
	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(user),
		mail.WithPassword(pass),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return &Mailer{
		client:        client,
		from:          from,
		approverEmail: approverEmail,
		managerEmail:  managerEmail,
	}, nil
}

func (m *Mailer) Send(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventWorkCreated:
		return m.send(ctx, m.managerEmail(ev.ZoneID),
			fmt.Sprintf("Before Photo Uploaded - Zone %d", ev.ZoneID),
			fmt.Sprintf(`<h2>Before Photo Uploaded</h2>
<p><strong>Zone:</strong> %d</p>
<p><strong>Work Type:</strong> %s</p>
<p><strong>Upload Time:</strong> %s</p>
<p><strong>Photo Timestamp:</strong> %s</p>`,
				ev.ZoneID, ev.WorkType, ev.OccurredAt.Format("02 Jan 2006 15:04"),
				ev.CapturedAt.Format("02 Jan 2006 15:04")))

	case EventAfterPhotoSubmitted:
		return m.send(ctx, m.approverEmail,
			fmt.Sprintf("Work Ready for Approval - Zone %d", ev.ZoneID),
			fmt.Sprintf(`<h2>Work Ready for Approval</h2>
<p><strong>Zone:</strong> %d</p>
<p><strong>Work Type:</strong> %s</p>
<p><strong>Status:</strong> Ready for CEO approval</p>
<p><strong>Upload Time:</strong> %s</p>
<p><strong>Photo Timestamp:</strong> %s</p>`,
				ev.ZoneID, ev.WorkType, ev.OccurredAt.Format("02 Jan 2006 15:04"),
				ev.CapturedAt.Format("02 Jan 2006 15:04")))

	case EventWorkApproved, EventWorkRejected:
		outcome := "Approved"
		status := "complete"
		if ev.Kind == EventWorkRejected {
			outcome = "Rejected"
			status = "rejected"
		}
		comment := ev.Comment
		if comment == "" {
			comment = "No comment provided"
		}

		err := m.send(ctx, m.approverEmail,
			fmt.Sprintf("Work %s - Zone %d", outcome, ev.ZoneID),
			fmt.Sprintf(`<h2>Work %s</h2>
<p><strong>Zone:</strong> %d</p>
<p><strong>Status:</strong> %s</p>
<p><strong>Comment:</strong> %s</p>
<p><strong>Date:</strong> %s</p>`,
				outcome, ev.ZoneID, status, comment, ev.OccurredAt.Format("02 Jan 2006 15:04")))
		if err != nil {
			return err
		}

		return m.send(ctx, m.managerEmail(ev.ZoneID),
			fmt.Sprintf("Work %s - Please Review", outcome),
			fmt.Sprintf(`<h2>Work %s</h2>
<p>Your work in zone %d has been %s.</p>
<p><strong>Comment:</strong> %s</p>
<p><strong>Date:</strong> %s</p>`,
				outcome, ev.ZoneID, status, comment, ev.OccurredAt.Format("02 Jan 2006 15:04")))

	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}

func (m *Mailer) send(ctx context.Context, to, subject, html string) error {
	if to == "" {
		return fmt.Errorf("no recipient configured for %q", subject)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.from, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send %q to %s: %w", subject, to, err)
	}
	return nil
}

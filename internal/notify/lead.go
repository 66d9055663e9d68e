package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/hairloss-doctor/internal/leads"
	"github.com/wolfman30/hairloss-doctor/pkg/logging"
)

// LeadNotifier emails the clinic inbox whenever a consultation request arrives.
type LeadNotifier struct {
	email  EmailSender
	to     string
	logger *logging.Logger
}

// NewLeadNotifier builds a notifier. An empty recipient disables delivery.
func NewLeadNotifier(email EmailSender, to string, logger *logging.Logger) *LeadNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadNotifier{email: email, to: strings.TrimSpace(to), logger: logger}
}

// NotifyNewLead implements leads.Notifier.
func (n *LeadNotifier) NotifyNewLead(ctx context.Context, lead *leads.Lead) error {
	if n == nil || n.email == nil || n.to == "" || lead == nil {
		return nil
	}
	msg := LeadEmail(lead)
	msg.To = n.to
	if err := n.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: lead %s: %w", lead.ID, err)
	}
	n.logger.Debug("lead notification sent", "lead_id", lead.ID)
	return nil
}

// LeadEmail renders the notification for a lead. To is left blank.
func LeadEmail(lead *leads.Lead) EmailMessage {
	subject := fmt.Sprintf("New consultation request: %s", lead.Name)
	if lead.HairLossType != "" {
		subject += " (" + lead.HairLossType + ")"
	}

	rows := [][2]string{
		{"Name", lead.Name},
		{"Email", lead.Email},
		{"Phone", lead.Phone},
		{"Source", string(lead.Source)},
		{"Assessment", lead.HairLossType},
		{"Preferred time", lead.PreferredTime},
		{"Message", lead.Message},
		{"Received", lead.CreatedAt.UTC().Format("2006-01-02 15:04 MST")},
	}

	var text, markup strings.Builder
	markup.WriteString("<table>")
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		fmt.Fprintf(&text, "%s: %s\n", row[0], row[1])
		fmt.Fprintf(&markup, "<tr><th align=\"left\">%s</th><td>%s</td></tr>", row[0], html.EscapeString(row[1]))
	}
	markup.WriteString("</table>")

	return EmailMessage{
		Subject: subject,
		Body:    text.String(),
		HTML:    markup.String(),
	}
}

var _ leads.Notifier = (*LeadNotifier)(nil)

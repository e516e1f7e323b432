package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/tideraider/surf-alert-server/internal/alert"
	"github.com/tideraider/surf-alert-server/pkg/config"
)

// EmailNotifier sends email notifications
type EmailNotifier struct {
	config *config.SMTPConfig
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.SMTPConfig) *EmailNotifier {
	return &EmailNotifier{config: cfg}
}

var matchTemplate = template.Must(template.New("match").Parse(`
Surf's Up - {{.Label}}
======================

Alert: {{.AlertName}}
{{if .Rating}}Rating: {{.ActualStars}} stars today (your threshold: {{.RequiredStars}})
{{else}}Conditions:
{{range .Properties}}{{if .DataMissing}}  - {{.Property}}: no data (target {{printf "%.1f" .TargetValue}})
{{else}}  - {{.Property}}: {{printf "%.1f" .ActualValue}} (target {{printf "%.1f" .TargetValue}}, off by {{printf "%.1f" .Difference}})
{{end}}{{end}}{{end}}
{{.Summary}}

Go get it.

---
Tide Raider Alerts
`))

type matchEmailData struct {
	AlertName     string
	Label         string
	Rating        bool
	ActualStars   int
	RequiredStars int
	Properties    []alert.PropertyComparison
	Summary       string
}

// RenderMatchBody renders the notification body for a matched alert from the
// matcher's per-property breakdown.
func RenderMatchBody(match alert.MatchResult, a *alert.Alert, label string) (string, error) {
	data := matchEmailData{
		AlertName:     a.Name,
		Label:         label,
		Rating:        a.Type == alert.TypeRating,
		ActualStars:   match.ActualStars,
		RequiredStars: match.RequiredStars,
		Properties:    match.Properties,
		Summary:       match.Summary,
	}

	var buf bytes.Buffer
	if err := matchTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render match template: %w", err)
	}
	return buf.String(), nil
}

// SendEmail sends one message. When SMTP is not configured the message is
// logged instead and the send counts as successful.
func (e *EmailNotifier) SendEmail(to, subject, body string) error {
	if e.config.Username == "" || e.config.Password == "" {
		fmt.Printf("SMTP not configured, skipping email:\nTo: %s\nSubject: %s\n%s\n", to, subject, body)
		return nil
	}

	// Construct message
	message := fmt.Sprintf("From: %s\r\n", e.config.From)
	message += fmt.Sprintf("To: %s\r\n", to)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	message += "\r\n"
	message += body

	// Setup authentication
	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)

	// Send email
	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	if err := smtp.SendMail(addr, auth, e.config.From, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	fmt.Printf("Email sent successfully: %s\n", subject)
	return nil
}

// TestConnection tests the SMTP connection
func (e *EmailNotifier) TestConnection() error {
	if e.config.Username == "" {
		return fmt.Errorf("SMTP not configured")
	}

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	fmt.Println("SMTP connection test successful")
	return nil
}

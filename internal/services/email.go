package services

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/Conceptual-Machines/ideaforge-api/internal/config"
	"github.com/Conceptual-Machines/ideaforge-api/internal/logger"
	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
	"github.com/aws/aws-sdk-go/aws"                 //nolint:staticcheck // TODO: Migrate to aws-sdk-go-v2
	"github.com/aws/aws-sdk-go/aws/session"         //nolint:staticcheck
	"github.com/aws/aws-sdk-go/service/ses"         //nolint:staticcheck
	"github.com/aws/aws-sdk-go/service/ses/sesiface" //nolint:staticcheck
)

const emailCharset = "UTF-8"

// EmailService sends transactional mail through SES. With no sender
// configured it logs and skips sending.
type EmailService struct {
	cfg       *config.Config
	sesClient sesiface.SESAPI
}

func NewEmailService(cfg *config.Config) *EmailService {
	sess := session.Must(session.NewSession(&aws.Config{
		Region: aws.String(cfg.AWSRegion),
	}))
	return NewEmailServiceWithClient(cfg, ses.New(sess))
}

// NewEmailServiceWithClient uses the given SES client.
func NewEmailServiceWithClient(cfg *config.Config, client sesiface.SESAPI) *EmailService {
	return &EmailService{cfg: cfg, sesClient: client}
}

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Welcome to IdeaForge</title></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1 style="color: #1f2937;">Welcome, {{.Name}}!</h1>
    <p style="color: #4b5563; line-height: 1.6;">
        Your IdeaForge workspace is ready. Start from a topic, let IdeaForge find the research
        gaps, and move the best ideas through your R&amp;D pipeline.
    </p>
    <p style="color: #4b5563;">You have {{.Credits}} generation credits on the {{.Plan}} plan.</p>
    <p><a href="{{.DashboardURL}}" style="color: #2563eb;">Open your dashboard</a></p>
</body>
</html>`))

var demoRequestTemplate = template.Must(template.New("demo").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
    <h2>New demo request</h2>
    <table>
        <tr><td><b>Name</b></td><td>{{.Name}}</td></tr>
        <tr><td><b>Email</b></td><td>{{.Email}}</td></tr>
        <tr><td><b>Organization</b></td><td>{{.Organization}}</td></tr>
        <tr><td><b>Team size</b></td><td>{{.TeamSize}}</td></tr>
    </table>
    {{if .Message}}<p style="white-space: pre-wrap;">{{.Message}}</p>{{end}}
    <p style="color: #9ca3af; font-size: 12px;">Request {{.ID}}</p>
</body>
</html>`))

// SendWelcomeEmail greets a newly registered user.
func (s *EmailService) SendWelcomeEmail(user *models.User, credits int) error {
	plan := user.Plan
	if p, ok := models.PlanByID(user.Plan); ok {
		plan = p.Name
	}

	var html bytes.Buffer
	if err := welcomeTemplate.Execute(&html, map[string]any{
		"Name":         user.Name,
		"Credits":      credits,
		"Plan":         plan,
		"DashboardURL": s.cfg.BaseURL + "/dashboard",
	}); err != nil {
		return err
	}

	text := fmt.Sprintf(`Welcome to IdeaForge, %s!

Your workspace is ready. You have %d generation credits on the %s plan.

Open your dashboard: %s/dashboard
`, user.Name, credits, plan, s.cfg.BaseURL)

	return s.send(user.Email, "Welcome to IdeaForge", html.String(), text)
}

// SendDemoRequestNotification forwards a demo request to the sales inbox.
func (s *EmailService) SendDemoRequestNotification(req *models.DemoRequest) error {
	if s.cfg.SalesEmail == "" {
		logger.Warn("Demo request not forwarded: no sales address configured", logger.Fields{"demo_request_id": req.ID})
		return nil
	}

	var html bytes.Buffer
	if err := demoRequestTemplate.Execute(&html, req); err != nil {
		return err
	}

	text := fmt.Sprintf("New demo request\n\nName: %s\nEmail: %s\nOrganization: %s\nTeam size: %s\n\n%s\n",
		req.Name, req.Email, req.Organization, req.TeamSize, req.Message)

	subject := fmt.Sprintf("Demo request: %s", req.Organization)
	if req.Organization == "" {
		subject = fmt.Sprintf("Demo request: %s", req.Name)
	}
	return s.send(s.cfg.SalesEmail, subject, html.String(), text)
}

func (s *EmailService) send(to, subject, html, text string) error {
	if s.cfg.SenderEmail == "" || s.sesClient == nil {
		logger.Info("Email sending disabled, skipping", logger.Fields{"to": to, "subject": subject})
		return nil
	}

	input := &ses.SendEmailInput{
		Source: aws.String(s.cfg.SenderEmail),
		Destination: &ses.Destination{
			ToAddresses: []*string{aws.String(to)},
		},
		Message: &ses.Message{
			Subject: &ses.Content{
				Data:    aws.String(subject),
				Charset: aws.String(emailCharset),
			},
			Body: &ses.Body{
				Html: &ses.Content{
					Data:    aws.String(html),
					Charset: aws.String(emailCharset),
				},
				Text: &ses.Content{
					Data:    aws.String(text),
					Charset: aws.String(emailCharset),
				},
			},
		},
	}

	if _, err := s.sesClient.SendEmail(input); err != nil {
		return fmt.Errorf("send email %q: %w", subject, err)
	}
	return nil
}

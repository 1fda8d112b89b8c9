// Package mail sends user notifications through SendGrid.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/sakif/interview-me/internal/model"
)

// Notifier tells users about finished work.
type Notifier interface {
	FeedbackReady(ctx context.Context, user *model.User, interview *model.Interview, feedback *model.Feedback) error
}

// Nop is the Notifier used when mail is not configured.
type Nop struct{}

func (Nop) FeedbackReady(context.Context, *model.User, *model.Interview, *model.Feedback) error {
	return nil
}

// sender is the part of *sendgrid.Client the notifier uses.
type sender interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// SendGrid delivers mail with the SendGrid v3 API.
type SendGrid struct {
	client    sender
	from      *sgmail.Email
	publicURL string
	logger    *slog.Logger
}

// NewSendGrid returns Nop when apiKey is empty.
func NewSendGrid(apiKey, fromAddress, fromName, publicURL string, logger *slog.Logger) Notifier {
	if apiKey == "" {
		return Nop{}
	}
	return newSendGrid(sendgrid.NewSendClient(apiKey), fromAddress, fromName, publicURL, logger)
}

func newSendGrid(client sender, fromAddress, fromName, publicURL string, logger *slog.Logger) *SendGrid {
	return &SendGrid{
		client:    client,
		from:      sgmail.NewEmail(fromName, fromAddress),
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}
}

func (s *SendGrid) FeedbackReady(ctx context.Context, user *model.User, interview *model.Interview, feedback *model.Feedback) error {
	if user == nil || user.Email == "" {
		return nil
	}

	link := fmt.Sprintf("%s/interview/%s/feedback", s.publicURL, interview.ID)
	subject := fmt.Sprintf("Your %s interview feedback is ready", interview.Role)
	text := fmt.Sprintf(
		"Hi %s,\n\nYou scored %d/100 in your %s interview.\n\n%s\n\nSee the full breakdown: %s\n",
		user.Name, feedback.TotalScore, interview.Role, feedback.FinalAssessment, link,
	)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>You scored <strong>%d/100</strong> in your %s interview.</p><p>%s</p><p><a href=%q>See the full breakdown</a></p>",
		escape(user.Name), feedback.TotalScore, escape(interview.Role), escape(feedback.FinalAssessment), link,
	)

	msg := sgmail.NewSingleEmail(s.from, subject, sgmail.NewEmail(user.Name, user.Email), text, html)
	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("mail: sending feedback email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("mail: sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}

	s.logger.Info("feedback email sent",
		slog.String("userID", user.ID),
		slog.String("interviewID", interview.ID),
	)
	return nil
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&#34;", "'", "&#39;")

func escape(s string) string { return htmlEscaper.Replace(s) }

// internal/notify/email.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/cenkalti/backoff"
	"github.com/google/uuid"

	apperrors "hosting-assessment/internal/common/errors"
	"hosting-assessment/internal/common/logger"
	"hosting-assessment/internal/common/metrics"
	"hosting-assessment/internal/models"
	"hosting-assessment/internal/render"
	"hosting-assessment/internal/scoring"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Config struct {
	FromEmail     string
	ReviewerEmail string
	SNSTopicARN   string
	MaxRetries    int
	Timeout       time.Duration
	// InitialInterval is the first retry delay; zero means the backoff default.
	InitialInterval time.Duration
}

// EmailNotifier sends lifecycle emails through SES and, when a topic is configured,
// publishes submission events to SNS.
type EmailNotifier struct {
	config   Config
	ses      SESService
	sns      SNSService
	renderer *render.Renderer
	logger   logger.Logger
	now      func() time.Time
}

func NewEmailNotifier(cfg Config, sesClient SESService, snsClient SNSService, renderer *render.Renderer, log logger.Logger) *EmailNotifier {
	if renderer == nil {
		renderer = render.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &EmailNotifier{
		config:   cfg,
		ses:      sesClient,
		sns:      snsClient,
		renderer: renderer,
		logger:   log.WithFields(map[string]interface{}{"notifier": "email"}),
		now:      time.Now,
	}
}

func (n *EmailNotifier) NotifySubmission(ctx context.Context, agency models.AgencyInfo, result *scoring.Result, reviewURL string) bool {
	reportHTML, err := n.renderer.HTML(result)
	if err != nil {
		n.logger.Warn("html report failed, sending text only", map[string]interface{}{"error": err})
		reportHTML = ""
	}

	msg, err := build(models.NotificationSubmission, map[string]string{
		"agencyName":   agency.AgencyName,
		"contactName":  agency.ContactName,
		"contactEmail": agency.ContactEmail,
		"department":   agency.Department,
		"report":       n.renderer.Text(result),
		"reviewUrl":    reviewURL,
	}, map[string]string{"reportHtml": reportHTML})
	if err != nil {
		return n.record(models.Notification{Kind: models.NotificationSubmission, Channel: "email"}, err)
	}

	ok := n.sendEmail(ctx, models.NotificationSubmission, n.config.ReviewerEmail, msg)

	if n.sns != nil && n.config.SNSTopicARN != "" {
		ok = n.publish(ctx, agency, result, reviewURL) && ok
	}
	return ok
}

func (n *EmailNotifier) NotifyConfirmation(ctx context.Context, contactEmail string, result *scoring.Result) bool {
	var reasons, reasonsHTML strings.Builder
	if len(result.Explanations) > 0 {
		reasons.WriteString("Reasoning for recommendation:\n")
		reasonsHTML.WriteString("<ul>")
		for _, r := range result.Explanations {
			fmt.Fprintf(&reasons, "- %s\n", r)
			fmt.Fprintf(&reasonsHTML, "<li>%s</li>", html.EscapeString(r))
		}
		reasons.WriteString("\n")
		reasonsHTML.WriteString("</ul>")
	}

	msg, err := build(models.NotificationConfirmation, map[string]string{
		"recommendation": result.Recommendation.Label(),
		"scores":         render.ScoreLine(result.Scores),
		"reasons":        reasons.String(),
	}, map[string]string{"reasonsHtml": reasonsHTML.String()})
	if err != nil {
		return n.record(models.Notification{Kind: models.NotificationConfirmation, Channel: "email"}, err)
	}
	return n.sendEmail(ctx, models.NotificationConfirmation, contactEmail, msg)
}

func (n *EmailNotifier) NotifyDecision(ctx context.Context, contactEmail, agencyName string, decision models.Status, notes string) bool {
	if notes == "" {
		notes = "(none)"
	}
	msg, err := build(models.NotificationDecision, map[string]string{
		"agencyName":    agencyName,
		"decision":      capitalize(string(decision)),
		"decisionLower": string(decision),
		"notes":         notes,
	}, nil)
	if err != nil {
		return n.record(models.Notification{Kind: models.NotificationDecision, Channel: "email"}, err)
	}
	return n.sendEmail(ctx, models.NotificationDecision, contactEmail, msg)
}

func (n *EmailNotifier) sendEmail(ctx context.Context, kind models.NotificationKind, to string, msg message) bool {
	note := models.Notification{
		ID:        uuid.New().String(),
		Kind:      kind,
		Recipient: to,
		Channel:   "email",
		Subject:   msg.Subject,
	}
	if to == "" {
		return n.record(note, fmt.Errorf("no recipient address"))
	}

	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Text)},
				Html: &types.Content{Data: aws.String(msg.HTML)},
			},
		},
		Source: aws.String(n.config.FromEmail),
	}

	err := n.retry(ctx, string(kind), func(ctx context.Context) error {
		out, err := n.ses.SendEmail(ctx, input)
		if err != nil {
			return err
		}
		if out != nil && out.MessageId != nil {
			note.MessageID = *out.MessageId
		}
		return nil
	})
	return n.record(note, err)
}

type submissionEvent struct {
	Event          string              `json:"event"`
	AgencyName     string              `json:"agencyName"`
	ContactEmail   string              `json:"contactEmail"`
	Recommendation scoring.Platform    `json:"recommendation"`
	Scores         scoring.ScoreVector `json:"scores"`
	ReviewURL      string              `json:"reviewUrl"`
}

func (n *EmailNotifier) publish(ctx context.Context, agency models.AgencyInfo, result *scoring.Result, reviewURL string) bool {
	note := models.Notification{
		ID:        uuid.New().String(),
		Kind:      models.NotificationSubmission,
		Recipient: n.config.SNSTopicARN,
		Channel:   "sns",
	}

	body, err := json.Marshal(submissionEvent{
		Event:          "assessment.submitted",
		AgencyName:     agency.AgencyName,
		ContactEmail:   agency.ContactEmail,
		Recommendation: result.Recommendation,
		Scores:         result.Scores,
		ReviewURL:      reviewURL,
	})
	if err != nil {
		return n.record(note, err)
	}

	err = n.retry(ctx, "sns", func(ctx context.Context) error {
		out, err := n.sns.Publish(ctx, &sns.PublishInput{
			TopicArn: aws.String(n.config.SNSTopicARN),
			Subject:  aws.String("Hosting assessment submitted"),
			Message:  aws.String(string(body)),
		})
		if err != nil {
			return err
		}
		if out != nil && out.MessageId != nil {
			note.MessageID = *out.MessageId
		}
		return nil
	})
	return n.record(note, err)
}

// retry runs op with exponential backoff, up to MaxRetries retries after the first try.
// Each attempt gets its own timeout.
func (n *EmailNotifier) retry(ctx context.Context, what string, op func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	if n.config.InitialInterval > 0 {
		bo.InitialInterval = n.config.InitialInterval
	}
	bo.MaxElapsedTime = 0

	retries := n.config.MaxRetries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(retries)), ctx)

	return backoff.RetryNotify(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, n.config.Timeout)
		defer cancel()
		return op(attemptCtx)
	}, policy, func(err error, wait time.Duration) {
		n.logger.Warn("notification attempt failed, retrying", map[string]interface{}{
			"channel": what,
			"error":   err,
			"wait":    wait.String(),
		})
	})
}

// record logs and counts the outcome and reports whether it succeeded.
func (n *EmailNotifier) record(note models.Notification, err error) bool {
	fields := map[string]interface{}{
		"notificationId": note.ID,
		"kind":           string(note.Kind),
		"channel":        note.Channel,
		"recipient":      note.Recipient,
	}

	if err != nil {
		note.Status = "failed"
		note.Error = err.Error()
		metrics.NotificationsSent.WithLabelValues(string(note.Kind), note.Status).Inc()
		fields["error"] = apperrors.NewNotificationSendFailedError(string(note.Kind), err)
		n.logger.Error("Notification failed", fields)
		return false
	}

	note.Status = "sent"
	note.SentAt = n.now().UTC().Format(time.RFC3339)
	metrics.NotificationsSent.WithLabelValues(string(note.Kind), note.Status).Inc()
	fields["messageId"] = note.MessageID
	n.logger.Info("Notification sent", fields)
	return true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

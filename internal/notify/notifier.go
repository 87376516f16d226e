// Package notify delivers lead alerts to the sales team. Delivery is
// best-effort: a failed notification is logged and reported, never allowed to
// fail the intake cycle that triggered it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wneessen/go-mail"

	"sales_command_center/internal/leads/domain"
	"sales_command_center/platform/config"
	"sales_command_center/platform/logger"
)

const webhookTimeout = 10 * time.Second

// LeadNotification describes a newly created lead for the team channel.
type LeadNotification struct {
	Category       string
	JobNumber      string
	CustomerName   string
	CustomerPhone  string
	Address        string
	TechnicianName string
	AgentName      string
	ScheduledAt    time.Time
	Summary        string
	NextUp         string
}

// Delivery reports how a notification went out. Channel is empty when
// nothing was delivered.
type Delivery struct {
	Delivered bool   `json:"delivered"`
	Channel   string `json:"channel,omitempty"`
}

// Notifier posts lead alerts to per-category Slack webhooks, falling back to
// email when a webhook is down or unconfigured.
type Notifier struct {
	cfg        config.NotifierConfig
	httpClient *http.Client
	log        *logger.Logger

	// sendMail is swappable for tests; defaults to SMTP via go-mail.
	sendMail func(subject, body string) error
}

// New creates a notifier.
func New(cfg config.NotifierConfig, log *logger.Logger) *Notifier {
	n := &Notifier{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: webhookTimeout},
		log:        log,
	}
	n.sendMail = n.sendSMTP
	return n
}

// webhookFor picks the category channel, falling back to the default webhook.
func (n *Notifier) webhookFor(category string) string {
	var url string
	switch category {
	case domain.CategoryMarketed:
		url = n.cfg.GetSlackWebhookMarketed()
	case domain.CategoryTechGenerated:
		url = n.cfg.GetSlackWebhookTechGenerated()
	}
	if url == "" {
		url = n.cfg.GetSlackWebhookDefault()
	}
	return url
}

// NotifyNewLead announces a lead. Slack first, email second; both failing
// yields an undelivered result, never an error.
func (n *Notifier) NotifyNewLead(ctx context.Context, notification LeadNotification) Delivery {
	payload := leadBlocks(notification)
	if n.postWebhook(ctx, n.webhookFor(notification.Category), payload) {
		return Delivery{Delivered: true, Channel: "slack"}
	}
	if n.emailFallback(notification) {
		return Delivery{Delivered: true, Channel: "email"}
	}
	return Delivery{}
}

func (n *Notifier) postWebhook(ctx context.Context, url string, payload map[string]interface{}) bool {
	if url == "" {
		return false
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.log.NotifyFailed("slack", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		n.log.NotifyFailed("slack", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.log.NotifyFailed("slack", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.log.NotifyFailed("slack", fmt.Errorf("webhook returned status %d", resp.StatusCode))
		return false
	}
	return true
}

func (n *Notifier) emailFallback(notification LeadNotification) bool {
	if !n.cfg.IsAlertEmailEnabled() {
		return false
	}

	subject := fmt.Sprintf("%s: %s", domain.CategoryLabel(notification.Category), notification.CustomerName)
	if err := n.sendMail(subject, leadEmailBody(notification)); err != nil {
		n.log.NotifyFailed("email", err)
		return false
	}
	return true
}

func (n *Notifier) sendSMTP(subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.GetAlertEmailFrom()); err != nil {
		return err
	}
	if err := msg.To(n.cfg.GetAlertEmailTo()); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(n.cfg.GetSMTPHost(),
		mail.WithPort(n.cfg.GetSMTPPort()),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.cfg.GetSMTPUsername()),
		mail.WithPassword(n.cfg.GetSMTPPassword()),
	)
	if err != nil {
		return err
	}
	return client.DialAndSend(msg)
}

// leadBlocks renders the Block Kit payload for a new lead, with a plain-text
// fallback for clients that cannot render blocks.
func leadBlocks(n LeadNotification) map[string]interface{} {
	label := domain.CategoryLabel(n.Category)

	fields := []map[string]interface{}{
		mrkdwnField("Customer", n.CustomerName),
	}
	if n.CustomerPhone != "" {
		fields = append(fields, mrkdwnField("Phone", n.CustomerPhone))
	}
	if n.Address != "" {
		fields = append(fields, mrkdwnField("Address", n.Address))
	}
	if n.JobNumber != "" {
		fields = append(fields, mrkdwnField("Job", n.JobNumber))
	}
	if n.TechnicianName != "" {
		fields = append(fields, mrkdwnField("Turned over by", n.TechnicianName))
	}
	if n.AgentName != "" {
		fields = append(fields, mrkdwnField("Assigned to", n.AgentName))
	}
	if !n.ScheduledAt.IsZero() {
		fields = append(fields, mrkdwnField("Scheduled", n.ScheduledAt.Format("Mon Jan 2, 3:04 PM")))
	}

	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]interface{}{"type": "plain_text", "text": ":rotating_light: New " + label, "emoji": true},
		},
		{"type": "section", "fields": fields},
	}
	var elements []map[string]interface{}
	if n.Summary != "" {
		elements = append(elements, map[string]interface{}{"type": "mrkdwn", "text": n.Summary})
	}
	if n.NextUp != "" {
		elements = append(elements, map[string]interface{}{"type": "mrkdwn", "text": n.NextUp})
	}
	if len(elements) > 0 {
		blocks = append(blocks, map[string]interface{}{
			"type":     "context",
			"elements": elements,
		})
	}

	return map[string]interface{}{
		"text":   fmt.Sprintf("New %s: %s", label, n.CustomerName),
		"blocks": blocks,
	}
}

func mrkdwnField(label, value string) map[string]interface{} {
	return map[string]interface{}{
		"type": "mrkdwn",
		"text": fmt.Sprintf("*%s:*\n%s", label, value),
	}
}

func leadEmailBody(n LeadNotification) string {
	body := fmt.Sprintf("New %s\n\nCustomer: %s\n", domain.CategoryLabel(n.Category), n.CustomerName)
	if n.CustomerPhone != "" {
		body += "Phone: " + n.CustomerPhone + "\n"
	}
	if n.Address != "" {
		body += "Address: " + n.Address + "\n"
	}
	if n.JobNumber != "" {
		body += "Job: " + n.JobNumber + "\n"
	}
	if n.TechnicianName != "" {
		body += "Turned over by: " + n.TechnicianName + "\n"
	}
	if n.AgentName != "" {
		body += "Assigned to: " + n.AgentName + "\n"
	}
	if n.NextUp != "" {
		body += n.NextUp + "\n"
	}
	return body
}

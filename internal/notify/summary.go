package notify

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// DailySummary aggregates a day of pipeline activity for the evening recap.
type DailySummary struct {
	Date             time.Time
	NewMarketed      int
	NewTechGenerated int
	StageCounts      map[string]int
	SoldValue        float64
}

// SendDailySummary posts the recap to the default team channel. Like lead
// alerts, delivery is best-effort.
func (n *Notifier) SendDailySummary(ctx context.Context, summary DailySummary) Delivery {
	payload := summaryBlocks(summary)
	if n.postWebhook(ctx, n.cfg.GetSlackWebhookDefault(), payload) {
		return Delivery{Delivered: true, Channel: "slack"}
	}
	if n.cfg.IsAlertEmailEnabled() {
		subject := "Daily pipeline summary " + summary.Date.Format("2006-01-02")
		if err := n.sendMail(subject, summaryEmailBody(summary)); err == nil {
			return Delivery{Delivered: true, Channel: "email"}
		} else {
			n.log.NotifyFailed("email", err)
		}
	}
	return Delivery{}
}

func summaryBlocks(s DailySummary) map[string]interface{} {
	fields := []map[string]interface{}{
		mrkdwnField("New marketed leads", fmt.Sprint(s.NewMarketed)),
		mrkdwnField("New tech generated leads", fmt.Sprint(s.NewTechGenerated)),
		mrkdwnField("Sold value", fmt.Sprintf("$%.2f", s.SoldValue)),
	}

	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]interface{}{
				"type":  "plain_text",
				"text":  ":bar_chart: Pipeline summary " + s.Date.Format("Jan 2"),
				"emoji": true,
			},
		},
		{"type": "section", "fields": fields},
	}

	if len(s.StageCounts) > 0 {
		blocks = append(blocks, map[string]interface{}{
			"type": "context",
			"elements": []map[string]interface{}{
				{"type": "mrkdwn", "text": stageBreakdown(s.StageCounts)},
			},
		})
	}

	return map[string]interface{}{
		"text":   "Daily pipeline summary " + s.Date.Format("2006-01-02"),
		"blocks": blocks,
	}
}

// stageBreakdown renders stage counts in a stable order for the context line.
func stageBreakdown(counts map[string]int) string {
	stages := make([]string, 0, len(counts))
	for stage := range counts {
		stages = append(stages, stage)
	}
	sort.Strings(stages)

	line := ""
	for i, stage := range stages {
		if i > 0 {
			line += " | "
		}
		line += fmt.Sprintf("%s: %d", stage, counts[stage])
	}
	return line
}

func summaryEmailBody(s DailySummary) string {
	return fmt.Sprintf(
		"Pipeline summary for %s\n\nNew marketed leads: %d\nNew tech generated leads: %d\nSold value: $%.2f\n%s\n",
		s.Date.Format("2006-01-02"), s.NewMarketed, s.NewTechGenerated, s.SoldValue, stageBreakdown(s.StageCounts),
	)
}

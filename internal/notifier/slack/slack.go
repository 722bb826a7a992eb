package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup-ratings/internal/metrics"
	"github.com/mauv0809/pickup-ratings/internal/notifier"
	"github.com/mauv0809/pickup-ratings/internal/pickup"
	"github.com/mauv0809/pickup-ratings/internal/rating"
	"github.com/mauv0809/pickup-ratings/internal/skill"
	"github.com/slack-go/slack"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier handles sending notifications to Slack.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	return NewNotifierWithAPI(slack.New(token), channelID, metrics)
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

func (s *Notifier) sendMessage(message slack.Message, dryRun bool) (string, string, error) {
	if dryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-ts", "dry-run-thread-ts", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)

	if err != nil {
		s.metrics.IncSlackNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", s.channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncSlackNotifSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

func (s *Notifier) SendRatingResult(result *rating.Result, dryRun bool) error {
	_, _, err := s.sendMessage(s.formatRatingResult(result), dryRun)
	return err
}

// FormatRatingResult formats a rating result, e.g. for a slash command response.
func (s *Notifier) FormatRatingResult(result *rating.Result) (any, error) {
	return s.formatRatingResult(result), nil
}

func (s *Notifier) formatRatingResult(result *rating.Result) slack.Message {
	blocks := make([]slack.Block, 0)

	title := fmt.Sprintf("📊 Match #%d rated", result.MatchID)
	if result.Operation == pickup.OperationUnrate {
		title = fmt.Sprintf("↩️ Match #%d unrated", result.MatchID)
	}
	blocks = append(blocks, slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", title, true, false)))

	details := fmt.Sprintf("Queue: %s", result.QueueTypeName)
	if result.Recomputed > 1 {
		details += fmt.Sprintf("\nRecomputed %d matches", result.Recomputed)
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", details, true, false), nil, nil))

	if result.Kind == rating.ResultSummary {
		var lines []string
		for _, team := range result.Teams {
			lines = append(lines, fmt.Sprintf("• %s: %s", team.Name, outcomeLabel(team.Outcome)))
		}
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", strings.Join(lines, "\n"), true, false), nil, nil))
		return slack.NewBlockMessage(blocks...)
	}

	for _, team := range result.Teams {
		var lines []string
		for _, p := range team.Players {
			lines = append(lines, formatPlayerChange(p))
		}
		text := fmt.Sprintf("%s (%s)\n%s", team.Name, outcomeLabel(team.Outcome), strings.Join(lines, "\n"))
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", text, true, false), nil, nil))
	}

	return slack.NewBlockMessage(blocks...)
}

func formatPlayerChange(p rating.PlayerChange) string {
	name := p.Name
	if name == "" {
		name = p.PlayerID
	}
	line := fmt.Sprintf("• %s: %s → %s", name, formatRating(p.Before), formatRating(p.After))
	switch delta := p.RankDelta(); {
	case p.RankAfter == 0:
	case p.RankBefore == 0:
		line += fmt.Sprintf(" (new, #%d)", p.RankAfter)
	case delta > 0:
		line += fmt.Sprintf(" (▲%d, #%d)", delta, p.RankAfter)
	case delta < 0:
		line += fmt.Sprintf(" (▼%d, #%d)", -delta, p.RankAfter)
	default:
		line += fmt.Sprintf(" (#%d)", p.RankAfter)
	}
	return line
}

func formatRating(r *skill.Rating) string {
	if r == nil {
		return "unrated"
	}
	return r.String()
}

func outcomeLabel(o pickup.Outcome) string {
	switch o {
	case pickup.OutcomeWin:
		return "won"
	case pickup.OutcomeLoss:
		return "lost"
	case pickup.OutcomeDraw:
		return "draw"
	default:
		return "no result"
	}
}

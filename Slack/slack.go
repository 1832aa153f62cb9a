package Slack

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"Convoy/Models"

	"github.com/slack-go/slack"
)

// Notifier posts snag notices to one Slack channel.
// Required Bot Token Scopes:
// - chat:write (send messages)
// - chat:write.public (send to channels without being invited)
type Notifier struct {
	api     *slack.Client
	channel string
}

func NewNotifier(token, channel string, options ...slack.Option) *Notifier {
	options = append([]slack.Option{
		slack.OptionHTTPClient(&http.Client{Timeout: 15 * time.Second}),
	}, options...)
	return &Notifier{
		api:     slack.New(token, options...),
		channel: channel,
	}
}

func (n *Notifier) NotifySnag(ctx context.Context, snag Models.Snag) error {
	_, _, err := n.api.PostMessageContext(ctx, n.channel, slack.MsgOptionText(snagMessage(snag), false))
	if err != nil {
		return fmt.Errorf("post snag %s to slack: %w", snag.SnagID, err)
	}
	return nil
}

func urgencyEmoji(level string) string {
	switch level {
	case "Critical":
		return "🔴"
	case "High":
		return "🟠"
	case "Medium":
		return "🟡"
	default:
		return "🟢"
	}
}

func snagMessage(snag Models.Snag) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *New snag %s*: %s\n", urgencyEmoji(snag.Urgency), snag.SnagID, snag.Title)
	fmt.Fprintf(&b, "• Location: %s\n", snag.Location)
	fmt.Fprintf(&b, "• Category: %s | Urgency: %s\n", snag.Category, snag.Urgency)
	fmt.Fprintf(&b, "• Reported by %s on %s", snag.ReporterName, snag.ReportDate.Format("02 Jan 2006"))
	if snag.MediaLink != "" {
		fmt.Fprintf(&b, "\n• Media: %s", snag.MediaLink)
	}
	return b.String()
}

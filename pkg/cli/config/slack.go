package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	slacksvc "github.com/secmon-lab/actiontrail/pkg/service/slack"
	"github.com/secmon-lab/actiontrail/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Slack holds CLI flags for plan broadcast notifications
type Slack struct {
	botToken  string
	channelID string
	baseURL   string
	apiURL    string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token (for posting plan notifications)",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("ACTIONTRAIL_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel ID that receives new action plans",
			Category:    "Slack",
			Destination: &x.channelID,
			Sources:     cli.EnvVars("ACTIONTRAIL_SLACK_CHANNEL"),
		},
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "Public base URL of the web UI, used for links in notifications",
			Category:    "Slack",
			Destination: &x.baseURL,
			Sources:     cli.EnvVars("ACTIONTRAIL_BASE_URL"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.String("channel", x.channelID),
		slog.String("base-url", x.baseURL),
	)
}

// IsConfigured returns true when both the bot token and channel are set
func (x *Slack) IsConfigured() bool {
	return x.botToken != "" && x.channelID != ""
}

// Configure builds the plan notifier. It returns nil without error when
// Slack is not configured.
func (x *Slack) Configure() (usecase.PlanNotifier, error) {
	if x.botToken == "" && x.channelID == "" {
		return nil, nil
	}
	if !x.IsConfigured() {
		return nil, goerr.Wrap(ErrInvalidConfig, "slack-bot-token and slack-channel must be set together",
			goerr.V("bot_token_set", x.botToken != ""),
			goerr.V("channel_set", x.channelID != ""))
	}

	var opts []slacksvc.Option
	if x.apiURL != "" {
		opts = append(opts, slacksvc.WithAPIURL(x.apiURL))
	}
	svc, err := slacksvc.New(x.botToken, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create slack service")
	}

	notifier, err := slacksvc.NewPlanNotifier(svc, x.channelID, slacksvc.WithBaseURL(x.baseURL))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create plan notifier")
	}
	return notifier, nil
}

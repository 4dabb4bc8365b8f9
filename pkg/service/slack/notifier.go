package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/utils/logging"
	"github.com/slack-go/slack"
)

const (
	maxHeaderBytes  = 150
	maxSectionBytes = 3000
)

// PlanNotifier broadcasts newly created action plans to a Slack channel
type PlanNotifier struct {
	svc       Service
	channelID string
	baseURL   string
}

type NotifierOption func(*PlanNotifier)

// WithBaseURL adds a link to the web UI in each message
func WithBaseURL(url string) NotifierOption {
	return func(n *PlanNotifier) {
		n.baseURL = strings.TrimRight(url, "/")
	}
}

func NewPlanNotifier(svc Service, channelID string, opts ...NotifierOption) (*PlanNotifier, error) {
	if svc == nil {
		return nil, goerr.New("Slack service is required")
	}
	channelID = strings.TrimPrefix(strings.TrimSpace(channelID), "#")
	if channelID == "" {
		return nil, goerr.New("Slack channel is required")
	}

	n := &PlanNotifier{svc: svc, channelID: channelID}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

func (n *PlanNotifier) NotifyPlan(ctx context.Context, plan *model.ActionPlan, author *model.User, targets []*model.User) error {
	blocks := buildPlanBlocks(plan, author, targets, n.baseURL)
	fallback := fmt.Sprintf("New action plan: %s", plan.Title)

	ts, err := n.svc.PostMessage(ctx, n.channelID, blocks, fallback)
	if err != nil {
		return goerr.Wrap(err, "failed to broadcast action plan", goerr.V("plan_id", plan.ID))
	}

	logging.From(ctx).Debug("action plan broadcast", "plan_id", plan.ID, "channel", n.channelID, "ts", ts)
	return nil
}

// describe renders a plan description: strings verbatim, anything else as
// indented JSON in a code block
func describe(p model.Payload) string {
	var s string
	if err := json.Unmarshal(p, &s); err == nil {
		return s
	}

	var v any
	if err := json.Unmarshal(p, &v); err != nil {
		return string(p)
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(p)
	}
	return "```" + string(pretty) + "```"
}

// buildPlanBlocks constructs Block Kit blocks for a plan broadcast
func buildPlanBlocks(plan *model.ActionPlan, author *model.User, targets []*model.User, baseURL string) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, truncateToMaxBytes("Action Plan: "+plan.Title, maxHeaderBytes), true, false),
		),
	}

	if desc := describe(plan.Description); desc != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, truncateToMaxBytes(desc, maxSectionBytes), false, false),
			nil, nil,
		))
	}

	var contextParts []string
	if len(targets) > 0 {
		names := make([]string, len(targets))
		for i, t := range targets {
			names[i] = t.Username
		}
		contextParts = append(contextParts, "Assigned to: "+strings.Join(names, ", "))
	} else {
		contextParts = append(contextParts, "No Assign")
	}
	if author != nil {
		contextParts = append(contextParts, "Created by: "+author.Username)
	}
	if baseURL != "" {
		contextParts = append(contextParts, fmt.Sprintf(":link: <%s|Open>", baseURL))
	}

	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType, strings.Join(contextParts, "  |  "), false, false),
	))

	return blocks
}

// truncateToMaxBytes cuts s to at most limit bytes without splitting a rune
func truncateToMaxBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

package notify

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"governor/config"
	"governor/event"
)

// SlackNotifier Slack 通知器
type SlackNotifier struct {
	webhook string
	client  *http.Client
}

// NewSlackNotifier 创建 Slack 通知器
func NewSlackNotifier(cfg *config.Config) (*SlackNotifier, error) {
	if cfg.Notifications.Slack.Webhook == "" {
		return nil, fmt.Errorf("Slack Webhook URL 未配置")
	}

	return &SlackNotifier{
		webhook: cfg.Notifications.Slack.Webhook,
		client: &http.Client{
			Timeout: 3 * time.Second,
		},
	}, nil
}

// Name 返回通知器名称
func (sn *SlackNotifier) Name() string {
	return "Slack"
}

// Send 发送通知，Slack 只接受 200
func (sn *SlackNotifier) Send(evt *event.Event) error {
	msg := map[string]interface{}{"text": formatSlackMessage(evt)}
	return postJSON(sn.client, sn.webhook, msg, string(evt.Type), func(code int) bool {
		return code == http.StatusOK
	})
}

// formatSlackMessage 格式化 Slack 消息
func formatSlackMessage(evt *event.Event) string {
	var title, emoji string
	switch evt.Type {
	case event.EventTypeAgentStarted:
		title, emoji = "Agent Started", ":rocket:"
	case event.EventTypeAgentStopped:
		title, emoji = "Agent Stopped", ":stop_sign:"
	case event.EventTypeAgentKilled:
		title, emoji = "Agent Killed", ":skull:"
	case event.EventTypeTradeExecuted:
		title, emoji = "Trade Executed", ":white_check_mark:"
	case event.EventTypeOrderFailed:
		title, emoji = "Order Failed", ":x:"
	case event.EventTypeSummaryChanged:
		title, emoji = "Performance Summary", ":bar_chart:"
	case event.EventTypeSystemStart:
		title, emoji = "System Started", ":rocket:"
	case event.EventTypeSystemStop:
		title, emoji = "System Stopped", ":stop_sign:"
	default:
		title, emoji = "System Notification", ":bell:"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n\n*Time:* %s\n\n", emoji, title, evt.Timestamp.Format("2006-01-02 15:04:05"))
	if len(evt.Data) > 0 {
		b.WriteString("*Details:*\n")
		for _, key := range sortedKeys(evt.Data) {
			fmt.Fprintf(&b, "  • %s: %v\n", key, evt.Data[key])
		}
	}
	return b.String()
}

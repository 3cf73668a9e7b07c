package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"governor/config"
	"governor/event"
)

// WebhookSchemaVersion Webhook 消息格式版本
const WebhookSchemaVersion = 1

// webhookEnvelope 推送给外部系统的统一消息体，按事件类型只填充对应字段
type webhookEnvelope struct {
	Version int            `json:"v"`
	Type    string         `json:"type"`
	TS      string         `json:"ts"`
	Host    string         `json:"host,omitempty"`
	Agent   *agentPayload  `json:"agent,omitempty"`
	Trade   *tradePayload  `json:"trade,omitempty"`
	Summary map[string]any `json:"summary,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

type agentPayload struct {
	Name string `json:"name"`
	PID  any    `json:"pid,omitempty"`
}

type tradePayload struct {
	ID    string `json:"id,omitempty"`
	Side  string `json:"side"`
	Qty   string `json:"qty,omitempty"`
	Price string `json:"price,omitempty"`
	Mode  string `json:"mode,omitempty"`
	Error string `json:"error,omitempty"`
}

// WebhookNotifier 以版本化 JSON 推送 governor 事件
type WebhookNotifier struct {
	url    string
	host   string
	client *http.Client
}

// NewWebhookNotifier 创建 Webhook 通知器，超时默认 3 秒
func NewWebhookNotifier(cfg *config.Config) (*WebhookNotifier, error) {
	if cfg.Notifications.Webhook.URL == "" {
		return nil, fmt.Errorf("Webhook URL 未配置")
	}
	timeout := cfg.Notifications.Webhook.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	host, _ := os.Hostname()
	return &WebhookNotifier{
		url:    cfg.Notifications.Webhook.URL,
		host:   host,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Name 返回通知器名称
func (wn *WebhookNotifier) Name() string {
	return "Webhook"
}

// Send 发送通知
func (wn *WebhookNotifier) Send(evt *event.Event) error {
	env := buildEnvelope(evt)
	env.Host = wn.host
	return postJSON(wn.client, wn.url, env, string(evt.Type), func(code int) bool {
		return code >= 200 && code < 300
	})
}

// buildEnvelope 把总线事件的松散 Data 映射为固定结构
func buildEnvelope(evt *event.Event) webhookEnvelope {
	env := webhookEnvelope{
		Version: WebhookSchemaVersion,
		Type:    string(evt.Type),
		TS:      evt.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	str := func(key string) string {
		if v, ok := evt.Data[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return ""
	}

	switch evt.Type {
	case event.EventTypeAgentStarted, event.EventTypeAgentStopped, event.EventTypeAgentKilled:
		env.Agent = &agentPayload{Name: str("agent"), PID: evt.Data["pid"]}
	case event.EventTypeTradeExecuted, event.EventTypeOrderFailed:
		env.Trade = &tradePayload{
			ID:    str("id"),
			Side:  str("side"),
			Qty:   str("qty"),
			Price: str("price"),
			Mode:  str("mode"),
			Error: str("error"),
		}
	case event.EventTypeSummaryChanged:
		env.Summary = evt.Data
	default:
		if len(evt.Data) > 0 {
			env.Extra = evt.Data
		}
	}
	return env
}

// postJSON 带超时 POST 一个 JSON 消息体，ok 判断状态码是否成功
func postJSON(client *http.Client, url string, body any, eventType string, ok func(int) bool) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Governor-Event", eventType)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	if !ok(resp.StatusCode) {
		return fmt.Errorf("%s 返回错误状态码: %d", url, resp.StatusCode)
	}
	return nil
}

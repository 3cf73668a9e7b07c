package notify

import (
	"context"
	"sort"
	"sync"

	"governor/config"
	"governor/event"
	"governor/logger"
)

// Notifier 通知接口
type Notifier interface {
	Send(event *event.Event) error
	Name() string
}

// NotificationService 通知服务：订阅事件总线，转发到所有启用的渠道
type NotificationService struct {
	notifiers []Notifier
	wg        sync.WaitGroup
}

// NewNotificationService 创建通知服务，未启用时返回没有渠道的服务
func NewNotificationService(cfg *config.Config) *NotificationService {
	ns := &NotificationService{}
	if !cfg.Notifications.Enabled {
		return ns
	}

	if cfg.Notifications.Webhook.URL != "" {
		webhookNotifier, err := NewWebhookNotifier(cfg)
		if err != nil {
			logger.Warn("⚠️ 初始化 Webhook 通知失败: %v", err)
		} else {
			ns.notifiers = append(ns.notifiers, webhookNotifier)
			logger.Info("✅ Webhook 通知已启用")
		}
	}

	if cfg.Notifications.Slack.Webhook != "" {
		slackNotifier, err := NewSlackNotifier(cfg)
		if err != nil {
			logger.Warn("⚠️ 初始化 Slack 通知失败: %v", err)
		} else {
			ns.notifiers = append(ns.notifiers, slackNotifier)
			logger.Info("✅ Slack 通知已启用")
		}
	}
	return ns
}

// Add 追加通知渠道
func (ns *NotificationService) Add(n Notifier) {
	ns.notifiers = append(ns.notifiers, n)
}

// Enabled 是否有可用渠道
func (ns *NotificationService) Enabled() bool {
	return len(ns.notifiers) > 0
}

// Run 消费事件总线直到 ctx 取消或总线关闭
func (ns *NotificationService) Run(ctx context.Context, bus *event.EventBus) {
	ch := bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			ns.wg.Wait()
			return
		case evt, ok := <-ch:
			if !ok {
				ns.wg.Wait()
				return
			}
			ns.Send(evt)
		}
	}
}

// Send 发送通知（异步，不阻塞）
func (ns *NotificationService) Send(evt *event.Event) {
	if evt == nil || len(ns.notifiers) == 0 {
		return
	}

	ns.wg.Add(1)
	go func() {
		defer ns.wg.Done()
		// 并发发送到所有启用的通知渠道
		var wg sync.WaitGroup
		for _, notifier := range ns.notifiers {
			wg.Add(1)
			go func(n Notifier) {
				defer wg.Done()
				if err := n.Send(evt); err != nil {
					logger.Warn("⚠️ [%s] 通知发送失败: %v", n.Name(), err)
				}
			}(notifier)
		}
		wg.Wait()
	}()
}

// Wait 等待已发出的通知完成
func (ns *NotificationService) Wait() {
	ns.wg.Wait()
}

// sortedKeys 事件数据按键排序，消息内容稳定
func sortedKeys(data map[string]interface{}) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

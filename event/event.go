package event

import (
	"time"

	"governor/logger"
)

// EventType 事件类型
type EventType string

const (
	EventTypeAgentStarted   EventType = "agent_started"
	EventTypeAgentStopped   EventType = "agent_stopped"
	EventTypeAgentKilled    EventType = "agent_killed" // 优雅窗口超时后强制结束
	EventTypeTradeExecuted  EventType = "trade_executed"
	EventTypeOrderFailed    EventType = "order_failed"
	EventTypeSummaryChanged EventType = "summary_changed"
	EventTypeSystemStart    EventType = "system_start"
	EventTypeSystemStop     EventType = "system_stop"
)

// Event 进程内通知事件
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      map[string]interface{}
}

// EventBus 事件总线
type EventBus struct {
	eventCh chan *Event
}

// NewEventBus 创建事件总线
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventBus{eventCh: make(chan *Event, bufferSize)}
}

// Publish 发布事件（非阻塞，nil 总线上为空操作）
func (eb *EventBus) Publish(evt *Event) {
	if eb == nil || evt == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	select {
	case eb.eventCh <- evt:
	default:
		logger.Warn("⚠️ 事件队列已满，丢弃事件: %s", evt.Type)
	}
}

// Subscribe 订阅事件
func (eb *EventBus) Subscribe() <-chan *Event {
	return eb.eventCh
}

// Close 关闭事件总线
func (eb *EventBus) Close() {
	close(eb.eventCh)
}

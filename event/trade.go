package event

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeSchemaVersion 成交日志格式版本
const TradeSchemaVersion = 1

// Side 成交方向（相对基础资产）
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Mode 成交来源
type Mode string

const (
	ModeDryRun Mode = "dry_run"
	ModeLive   Mode = "live"
)

// TradeEvent 成交日志中的一行。引擎是唯一写入方，监控按行顺序读取。
type TradeEvent struct {
	Version int             `json:"v"`
	ID      string          `json:"id"`
	Time    time.Time       `json:"ts"`
	Side    Side            `json:"side"`
	Base    string          `json:"base"`
	Quote   string          `json:"quote"`
	Qty     decimal.Decimal `json:"qty"`
	Price   decimal.Decimal `json:"price"`
	Mode    Mode            `json:"mode"`
	TxHash  string          `json:"tx_hash,omitempty"`
}

// Validate 检查记录是否可用于配对
func (e TradeEvent) Validate() error {
	if e.Version != TradeSchemaVersion {
		return fmt.Errorf("不支持的日志版本: %d", e.Version)
	}
	if e.Side != SideBuy && e.Side != SideSell {
		return fmt.Errorf("未知方向: %q", e.Side)
	}
	if !e.Qty.IsPositive() || !e.Price.IsPositive() {
		return fmt.Errorf("数量和价格必须大于0")
	}
	return nil
}

// TradeWriter 追加写入成交日志，每次成交一行，写入后立即落盘
type TradeWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *bufio.Writer
	now  func() time.Time
}

// NewTradeWriter 创建写入器，文件在第一次写入时打开
func NewTradeWriter(path string) *TradeWriter {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	return &TradeWriter{path: path, now: time.Now}
}

// Path 日志路径
func (tw *TradeWriter) Path() string {
	return tw.path
}

func (tw *TradeWriter) ensureOpenLocked() error {
	if tw.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(tw.path), 0o755); err != nil {
		return fmt.Errorf("创建日志目录失败: %w", err)
	}
	f, err := os.OpenFile(tw.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("打开成交日志失败: %w", err)
	}
	tw.file = f
	tw.w = bufio.NewWriterSize(f, 64*1024)
	return nil
}

// Append 写入一条成交记录，缺省字段（版本、ID、时间）自动补齐
func (tw *TradeWriter) Append(e TradeEvent) (TradeEvent, error) {
	if tw == nil {
		return e, errors.New("成交日志未配置")
	}
	if e.Version == 0 {
		e.Version = TradeSchemaVersion
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = tw.now().UTC()
	}
	if err := e.Validate(); err != nil {
		return e, err
	}

	b, err := json.Marshal(e)
	if err != nil {
		return e, fmt.Errorf("序列化成交记录失败: %w", err)
	}

	tw.mu.Lock()
	defer tw.mu.Unlock()
	if err := tw.ensureOpenLocked(); err != nil {
		return e, err
	}
	if _, err := tw.w.Write(append(b, '\n')); err != nil {
		return e, err
	}
	if err := tw.w.Flush(); err != nil {
		return e, err
	}
	return e, tw.file.Sync()
}

// Close 刷新缓冲并关闭文件
func (tw *TradeWriter) Close() error {
	if tw == nil {
		return nil
	}
	tw.mu.Lock()
	defer tw.mu.Unlock()

	var firstErr error
	if tw.w != nil {
		firstErr = tw.w.Flush()
	}
	if tw.file != nil {
		if err := tw.file.Close(); err != nil && firstErr == nil && !errors.Is(err, os.ErrClosed) {
			firstErr = err
		}
	}
	tw.w, tw.file = nil, nil
	return firstErr
}

// maxTradeLine 单行成交日志上限，超长行整行跳过
const maxTradeLine = 1024 * 1024

// ReadTrades 从头读取整个成交日志。文件不存在返回空；无法解析或超长的行跳过并计数。
func ReadTrades(path string) ([]TradeEvent, int, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("打开成交日志失败: %w", err)
	}
	defer f.Close()

	var (
		events  []TradeEvent
		skipped int
	)
	r := bufio.NewReaderSize(f, 64*1024)
	for {
		line, tooLong, err := readLine(r)
		if err != nil && !errors.Is(err, io.EOF) {
			return events, skipped, fmt.Errorf("读取成交日志失败: %w", err)
		}
		switch {
		case tooLong:
			skipped++
		case len(bytes.TrimSpace(line)) > 0:
			if e, ok := parseTrade(line); ok {
				events = append(events, e)
			} else {
				skipped++
			}
		}
		if err != nil {
			return events, skipped, nil
		}
	}
}

// readLine 读到下一个换行符。超过 maxTradeLine 的部分直接丢弃，只返回 tooLong。
func readLine(r *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > maxTradeLine {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, tooLong, err
	}
}

func parseTrade(line []byte) (TradeEvent, bool) {
	var e TradeEvent
	if err := json.Unmarshal(bytes.TrimSpace(line), &e); err != nil {
		return e, false
	}
	return e, e.Validate() == nil
}

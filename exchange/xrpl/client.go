package xrpl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"governor/metrics"
)

// Client 账本节点只读客户端，按 URL scheme 选择传输：http(s) 走 JSON-RPC，ws(s) 走 WebSocket
type Client struct {
	endpoint   string
	websocket  bool
	httpClient *http.Client
	dialer     *websocket.Dialer
	limiter    *rate.Limiter
	timeout    time.Duration
	requestID  atomic.Uint64
}

// NewClient 创建客户端；timeout 约束单次请求（含建连）
func NewClient(endpoint string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("解析节点地址失败: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		endpoint: endpoint,
		timeout:  timeout,
		limiter:  rate.NewLimiter(rate.Limit(10), 10), // 公共节点限流，10次/秒
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		c.httpClient = &http.Client{Timeout: timeout}
	case "ws", "wss":
		c.websocket = true
		c.dialer = &websocket.Dialer{HandshakeTimeout: timeout}
	default:
		return nil, fmt.Errorf("不支持的节点协议: %q", u.Scheme)
	}
	return c, nil
}

// FetchBook 拉取 base/quote 两侧订单簿
func (c *Client) FetchBook(ctx context.Context, base, quote Asset, limit int) (Book, error) {
	asks, err := c.BookOffers(ctx, base, quote, limit)
	if err != nil {
		return Book{}, fmt.Errorf("获取卖单失败: %w", err)
	}
	bids, err := c.BookOffers(ctx, quote, base, limit)
	if err != nil {
		return Book{}, fmt.Errorf("获取买单失败: %w", err)
	}
	return Book{Asks: asks, Bids: bids}, nil
}

// BookOffers 查询 taker 得到 gets、支付 pays 的挂单
func (c *Client) BookOffers(ctx context.Context, gets, pays Asset, limit int) ([]Offer, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("速率限制等待失败: %w", err)
	}

	params := bookOffersParams{TakerGets: gets, TakerPays: pays, Limit: limit}
	start := time.Now()
	var (
		res *bookOffersResult
		err error
	)
	if c.websocket {
		res, err = c.callWebSocket(ctx, params)
	} else {
		res, err = c.callJSONRPC(ctx, params)
	}

	status := "ok"
	if err == nil && res.Status == "error" {
		err = fmt.Errorf("节点返回错误: %s %s", res.Error, res.ErrorMessage)
	}
	if err != nil {
		status = "error"
	}
	metrics.GetPrometheusMetrics().RecordAPICall("xrpl", "book_offers", status, time.Since(start))
	if err != nil {
		return nil, err
	}
	return res.Offers, nil
}

func (c *Client) callJSONRPC(ctx context.Context, params bookOffersParams) (*bookOffersResult, error) {
	body, err := json.Marshal(map[string]interface{}{
		"method": "book_offers",
		"params": []bookOffersParams{params},
	})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求节点失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("节点返回错误状态 %d: %s", resp.StatusCode, string(data))
	}

	var envelope struct {
		Result bookOffersResult `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	return &envelope.Result, nil
}

func (c *Client) callWebSocket(ctx context.Context, params bookOffersParams) (*bookOffersResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, _, err := c.dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("连接 WebSocket 失败: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
		_ = conn.SetReadDeadline(deadline)
	}

	id := c.requestID.Add(1)
	msg := map[string]interface{}{
		"id":         id,
		"command":    "book_offers",
		"taker_gets": params.TakerGets,
		"taker_pays": params.TakerPays,
	}
	if params.Limit > 0 {
		msg["limit"] = params.Limit
	}
	if err := conn.WriteJSON(msg); err != nil {
		return nil, fmt.Errorf("发送请求失败: %w", err)
	}

	// 节点可能先推送其它消息，按 id 匹配响应
	for {
		var resp struct {
			ID           uint64           `json:"id"`
			Type         string           `json:"type"`
			Status       string           `json:"status"`
			Error        string           `json:"error"`
			ErrorMessage string           `json:"error_message"`
			Result       bookOffersResult `json:"result"`
		}
		if err := conn.ReadJSON(&resp); err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("等待响应超时: %w", ctx.Err())
			}
			return nil, fmt.Errorf("读取响应失败: %w", err)
		}
		if resp.ID != id {
			continue
		}
		if resp.Status == "error" {
			return &bookOffersResult{Status: "error", Error: resp.Error, ErrorMessage: resp.ErrorMessage}, nil
		}
		return &resp.Result, nil
	}
}

// PairSource 固定交易对的订单簿来源
type PairSource struct {
	client *Client
	base   Asset
	quote  Asset
	limit  int
}

// Pair 绑定交易对
func (c *Client) Pair(base, quote Asset, limit int) *PairSource {
	return &PairSource{client: c, base: base, quote: quote, limit: limit}
}

// FetchBook 拉取两侧订单簿
func (p *PairSource) FetchBook(ctx context.Context) (Book, error) {
	return p.client.FetchBook(ctx, p.base, p.quote, p.limit)
}

// Base 基础资产
func (p *PairSource) Base() Asset { return p.base }

// Quote 报价资产
func (p *PairSource) Quote() Asset { return p.quote }

package order

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"governor/metrics"
)

// Confirmation 账本提交结果
type Confirmation struct {
	Hash   string `json:"hash"`
	Status string `json:"engine_result"`
}

// LedgerClient 签名并提交挂单的外部能力
type LedgerClient interface {
	Submit(ctx context.Context, ins OfferInstruction) (Confirmation, error)
}

// SignerClient 把挂单指令交给外部签名服务，由其完成签名与提交
type SignerClient struct {
	url         string
	client      *http.Client
	rateLimiter *rate.Limiter
}

// NewSignerClient 创建签名服务客户端；perSecond 为每秒最多提交次数
func NewSignerClient(url string, timeout time.Duration, perSecond float64) *SignerClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if perSecond <= 0 {
		perSecond = 1
	}
	return &SignerClient{
		url:         url,
		client:      &http.Client{Timeout: timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// Submit 提交挂单，不重试；ClientOrderID 作为幂等键传给签名服务
func (sc *SignerClient) Submit(ctx context.Context, ins OfferInstruction) (Confirmation, error) {
	if err := sc.rateLimiter.Wait(ctx); err != nil {
		return Confirmation{}, fmt.Errorf("速率限制等待失败: %w", err)
	}

	payload := map[string]interface{}{
		"client_order_id": ins.ClientOrderID,
		"transaction": map[string]interface{}{
			"TransactionType": "OfferCreate",
			"TakerGets":       ins.TakerGets,
			"TakerPays":       ins.TakerPays,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Confirmation{}, fmt.Errorf("序列化指令失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sc.url, bytes.NewReader(body))
	if err != nil {
		return Confirmation{}, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", ins.ClientOrderID)

	start := time.Now()
	resp, err := sc.client.Do(req)
	if err != nil {
		metrics.GetPrometheusMetrics().RecordAPICall("signer", "submit", "error", time.Since(start))
		return Confirmation{}, fmt.Errorf("请求签名服务失败: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.GetPrometheusMetrics().RecordAPICall("signer", "submit", "error", time.Since(start))
		return Confirmation{}, fmt.Errorf("签名服务返回错误状态 %d: %s", resp.StatusCode, string(data))
	}
	metrics.GetPrometheusMetrics().RecordAPICall("signer", "submit", "ok", time.Since(start))

	var conf Confirmation
	if err := json.Unmarshal(data, &conf); err != nil {
		return Confirmation{}, fmt.Errorf("解析响应失败: %w", err)
	}
	if conf.Hash == "" {
		return Confirmation{}, fmt.Errorf("签名服务未返回交易哈希: %s", string(data))
	}
	return conf, nil
}

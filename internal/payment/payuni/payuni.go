package payuni

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paid-tw/paid/internal/apperr"
	"github.com/paid-tw/paid/internal/constants"
	"github.com/paid-tw/paid/internal/logger"
	"github.com/paid-tw/paid/internal/payment"
)

const (
	SandboxBaseURL    = "https://sandbox-api.payuni.com.tw"
	ProductionBaseURL = "https://api.payuni.com.tw"

	queryPath       = "/api/trade/query"
	protocolVersion = "2.0"
	userAgent       = "payuni"
	defaultTimeout  = 15 * time.Second
)

// Options PAYUNi 适配器参数
type Options struct {
	SandboxURL    string
	ProductionURL string
	HTTPClient    *http.Client
	Timeout       time.Duration
	Now           func() time.Time
}

// Adapter PAYUNi 支付服务适配器（仅交易查询已实现）
type Adapter struct {
	sandboxURL    string
	productionURL string
	client        *http.Client
	now           func() time.Time
}

var _ payment.Adapter = (*Adapter)(nil)

// New 创建 PAYUNi 适配器
func New(opts Options) *Adapter {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Adapter{
		sandboxURL:    firstNonEmpty(opts.SandboxURL, SandboxBaseURL),
		productionURL: firstNonEmpty(opts.ProductionURL, ProductionBaseURL),
		client:        client,
		now:           now,
	}
}

// Name 实现 payment.Adapter
func (a *Adapter) Name() string {
	return constants.ProviderPayuni
}

// MapCreate 映射创建付款字段
func (a *Adapter) MapCreate(input payment.CreateInput) (payment.Payload, error) {
	payload := payment.Payload{
		"Amt":       input.Amount.String(),
		"Currency":  input.Currency,
		"OrderNo":   input.OrderID,
		"ItemDesc":  input.Description,
		"PayMethod": input.Method,
	}
	if input.ReturnURL != "" {
		payload["ReturnURL"] = input.ReturnURL
	}
	if input.NotifyURL != "" {
		payload["NotifyURL"] = input.NotifyURL
	}
	return payload, nil
}

// MapGet 映射查询字段，ID 对应 MerTradeNo，TradeNo 对应网关交易号
func (a *Adapter) MapGet(input payment.GetInput) (payment.Payload, error) {
	id := strings.TrimSpace(input.ID)
	tradeNo := strings.TrimSpace(input.TradeNo)
	if (id == "") == (tradeNo == "") {
		return nil, apperr.Validation("exactly one of id or trade no is required")
	}
	if id != "" {
		return payment.Payload{"MerTradeNo": id}, nil
	}
	return payment.Payload{"TradeNo": tradeNo}, nil
}

// MapRefund 映射退款字段，未指定金额时不带 Amount（全额退款）
func (a *Adapter) MapRefund(input payment.RefundInput) (payment.Payload, error) {
	payload := payment.Payload{"OrderNo": input.ID}
	if input.Amount != nil {
		payload["Amount"] = input.Amount.String()
	}
	if input.Reason != "" {
		payload["Reason"] = input.Reason
	}
	return payload, nil
}

// CreatePayment 尚未实现
func (a *Adapter) CreatePayment(context.Context, payment.Credentials, payment.Payload) (*payment.Result, error) {
	return nil, payment.NotImplemented(constants.ProviderPayuni, constants.OperationCreate)
}

// RefundPayment 尚未实现
func (a *Adapter) RefundPayment(context.Context, payment.Credentials, payment.Payload) (*payment.Result, error) {
	return nil, payment.NotImplemented(constants.ProviderPayuni, constants.OperationRefund)
}

// GetPayment 加密查询交易并标准化结果
func (a *Adapter) GetPayment(ctx context.Context, creds payment.Credentials, payload payment.Payload) (*payment.Result, error) {
	if err := ValidateCredentials(creds); err != nil {
		return nil, err
	}
	codec, err := NewCodec(creds.HashKey, creds.HashIV)
	if err != nil {
		return nil, err
	}

	query := QueryRequest{
		MerID:      creds.MerchantID,
		MerTradeNo: payloadString(payload, "MerTradeNo"),
		TradeNo:    payloadString(payload, "TradeNo"),
		Timestamp:  a.now().Unix(),
	}
	plaintext, err := query.Encode()
	if err != nil {
		return nil, err
	}
	encryptInfo := codec.Encrypt(plaintext)

	endpoint := a.endpoint(creds.Sandbox)
	logger.Debugw("payuni_query_request",
		"endpoint", endpoint,
		"mer_id", creds.MerchantID,
		"mer_trade_no", query.MerTradeNo,
		"trade_no", query.TradeNo,
	)
	body, err := a.postForm(ctx, endpoint, map[string]string{
		"MerID":       creds.MerchantID,
		"Version":     protocolVersion,
		"EncryptInfo": encryptInfo,
		"HashInfo":    codec.Hash(encryptInfo),
	})
	if err != nil {
		return nil, err
	}
	return handleQueryResponse(codec, body)
}

// ValidateCredentials 校验商户凭证完整性
func ValidateCredentials(creds payment.Credentials) error {
	var missing []string
	if strings.TrimSpace(creds.MerchantID) == "" {
		missing = append(missing, "merchantId")
	}
	if creds.HashKey == "" {
		missing = append(missing, "hashKey")
	}
	if creds.HashIV == "" {
		missing = append(missing, "hashIv")
	}
	if len(missing) > 0 {
		return apperr.Validation("payuni credentials missing: " + strings.Join(missing, ", "))
	}
	return nil
}

func (a *Adapter) endpoint(sandbox bool) string {
	base := a.productionURL
	if sandbox {
		base = a.sandboxURL
	}
	return strings.TrimRight(base, "/") + queryPath
}

func (a *Adapter) postForm(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, apperr.WrapError(apperr.CodeNetwork, "payuni request build failed", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, apperr.WrapError(apperr.CodeNetwork, "payuni request canceled", err)
		}
		return nil, apperr.WrapError(apperr.CodeNetwork, "payuni request failed", err)
	}
	defer resp.Body.Close()

	logger.Debugw("payuni_query_response",
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.WrapError(apperr.CodeNetwork, "payuni request failed",
			fmt.Errorf("unexpected http status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.WrapError(apperr.CodeNetwork, "payuni response read failed", err)
	}
	return body, nil
}

func payloadString(payload payment.Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

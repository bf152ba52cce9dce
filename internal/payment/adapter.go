package payment

import (
	"context"
	"fmt"

	"github.com/paid-tw/paid/internal/apperr"

	"github.com/shopspring/decimal"
)

// Credentials 单次调用的商户凭证与模式
type Credentials struct {
	MerchantID string
	HashKey    string
	HashIV     string
	Sandbox    bool
}

// Payload 支付服务字段名的请求内容
type Payload map[string]interface{}

// CreateInput 创建付款输入
type CreateInput struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	Method      string
	OrderID     string
	ReturnURL   string
	NotifyURL   string
}

// GetInput 查询付款输入，ID 与 TradeNo 二选一
type GetInput struct {
	ID      string // 商户订单号 MerTradeNo
	TradeNo string // 网关交易号
}

// RefundInput 退款输入，Amount 为空表示全额退款
type RefundInput struct {
	ID     string
	Amount *decimal.Decimal
	Reason string
}

// NormalizedPayment 标准化后的付款记录
type NormalizedPayment struct {
	Status     string                 `json:"status"`
	Method     string                 `json:"method,omitempty"`
	Amount     *decimal.Decimal       `json:"amount,omitempty"`
	PaidAt     string                 `json:"paidAt,omitempty"`
	TradeNo    string                 `json:"tradeNo,omitempty"`
	MerTradeNo string                 `json:"merTradeNo,omitempty"`
	Raw        map[string]interface{} `json:"raw,omitempty"`
}

// Result 网关调用结果
// OK 为 false 时 Code/Message 描述网关或解密失败，Payment 仍可能为空记录。
type Result struct {
	OK       bool                   `json:"ok"`
	Code     string                 `json:"code,omitempty"`
	Message  string                 `json:"message,omitempty"`
	Payment  *NormalizedPayment     `json:"payment,omitempty"`
	Payments []NormalizedPayment    `json:"payments,omitempty"`
	Raw      map[string]interface{} `json:"raw,omitempty"`
}

// Adapter 支付服务能力接口
type Adapter interface {
	Name() string
	MapCreate(input CreateInput) (Payload, error)
	MapGet(input GetInput) (Payload, error)
	MapRefund(input RefundInput) (Payload, error)
	CreatePayment(ctx context.Context, creds Credentials, payload Payload) (*Result, error)
	GetPayment(ctx context.Context, creds Credentials, payload Payload) (*Result, error)
	RefundPayment(ctx context.Context, creds Credentials, payload Payload) (*Result, error)
}

// NotImplementedError 支付服务未实现该操作
type NotImplementedError struct {
	Provider  string
	Operation string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s not implemented for provider %s", e.Operation, e.Provider)
}

// Unwrap 归类为 apperr.ErrNotImplemented
func (e *NotImplementedError) Unwrap() error {
	return apperr.ErrNotImplemented
}

// NotImplemented 创建未实现错误
func NotImplemented(provider, operation string) error {
	return &NotImplementedError{Provider: provider, Operation: operation}
}

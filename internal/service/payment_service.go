package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/paid-tw/paid/internal/apperr"
	"github.com/paid-tw/paid/internal/config"
	"github.com/paid-tw/paid/internal/constants"
	"github.com/paid-tw/paid/internal/logger"
	"github.com/paid-tw/paid/internal/payment"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService 支付服务
type PaymentService struct {
	resolver *config.Resolver
	registry *payment.Registry
	validate *validator.Validate
}

// NewPaymentService 创建支付服务
func NewPaymentService(resolver *config.Resolver, registry *payment.Registry, validate *validator.Validate) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	return &PaymentService{
		resolver: resolver,
		registry: registry,
		validate: validate,
	}
}

// CreatePaymentInput 创建付款请求
type CreatePaymentInput struct {
	Provider    string
	Amount      decimal.Decimal
	Currency    string `validate:"omitempty,len=3,alpha"`
	Method      string `validate:"required,oneof=card linepay atm cvs"`
	OrderID     string `validate:"required,max=64"`
	Description string `validate:"max=200"`
	ReturnURL   string `validate:"omitempty,url"`
	NotifyURL   string `validate:"omitempty,url"`
	Flags       *config.ProviderConfig
}

// CreatePaymentResult 创建付款结果
// PayloadHash 为本地计算的请求摘要，不是网关交易号。
type CreatePaymentResult struct {
	Provider    string          `json:"provider"`
	Status      string          `json:"status"`
	PayloadHash string          `json:"payloadHash"`
	Environment string          `json:"environment"`
	RequestID   string          `json:"requestId"`
	Result      *payment.Result `json:"result,omitempty"`
}

// GetPaymentInput 查询付款请求，ID 与 TradeNo 二选一
type GetPaymentInput struct {
	Provider string
	ID       string
	TradeNo  string
	Flags    *config.ProviderConfig
}

// GetPaymentResult 查询付款结果
type GetPaymentResult struct {
	Provider    string                     `json:"provider"`
	ID          string                     `json:"id"`
	Status      string                     `json:"status"`
	Environment string                     `json:"environment"`
	RequestID   string                     `json:"requestId"`
	Data        *payment.NormalizedPayment `json:"data,omitempty"`
	Result      *payment.Result            `json:"result"`
}

// RefundPaymentInput 退款请求，Amount 为空表示全额退款
type RefundPaymentInput struct {
	Provider string
	ID       string `validate:"required"`
	Amount   *decimal.Decimal
	Reason   string `validate:"max=200"`
	Flags    *config.ProviderConfig
}

// RefundPaymentResult 退款结果
type RefundPaymentResult struct {
	Provider    string          `json:"provider"`
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Environment string          `json:"environment"`
	RequestID   string          `json:"requestId"`
	Result      *payment.Result `json:"result,omitempty"`
}

func paymentLogger(kv ...interface{}) *zap.SugaredLogger {
	return logger.SW(kv...)
}

// CreatePayment 创建付款
func (s *PaymentService) CreatePayment(ctx context.Context, input CreatePaymentInput, override *config.RuntimeOverride) (*CreatePaymentResult, error) {
	input.Method = strings.ToLower(strings.TrimSpace(input.Method))
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	if input.Currency == "" {
		input.Currency = "TWD"
	}
	if !input.Amount.IsPositive() {
		return nil, apperr.Validation("amount must be greater than 0")
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	adapter, cfg, err := s.prepare(input.Provider, input.Flags, override)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	log := paymentLogger("request_id", requestID, "provider", cfg.Provider, "operation", constants.OperationCreate)

	mapped, err := adapter.MapCreate(payment.CreateInput{
		Amount:      input.Amount,
		Currency:    input.Currency,
		Description: input.Description,
		Method:      input.Method,
		OrderID:     input.OrderID,
		ReturnURL:   input.ReturnURL,
		NotifyURL:   input.NotifyURL,
	})
	if err != nil {
		return nil, err
	}
	outbound := withMerchant(mapped, cfg)
	payloadHash, err := hashPayload(outbound)
	if err != nil {
		return nil, err
	}

	log.Infow("payment_create_start", "order_id", input.OrderID, "payload_hash", payloadHash, "sandbox", cfg.Sandbox)
	result, err := adapter.CreatePayment(ctx, credentialsOf(cfg), outbound)
	if err != nil {
		log.Warnw("payment_create_failed", "error", err)
		return nil, err
	}
	return &CreatePaymentResult{
		Provider:    cfg.Provider,
		Status:      constants.ResultStatusCreated,
		PayloadHash: payloadHash,
		Environment: cfg.Environment(),
		RequestID:   requestID,
		Result:      result,
	}, nil
}

// GetPayment 查询付款
func (s *PaymentService) GetPayment(ctx context.Context, input GetPaymentInput, override *config.RuntimeOverride) (*GetPaymentResult, error) {
	input.ID = strings.TrimSpace(input.ID)
	input.TradeNo = strings.TrimSpace(input.TradeNo)
	if (input.ID == "") == (input.TradeNo == "") {
		return nil, apperr.Validation("exactly one of id or trade no is required")
	}

	adapter, cfg, err := s.prepare(input.Provider, input.Flags, override)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	log := paymentLogger("request_id", requestID, "provider", cfg.Provider, "operation", constants.OperationGet)

	mapped, err := adapter.MapGet(payment.GetInput{ID: input.ID, TradeNo: input.TradeNo})
	if err != nil {
		return nil, err
	}

	log.Infow("payment_get_start",
		"id", input.ID,
		"trade_no", input.TradeNo,
		"sandbox", cfg.Sandbox,
		"sandbox_source", cfg.SandboxSource,
	)
	result, err := adapter.GetPayment(ctx, credentialsOf(cfg), mapped)
	if err != nil {
		log.Warnw("payment_get_failed", "error", err)
		return nil, err
	}
	if !result.OK {
		log.Warnw("payment_get_not_ok", "code", result.Code, "message", result.Message)
	} else {
		log.Infow("payment_get_done", "rows", len(result.Payments))
	}

	id := input.ID
	if id == "" {
		id = input.TradeNo
	}
	return &GetPaymentResult{
		Provider:    cfg.Provider,
		ID:          id,
		Status:      constants.ResultStatusFetched,
		Environment: cfg.Environment(),
		RequestID:   requestID,
		Data:        result.Payment,
		Result:      result,
	}, nil
}

// RefundPayment 退款
func (s *PaymentService) RefundPayment(ctx context.Context, input RefundPaymentInput, override *config.RuntimeOverride) (*RefundPaymentResult, error) {
	input.ID = strings.TrimSpace(input.ID)
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	if input.Amount != nil && !input.Amount.IsPositive() {
		return nil, apperr.Validation("refund amount must be greater than 0")
	}

	adapter, cfg, err := s.prepare(input.Provider, input.Flags, override)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	log := paymentLogger("request_id", requestID, "provider", cfg.Provider, "operation", constants.OperationRefund)

	mapped, err := adapter.MapRefund(payment.RefundInput{ID: input.ID, Amount: input.Amount, Reason: input.Reason})
	if err != nil {
		return nil, err
	}
	log.Infow("payment_refund_start", "id", input.ID, "full_refund", input.Amount == nil, "sandbox", cfg.Sandbox)
	result, err := adapter.RefundPayment(ctx, credentialsOf(cfg), withMerchant(mapped, cfg))
	if err != nil {
		log.Warnw("payment_refund_failed", "error", err)
		return nil, err
	}
	return &RefundPaymentResult{
		Provider:    cfg.Provider,
		ID:          input.ID,
		Status:      constants.ResultStatusRefunded,
		Environment: cfg.Environment(),
		RequestID:   requestID,
		Result:      result,
	}, nil
}

// ResolveEnvironment 解析本次调用的模式（sandbox/production），失败时返回空字符串
func (s *PaymentService) ResolveEnvironment(provider string, flags *config.ProviderConfig, override *config.RuntimeOverride) string {
	doc := s.resolver.Document()
	name, err := s.resolver.ResolveProviderNameFrom(doc, provider)
	if err != nil {
		return ""
	}
	return s.resolver.ResolveProviderConfigFrom(doc, name, flags, override).Environment()
}

// prepare 每次调用只读取一次配置文档
func (s *PaymentService) prepare(provider string, flags *config.ProviderConfig, override *config.RuntimeOverride) (payment.Adapter, config.EffectiveConfig, error) {
	doc := s.resolver.Document()
	name, err := s.resolver.ResolveProviderNameFrom(doc, provider)
	if err != nil {
		return nil, config.EffectiveConfig{}, err
	}
	adapter, err := s.registry.Get(name)
	if err != nil {
		return nil, config.EffectiveConfig{}, err
	}
	return adapter, s.resolver.ResolveProviderConfigFrom(doc, name, flags, override), nil
}

func (s *PaymentService) validateInput(input interface{}) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.WrapError(apperr.CodeValidation, "invalid input", err)
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			messages = append(messages, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		messages = append(messages, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return apperr.Validation("invalid input: " + strings.Join(messages, "; "))
}

func credentialsOf(cfg config.EffectiveConfig) payment.Credentials {
	return payment.Credentials{
		MerchantID: cfg.MerchantID,
		HashKey:    cfg.HashKey,
		HashIV:     cfg.HashIV,
		Sandbox:    cfg.Sandbox,
	}
}

// withMerchant 附加商户号与模式，密钥不进入 payload
func withMerchant(mapped payment.Payload, cfg config.EffectiveConfig) payment.Payload {
	outbound := make(payment.Payload, len(mapped)+2)
	for k, v := range mapped {
		outbound[k] = v
	}
	outbound["MerchantID"] = cfg.MerchantID
	outbound["Sandbox"] = cfg.Sandbox
	return outbound
}

func hashPayload(payload payment.Payload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", apperr.WrapError(apperr.CodeInternal, "encode payload failed", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
